// Package api
// Author: momentics
//
// Live introspection of allocator state.

package api

// Debug is a registry of named probes evaluated on demand.
type Debug interface {
	// DumpState evaluates every probe. A probe that panics reports the
	// panic value as its result instead of aborting the dump.
	DumpState() map[string]any

	// RegisterProbe installs or replaces the probe called name.
	RegisterProbe(name string, fn func() any)

	// UnregisterProbe removes the probe called name, if any.
	UnregisterProbe(name string)

	// ProbeNames lists registered probes in lexical order.
	ProbeNames() []string
}
