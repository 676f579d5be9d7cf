// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named allocator probes. Probes run outside the registry lock, so a probe
// may itself register or remove probes.

package control

import (
	"fmt"
	"slices"
	"sync"

	"github.com/momentics/hioload-mem/api"
)

// PanicReport is what DumpState reports for an entry whose function panicked.
type PanicReport struct {
	Value any
}

func (p PanicReport) String() string { return fmt.Sprintf("panicked: %v", p.Value) }

// DebugProbes implements api.Debug.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

var _ api.Debug = (*DebugProbes)(nil)

func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	dp.probes[name] = fn
	dp.mu.Unlock()
}

func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.mu.Lock()
	delete(dp.probes, name)
	dp.mu.Unlock()
}

func (dp *DebugProbes) ProbeNames() []string {
	dp.mu.RLock()
	names := make([]string, 0, len(dp.probes))
	for name := range dp.probes {
		names = append(names, name)
	}
	dp.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for name, fn := range dp.probes {
		fns[name] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for name, fn := range fns {
		out[name] = evalProbe(fn)
	}
	return out
}

func evalProbe(fn func() any) (v any) {
	defer func() {
		if r := recover(); r != nil {
			v = PanicReport{Value: r}
		}
	}()
	return fn()
}
