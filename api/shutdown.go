// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own releasable memory.
type GracefulShutdown interface {
	// Shutdown releases every resource held by the component. Calling it
	// twice is a no-op.
	Shutdown() error
}
