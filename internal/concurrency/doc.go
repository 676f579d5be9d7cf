// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Internal helpers shared by the lock-free primitives of hioload-mem.
package concurrency
