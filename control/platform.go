// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform probes shared by every OS.

package control

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/cpu"
)

func registerCommonProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.cache_line", func() any {
		return int(unsafe.Sizeof(cpu.CacheLinePad{}))
	})
}
