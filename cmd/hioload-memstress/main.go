// File: cmd/hioload-memstress/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-memstress drives concurrent allocate/free workloads against a
// hioload-mem pool and checks that every block comes back.

package main

func main() {
	execute()
}
