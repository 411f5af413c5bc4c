//go:build !alloctrace

package segheap

// trace gates the fmt.Fprintf tracing in Allocate, Free, Init and
// extendHeap, as the teacher's memory.go gates its own trace points. Off by
// default so production builds pay nothing for it; build with
// `-tags alloctrace` to turn it on (see trace_alloctrace.go).
const trace = false

func tracef(format string, args ...interface{}) {}
