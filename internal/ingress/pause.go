package ingress

import "runtime"

// pauseHint yields the processor for one scheduling quantum without
// sleeping, the cheapest available spin-wait primitive in the standard
// library. True PAUSE-instruction-level spinning would need a cgo or
// golang.org/x/sys/cpu intrinsic that the rest of the pack does not import
// for this purpose; runtime.Gosched keeps busy mode dependency-free while
// still avoiding the fixed sleep of cooperative mode.
func pauseHint() {
	runtime.Gosched()
}
