package cfg

import "golang.org/x/tools/go/ssa"

// DeferredCalls returns every *ssa.Defer instruction in fn, in block order.
// This is the Go-idiom counterpart of a scoped-acquisition block
// (try-with-resources / `using`): `defer r.Close()` schedules a call that
// go/ssa guarantees runs (via the implicit RunDefers at every exit, and
// on the Recover path after a panic) regardless of which return or panic
// is taken, the same guarantee a scoped-acquisition construct gives its
// Dispose call in languages that have one natively.
func DeferredCalls(fn *ssa.Function) []*ssa.Defer {
	var defers []*ssa.Defer
	for _, b := range fn.Blocks {
		for _, insn := range b.Instrs {
			if d, ok := insn.(*ssa.Defer); ok {
				defers = append(defers, d)
			}
		}
	}
	return defers
}

// ReceiverOf returns the receiver value a deferred call is invoked on,
// e.g. the `r` in `defer r.Close()`, together with whether the callee is
// a method invocation (as opposed to a deferred plain function or
// closure call, which carries no implicit receiver).
func ReceiverOf(d *ssa.Defer) (ssa.Value, bool) {
	if d.Call.IsInvoke() {
		return d.Call.Value, true
	}
	// A statically dispatched method call carries its receiver as the
	// first argument.
	if sig := d.Call.Signature(); sig != nil && sig.Recv() != nil && len(d.Call.Args) > 0 {
		return d.Call.Args[0], true
	}
	return nil, false
}
