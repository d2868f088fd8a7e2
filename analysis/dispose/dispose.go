// Package dispose implements the transfer function of the dispose-state
// dataflow analysis: the per-instruction rules that decide how a block's
// incoming PerLocationMap changes as each SSA instruction in the block
// executes. The engine package drives these per-block transfers to a
// fixpoint; this package only ever computes a block's Out state from its
// In state plus the instructions in between.
package dispose

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/engine"
	"github.com/cs-au-dk/disposecheck/analysis/lattice"
	"github.com/cs-au-dk/disposecheck/analysis/location"
	"github.com/cs-au-dk/disposecheck/analysis/pointsto"
)

// PointsTo is the points-to information the transfer function consumes.
// pointsto.Result satisfies it; tests substitute a trivial
// identity implementation that treats every SSA value as its own
// location, sidestepping the need for a whole-program pointer analysis
// when only the transfer rules themselves are under test.
type PointsTo interface {
	Locations(v ssa.Value) ([]location.Location, bool)
}

// disposeMethodNames are the method names that, called on a disposable
// receiver, transition it towards Disposed. DisposeBool mirrors the
// .NET pattern `Dispose(bool disposing)`; Go code following the same
// shape (an exported Close backed by an unexported closeImpl(bool)) is
// rare but the teacher's heuristic table included it, so it is kept.
var disposeMethodNames = map[string]bool{
	"Dispose":     true,
	"Close":       true,
	"DisposeBool": true,
}

// collectionMethodNames are the methods that, called on a configured
// collection type, are assumed to retain their last argument: the
// collection-add heuristic.
var collectionMethodNames = map[string]bool{
	"Add":      true,
	"Append":   true,
	"Push":     true,
	"Set":      true,
	"Store":    true,
	"PushBack": true,
}

// Transfer builds the per-block transfer function for fn, closing over
// the points-to result and heuristic configuration it needs to resolve
// aliasing and ownership-transfer calls.
func Transfer(pts PointsTo, conf Config, fn *ssa.Function) engine.TransferFunc {
	return func(block *ssa.BasicBlock, in lattice.PerLocationMap) lattice.PerLocationMap {
		state := in
		for _, insn := range block.Instrs {
			state = applyInstruction(pts, conf, fn, insn, state)
		}
		return state
	}
}

func applyInstruction(pts PointsTo, conf Config, fn *ssa.Function, insn ssa.Instruction, state lattice.PerLocationMap) lattice.PerLocationMap {
	switch i := insn.(type) {
	case *ssa.Alloc:
		// Instance creation: `&Resource{}`/`new(Resource)` lowers to a
		// heap *ssa.Alloc whose result is the disposable value itself.
		// Every location it points to starts life at NotDisposed with
		// no contributing ops, regardless of what happens to it
		// afterwards - this is what lets a resource that is allocated
		// and never touched again still surface as NotDisposed rather
		// than silently missing from the final state.
		if pointsto.IsDisposable(i.Type()) {
			for _, loc := range locationsOf(pts, i) {
				state = state.Set(loc, lattice.Elements().NotDisposed())
			}
		}
		return state

	case *ssa.Call:
		return applyCall(pts, conf, fn, i.Common(), insn, state)

	case *ssa.Defer:
		// Mapped to the scoped-acquisition idiom: `defer r.Close()` is
		// treated as disposing r at the point of the defer statement.
		// This is sound for the overwhelmingly common Go style where a
		// defer immediately follows the acquisition it guards
		// (`r, err := Acquire(); defer r.Close()`) and avoids modelling
		// a separate pending-disposal stack dimension in the lattice
		// purely to handle the rarer case of a conditionally-deferred
		// dispose.
		return applyCall(pts, conf, fn, i.Common(), insn, state)

	case *ssa.Go:
		state = escapeValue(pts, state, i.Call.Value, insn)
		for _, arg := range i.Call.Args {
			state = escapeValue(pts, state, arg, insn)
		}
		return state

	case *ssa.Store:
		return applyStore(pts, i, state)

	case *ssa.Return:
		for _, r := range i.Results {
			state = escapeValue(pts, state, r, insn)
		}
		return state

	case *ssa.Convert:
		// User-defined conversion: the value is now viewed through a
		// different static type, and may be handed to code the
		// analysis cannot see through via that new type, so track it
		// as escaped.
		return escapeValue(pts, state, i.X, insn)

	case *ssa.MapUpdate:
		return escapeValue(pts, state, i.Value, insn)

	case *ssa.Send:
		return escapeValue(pts, state, i.X, insn)

	default:
		return state
	}
}

func applyStore(pts PointsTo, i *ssa.Store, state lattice.PerLocationMap) lattice.PerLocationMap {
	switch i.Addr.(type) {
	case *ssa.FieldAddr, *ssa.IndexAddr, *ssa.Global:
		// Assignment to a struct field, array/slice element, or global
		// variable: the value is now reachable from outside the
		// procedure's local tracking.
		return escapeValue(pts, state, i.Val, i)
	case *ssa.Alloc:
		// Assignment to a local variable's own storage slot. This is
		// not an escape - it's exactly what `f = ...` compiles to.
		return state
	default:
		// Captured free variable slot, or any other addressable form:
		// conservatively treat as an escape.
		return escapeValue(pts, state, i.Val, i)
	}
}

func applyCall(pts PointsTo, conf Config, fn *ssa.Function, common *ssa.CallCommon, insn ssa.Instruction, state lattice.PerLocationMap) lattice.PerLocationMap {
	methodName := calleeName(common)

	if recv, ok := receiverOf(common); ok && pointsto.IsDisposable(recv.Type()) && disposeMethodNames[methodName] {
		if methodName == "Close" && isThisReceiver(fn, recv) {
			// A type's own Close called on its own receiver from within
			// one of its methods (typically Dispose) is the
			// implementation detail of a single disposal, not a second
			// independent one, so it is not recorded as its own
			// disposing operation.
			return applyArgumentEscapes(pts, conf, common, insn, state)
		}
		for _, loc := range locationsOf(pts, recv) {
			cur := state.GetOrNotDisposed(loc)
			state = state.Set(loc, cur.WithNewDisposingOperation(insn))
		}
		return state
	}

	if isFactoryCall(common) {
		if v, ok := insn.(ssa.Value); ok && pointsto.IsDisposable(v.Type()) {
			for _, loc := range locationsOf(pts, v) {
				if _, tracked := state.Get(loc); !tracked {
					state = state.Set(loc, lattice.Elements().NotDisposed())
				}
			}
		}
	}

	return applyArgumentEscapes(pts, conf, common, insn, state)
}

// isThisReceiver reports whether recv is fn's own receiver parameter, i.e.
// fn is a method and the call in question invokes a method on the same
// instance fn itself was invoked on.
func isThisReceiver(fn *ssa.Function, recv ssa.Value) bool {
	return fn != nil && fn.Signature.Recv() != nil && len(fn.Params) > 0 && fn.Params[0] == recv
}

func applyArgumentEscapes(pts PointsTo, conf Config, common *ssa.CallCommon, insn ssa.Instruction, state lattice.PerLocationMap) lattice.PerLocationMap {
	callee := common.StaticCallee()
	args := common.Args

	// Constructor-argument ownership transfer: a single-parameter
	// constructor whose parameter type is in the configured
	// ownership-transfer set is assumed to take ownership of its
	// argument.
	if callee != nil && len(args) == 1 && isConstructorShaped(callee) &&
		conf.IsOwnershipTransferType(args[0].Type()) {
		return escapeValue(pts, state, args[0], insn)
	}

	// Collection-add heuristic: the last argument to an Add-like method
	// on a configured collection type is assumed to be retained by the
	// collection beyond the call.
	if recv, ok := receiverOf(common); ok && conf.IsCollectionType(recv.Type()) &&
		collectionMethodNames[calleeName(common)] && len(args) > 0 {
		state = escapeValue(pts, state, args[len(args)-1], insn)
	}

	// By-ref/out-parameter escape: passing the address of a disposable
	// value to a pointer parameter lets the callee mutate or retain it
	// beyond the call.
	for _, arg := range args {
		if ptr, ok := arg.Type().(*types.Pointer); ok && pointsto.IsDisposable(ptr.Elem()) {
			state = escapeValue(pts, state, arg, insn)
		}
	}

	return state
}

// isFactoryCall recognizes the factory heuristic: a statically-resolved
// call to a function named create/open/New* (case-insensitively, to
// cover both the verb-first C#-style name and Go's New* convention)
// whose result is disposable is treated as allocating a fresh instance.
func isFactoryCall(common *ssa.CallCommon) bool {
	callee := common.StaticCallee()
	if callee == nil {
		return false
	}
	name := strings.ToLower(callee.Name())
	return strings.HasPrefix(name, "new") || strings.HasPrefix(name, "create") ||
		strings.HasPrefix(name, "open")
}

// isConstructorShaped mirrors isFactoryCall's naming convention but only
// cares about shape (single result, does not need to return a
// disposable type itself - the disposable is the *parameter*).
func isConstructorShaped(fn *ssa.Function) bool {
	name := strings.ToLower(fn.Name())
	return strings.HasPrefix(name, "new") && fn.Signature.Results().Len() == 1
}

func calleeName(common *ssa.CallCommon) string {
	if common.IsInvoke() {
		return common.Method.Name()
	}
	if callee := common.StaticCallee(); callee != nil {
		return callee.Name()
	}
	return ""
}

func receiverOf(common *ssa.CallCommon) (ssa.Value, bool) {
	if common.IsInvoke() {
		return common.Value, true
	}
	if sig := common.Signature(); sig != nil && sig.Recv() != nil && len(common.Args) > 0 {
		return common.Args[0], true
	}
	return nil, false
}

func locationsOf(pts PointsTo, v ssa.Value) []location.Location {
	locs, ok := pts.Locations(v)
	if !ok {
		return nil
	}
	return locs
}

func escapeValue(pts PointsTo, state lattice.PerLocationMap, v ssa.Value, insn ssa.Instruction) lattice.PerLocationMap {
	if !pointsto.IsDisposable(v.Type()) {
		return state
	}
	for _, loc := range locationsOf(pts, v) {
		cur := state.GetOrNotDisposed(loc)
		state = state.Set(loc, cur.WithNewEscapingOperation(insn))
	}
	return state
}
