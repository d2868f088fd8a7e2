package dispose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cs-au-dk/disposecheck/analysis/lattice"
	"github.com/cs-au-dk/disposecheck/analysis/location"
	"github.com/cs-au-dk/disposecheck/pkgutil"

	"golang.org/x/tools/go/ssa"
)

// identityPointsTo is a PointsTo test double that does not run a real
// pointer analysis: every SSA value is resolved to its own local
// location, which is precise enough for these single-function tests
// where nothing is actually stored in a shared heap cell.
type identityPointsTo struct{}

func (identityPointsTo) Locations(v ssa.Value) ([]location.Location, bool) {
	if g, ok := v.(*ssa.Global); ok {
		return []location.Location{location.GlobalLocation{Site: g}}, true
	}
	return []location.Location{location.LocationFromSSAValue(v)}, true
}

// buildFunction compiles src and returns the *ssa.Function named fname
// from its sole package.
func buildFunction(t *testing.T, src, fname string) *ssa.Function {
	t.Helper()

	pkgs, err := pkgutil.LoadPackagesFromSource(src)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	prog, ssaPkgs := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	fn := ssaPkgs[0].Func(fname)
	require.NotNil(t, fn, "function %s not found", fname)
	return fn
}

// runTransfer runs the dispose analysis over fn to a fixpoint and returns
// the merged state at every exit block, for tests that only care about
// the terminal dispose state.
func runTransfer(t *testing.T, fn *ssa.Function, conf Config) lattice.PerLocationMap {
	t.Helper()

	result, err := DisposeAnalysisFacade(context.Background(), identityPointsTo{}, conf, fn)
	require.NoError(t, err)
	return result.ExitState
}

func kindOfLocal(t *testing.T, state lattice.PerLocationMap, fn *ssa.Function, name string) lattice.Kind {
	t.Helper()
	var found *lattice.Kind
	state.ForEach(func(l location.Location, v lattice.Value) {
		if ll, ok := l.(location.LocalLocation); ok && ll.Context == fn && ll.Name == name {
			k := v.Kind()
			found = &k
		}
	})
	require.NotNil(t, found, "no tracked location named %s", name)
	return *found
}

const disposeSource = `package main

type Resource struct{}

func (r *Resource) Close() error { return nil }

func NewResource() *Resource { return &Resource{} }

func disposedProperly() {
	r := NewResource()
	r.Close()
}

func disposedViaDefer() {
	r := NewResource()
	defer r.Close()
}

func leaked() {
	r := NewResource()
	_ = r
}

func escapesToGlobal() {
	r := NewResource()
	global = r
}

var global *Resource

func escapesByReturn() *Resource {
	r := NewResource()
	return r
}

func escapesToGoroutine() {
	r := NewResource()
	go r.Close()
}
`

func TestDisposeCallTransitionsToDisposed(t *testing.T) {
	fn := buildFunction(t, disposeSource, "disposedProperly")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.Disposed, kindOfLocal(t, state, fn, "$t0"))
}

func TestDeferredCloseTransitionsToDisposed(t *testing.T) {
	fn := buildFunction(t, disposeSource, "disposedViaDefer")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.Disposed, kindOfLocal(t, state, fn, "$t0"))
}

func TestUndisposedResourceStaysNotDisposed(t *testing.T) {
	fn := buildFunction(t, disposeSource, "leaked")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.NotDisposed, kindOfLocal(t, state, fn, "$t0"))
}

func TestStoreToGlobalEscapes(t *testing.T) {
	fn := buildFunction(t, disposeSource, "escapesToGlobal")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.MaybeDisposed, kindOfLocal(t, state, fn, "$t0"))
}

func TestReturnEscapes(t *testing.T) {
	fn := buildFunction(t, disposeSource, "escapesByReturn")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.MaybeDisposed, kindOfLocal(t, state, fn, "$t0"))
}

func TestGoroutineArgumentEscapes(t *testing.T) {
	fn := buildFunction(t, disposeSource, "escapesToGoroutine")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.MaybeDisposed, kindOfLocal(t, state, fn, "$t0"))
}

const directAllocSource = `package main

type Resource struct{}

func (r *Resource) Close() error { return nil }

func leakedDirectAlloc() {
	r := &Resource{}
	_ = r
}
`

// TestDirectlyAllocatedResourceStartsNotDisposed covers spec.md's
// "Instance creation" rule directly: a composite literal such as
// &Resource{} lowers to a heap *ssa.Alloc with no enclosing factory
// function, so only the Alloc-instruction rule - not the factory
// heuristic - can seed its location at NotDisposed. Without it, a
// resource that is allocated and never touched again would never gain a
// tracked key at all and would silently vanish from the final state
// instead of surfacing as a leak.
func TestDirectlyAllocatedResourceStartsNotDisposed(t *testing.T) {
	fn := buildFunction(t, directAllocSource, "leakedDirectAlloc")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.NotDisposed, kindOfLocal(t, state, fn, "$t0"))
}

const ownershipTransferSource = `package main

import "io"

type Wrapper struct {
	r io.ReadCloser
}

func NewWrapper(r io.ReadCloser) *Wrapper {
	return &Wrapper{r: r}
}

func wraps(r io.ReadCloser) {
	_ = NewWrapper(r)
}
`

func TestConstructorArgumentOwnershipTransferEscapes(t *testing.T) {
	fn := buildFunction(t, ownershipTransferSource, "wraps")
	state := runTransfer(t, fn, DefaultConfig())
	require.Equal(t, lattice.MaybeDisposed, kindOfLocal(t, state, fn, "$r"))
}

const closeFromDisposeSource = `package main

type Resource struct{}

func (r *Resource) Close() error { return nil }

func (r *Resource) Dispose() {
	r.Close()
}
`

// buildMethod compiles src and returns the *ssa.Function for the method
// named fname, found among all functions synthesized for the program
// (methods are not package-level members in go/ssa).
func buildMethod(t *testing.T, src, fname string) *ssa.Function {
	t.Helper()

	pkgs, err := pkgutil.LoadPackagesFromSource(src)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	prog, ssaPkgs := ssautil.AllPackages(pkgs, 0)
	prog.Build()
	_ = ssaPkgs

	for fn := range ssautil.AllFunctions(prog) {
		if fn.Name() == fname && fn.Signature.Recv() != nil {
			return fn
		}
	}
	t.Fatalf("method %s not found", fname)
	return nil
}

// TestCloseFromWithinDisposeIsNotARedundantDispose covers the Close-from-
// within-Dispose carve-out (spec.md Scenario 6): a type's own Dispose
// method calling Close on its own receiver must not register that Close
// as a disposing operation. The receiver's value is unchanged by the
// Close call, so it stays at whatever it was before Dispose's own body
// ran - here NotDisposed, since nothing else in the method disposes it.
func TestCloseFromWithinDisposeIsNotARedundantDispose(t *testing.T) {
	fn := buildMethod(t, closeFromDisposeSource, "Dispose")
	state := runTransfer(t, fn, DefaultConfig())

	recv := fn.Params[0]
	cur := state.GetOrNotDisposed(location.LocationFromSSAValue(recv))
	require.Equal(t, lattice.NotDisposed, cur.Kind())
	require.True(t, cur.DisposingOps().Empty())
}
