package lattice

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cs-au-dk/disposecheck/pkgutil"
)

// anInstruction returns a real *ssa.Return from a throwaway function, for
// tests that need a concrete ssa.Instruction to add to a disposing-op set
// without caring which one it is.
func anInstruction(t *testing.T) ssa.Instruction {
	t.Helper()
	pkgs, err := pkgutil.LoadPackagesFromSource(`package main
func f() { return }
`)
	require.NoError(t, err)
	prog, ssaPkgs := ssautil.AllPackages(pkgs, 0)
	prog.Build()
	fn := ssaPkgs[0].Func("f")
	require.NotNil(t, fn)
	return fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1]
}

func TestMergeIdempotent(t *testing.T) {
	for _, v := range []Value{
		Elements().NotDisposable(),
		Elements().NotDisposed(),
		Elements().Disposed(),
		Elements().MaybeDisposed(),
		Elements().Unknown(),
	} {
		require.True(t, Compare(v, Merge(v, v)), "Merge(%s, %s) should be idempotent", v, v)
	}
}

func TestMergeCommutative(t *testing.T) {
	vs := []Value{
		Elements().NotDisposable(),
		Elements().NotDisposed(),
		Elements().Disposed(),
		Elements().MaybeDisposed(),
		Elements().Unknown(),
	}
	for _, v1 := range vs {
		for _, v2 := range vs {
			require.True(t, Compare(Merge(v1, v2), Merge(v2, v1)),
				"Merge(%s, %s) != Merge(%s, %s)", v1, v2, v2, v1)
		}
	}
}

func TestNotDisposableIsAbsorbing(t *testing.T) {
	for _, v := range []Value{
		Elements().NotDisposed(),
		Elements().Disposed(),
		Elements().MaybeDisposed(),
		Elements().Unknown(),
	} {
		require.True(t, Compare(Elements().NotDisposable(), Merge(Elements().NotDisposable(), v)))
	}
}

func TestMergeNotDisposedAndDisposedIsMaybeDisposed(t *testing.T) {
	got := Merge(Elements().NotDisposed(), Elements().Disposed())
	require.Equal(t, MaybeDisposed, got.Kind())
}

func TestMergeMaybeDisposedAndUnknownIsUnknown(t *testing.T) {
	got := Merge(Elements().MaybeDisposed(), Elements().Unknown())
	require.Equal(t, Unknown, got.Kind())
}

func TestWithNewEscapingOperationLeavesNotDisposableUnchanged(t *testing.T) {
	insn := anInstruction(t)
	v := Elements().NotDisposable()
	require.True(t, Compare(v, v.WithNewEscapingOperation(insn)))
}

func TestWithNewEscapingOperationGoesToMaybeDisposedWithOp(t *testing.T) {
	insn := anInstruction(t)
	v := Elements().NotDisposed().WithNewEscapingOperation(insn)
	require.Equal(t, MaybeDisposed, v.Kind())
	require.True(t, v.DisposingOps().Contains(insn))
}

func TestWithNewDisposingOperationFromNotDisposedIsDisposed(t *testing.T) {
	insn := anInstruction(t)
	v := Elements().NotDisposed().WithNewDisposingOperation(insn)
	require.Equal(t, Disposed, v.Kind())
	require.True(t, v.DisposingOps().Contains(insn))
}

func TestWithNewDisposingOperationFromDisposedIsMaybeDisposed(t *testing.T) {
	first, second := anInstruction(t), anInstruction(t)
	v := Elements().NotDisposed().WithNewDisposingOperation(first).WithNewDisposingOperation(second)
	require.Equal(t, MaybeDisposed, v.Kind())
	require.True(t, v.DisposingOps().Contains(first))
	require.True(t, v.DisposingOps().Contains(second))
}

func TestWithNewDisposingOperationFromUnknownIsMaybeDisposedWithOp(t *testing.T) {
	insn := anInstruction(t)
	v := Elements().Unknown().WithNewDisposingOperation(insn)
	require.Equal(t, MaybeDisposed, v.Kind())
	require.True(t, v.DisposingOps().Contains(insn))
}

func TestMergeUnknownWithDisposedRetainsOps(t *testing.T) {
	insn := anInstruction(t)
	disposed := Elements().Disposed(insn)
	merged := Merge(Elements().Unknown(), disposed)
	require.Equal(t, MaybeDisposed, merged.Kind())
	require.True(t, merged.DisposingOps().Contains(insn))
}

func TestMergeAssociative(t *testing.T) {
	first, second := anInstruction(t), anInstruction(t)
	vs := []Value{
		Elements().NotDisposable(),
		Elements().NotDisposed(),
		Elements().Disposed(first),
		Elements().MaybeDisposed(second),
		Elements().Unknown(),
	}
	for _, a := range vs {
		for _, b := range vs {
			for _, c := range vs {
				left := Merge(a, Merge(b, c))
				right := Merge(Merge(a, b), c)
				require.True(t, Compare(left, right),
					"Merge(%s, Merge(%s, %s)) != Merge(Merge(%s, %s), %s)", a, b, c, a, b, c)
			}
		}
	}
}
