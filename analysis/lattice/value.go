package lattice

import (
	"fmt"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/utils"
)

// Value is the abstract value bound to a single heap location: a dispose
// Kind plus, for Disposed and MaybeDisposed, the set of instructions that
// may have performed the dispose. The disposing-operation set lets
// diagnostics point at every candidate double-dispose site instead of just
// the first one found.
type Value struct {
	kind         Kind
	disposingOps utils.InstructionSet
}

func NotDisposableValue() Value {
	return Value{kind: NotDisposable}
}

func NotDisposedValue() Value {
	return Value{kind: NotDisposed}
}

// DisposedValue constructs a Disposed value, optionally already carrying
// the instructions that disposed of it.
func DisposedValue(ops ...ssa.Instruction) Value {
	return Value{kind: Disposed, disposingOps: utils.MakeInstructionSet(ops...)}
}

func MaybeDisposedValue(ops ...ssa.Instruction) Value {
	return Value{kind: MaybeDisposed, disposingOps: utils.MakeInstructionSet(ops...)}
}

func UnknownValue() Value {
	return Value{kind: Unknown}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) DisposingOps() utils.InstructionSet {
	return v.disposingOps
}

func (v Value) Is(k Kind) bool {
	return v.kind == k
}

// WithNewDisposingOperation returns the value obtained by disposing of the
// resource at insn: Disposed with insn added if the prior kind was
// NotDisposed (exactly one disposal on this path so far), otherwise
// MaybeDisposed with insn added - a second disposal of an already-Disposed
// value, or a disposal of a value whose disposal status was already
// indeterminate (MaybeDisposed or Unknown), is itself indeterminate.
func (v Value) WithNewDisposingOperation(insn ssa.Instruction) Value {
	if v.kind == NotDisposable {
		return v
	}
	if v.kind == NotDisposed {
		return Value{kind: Disposed, disposingOps: v.disposingOps.Add(insn)}
	}
	return Value{kind: MaybeDisposed, disposingOps: v.disposingOps.Add(insn)}
}

// WithNewEscapingOperation returns the value obtained by letting the
// resource escape the procedure's local tracking (stored to a field,
// passed by reference, returned, added to a collection, converted, etc)
// at insn: MaybeDisposed with insn added to the op set. Ownership may
// have transferred elsewhere, so the dispose obligation becomes
// indeterminate rather than unknown outright - the escaping operation
// itself is still worth reporting.
func (v Value) WithNewEscapingOperation(insn ssa.Instruction) Value {
	if v.kind == NotDisposable {
		return v
	}
	return Value{kind: MaybeDisposed, disposingOps: v.disposingOps.Add(insn)}
}

// Merge computes the pointwise least upper bound used by the dataflow
// engine at control-flow confluence points. NotDisposable is absorbing
// rather than a bottom element: a location whose declared type is not
// disposable can never become disposable along another path, so merging
// it with anything yields NotDisposable again.
func Merge(v1, v2 Value) Value {
	k1, k2 := v1.kind, v2.kind

	if k1 == NotDisposable || k2 == NotDisposable {
		return NotDisposableValue()
	}
	if k1 == NotDisposed && k2 == NotDisposed {
		return NotDisposedValue()
	}

	mergedOps := v1.disposingOps.Union(v2.disposingOps)
	if k1 == Disposed && k2 == Disposed {
		return Value{kind: Disposed, disposingOps: mergedOps}
	}
	if (k1 == Unknown || k2 == Unknown) && mergedOps.Empty() {
		// An Unknown operand contributes no ops of its own; if the other
		// side has none either there is nothing concrete to report, so
		// the result stays Unknown rather than becoming a MaybeDisposed
		// with no evidence behind it. If the other side does carry ops
		// (e.g. a Disposed value with a real disposing instruction), those
		// ops survive into a MaybeDisposed result instead of being
		// dropped.
		return UnknownValue()
	}
	return Value{kind: MaybeDisposed, disposingOps: mergedOps}
}

// Compare reports whether v1 and v2 denote the same abstract value: the
// same Kind and the same set of disposing instructions. Used by the
// engine to detect fixpoint convergence.
func Compare(v1, v2 Value) bool {
	return v1.kind == v2.kind && v1.disposingOps.Equal(v2.disposingOps)
}

func (v Value) String() string {
	if v.disposingOps.Empty() {
		return colorize.Kind(v.kind.String())
	}
	return fmt.Sprintf("%s%s", colorize.Kind(v.kind.String()), colorize.Op(v.disposingOps.String()))
}
