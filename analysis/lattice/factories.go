package lattice

import "golang.org/x/tools/go/ssa"

// elementFactory groups the Value constructors under a single namespace,
// mirroring the teacher's Elements()-style factory convention.
type elementFactory struct{}

func Elements() elementFactory {
	return elementFactory{}
}

func (elementFactory) NotDisposable() Value {
	return NotDisposableValue()
}

func (elementFactory) NotDisposed() Value {
	return NotDisposedValue()
}

func (elementFactory) Disposed(ops ...ssa.Instruction) Value {
	return DisposedValue(ops...)
}

func (elementFactory) MaybeDisposed(ops ...ssa.Instruction) Value {
	return MaybeDisposedValue(ops...)
}

func (elementFactory) Unknown() Value {
	return UnknownValue()
}
