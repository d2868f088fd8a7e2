package utils

import (
	"fmt"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"golang.org/x/tools/go/ssa"
)

// FindSSAInstruction returns the first instruction in block-instruction
// order that matches the predicate.
func FindSSAInstruction(fun *ssa.Function, pred func(ssa.Instruction) bool) (ssa.Instruction, bool) {
	for _, block := range fun.Blocks {
		for _, insn := range block.Instrs {
			if pred(insn) {
				return insn, true
			}
		}
	}
	return nil, false
}

func ValIsInPkg(val ssa.Value, pkg string) bool {
	switch val := val.(type) {
	case *ssa.Function:
		return val.Pkg.Pkg.Name() == pkg
	default:
		return val.Parent().Pkg.Pkg.Name() == pkg
	}
}

// IsNamedType reports whether typ (or the type it points to) is the named
// type pkg.name. Used to recognize the Disposable capability's well-known
// instances (e.g. io.Closer) and collection-capability symbols.
func IsNamedType(typ types.Type, pkg string, name string) bool {
	checkNamedType := func(typ types.Type) bool {
		switch typ := typ.(type) {
		case *types.Named:
			if typ.Obj() == nil {
				return false
			}
			if typ.Obj().Pkg() == nil {
				return false
			}
			return !typ.Obj().IsAlias() &&
				typ.Obj().Pkg().Name() == pkg &&
				typ.Obj().Name() == name
		}

		return false
	}

	switch typ := typ.(type) {
	case *types.Named:
		return checkNamedType(typ)
	case *types.Pointer:
		return checkNamedType(typ.Elem())
	}
	return false
}

// TypeHasPointerLikes reports whether typ, or (recursively) one of its
// fields/elements, has reference semantics. Used to decide whether a
// points-to query is worth issuing for a given SSA value.
func TypeHasPointerLikes(typ types.Type) bool {
	switch typ := typ.(type) {
	case *types.Named:
		return TypeHasPointerLikes(typ.Underlying())
	case *types.Array:
		return true
	case *types.Chan:
		return true
	case *types.Interface:
		return true
	case *types.Map:
		return true
	case *types.Pointer:
		return true
	case *types.Signature:
		return false
	case *types.Slice:
		return true
	case *types.Struct:
		for i := 0; i < typ.NumFields(); i++ {
			styp := typ.Field(i).Type()
			if TypeHasPointerLikes(styp) {
				return true
			}
		}
	case *types.Tuple:
		for i := 0; i < typ.Len(); i++ {
			mtyp := typ.At(i).Type()
			if TypeHasPointerLikes(mtyp) {
				return true
			}
		}
	}

	return false
}

func ValHasPointerLikes(v ssa.Value) bool {
	return TypeHasPointerLikes(v.Type())
}

// InstructionSet is a persistent set of SSA instructions, used to represent
// the disposing-operations set carried by a Disposed/MaybeDisposed lattice
// value (analysis/lattice).
type InstructionSet struct {
	*immutable.Map[ssa.Instruction, struct{}]
}

func (s InstructionSet) Size() int {
	if s.Map == nil {
		return 0
	}
	return s.Map.Len()
}

func MakeInstructionSet(is ...ssa.Instruction) InstructionSet {
	mp := immutable.NewMap[ssa.Instruction, struct{}](PointerHasher[ssa.Instruction]{})
	for _, i := range is {
		mp = mp.Set(i, struct{}{})
	}

	return InstructionSet{mp}
}

func (s InstructionSet) Add(i ssa.Instruction) InstructionSet {
	if s.Map == nil {
		return MakeInstructionSet(i)
	}
	return InstructionSet{s.Map.Set(i, struct{}{})}
}

// Union returns the set containing every instruction in s1 or s2.
func (s1 InstructionSet) Union(s2 InstructionSet) InstructionSet {
	if s1.Size() == 0 {
		return s2
	}
	if s2.Size() == 0 {
		return s1
	}
	if s2.Size() < s1.Size() {
		s1, s2 = s2, s1
	}

	for iter := s1.Iterator(); !iter.Done(); {
		v, _, _ := iter.Next()
		if !s2.Contains(v) {
			s2.Map = s2.Map.Set(v, struct{}{})
		}
	}

	return s2
}

func (s InstructionSet) Contains(i ssa.Instruction) bool {
	if s.Map == nil {
		return false
	}
	_, ok := s.Get(i)
	return ok
}

func (s InstructionSet) ForEach(do func(ssa.Instruction)) {
	if s.Map == nil {
		return
	}
	for iter := s.Iterator(); !iter.Done(); {
		next, _, _ := iter.Next()
		do(next)
	}
}

func (s InstructionSet) Entries() []ssa.Instruction {
	is := make([]ssa.Instruction, 0, s.Size())
	s.ForEach(func(i ssa.Instruction) {
		is = append(is, i)
	})
	return is
}

func (s InstructionSet) Empty() bool {
	return s.Size() == 0
}

// Equal reports whether s1 and s2 contain the same instructions.
func (s1 InstructionSet) Equal(s2 InstructionSet) bool {
	if s1.Size() != s2.Size() {
		return false
	}
	eq := true
	s1.ForEach(func(i ssa.Instruction) {
		if !s2.Contains(i) {
			eq = false
		}
	})
	return eq
}

func (s InstructionSet) String() string {
	is := s.Entries()

	sortingKey := func(i ssa.Instruction) string {
		res := i.String()
		if f := i.Parent(); f != nil {
			res += f.Prog.Fset.Position(i.Pos()).String()
		}
		return res
	}
	sort.Slice(is, func(i, j int) bool {
		return sortingKey(is[i]) < sortingKey(is[j])
	})

	strs := make([]string, len(is))
	for idx, i := range is {
		strs[idx] = i.String()
	}

	return "{" + strings.Join(strs, ", ") + "}"
}

func PrintSSAFun(fun *ssa.Function) {
	fmt.Println(fun.Name())
	for bi, b := range fun.Blocks {
		fmt.Println(bi, ":")
		for _, i := range b.Instrs {
			switch v := i.(type) {
			case *ssa.DebugRef:
				// skip
			case ssa.Value:
				fmt.Println(v.Name(), "=", v)
			default:
				fmt.Println(i)
			}
		}
	}
}

func PrintSSAFunWithPos(fset *token.FileSet, fun *ssa.Function) {
	fmt.Println(fun.Name())
	for bi, b := range fun.Blocks {
		fmt.Println(bi, ":")
		for _, i := range b.Instrs {
			switch v := i.(type) {
			case *ssa.DebugRef:
				// skip
			case ssa.Value:
				fmt.Println(v.Name(), "=", v, "at position:", fset.Position(v.Pos()))
			default:
				fmt.Println(i, "at position:", fset.Position(i.Pos()))
			}
		}
	}
}
