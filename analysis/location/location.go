// Package location defines the abstract heap locations produced by the
// points-to analysis and consumed, read-only, by the dispose-state dataflow
// core (see analysis/dispose). A location identifies a set of runtime
// objects that may alias; it is opaque to the core beyond its static type
// and an identifier suitable for hashing and equality.
package location

import (
	"go/types"

	"github.com/cs-au-dk/disposecheck/utils"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
)

// colorize is used for pretty-printing locations in diagnostics and in the
// --visualize CFG dump.
var colorize = struct {
	Site  func(...interface{}) string
	Cons  func(...interface{}) string
	Nil   func(...interface{}) string
	Index func(...interface{}) string
}{
	Site: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	},
	Cons: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	},
	Nil: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
	Index: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
}

// phasher is a short-hand for a pointer hasher, used by locations whose
// identity is tied to a unique SSA node.
var phasher = utils.PointerHasher[any]{}

// A Location points to something (or nothing) in the abstract memory
// computed by the points-to analysis. It can be an allocation site, a
// global variable, or a field of a struct. Two locations are equal iff
// Equal reports true; ordering beyond that is not defined by the type
// itself (deterministic iteration is achieved by sorting on String() at the
// call site, since ordering otherwise depends on map iteration order).
type Location interface {
	Hash() uint32
	Equal(Location) bool
	String() string
	GetSite() (site ssa.Value, ok bool)
	// Type is the static type used by the dispose analysis to decide
	// disposability.
	Type() types.Type
	Position() string
}

// Hasher adapts Location to the Hasher interface benbjohnson/immutable
// requires for a persistent map keyed on abstract locations (used by
// analysis/lattice's PerLocationMap, C3).
type Hasher struct{}

func (Hasher) Hash(key Location) uint32 {
	return key.Hash()
}

func (Hasher) Equal(a, b Location) bool {
	return a.Equal(b)
}

// Addressable is implemented by locations bound directly in abstract
// memory, excluding field addresses and the nil location.
type Addressable interface {
	Location
	addressableTag()
}

type addressable struct{}

func (addressable) addressableTag() {}
