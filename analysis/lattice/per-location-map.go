package lattice

import (
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/disposecheck/analysis/location"
	"github.com/cs-au-dk/disposecheck/utils/indenter"
)

// PerLocationMap is the abstract state the dataflow engine threads through
// a procedure's control-flow graph: a persistent, sparse map from every
// abstract heap location currently under observation to its dispose
// Value. It is the pointwise lift of the Value lattice over the (unbounded,
// but per-procedure finite) set of locations, implemented as an
// immutable.Map the way the teacher's map-backed lattice elements are
// (analysis/lattice/map.go in the original), so states can be shared
// structurally across CFG blocks instead of copied.
//
// A location absent from the map is not yet being tracked (it has not
// been allocated, or points-to could not resolve it to anything
// disposable on this path) and behaves as the identity element of Merge,
// distinct from Value's own NotDisposable, which is an absorbing element
// once a location IS being tracked.
type PerLocationMap struct {
	m *immutable.Map[location.Location, Value]
}

func EmptyPerLocationMap() PerLocationMap {
	return PerLocationMap{immutable.NewMap[location.Location, Value](location.Hasher{})}
}

func (d PerLocationMap) Get(l location.Location) (Value, bool) {
	if d.m == nil {
		return Value{}, false
	}
	return d.m.Get(l)
}

// GetOrNotDisposed retrieves the value bound to l, defaulting to
// NotDisposedValue if l is not yet tracked. Used by the transfer function
// when reading the current state of a location it knows to be
// disposable (e.g. the target of a Dispose call) but that may not have
// been observed yet along this path.
func (d PerLocationMap) GetOrNotDisposed(l location.Location) Value {
	if v, ok := d.Get(l); ok {
		return v
	}
	return NotDisposedValue()
}

func (d PerLocationMap) Set(l location.Location, v Value) PerLocationMap {
	if d.m == nil {
		d = EmptyPerLocationMap()
	}
	return PerLocationMap{d.m.Set(l, v)}
}

func (d PerLocationMap) Size() int {
	if d.m == nil {
		return 0
	}
	return d.m.Len()
}

func (d PerLocationMap) ForEach(do func(location.Location, Value)) {
	if d.m == nil {
		return
	}
	for it := d.m.Iterator(); !it.Done(); {
		l, v, _ := it.Next()
		do(l, v)
	}
}

// MergeStates computes the pointwise Merge of two per-location states, the
// confluence operation the forward dataflow engine applies when joining
// the states along incoming edges of a block with multiple predecessors.
func MergeStates(d1, d2 PerLocationMap) PerLocationMap {
	if d1.Size() == 0 {
		return d2
	}
	if d2.Size() == 0 {
		return d1
	}

	res := d1
	d2.ForEach(func(l location.Location, v2 Value) {
		if v1, ok := d1.Get(l); ok {
			res = res.Set(l, Merge(v1, v2))
		} else {
			res = res.Set(l, v2)
		}
	})
	return res
}

// EqualStates reports whether d1 and d2 bind every tracked location to the
// same Value, used by the engine to detect when a block's incoming state
// has stabilized.
func EqualStates(d1, d2 PerLocationMap) bool {
	if d1.Size() != d2.Size() {
		return false
	}
	eq := true
	d1.ForEach(func(l location.Location, v1 Value) {
		v2, ok := d2.Get(l)
		if !ok || !Compare(v1, v2) {
			eq = false
		}
	})
	return eq
}

func (d PerLocationMap) String() string {
	if d.Size() == 0 {
		return "{}"
	}

	type binding struct {
		key string
		val string
	}
	bindings := make([]binding, 0, d.Size())
	d.ForEach(func(l location.Location, v Value) {
		bindings = append(bindings, binding{l.String(), v.String()})
	})
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].key < bindings[j].key })

	strs := make([]string, len(bindings))
	for i, b := range bindings {
		strs[i] = colorize.Key(b.key) + colorize.Arrow(" ↦ ") + b.val
	}
	return "{" + strings.Join(strs, ", ") + "}"
}

// GoString renders one binding per line, indented - the verbose counterpart
// to String used when a state is large enough that the single-line form is
// hard to read (e.g. -visualize tooltips, debug logging). A map with a
// single binding is rendered on one line, as "{binding}".
func (d PerLocationMap) GoString() string {
	if d.Size() == 0 {
		return "{}"
	}

	type binding struct {
		key string
		val string
	}
	bindings := make([]binding, 0, d.Size())
	d.ForEach(func(l location.Location, v Value) {
		bindings = append(bindings, binding{l.String(), v.String()})
	})
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].key < bindings[j].key })

	lines := make([]string, len(bindings))
	for i, b := range bindings {
		lines[i] = colorize.Key(b.key) + colorize.Arrow(" ↦ ") + b.val
	}
	return indenter.Indenter().Start("{").NestStrings(lines...).End("}")
}
