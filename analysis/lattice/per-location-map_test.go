package lattice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/disposecheck/analysis/location"
)

func loc(name string, line int64) location.LocalLocation {
	return location.LocalLocation{Name: name, DeclLine: line}
}

func TestEmptyPerLocationMapMergeIsIdentity(t *testing.T) {
	d := EmptyPerLocationMap().Set(loc("r", 1), Elements().NotDisposed())
	merged := MergeStates(d, EmptyPerLocationMap())
	require.True(t, EqualStates(d, merged))
}

func TestMergeStatesIsPointwise(t *testing.T) {
	r := loc("r", 1)
	d1 := EmptyPerLocationMap().Set(r, Elements().NotDisposed())
	d2 := EmptyPerLocationMap().Set(r, Elements().Disposed())

	merged := MergeStates(d1, d2)
	v, ok := merged.Get(r)
	require.True(t, ok)
	require.Equal(t, MaybeDisposed, v.Kind())
}

func TestMergeStatesKeepsUntrackedSideAsIs(t *testing.T) {
	r1 := loc("r1", 1)
	r2 := loc("r2", 2)
	d1 := EmptyPerLocationMap().Set(r1, Elements().Disposed())
	d2 := EmptyPerLocationMap().Set(r2, Elements().NotDisposed())

	merged := MergeStates(d1, d2)
	require.Equal(t, 2, merged.Size())

	v1, ok := merged.Get(r1)
	require.True(t, ok)
	require.Equal(t, Disposed, v1.Kind())

	v2, ok := merged.Get(r2)
	require.True(t, ok)
	require.Equal(t, NotDisposed, v2.Kind())
}

func TestEqualStatesDistinguishesDifferingBindings(t *testing.T) {
	r := loc("r", 1)
	d1 := EmptyPerLocationMap().Set(r, Elements().NotDisposed())
	d2 := EmptyPerLocationMap().Set(r, Elements().Disposed())
	require.False(t, EqualStates(d1, d2))
}

func TestGoStringPutsOneBindingPerLine(t *testing.T) {
	d := EmptyPerLocationMap().
		Set(loc("a", 1), Elements().NotDisposed()).
		Set(loc("b", 2), Elements().Disposed())

	out := d.GoString()
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4, "expected {, one line per binding, and }: %q", out)
	require.Equal(t, "{", lines[0])
	require.Equal(t, "}", lines[3])
}

func TestGoStringOfEmptyMapMatchesString(t *testing.T) {
	require.Equal(t, EmptyPerLocationMap().String(), EmptyPerLocationMap().GoString())
}
