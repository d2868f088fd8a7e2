package diagnostic

import (
	"sort"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/lattice"
	"github.com/cs-au-dk/disposecheck/analysis/location"
)

func init() {
	// Golden output must be stable regardless of the terminal the test
	// happens to run in.
	color.NoColor = true
}

func loc(name string, line int64) location.LocalLocation {
	return location.LocalLocation{Name: name, DeclLine: line}
}

func TestFromExitStateClassifiesEveryTerminalKind(t *testing.T) {
	state := lattice.EmptyPerLocationMap().
		Set(loc("leaked", 1), lattice.Elements().NotDisposed()).
		Set(loc("maybeLeaked", 2), lattice.Elements().MaybeDisposed()).
		Set(loc("clean", 3), lattice.Elements().Disposed()).
		Set(loc("notDisposable", 4), lattice.Elements().NotDisposable()).
		Set(loc("escaped", 5), lattice.Elements().Unknown())

	findings := FromExitState(state)

	var severities []string
	for _, f := range findings {
		severities = append(severities, f.Severity.String())
	}
	require.ElementsMatch(t, []string{"leak", "maybe-leak"}, severities)
}

func TestSingleDisposingOperationIsNotReported(t *testing.T) {
	state := lattice.EmptyPerLocationMap().Set(loc("r", 1), lattice.Elements().Disposed(&ssa.Return{}))

	findings := FromExitState(state)
	require.Empty(t, findings, "a single disposing operation is not a double-dispose finding")
}

func TestFindingStringGolden(t *testing.T) {
	findings := []Finding{
		{Location: loc("conn", 10), Severity: Leak, Message: "local‹conn(10)› is never disposed of"},
		{Location: loc("file", 20), Severity: MaybeLeak, Message: "local‹file(20)› is disposed of on some but not all paths"},
	}

	var lines []string
	for _, f := range findings {
		lines = append(lines, f.String())
	}
	sort.Strings(lines)

	goldie.New(t).Assert(t, t.Name(), []byte(strings.Join(lines, "\n")+"\n"))
}
