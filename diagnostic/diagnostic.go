// Package diagnostic turns a converged dispose-state result into
// human-readable findings. It is a thin downstream consumer of
// analysis/dispose's AnalysisResult: it reimplements no dataflow rules of
// its own, only the formatting needed to report the core's own terminal
// states, analogous to uber-go-nilaway's error-message pretty-printer.
package diagnostic

import (
	"fmt"
	"sort"

	"github.com/fatih/color"

	"github.com/cs-au-dk/disposecheck/analysis/lattice"
	"github.com/cs-au-dk/disposecheck/analysis/location"
	"github.com/cs-au-dk/disposecheck/utils"
)

// Severity classifies a Finding for sorting and CLI color choice.
type Severity int

const (
	// Leak: the location is NotDisposed at every path reaching the
	// function's exit - the resource is never disposed of.
	Leak Severity = iota
	// MaybeLeak: the location is MaybeDisposed - some paths dispose of
	// it and at least one path does not, it escaped the procedure's
	// local tracking, or a path disposed of it more than once.
	MaybeLeak
	// DoubleDispose: more than one instruction recorded as disposing
	// the same location, a same-kind Merge of two Disposed values
	// carrying distinct operations.
	DoubleDispose
)

func (s Severity) String() string {
	switch s {
	case Leak:
		return "leak"
	case MaybeLeak:
		return "maybe-leak"
	case DoubleDispose:
		return "double-dispose"
	default:
		return "unknown"
	}
}

var severityColor = map[Severity]func(...interface{}) string{
	Leak:          utils.CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc()),
	MaybeLeak:     utils.CanColorize(color.New(color.FgHiYellow).SprintFunc()),
	DoubleDispose: utils.CanColorize(color.New(color.FgHiMagenta).SprintFunc()),
}

// Finding is a single reportable observation about one tracked location's
// terminal dispose state.
type Finding struct {
	Location location.Location
	Severity Severity
	Message  string
}

// FromExitState inspects every location tracked at a function's exit and
// emits one Finding per location that is not in a clean terminal state
// (Disposed with at most one disposing operation, or NotDisposable).
// Unknown locations are not reported either: Unknown means no claim can
// be made about the location's disposal. Escaped locations are
// MaybeDisposed and are reported as MaybeLeak.
func FromExitState(exitState lattice.PerLocationMap) []Finding {
	var findings []Finding

	exitState.ForEach(func(l location.Location, v lattice.Value) {
		switch v.Kind() {
		case lattice.NotDisposed:
			findings = append(findings, Finding{
				Location: l,
				Severity: Leak,
				Message:  fmt.Sprintf("%s is never disposed of", l.String()),
			})

		case lattice.MaybeDisposed:
			findings = append(findings, Finding{
				Location: l,
				Severity: MaybeLeak,
				Message:  fmt.Sprintf("%s is disposed of on some but not all paths", l.String()),
			})

		case lattice.Disposed:
			if v.DisposingOps().Size() > 1 {
				findings = append(findings, Finding{
					Location: l,
					Severity: DoubleDispose,
					Message:  fmt.Sprintf("%s may be disposed of more than once (%s)", l.String(), v.DisposingOps().String()),
				})
			}
		}
	})

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity < findings[j].Severity
		}
		return findings[i].Location.String() < findings[j].Location.String()
	})

	return findings
}

// String renders f the way the CLI prints it: colorized severity tag,
// source position when the location's allocation site is known, and the
// message.
func (f Finding) String() string {
	tag := severityColor[f.Severity](fmt.Sprintf("[%s]", f.Severity))
	if pos := f.Location.Position(); pos != "" {
		return fmt.Sprintf("%s %s: %s", tag, pos, f.Message)
	}
	return fmt.Sprintf("%s %s", tag, f.Message)
}
