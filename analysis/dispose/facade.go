package dispose

import (
	"context"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/cfg"
	"github.com/cs-au-dk/disposecheck/analysis/engine"
	"github.com/cs-au-dk/disposecheck/analysis/lattice"
)

// AnalysisResult is everything a caller needs from one function's dispose
// analysis run: the per-block entry/exit maps, plus the merged state at
// every block with no successors (the function's exit points, including
// its Recover block if it has one).
type AnalysisResult struct {
	Blocks    engine.BlockStates
	ExitState lattice.PerLocationMap
}

// DisposeAnalysisFacade wires a procedure's CFG, the dispose transfer
// function, and the worklist engine together and returns the converged
// result. It is the single entry point callers (main.go, and through it
// the Blocks that vistool renders) use;
// everything upstream of it (lattice, cfg, pointsto, engine) is an
// implementation detail this function assembles exactly once per
// procedure.
func DisposeAnalysisFacade(ctx context.Context, pts PointsTo, conf Config, fn *ssa.Function) (AnalysisResult, error) {
	return computeDisposeAnalysis(ctx, pts, conf, fn)
}

func computeDisposeAnalysis(ctx context.Context, pts PointsTo, conf Config, fn *ssa.Function) (AnalysisResult, error) {
	g := cfg.New(fn)
	e := engine.New(g, Transfer(pts, conf, fn))

	states, err := e.RunContext(ctx, lattice.EmptyPerLocationMap())
	if err != nil {
		return AnalysisResult{Blocks: states}, err
	}

	exitState := lattice.EmptyPerLocationMap()
	for _, b := range g.Exits() {
		exitState = lattice.MergeStates(exitState, states.Out[b])
	}

	return AnalysisResult{Blocks: states, ExitState: exitState}, nil
}
