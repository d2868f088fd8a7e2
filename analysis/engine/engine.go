// Package engine implements the forward monotone dataflow engine that
// drives the dispose-state analysis: a worklist-based fixpoint solver
// over a procedure's control-flow graph, parametrized by a transfer
// function supplied by analysis/dispose. The worklist itself reuses the
// teacher's generic utils/worklist.Worklist, the same way the teacher
// drives its own fixpoint computations.
package engine

import (
	"context"
	"errors"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/cfg"
	"github.com/cs-au-dk/disposecheck/analysis/lattice"
	"github.com/cs-au-dk/disposecheck/utils/worklist"
)

// ErrCancelled is returned by RunContext when ctx is done before the
// worklist drains. The engine checks cancellation only at block
// boundaries (never mid-transfer), so a cancelled run never leaves
// partially-applied state for a single block.
var ErrCancelled = errors.New("dispose analysis cancelled")

// TransferFunc computes a block's outgoing dispose state from its
// incoming state, applying the effect of every instruction in the block
// in order.
type TransferFunc func(block *ssa.BasicBlock, in lattice.PerLocationMap) lattice.PerLocationMap

// BlockStates records, for every block in a procedure, the dispose state
// the engine converged on immediately before (In) and immediately after
// (Out) the block executes.
type BlockStates struct {
	In  map[*ssa.BasicBlock]lattice.PerLocationMap
	Out map[*ssa.BasicBlock]lattice.PerLocationMap
}

// ForwardDataflowEngine computes the fixpoint of transfer over g,
// starting from entryState at the procedure's entry block. It is forward
// (confluence happens at a block's predecessors) and monotone (lattice.Merge
// never decreases a Value's information content), so termination follows
// from the lattice's finite height: Kind is bounded to five states and
// InstructionSet only ever grows via Union.
type ForwardDataflowEngine struct {
	Graph    *cfg.Graph
	Transfer TransferFunc
}

func New(g *cfg.Graph, transfer TransferFunc) *ForwardDataflowEngine {
	return &ForwardDataflowEngine{Graph: g, Transfer: transfer}
}

// Run computes the fixpoint with no cancellation support: it calls
// RunContext with context.Background() and returns its BlockStates.
func (e *ForwardDataflowEngine) Run(entryState lattice.PerLocationMap) BlockStates {
	states, _ := e.RunContext(context.Background(), entryState)
	return states
}

// RunContext computes the fixpoint, checking ctx at each block boundary
// (never mid-transfer, so a cancelled run never observes a block's
// partially-applied transfer). On cancellation it returns whatever
// partial BlockStates had been computed so far alongside ErrCancelled.
func (e *ForwardDataflowEngine) RunContext(ctx context.Context, entryState lattice.PerLocationMap) (BlockStates, error) {
	in := map[*ssa.BasicBlock]lattice.PerLocationMap{}
	out := map[*ssa.BasicBlock]lattice.PerLocationMap{}

	entry := e.Graph.Entry()
	if entry == nil {
		return BlockStates{In: in, Out: out}, nil
	}
	in[entry] = entryState

	wl := worklist.Empty[*ssa.BasicBlock]()
	for _, b := range e.Graph.RPO() {
		wl.Add(b)
	}

	var cancelled error
	for !wl.IsEmpty() {
		if err := ctx.Err(); err != nil {
			cancelled = ErrCancelled
			break
		}

		b := wl.GetNext()
		outState := e.Transfer(b, in[b])
		if prev, ok := out[b]; ok && lattice.EqualStates(outState, prev) {
			continue
		}
		out[b] = outState

		for _, succ := range b.Succs {
			merged := lattice.MergeStates(in[succ], outState)
			if prev, ok := in[succ]; !ok || !lattice.EqualStates(merged, prev) {
				in[succ] = merged
				wl.Add(succ)
			}
		}
	}

	return BlockStates{In: in, Out: out}, cancelled
}
