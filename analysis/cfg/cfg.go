// Package cfg provides the control-flow graph the dataflow engine walks:
// a thin wrapper around go/ssa's own basic-block graph, plus the
// reverse-postorder block sequence the worklist uses to converge quickly.
package cfg

import (
	"golang.org/x/tools/go/ssa"
)

// Graph is the control-flow graph of a single procedure. Unlike the
// teacher's per-instruction, goroutine-topology-aware CFG, this is a
// per-block wrapper: go/ssa already gives every procedure a complete
// block graph (ssa.BasicBlock.Succs/Preds), and the dispose-state
// dataflow engine only needs to transfer and merge state at block
// granularity.
type Graph struct {
	Fn *ssa.Function
}

func New(fn *ssa.Function) *Graph {
	return &Graph{Fn: fn}
}

func (g *Graph) Blocks() []*ssa.BasicBlock {
	return g.Fn.Blocks
}

func (g *Graph) Entry() *ssa.BasicBlock {
	if len(g.Fn.Blocks) == 0 {
		return nil
	}
	return g.Fn.Blocks[0]
}

// Exits returns every block that has no successor: the blocks ending in
// *ssa.Return or *ssa.Panic, including the function's Recover block (if
// any), which is where go/ssa resumes control after a recovered panic.
func (g *Graph) Exits() []*ssa.BasicBlock {
	var exits []*ssa.BasicBlock
	for _, b := range g.Fn.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, b)
		}
	}
	return exits
}

// RPO returns the graph's blocks in reverse postorder, starting from the
// entry block. Seeding the worklist in this order lets the forward
// dataflow engine reach a fixpoint in close to a single pass over
// reducible control flow, the same ordering discipline a classical
// worklist-based dataflow solver relies on.
func (g *Graph) RPO() []*ssa.BasicBlock {
	entry := g.Entry()
	if entry == nil {
		return nil
	}

	visited := make(map[*ssa.BasicBlock]bool, len(g.Fn.Blocks))
	var post []*ssa.BasicBlock

	var visit func(*ssa.BasicBlock)
	visit = func(b *ssa.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, succ := range b.Succs {
			visit(succ)
		}
		post = append(post, b)
	}
	visit(entry)
	reachable := len(post)

	// Any block unreachable from the entry block (dead code, or a block
	// only reachable via the Recover edge) is appended afterwards so the
	// engine still visits it, just without an ordering guarantee.
	for _, b := range g.Fn.Blocks {
		visit(b)
	}

	rpo := make([]*ssa.BasicBlock, 0, len(post))
	for i := reachable - 1; i >= 0; i-- {
		rpo = append(rpo, post[i])
	}
	for i := len(post) - 1; i >= reachable; i-- {
		rpo = append(rpo, post[i])
	}
	return rpo
}
