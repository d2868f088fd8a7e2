// Package vistool renders a procedure's control-flow graph annotated
// with the dispose state the dataflow engine computed for each block,
// the --visualize task's output. It plays the role the teacher's
// goroutine-topology HTTP visualizer played for its domain, adapted to a
// static per-procedure image instead of an interactive superlocation
// graph, since dispose states are intraprocedural rather than
// program-wide.
package vistool

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/cfg"
	"github.com/cs-au-dk/disposecheck/analysis/engine"
	"github.com/cs-au-dk/disposecheck/utils"
	"github.com/cs-au-dk/disposecheck/utils/dot"
)

var opts = utils.Opts()

// RenderFunctionCFG renders fn's control-flow graph to an image file (the
// format taken from -format) showing, for every block, its instructions
// and the dispose state computed for its exit (Out) edge. It returns the
// path of the rendered image.
func RenderFunctionCFG(fn *ssa.Function, states engine.BlockStates) (string, error) {
	g := &dot.DotGraph{
		Title: utils.SSAFunString(fn),
		Options: map[string]string{
			"rankdir": "TB",
			"nodesep": "0.3",
			"minlen":  "1",
		},
	}

	nodeFor := make(map[*ssa.BasicBlock]*dot.DotNode)

	// Blocks holding a defer are the Go-idiom counterpart of a
	// scoped-acquisition block; highlight them in the rendered graph so
	// the guaranteed-disposal edge is visible at a glance instead of only
	// readable from the instruction list. Every deferred call is
	// highlighted, whether or not it is a disposing call.
	deferBlocks := map[*ssa.BasicBlock]string{}
	for _, d := range cfg.DeferredCalls(fn) {
		label := ""
		if recv, ok := cfg.ReceiverOf(d); ok {
			label = recv.Name()
		}
		deferBlocks[d.Block()] = label
	}

	for _, b := range fn.Blocks {
		var body strings.Builder
		fmt.Fprintf(&body, "Block %d\\l", b.Index)
		for _, insn := range b.Instrs {
			fmt.Fprintf(&body, "%s\\l", escape(insn.String()))
		}
		if out, ok := states.Out[b]; ok && out.Size() > 0 {
			body.WriteString("--- out ---\\l")
			for _, line := range strings.Split(out.GoString(), "\n") {
				body.WriteString(escape(line))
				body.WriteString("\\l")
			}
		}

		attrs := dot.DotAttrs{
			"label": body.String(),
			"shape": "box",
		}
		if recv, hasDefer := deferBlocks[b]; hasDefer {
			attrs["style"] = "filled"
			attrs["fillcolor"] = "lightyellow"
			if recv != "" {
				attrs["label"] += escape(fmt.Sprintf("scoped release of %s\\l", recv))
			}
		}

		n := &dot.DotNode{
			ID:    fmt.Sprintf("block%d", b.Index),
			Attrs: attrs,
		}
		nodeFor[b] = n
		g.Nodes = append(g.Nodes, n)
	}

	for _, b := range fn.Blocks {
		succs := append([]*ssa.BasicBlock{}, b.Succs...)
		sort.Slice(succs, func(i, j int) bool { return succs[i].Index < succs[j].Index })
		for _, succ := range succs {
			g.Edges = append(g.Edges, &dot.DotEdge{
				From: nodeFor[b],
				To:   nodeFor[succ],
			})
		}
	}

	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		return "", err
	}

	return dot.DotToImage(sanitizeFilename(fn.String()), opts.OutputFormat(), buf.Bytes())
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\l`)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "(", "", ")", "", "*", "", " ", "_")
	return replacer.Replace(s)
}
