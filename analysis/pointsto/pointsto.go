// Package pointsto wraps golang.org/x/tools/go/pointer's whole-program
// Andersen-style analysis, exposing it in the shape the dispose-state
// transfer function needs: a lookup from an SSA value to the abstract
// heap locations it may point to. This is intentionally a read-only
// consumer of an externally-supplied points-to result, the way the
// teacher's upfront package only ever queries a *pointer.Result rather
// than building location identities itself.
package pointsto

import (
	"go/types"

	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/disposecheck/analysis/location"
	"github.com/cs-au-dk/disposecheck/utils"
)

// Result is the points-to information available to the dispose analysis
// for a whole program: which abstract locations each pointer-like SSA
// value may refer to.
type Result struct {
	ptRes   *pointer.Result
	queries map[ssa.Value]pointer.Pointer
}

// Locations returns the set of abstract locations v may point to. ok is
// false when v was never queried (e.g. its type has no pointer-like
// structure, so it was never worth a query).
func (r *Result) Locations(v ssa.Value) (locs []location.Location, ok bool) {
	p, found := r.queries[v]
	if !found {
		return nil, false
	}
	for _, l := range p.PointsTo().Labels() {
		locs = append(locs, labelToLocation(l))
	}
	return locs, true
}

// CallGraph exposes the underlying *pointer.Result, including its call
// graph, which the points-to task in main.go walks to print results.
func (r *Result) CallGraph() *pointer.Result {
	return r.ptRes
}

func labelToLocation(l *pointer.Label) location.Location {
	switch v := l.Value().(type) {
	case *ssa.Global:
		return location.GlobalLocation{Site: v}
	case nil:
		return location.NilLocation{}
	default:
		return location.AllocationSiteLocation{Site: v}
	}
}

// Analyze runs the whole-program points-to analysis over prog from mains,
// querying every pointer-like SSA value (parameters, free variables, and
// instruction results) of every package-level function in prog and of
// the closures nested in them. Methods are not package members and their
// values are not queried. This mirrors the teacher's
// collectPtsToQueries, adapted to build location.Location results rather
// than feeding a goroutine-topology analysis.
func Analyze(prog *ssa.Program, mains []*ssa.Package) (*Result, error) {
	config := &pointer.Config{
		Mains:          mains,
		BuildCallGraph: true,
	}

	queries := map[ssa.Value]pointer.Pointer{}
	addQuery := func(v ssa.Value) {
		if v == nil || !utils.ValHasPointerLikes(v) {
			return
		}
		if !pointer.CanPoint(v.Type()) {
			return
		}
		if _, already := queries[v]; already {
			return
		}
		config.AddQuery(v)
	}

	for fn := range allFunctions(prog) {
		for _, param := range fn.Params {
			addQuery(param)
		}
		for _, fv := range fn.FreeVars {
			addQuery(fv)
		}
		for _, b := range fn.Blocks {
			for _, insn := range b.Instrs {
				if v, ok := insn.(ssa.Value); ok {
					addQuery(v)
				}
			}
		}
	}

	res, err := pointer.Analyze(config)
	if err != nil {
		return nil, err
	}

	for v := range config.Queries {
		queries[v] = res.Queries[v]
	}
	for v := range config.IndirectQueries {
		queries[v] = res.IndirectQueries[v]
	}

	return &Result{ptRes: res, queries: queries}, nil
}

// HasReachableDisposableAllocation builds a cheap RTA call graph from
// entries and reports whether any function reachable in it allocates or
// receives a value of disposable type. Andersen-style pointer analysis
// (Analyze, above) is considerably more expensive than RTA, so callers
// use this as a pre-check to skip it entirely for packages with no
// disposable resources in their reachable call graph at all.
func HasReachableDisposableAllocation(entries []*ssa.Function) bool {
	if len(entries) == 0 {
		return false
	}
	cg := rta.Analyze(entries, true).CallGraph
	for fn := range cg.Nodes {
		if fn == nil {
			continue
		}
		for _, param := range fn.Params {
			if IsDisposable(param.Type()) {
				return true
			}
		}
		for _, b := range fn.Blocks {
			for _, insn := range b.Instrs {
				v, ok := insn.(ssa.Value)
				if !ok {
					continue
				}
				if IsDisposable(v.Type()) {
					return true
				}
			}
		}
	}
	return false
}

func allFunctions(prog *ssa.Program) map[*ssa.Function]bool {
	all := map[*ssa.Function]bool{}
	for _, pkg := range prog.AllPackages() {
		for _, member := range pkg.Members {
			if fn, ok := member.(*ssa.Function); ok {
				collectFunction(all, fn)
			}
		}
	}
	return all
}

func collectFunction(all map[*ssa.Function]bool, fn *ssa.Function) {
	if fn == nil || all[fn] {
		return
	}
	all[fn] = true
	for _, anon := range fn.AnonFuncs {
		collectFunction(all, anon)
	}
}

// PointsToValue holds the abstract locations a points-to query resolved
// to. It carries no disposability classification of its own.
type PointsToValue struct {
	Locations []location.Location
}

// IsDisposable reports whether typ is the Disposable capability used
// throughout the analysis to recognize disposable resources: typ is (a
// pointer to) io.Closer, or its method set has a Dispose or Close method
// taking no parameters and returning at most one result.
func IsDisposable(typ types.Type) bool {
	return utils.IsNamedType(typ, "io", "Closer") || hasDisposeMethod(typ)
}

func hasDisposeMethod(typ types.Type) bool {
	mset := types.NewMethodSet(typ)
	for i := 0; i < mset.Len(); i++ {
		obj := mset.At(i).Obj()
		if obj.Name() != "Dispose" && obj.Name() != "Close" {
			continue
		}
		sig, ok := obj.Type().(*types.Signature)
		if !ok {
			continue
		}
		if sig.Params().Len() == 0 && sig.Results().Len() <= 1 {
			return true
		}
	}
	return false
}
