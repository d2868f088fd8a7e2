package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cs-au-dk/disposecheck/analysis/dispose"
	"github.com/cs-au-dk/disposecheck/analysis/pointsto"
	"github.com/cs-au-dk/disposecheck/diagnostic"
	"github.com/cs-au-dk/disposecheck/pkgutil"
	"github.com/cs-au-dk/disposecheck/utils"
	"github.com/cs-au-dk/disposecheck/vistool"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	if opts.HttpDebug() {
		go func() {
			log.Println(http.ListenAndServe("localhost:6060", nil))
		}()
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, path)
	if err != nil {
		log.Println("Failed pkgutil.LoadPackages")
		log.Println(err)
		os.Exit(1)
	}

	prog, _ := ssautil.AllPackages(pkgs, 0)
	prog.Build()

	if task.IsCanBuild() {
		log.Println("Package built and lowered to SSA successfully")
		return
	}

	mains := ssautil.MainPackages(prog.AllPackages())
	if len(mains) == 0 && opts.IncludeTests() {
		for _, fn := range pkgutil.TestFunctions(prog) {
			mains = append(mains, pkgutil.CreateFakeTestMainPackage(fn))
		}
	}
	if len(mains) == 0 {
		log.Println("No main or test packages detected; pass -include-tests to analyze a library by its test entry points")
		return
	}

	allPackages := pkgutil.AllPackages(prog)
	if err := pkgutil.GetLocalPackages(mains, allPackages); err != nil {
		log.Println(err)
		os.Exit(1)
	}

	conf, err := dispose.LoadConfig(opts.ConfigPath())
	if err != nil {
		log.Fatalln("Failed to load -config:", err)
	}

	switch {
	case task.IsPosition():
		for _, pkg := range prog.AllPackages() {
			for _, member := range pkg.Members {
				if f, ok := member.(*ssa.Function); ok {
					utils.PrintSSAFunWithPos(prog.Fset, f)
				}
			}
		}

	case task.IsPointsTo():
		if !pointsto.HasReachableDisposableAllocation(entryFunctions(mains)) {
			log.Println("Skipping points-to analysis: no disposable allocation reachable from any entry point")
			return
		}
		log.Println("Performing points-to analysis...")
		pt, err := pointsto.Analyze(prog, mains)
		if err != nil {
			log.Fatalln("Points-to analysis failed:", err)
		}
		log.Println("Points-to analysis done")

		printPointsToResult(pt)

	case task.IsCfgToDot():
		if !pointsto.HasReachableDisposableAllocation(entryFunctions(mains)) {
			log.Println("Skipping points-to analysis: no disposable allocation reachable from any entry point")
			return
		}
		log.Println("Performing points-to analysis...")
		pt, err := pointsto.Analyze(prog, mains)
		if err != nil {
			log.Fatalln("Points-to analysis failed:", err)
		}
		log.Println("Points-to analysis done")

		fns := selectFunctions(allPackages)
		if len(fns) == 0 {
			log.Println("No function matched -fun", opts.Function())
			return
		}

		for _, fn := range fns {
			result, err := dispose.DisposeAnalysisFacade(context.Background(), pt, conf, fn)
			if err != nil {
				log.Println("Analysis of", fn, "failed:", err)
				continue
			}
			imgPath, err := vistool.RenderFunctionCFG(fn, result.Blocks)
			if err != nil {
				log.Println("Failed to render CFG for", fn, ":", err)
				continue
			}
			fmt.Println(imgPath)
		}

	default: // task.IsCheck()
		if !pointsto.HasReachableDisposableAllocation(entryFunctions(mains)) {
			log.Println("Skipping points-to analysis: no disposable allocation reachable from any entry point")
			return
		}
		log.Println("Performing points-to analysis...")
		pt, err := pointsto.Analyze(prog, mains)
		if err != nil {
			log.Fatalln("Points-to analysis failed:", err)
		}
		log.Println("Points-to analysis done")

		runCheck(prog, pt, conf, allPackages)
	}
}

// entryFunctions returns the Func("main")/Func("init") of every main
// package, the set of RTA entry points the cheap reachable-disposable
// pre-check walks from.
func entryFunctions(mains []*ssa.Package) []*ssa.Function {
	var entries []*ssa.Function
	for _, main := range mains {
		if fn := main.Func("main"); fn != nil {
			entries = append(entries, fn)
		}
		if fn := main.Func("init"); fn != nil {
			entries = append(entries, fn)
		}
	}
	return entries
}

// selectFunctions returns every local *ssa.Function matching -fun ('.'
// selects all of them, following the teacher's own suffix-matching
// convention in opts.Function()).
func selectFunctions(pkgs []*ssa.Package) []*ssa.Function {
	var fns []*ssa.Function
	for _, pkg := range pkgs {
		for _, member := range pkg.Members {
			fn, ok := member.(*ssa.Function)
			if !ok || !pkgutil.IsLocal(fn) {
				continue
			}
			if matchesFunctionFilter(fn) {
				fns = append(fns, fn)
			}
			for _, anon := range fn.AnonFuncs {
				if matchesFunctionFilter(anon) {
					fns = append(fns, anon)
				}
			}
		}
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].String() < fns[j].String() })
	return fns
}

func matchesFunctionFilter(fn *ssa.Function) bool {
	return opts.AnalyzeAllFuncs() ||
		strings.HasSuffix(fn.Name(), opts.Function()) ||
		strings.HasSuffix(fn.String(), opts.Function())
}

// runCheck runs the dispose-state dataflow analysis over every function
// selected by -fun and prints a diagnostic for every location that
// diagnostic.FromExitState reports at the function's exit: NotDisposed,
// MaybeDisposed, or Disposed by more than one operation (Unknown and
// NotDisposable locations are not reported).
func runCheck(prog *ssa.Program, pt *pointsto.Result, conf dispose.Config, pkgs []*ssa.Package) {
	fns := selectFunctions(pkgs)
	if len(fns) == 0 {
		log.Println("No function matched -fun", opts.Function())
		return
	}

	total := 0
	for _, fn := range fns {
		if len(fn.Blocks) == 0 {
			continue
		}

		result, err := dispose.DisposeAnalysisFacade(context.Background(), pt, conf, fn)
		if err != nil {
			log.Println("Analysis of", fn, "failed:", err)
			continue
		}

		findings := diagnostic.FromExitState(result.ExitState)
		if len(findings) == 0 {
			continue
		}

		fmt.Println(utils.SSAFunString(fn), "at", prog.Fset.Position(fn.Pos()))
		for _, f := range findings {
			fmt.Println(" ", f.String())
		}
		total += len(findings)

		if opts.Visualize() {
			if imgPath, err := vistool.RenderFunctionCFG(fn, result.Blocks); err != nil {
				log.Println("Failed to render CFG for", fn, ":", err)
			} else {
				fmt.Println("  visualization:", imgPath)
			}
		}
	}

	fmt.Println()
	log.Printf("Found %d finding(s) across %d function(s)", total, len(fns))
}

func printPointsToResult(pt *pointsto.Result) {
	fmt.Println("Points-to results:")
	ptRes := pt.CallGraph()
	for fn := range ptRes.CallGraph.Nodes {
		if fn == nil || !pkgutil.IsLocal(fn) {
			continue
		}
		for _, param := range fn.Params {
			locs, ok := pt.Locations(param)
			if !ok {
				continue
			}
			fmt.Println("SSA Value", utils.SSAValString(param), "in", fn)
			fmt.Println("Points to: {")
			for _, l := range locs {
				fmt.Println("\t" + l.String() + ",")
			}
			fmt.Println("}")
		}
	}
}
