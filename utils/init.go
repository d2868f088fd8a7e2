package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	function     string
	outputFormat string
	gopath       string
	modulePath   string
	configPath   string
	task         string
	noColorize   bool
	httpDebug    bool
	verbose      bool
	includeTests bool
	visualize    bool
}

const (
	_CHECK = iota
	_CAN_BUILD
	_CFG_TO_DOT
	_POINTS_TO
	_POSITION
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"check",
	"Run the dispose-state dataflow analysis and report unreleased resources",
}, {
	"check-can-build",
	"Performs a mock building of the package, attempting SSA construction",
}, {
	"cfg-to-dot",
	"Create a graph for the control-flow graph of the targeted function",
}, {
	"points-to",
	"Perform points-to analysis and log all points-to sets",
}, {
	"positions",
	"Print all SSA functions found, and the position of each instruction",
}}

var opts = &options{}

type optInterface struct{}
type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) ConfigPath() string {
	return opts.configPath
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}
func (optInterface) Visualize() bool {
	return opts.visualize
}
func (optInterface) HttpDebug() bool {
	return opts.httpDebug
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsCheck() bool {
	return opts.task == task[_CHECK].flag
}
func (taskInterface) IsCanBuild() bool {
	return opts.task == task[_CAN_BUILD].flag
}
func (taskInterface) IsCfgToDot() bool {
	return opts.task == task[_CFG_TO_DOT].flag
}
func (taskInterface) IsPointsTo() bool {
	return opts.task == task[_POINTS_TO].flag
}
func (taskInterface) IsPosition() bool {
	return opts.task == task[_POSITION].flag
}

func (optInterface) AnalyzeAllFuncs() bool {
	return opts.function == "."
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}

func init() {
	taskFlag := "\n"
	for _, t := range task {
		taskFlag += t.flag + " -- " + t.explanation + "\n"
	}
	taskFlag += "\n"

	flag.StringVar(&(opts.function), "fun", ".", "target a specific function w.r.t. the given task.\n"+
		"- Function names need not be fully qualified w.r.t. package name.\n"+
		"- Use '.' to perform the task on every function in every loaded package.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for -visualize [svg | png | jpg | ...]")
	flag.StringVar(&(opts.gopath), "gopath", ".", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.configPath), "config", "", "path to a YAML file overriding the ownership-transfer and collection-capability heuristic tables")
	flag.StringVar(&(opts.task), "task", task[_CHECK].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include main package test files in the analysis.")
	flag.BoolVar(&(opts.visualize), "visualize", false, "enable visualization of the CFG with per-block dispose states, rendered to an image file via Graphviz")
	flag.BoolVar(&(opts.httpDebug), "http-debug", false, "Start an http/pprof server for debugging")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, t := range task {
		if t.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if Opts().Task().IsCfgToDot() {
		opts.noColorize = true
	}
}
