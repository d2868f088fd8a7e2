package location

import (
	"fmt"
	"go/types"
	"log"
	"regexp"

	"github.com/benbjohnson/immutable"
	"golang.org/x/tools/go/ssa"
)

// LocalLocation represents the symbolic address in memory of an SSA
// register, a function parameter, or a free variable, within a single
// procedure. It carries no thread/goroutine identity — the core is
// intraprocedural and single-threaded, so a local is fully identified by
// its owning function plus its name and declaration line.
type LocalLocation struct {
	addressable
	Context  *ssa.Function
	Name     string // The name of the variable
	DeclLine int64  // The source line the variable was declared on (used to disambiguate multiple variables with the same name)
	Site     ssa.Value
}

func (l LocalLocation) Equal(ol Location) bool {
	o, ok := ol.(LocalLocation)
	return ok && l == o
}

func (l LocalLocation) Position() string {
	if l.Site != nil && l.Site.Parent() != nil {
		return l.Site.Parent().Prog.Fset.Position(l.Site.Pos()).String()
	}
	return ""
}

func (l LocalLocation) Hash() uint32 {
	ihasher := immutable.NewHasher(l.DeclLine)
	shasher := immutable.NewHasher(l.Name)

	return ihasher.Hash(l.DeclLine)*31 + shasher.Hash(l.Name) + phasher.Hash(l.Context)
}

func (l LocalLocation) String() string {
	if l.Site != nil {
		return fmt.Sprintf("local‹%s(%d) = %s›", colorize.Site(l.Name), l.DeclLine, l.Site.String())
	}
	return fmt.Sprintf("local‹%s(%d)›", colorize.Site(l.Name), l.DeclLine)
}

// GetSite retrieves the SSA instruction where the local register is assigned.
func (l LocalLocation) GetSite() (ssa.Value, bool) {
	return l.Site, l.Site != nil
}

func (l LocalLocation) Type() types.Type {
	if l.Site == nil {
		return nil
	}
	return l.Site.Type()
}

var registerNameRegexp = regexp.MustCompile(`^t\d+$`)

// LocationFromSSAValue creates a named local location from a given SSA register.
func LocationFromSSAValue(val ssa.Value) LocalLocation {
	var name string

	switch val := val.(type) {
	case *ssa.FreeVar:
		name = val.Name()

	case *ssa.Global:
		panic(fmt.Errorf("do not call LocationFromSSAValue with a Global! %v", val))

	case *ssa.Parameter:
		// Prefix with "$" because the function will automatically make a local variable
		// with the same name (and reassign the parameter to that)
		name = "$" + val.Name()

	default:
		regname := val.Name()
		if !registerNameRegexp.MatchString(regname) {
			log.Fatalf("%v does not correspond to a virtual register (%v)", regname, val)
		}
		name = "$" + regname
	}

	return LocalLocation{
		Context:  val.Parent(),
		Name:     name,
		DeclLine: int64(val.Parent().Prog.Fset.Position(val.Pos()).Line),
		Site:     val,
	}
}

// ReturnLocation constructs a synthetic location for the return value of a function.
func ReturnLocation(fun *ssa.Function) LocalLocation {
	return LocalLocation{
		Context:  fun,
		Name:     "$return",
		DeclLine: int64(fun.Prog.Fset.Position(fun.Pos()).Line),
	}
}
