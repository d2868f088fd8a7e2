package location

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// AllocationSiteLocation encodes an abstract heap location created through
// an instance-creation instruction (an SSA `Alloc`, a `MakeInterface`
// wrapping a heap value, or a static-call result treated as an allocation
// by the factory heuristic). Allocation sites are addressable
// and identified by the SSA value performing the allocation, which is
// unique per procedure invocation under this intraprocedural analysis.
type AllocationSiteLocation struct {
	addressable
	Site ssa.Value
}

func (l AllocationSiteLocation) Equal(ol Location) bool {
	o, ok := ol.(AllocationSiteLocation)
	return ok && l == o
}

func (l AllocationSiteLocation) Position() string {
	if l.Site != nil && l.Site.Parent() != nil {
		return l.Site.Parent().Prog.Fset.Position(l.Site.Pos()).String()
	}
	return ""
}

func (l AllocationSiteLocation) Hash() uint32 {
	return phasher.Hash(l.Site)
}

func (l AllocationSiteLocation) String() string {
	return fmt.Sprintf("alloc‹%s›", colorize.Site(l.Site.String()))
}

// GetSite retrieves the SSA instruction performing the allocation.
func (l AllocationSiteLocation) GetSite() (ssa.Value, bool) {
	return l.Site, l.Site != nil
}

func (l AllocationSiteLocation) Type() types.Type {
	if l.Site == nil {
		return nil
	}
	return l.Site.Type()
}
