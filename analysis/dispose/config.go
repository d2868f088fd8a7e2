package dispose

import (
	"go/types"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/cs-au-dk/disposecheck/utils"
)

// Config holds the heuristic tables the transfer function consults to
// resolve calls that are not themselves Dispose/Close calls but still
// affect a resource's dispose state: ownership-transferring constructors
// and collection types whose Add-like methods take ownership of their
// argument. Both tables are seeded with the standard library's common
// offenders; a -config YAML file can replace either table.
type Config struct {
	// OwnershipTransferTypes lists the qualified type names (pkg.Name)
	// that, when they are the sole parameter of a single-parameter
	// constructor-shaped function (a function whose name starts with
	// "new", case-insensitively, taking exactly one argument and
	// returning a single value), cause
	// the argument to be treated as having escaped: the constructed
	// value is assumed to take ownership of it.
	OwnershipTransferTypes []string `yaml:"ownershipTransferTypes"`

	// CollectionTypes lists the qualified type names whose Add-like
	// methods (see collectionMethodNames) are assumed to retain their
	// last argument beyond the call, so passing a disposable resource to
	// one is treated as an escape.
	CollectionTypes []string `yaml:"collectionTypes"`
}

// DefaultConfig seeds both tables with standard-library types that have
// the ownership-transfer / collection shape the heuristics below target.
func DefaultConfig() Config {
	return Config{
		OwnershipTransferTypes: []string{
			"io.Reader", "io.Writer", "io.ReadCloser", "io.WriteCloser",
			"net.Conn",
		},
		CollectionTypes: []string{
			"list.List", "sync.Pool",
		},
	}
}

// LoadConfig reads heuristic-table overrides from a YAML file on top of
// DefaultConfig. Each table the file sets replaces the corresponding
// default table as a whole; a table the file leaves out keeps its
// defaults. An empty path is not an error - it simply means the defaults
// are used.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}

	var override Config
	if err := yaml.Unmarshal(bs, &override); err != nil {
		return conf, err
	}
	if override.OwnershipTransferTypes != nil {
		conf.OwnershipTransferTypes = override.OwnershipTransferTypes
	}
	if override.CollectionTypes != nil {
		conf.CollectionTypes = override.CollectionTypes
	}
	return conf, nil
}

func (c Config) IsOwnershipTransferType(t types.Type) bool {
	return matchesQualifiedName(t, c.OwnershipTransferTypes)
}

func (c Config) IsCollectionType(t types.Type) bool {
	return matchesQualifiedName(t, c.CollectionTypes)
}

func matchesQualifiedName(t types.Type, names []string) bool {
	named, ok := underlyingNamed(t)
	if !ok {
		return false
	}
	for _, qualified := range names {
		pkg, name := splitQualified(qualified)
		if utils.IsNamedType(named, pkg, name) {
			return true
		}
	}
	return false
}

func underlyingNamed(t types.Type) (*types.Named, bool) {
	switch t := t.(type) {
	case *types.Named:
		return t, true
	case *types.Pointer:
		return underlyingNamed(t.Elem())
	default:
		return nil, false
	}
}

func splitQualified(qualified string) (pkg, name string) {
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			return qualified[:i], qualified[i+1:]
		}
	}
	return "", qualified
}
