package lattice

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/cs-au-dk/disposecheck/utils"
)

var colorize = struct {
	Kind  func(...interface{}) string
	Op    func(...interface{}) string
	Key   func(...interface{}) string
	Arrow func(...interface{}) string
}{
	Kind: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
	Op: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
	},
	Key: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Arrow: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgMagenta).SprintFunc())(is...)
	},
}

var (
	errUnsupportedOperation = errors.New("UnsupportedOperationError")
	errPatternMatch         = func(v interface{}) error {
		return fmt.Errorf("invalid pattern match: %v %T", v, v)
	}
)
