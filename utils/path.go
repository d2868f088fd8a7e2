package utils

import (
	"flag"
	"fmt"
	"os"
)

// MakePath returns the target package path.
// The first non-flag argument is the target package; if none is given it
// defaults to the current working directory.
func MakePath() (path string) {
	path, err := os.Getwd()
	if err != nil {
		fmt.Println(err)
		return
	}
	args := flag.Args()
	if len(args) >= 1 {
		path = args[0]
	}

	return
}
