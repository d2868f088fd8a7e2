package pkgutil

import "testing"

func TestLoadPackagesFromSource(t *testing.T) {
	pkgs, err := LoadPackagesFromSource(`package main

import "os"

func main() {
	f, err := os.Open("/tmp/x")
	if err != nil {
		return
	}
	defer f.Close()
}
`)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 {
		t.Errorf("expected 1 package, got: %d", len(pkgs))
	}
}
