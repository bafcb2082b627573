//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binLint  = "golangci-lint"
	binGofmt = "gofmt"
)

// Lint checks formatting, runs go vet, then golangci-lint over the module
// and the magefiles.
func Lint() error {
	mg.SerialDeps(checkFmt, vet)
	return sh.RunV(binLint, "run", "--build-tags", "mage", "./...", "./magefiles/...")
}

// checkFmt fails when any docket source file is not gofmt-clean.
func checkFmt() error {
	out, err := sh.Output(binGofmt, "-l", "cmd", "internal", "pkg", "magefiles")
	if err != nil {
		return err
	}
	if files := strings.TrimSpace(out); files != "" {
		return fmt.Errorf("files need gofmt:\n%s", files)
	}
	return nil
}

func vet() error {
	return sh.RunV(binGo, "vet", "./...")
}
