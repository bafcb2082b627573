//go:build mage

// Package main provides build targets for docket using Mage.
//
// Usage:
//
//	mage build              Compile the docket binary to bin/
//	mage release            Cross-compile docket for every release platform
//	mage test:all           Run every test
//	mage test:unit          Run tests that need no external services
//	mage test:integration   Run backend tests against a postgres container
//	mage lint               Check gofmt, run go vet and golangci-lint
//	mage clean              Remove build artifacts
//	mage install            Install docket to GOPATH/bin
//	mage stats              Print Go LOC as JSON
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "docket"
	binaryDir  = "bin"
	cmdDir     = "./cmd/docket"
)

// releasePlatforms are the GOOS/GOARCH pairs built by Release. The sqlite
// driver is pure Go, so every pair builds with cgo disabled.
var releasePlatforms = [][2]string{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"darwin", "amd64"},
	{"darwin", "arm64"},
	{"windows", "amd64"},
}

// Build compiles the docket binary for the host to bin/.
func Build() error {
	return buildFor(runtime.GOOS, runtime.GOARCH, filepath.Join(binaryDir, exeName(runtime.GOOS)))
}

// Release cross-compiles docket to bin/<goos>_<goarch>/.
func Release() error {
	for _, p := range releasePlatforms {
		goos, goarch := p[0], p[1]
		out := filepath.Join(binaryDir, goos+"_"+goarch, exeName(goos))
		if err := buildFor(goos, goarch, out); err != nil {
			return fmt.Errorf("release %s/%s: %w", goos, goarch, err)
		}
	}
	return nil
}

func buildFor(goos, goarch, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	env := map[string]string{"GOOS": goos, "GOARCH": goarch, "CGO_ENABLED": "0"}
	return sh.RunWithV(env, binGo, "build", "-trimpath", "-o", out, cmdDir)
}

func exeName(goos string) string {
	if goos == "windows" {
		return binaryName + ".exe"
	}
	return binaryName
}

// Clean removes build artifacts and cached test results.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean", "-testcache")
}

// Install installs docket into GOPATH/bin with go install.
func Install() error {
	return sh.RunV(binGo, "install", "-trimpath", cmdDir)
}
