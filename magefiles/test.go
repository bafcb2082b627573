//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration).
type Test mg.Namespace

// networkPkgs hold backends whose tests need a live server.
var networkPkgs = []string{"/internal/redis", "/internal/mongo", "/internal/postgres"}

// All runs every test. Network backends skip unless their endpoints are set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs tests for every package except the network backends.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !isNetworkPkg(pkg) {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-race"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Integration runs the postgres backend suite against a throwaway
// container, plus redis and mongo when DOCKET_TEST_REDIS_ADDR and
// DOCKET_TEST_MONGO_URI are set.
func (Test) Integration() error {
	env := map[string]string{"DOCKET_TEST_CONTAINERS": "1"}
	args := []string{"test", "-v", "-count=1"}
	for _, p := range networkPkgs {
		args = append(args, "."+p)
	}
	return sh.RunWithV(env, binGo, args...)
}

func isNetworkPkg(pkg string) bool {
	for _, p := range networkPkgs {
		if strings.HasSuffix(pkg, p) {
			return true
		}
	}
	return false
}
