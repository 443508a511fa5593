package state_test

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestPackageGraphNeverReachesCollaborators re-verifies the boundary
// TestCoreNeverImportsCollaborators checks via `go list -deps`, this time by
// loading the package graph directly with golang.org/x/tools/go/packages,
// so the invariant does not rest on a single detection method.
func TestPackageGraphNeverReachesCollaborators(t *testing.T) {
	forbiddenPrefixes := []string{
		"itemstate/internal/spi",
		"itemstate/internal/blob",
		"itemstate/internal/metrics",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps, Tests: true}
	pkgs, err := packages.Load(cfg, "itemstate/internal/state/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages loaded for itemstate/internal/state/...")
	}

	var violations []string
	seen := make(map[string]bool)
	var walk func(pkg *packages.Package)
	walk = func(pkg *packages.Package) {
		if seen[pkg.PkgPath] {
			return
		}
		seen[pkg.PkgPath] = true
		for path, imp := range pkg.Imports {
			if hasAnyPrefix(path, forbiddenPrefixes) {
				violations = append(violations, pkg.PkgPath+" -> "+path)
				continue
			}
			walk(imp)
		}
	}
	for _, pkg := range pkgs {
		walk(pkg)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden collaborator import in package graph: %s", v)
		}
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
