//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main contains Mage build targets for ldcheck developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir      = "bin"
	binName     = "ldcheck"
	cmdPkg      = "./cmd/ldcheck"
	examplesDir = "examples"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs every package's tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over the module.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Examples builds the CLI and checks the documents under examples/.
// credential.jsonld is expected to drop residesAt; the fixed variants
// must be clean under --safe.
func Examples() error {
	mg.Deps(Build)
	bin := filepath.Join(binDir, binName)

	out, err := sh.Output(bin, "expand", "--offline", "--no-history", filepath.Join(examplesDir, "credential.jsonld"))
	if err != nil {
		return fmt.Errorf("checking credential.jsonld: %w", err)
	}
	if !strings.Contains(out, "dropped residesAt") {
		return fmt.Errorf("credential.jsonld: expected residesAt to be dropped, got:\n%s", out)
	}
	fmt.Println(out)

	if err := sh.RunV(bin, "expand", "--offline", "--no-history", "--safe",
		filepath.Join(examplesDir, "credential-fixed.jsonld")); err != nil {
		return fmt.Errorf("credential-fixed.jsonld: %w", err)
	}
	return sh.RunV(bin, "expand", "--offline", "--no-history", "--safe",
		"--context", `{"residesAt": "http://example.org/residesAt"}`,
		filepath.Join(examplesDir, "credential.jsonld"))
}

// Clean removes build output and the local store.
func Clean() error {
	for _, dir := range []string{binDir, ".ldcheck"} {
		if err := sh.Rm(dir); err != nil {
			return err
		}
		fmt.Println("Removed", dir)
	}
	return nil
}

// Stats prints project metrics: Go production and test lines of code.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// countGoLines counts non-blank lines in Go files under root, skipping
// directories that start with an underscore or dot. If testOnly is true,
// only _test.go files are counted; otherwise only non-test files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				total++
			}
		}
		return sc.Err()
	})
	return total, err
}
