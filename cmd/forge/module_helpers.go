package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"forge"
	"forge/internal/project"
)

// loadModule parses a module file by extension: .bc is bitcode,
// anything else is IR text.
func loadModule(ctx *forge.Context, path string) (*forge.Module, error) {
	if strings.EqualFold(filepath.Ext(path), ".bc") {
		return forge.ParseBitcode(ctx, path)
	}
	return forge.ParseIR(ctx, path)
}

// writeModule serializes a module by extension: .ll gets the text form,
// anything else bitcode.
func writeModule(m *forge.Module, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".ll") {
		return writeTextModule(m, path)
	}
	return m.WriteBitcode(path)
}

// buildDefaults merges command-line build settings with the nearest
// forge.toml. Explicit flags win; the manifest fills the gaps.
func buildDefaults(optFlag int, toolFlag string) (optLevel int, tool string, err error) {
	optLevel, tool = optFlag, toolFlag
	manifest, ok, err := project.LoadNearestManifest(".")
	if err != nil {
		return 0, "", err
	}
	if !ok {
		if optLevel < 0 {
			optLevel = 0
		}
		return optLevel, tool, nil
	}
	if optLevel < 0 {
		optLevel = manifest.Build.OptLevel
	}
	if tool == "" {
		tool = manifest.Build.ObjectTool
	}
	return optLevel, tool, nil
}

// defaultObjectName derives the object file name from the input file.
func defaultObjectName(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if base == "" {
		base = "out"
	}
	return base + ".o"
}

func validateOptLevel(n int) error {
	if n < 0 || n > 3 {
		return fmt.Errorf("opt level %d out of range (0..3)", n)
	}
	return nil
}
