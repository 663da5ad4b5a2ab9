package project

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Manifest is a parsed forge.toml.
type Manifest struct {
	Package PackageSection `toml:"package"`
	Build   BuildSection   `toml:"build"`
}

// PackageSection is the [package] table.
type PackageSection struct {
	Name string `toml:"name"`
}

// BuildSection is the [build] table. ObjectTool names the external
// object compiler; empty means the built-in default.
type BuildSection struct {
	OptLevel   int    `toml:"opt-level"`
	ObjectTool string `toml:"object-tool"`
}

// LoadManifest parses the forge.toml at path.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return m, nil
}

// LoadNearestManifest finds and parses the closest forge.toml above
// startDir. A missing manifest is absence, not an error.
func LoadNearestManifest(startDir string) (Manifest, bool, error) {
	path, ok, err := FindForgeToml(startDir)
	if err != nil || !ok {
		return Manifest{}, false, err
	}
	m, err := LoadManifest(path)
	if err != nil {
		return Manifest{}, false, err
	}
	return m, true, nil
}
