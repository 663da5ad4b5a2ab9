package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "forge.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write forge.toml: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[build]
opt-level = 2
object-tool = "llc-18"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Package.Name != "demo" {
		t.Errorf("package name = %q, want demo", m.Package.Name)
	}
	if m.Build.OptLevel != 2 {
		t.Errorf("opt-level = %d, want 2", m.Build.OptLevel)
	}
	if m.Build.ObjectTool != "llc-18" {
		t.Errorf("object-tool = %q, want llc-18", m.Build.ObjectTool)
	}
}

func TestLoadManifestBadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package\nname = ???")
	_, err := LoadManifest(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse TOML") {
		t.Errorf("LoadManifest: %v", err)
	}
}

func TestFindForgeTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[package]\nname = \"up\"\n")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, ok, err := FindForgeToml(nested)
	if err != nil || !ok {
		t.Fatalf("FindForgeToml: %v, ok=%v", err, ok)
	}
	if path != filepath.Join(root, "forge.toml") {
		t.Errorf("found %q, want the manifest at the root", path)
	}

	dir, ok, err := FindProjectRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindProjectRoot: %v, ok=%v", err, ok)
	}
	if dir != root {
		t.Errorf("project root = %q, want %q", dir, root)
	}
}

func TestLoadNearestManifestAbsence(t *testing.T) {
	// A bare temp dir has no forge.toml anywhere above it in practice,
	// but walking to the filesystem root must stay absence, not error.
	_, ok, err := LoadNearestManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadNearestManifest: %v", err)
	}
	if ok {
		t.Skip("a forge.toml exists above the temp directory")
	}
}
