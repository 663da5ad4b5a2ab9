package main

import (
	"os"
	"path/filepath"
	"testing"

	"forge"
)

func TestDefaultObjectName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"kernel.bc", "kernel.o"},
		{"dir/sub/mod.ll", "mod.o"},
		{"noext", "noext.o"},
		{".ll", "out.o"},
	}
	for _, tc := range cases {
		if got := defaultObjectName(tc.in); got != tc.want {
			t.Errorf("defaultObjectName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateOptLevel(t *testing.T) {
	for n := 0; n <= 3; n++ {
		if err := validateOptLevel(n); err != nil {
			t.Errorf("validateOptLevel(%d): %v", n, err)
		}
	}
	for _, n := range []int{-1, 4, 99} {
		if err := validateOptLevel(n); err == nil {
			t.Errorf("validateOptLevel(%d) should fail", n)
		}
	}
}

func TestLoadModuleByExtension(t *testing.T) {
	ctx := forge.NewContext()
	defer ctx.Dispose()
	dir := t.TempDir()

	src := forge.NewModule(ctx, "disk")
	i64 := ctx.Int64Type()
	fn := src.AddFunction("answer", forge.SignatureType(i64, nil))
	entry := fn.AppendBlock("entry")
	b := forge.NewBuilder(ctx)
	defer b.Dispose()
	b.PositionAtEnd(entry)
	b.CreateRet(forge.ConstOf(ctx, int64(42)))

	bcPath := filepath.Join(dir, "disk.bc")
	if err := src.WriteBitcode(bcPath); err != nil {
		t.Fatalf("WriteBitcode: %v", err)
	}
	llPath := filepath.Join(dir, "disk.ll")
	if err := os.WriteFile(llPath, []byte(src.String()), 0o644); err != nil {
		t.Fatalf("write IR text: %v", err)
	}

	for _, path := range []string{bcPath, llPath} {
		m, err := loadModule(ctx, path)
		if err != nil {
			t.Fatalf("loadModule(%q): %v", path, err)
		}
		if m.String() != src.String() {
			t.Errorf("loadModule(%q) changed the module", path)
		}
	}

	out := filepath.Join(dir, "copy.ll")
	if err := writeModule(src, out); err != nil {
		t.Fatalf("writeModule: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != src.String() {
		t.Error("writeModule(.ll) should emit the text form")
	}
}

func TestBuildDefaultsManifestFallback(t *testing.T) {
	dir := t.TempDir()
	manifest := `
[build]
opt-level = 3
object-tool = "llc-18"
`
	if err := os.WriteFile(filepath.Join(dir, "forge.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write forge.toml: %v", err)
	}
	t.Chdir(dir)

	opt, tool, err := buildDefaults(-1, "")
	if err != nil {
		t.Fatalf("buildDefaults: %v", err)
	}
	if opt != 3 || tool != "llc-18" {
		t.Errorf("manifest defaults = %d, %q; want 3, llc-18", opt, tool)
	}

	// Explicit flags win over the manifest.
	opt, tool, err = buildDefaults(1, "custom-llc")
	if err != nil {
		t.Fatalf("buildDefaults: %v", err)
	}
	if opt != 1 || tool != "custom-llc" {
		t.Errorf("flag overrides = %d, %q; want 1, custom-llc", opt, tool)
	}
}
