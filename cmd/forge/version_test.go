package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"forge/internal/version"
)

func runVersion(t *testing.T, format string) string {
	t.Helper()
	old := versionFormat
	versionFormat = format
	defer func() { versionFormat = old }()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version (%s): %v", format, err)
	}
	return buf.String()
}

func TestVersionReportsBitcodeSchema(t *testing.T) {
	out := runVersion(t, "pretty")
	want := fmt.Sprintf("bitcode schema: %d", version.BitcodeSchema())
	if !strings.Contains(out, want) {
		t.Errorf("pretty output %q should carry %q", out, want)
	}
}

func TestVersionJSONPayload(t *testing.T) {
	out := runVersion(t, "json")
	var payload struct {
		Tool          string `json:"tool"`
		Version       string `json:"version"`
		BitcodeSchema uint16 `json:"bitcode_schema"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("json output %q: %v", out, err)
	}
	if payload.Tool != "forge" {
		t.Errorf("tool = %q, want forge", payload.Tool)
	}
	if payload.Version == "" {
		t.Error("version field should never be empty")
	}
	if payload.BitcodeSchema != version.BitcodeSchema() {
		t.Errorf("bitcode_schema = %d, want %d", payload.BitcodeSchema, version.BitcodeSchema())
	}
}
