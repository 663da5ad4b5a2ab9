// Package version carries the build identity of the forge toolchain:
// the CLI semver plus git metadata (overridable via -ldflags) and the
// bitcode container schema this build reads and writes.
package version

import (
	"strings"

	"github.com/fatih/color"

	"forge/internal/bitcode"
)

// Overridable at build time, e.g.
// -ldflags "-X forge/internal/version.Version=0.2.0".
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// BitcodeSchema is the container schema version this build emits; a
// .bc stream with any other schema is rejected on read.
func BitcodeSchema() uint16 { return bitcode.Schema }

// Pretty renders the semver with the major, minor and patch components
// colored, keeping any pre-release suffix plain. Versions that do not
// split into three dot parts come back unchanged.
func Pretty() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}
