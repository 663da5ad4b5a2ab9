package exec

import (
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
)

// DefaultCompiler is the external tool used to lower bitcode to a
// native object file when the caller does not name one.
const DefaultCompiler = "llc"

// CompileObject runs the external compiler over a bitcode file and
// writes a native object file. optLevel is clamped to 0..3; tool may be
// empty to use DefaultCompiler.
func CompileObject(bitcodePath, outPath string, optLevel int, tool string) error {
	if tool == "" {
		tool = DefaultCompiler
	}
	if optLevel < 0 {
		optLevel = 0
	}
	if optLevel > 3 {
		optLevel = 3
	}
	if _, err := os.Stat(bitcodePath); err != nil {
		return fmt.Errorf("%s: %w", bitcodePath, err)
	}
	cmd := osexec.Command(tool,
		fmt.Sprintf("-O=%d", optLevel),
		"-filetype=obj",
		"-o", outPath,
		bitcodePath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", tool, err, msg)
		}
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}
