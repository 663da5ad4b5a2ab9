package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"forge"
)

var printCmd = &cobra.Command{
	Use:   "print <file>",
	Short: "Parse a module and print its canonical text form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := forge.NewContext()
		defer ctx.Dispose()
		m, err := loadModule(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), m.String())
		return nil
	},
}

// writeTextModule renders the module's text form into a file.
func writeTextModule(m *forge.Module, path string) error {
	if err := os.WriteFile(path, []byte(m.String()), 0o644); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
