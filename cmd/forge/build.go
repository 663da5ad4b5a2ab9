package main

import (
	"github.com/spf13/cobra"

	"forge"
)

var (
	buildOutput   string
	buildOptLevel int
	buildTool     string
)

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "object file to write (default: input name with .o)")
	buildCmd.Flags().IntVarP(&buildOptLevel, "opt-level", "O", -1, "optimization level 0..3 (default: forge.toml or 0)")
	buildCmd.Flags().StringVar(&buildTool, "tool", "", "external object compiler (default: forge.toml or llc)")
}

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Lower a module to a native object file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		optLevel, tool, err := buildDefaults(buildOptLevel, buildTool)
		if err != nil {
			return err
		}
		if err := validateOptLevel(optLevel); err != nil {
			return err
		}
		out := buildOutput
		if out == "" {
			out = defaultObjectName(args[0])
		}

		ctx := forge.NewContext()
		defer ctx.Dispose()
		m, err := loadModule(ctx, args[0])
		if err != nil {
			return err
		}
		if err := m.Verify(); err != nil {
			return err
		}
		return m.CompileWith(out, optLevel, tool)
	},
}
