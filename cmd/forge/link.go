package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forge"
)

var linkOutput string

func init() {
	linkCmd.Flags().StringVarP(&linkOutput, "output", "o", "", "linked module file to write (.bc or .ll)")
	_ = linkCmd.MarkFlagRequired("output")
}

var linkCmd = &cobra.Command{
	Use:   "link <dst> <src...>",
	Short: "Link modules into one and write the result",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := forge.NewContext()
		defer ctx.Dispose()
		dst, err := loadModule(ctx, args[0])
		if err != nil {
			return err
		}
		for _, path := range args[1:] {
			src, err := loadModule(ctx, path)
			if err != nil {
				return err
			}
			if err := dst.Link(src, true); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		if err := dst.Verify(); err != nil {
			return err
		}
		return writeModule(dst, linkOutput)
	},
}
