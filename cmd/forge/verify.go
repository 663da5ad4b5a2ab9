package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"forge"
)

var (
	verifyOK   = color.New(color.FgGreen, color.Bold)
	verifyFail = color.New(color.FgRed, color.Bold)
)

var verifyCmd = &cobra.Command{
	Use:   "verify <files...>",
	Short: "Parse modules and check their structural invariants",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configureColor(cmd)

		// One context per file: contexts are single-threaded, so each
		// goroutine owns its own.
		results := make([]error, len(args))
		g := new(errgroup.Group)
		for i, path := range args {
			g.Go(func() error {
				ctx := forge.NewContext()
				defer ctx.Dispose()
				m, err := loadModule(ctx, path)
				if err != nil {
					results[i] = err
					return nil
				}
				results[i] = m.Verify()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for i, path := range args {
			if results[i] == nil {
				fmt.Fprintf(out, "%s %s\n", verifyOK.Sprint("OK"), path)
				continue
			}
			failed++
			fmt.Fprintf(out, "%s %s\n%v\n", verifyFail.Sprint("FAIL"), path, results[i])
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d modules failed verification", failed, len(args))
		}
		return nil
	},
}
