package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"forge"
)

var runOptLevel int

func init() {
	runCmd.Flags().IntVarP(&runOptLevel, "opt-level", "O", 0, "recorded optimization level")
}

var runCmd = &cobra.Command{
	Use:   "run <file> <function> [args...]",
	Short: "Evaluate a module function in-process",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := forge.NewContext()
		defer ctx.Dispose()
		m, err := loadModule(ctx, args[0])
		if err != nil {
			return err
		}
		fn, ok := m.GetFunction(args[1])
		if !ok {
			return fmt.Errorf("%s: no function %q", args[0], args[1])
		}

		params := fn.Signature().Params()
		if len(args)-2 != len(params) {
			return fmt.Errorf("%q takes %d arguments, got %d", args[1], len(params), len(args)-2)
		}
		callArgs := make([]forge.GenericValue, len(params))
		for i, p := range params {
			raw := args[i+2]
			switch {
			case p.IsInteger():
				n, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("argument %d: %q is not an integer", i, raw)
				}
				callArgs[i] = forge.GenericInt(uint64(n))
			case p.IsFloat():
				f, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return fmt.Errorf("argument %d: %q is not a number", i, raw)
				}
				callArgs[i] = forge.GenericFloat(f)
			default:
				return fmt.Errorf("argument %d: type %s is not passable from the command line", i, p)
			}
		}

		engine, err := forge.NewJitEngine(m, forge.JitOptions{OptLevel: runOptLevel})
		if err != nil {
			return err
		}
		ret, err := engine.RunFunction(fn, callArgs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		retTy := fn.Signature().Return()
		switch {
		case retTy.IsVoid():
		case retTy.IsInteger():
			fmt.Fprintln(out, int64(ret.Int))
		case retTy.IsFloat():
			fmt.Fprintln(out, ret.Float)
		default:
			fmt.Fprintf(out, "%+v\n", ret)
		}
		return nil
	},
}
