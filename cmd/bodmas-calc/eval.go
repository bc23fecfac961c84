package main

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/bodmas-calculator/pkg/expr"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate one expression and print the result",
	Example: `  bodmas-calc eval "2 + 3 * (4 - 1)"
  bodmas-calc eval 2^3^2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		tokens, err := expr.Tokenize(strings.Join(args, " "))
		if err != nil {
			return err
		}
		value, usage, err := expr.Evaluate(tokens)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "expression: %s\n", strings.Join(expr.Canonical(tokens), " "))
		fmt.Fprintf(out, "value:      %s\n", expr.FormatNumber(value))
		parts := make([]string, 0, len(expr.Operators))
		for _, op := range expr.Operators {
			parts = append(parts, fmt.Sprintf("%s=%d", op, usage[op]))
		}
		fmt.Fprintf(out, "operators:  %s\n", strings.Join(parts, " "))
		return nil
	},
}
