package main

import (
	"github.com/lemonberrylabs/bodmas-calculator/pkg/calculator"
	"github.com/lemonberrylabs/bodmas-calculator/pkg/repl"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run queries interactively on stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		repo, closeRepo, err := openRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeRepo()

		return repl.New(calculator.New(repo), cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
	},
}
