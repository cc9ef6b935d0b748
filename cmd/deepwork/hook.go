package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deepwork-ai/deepwork/internal/hookloader"
)

var hookCmd = &cobra.Command{
	Use:   "hook <name>",
	Short: "Invoke a hook module by fully qualified or short name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Exit(hookloader.Run(args[0]))
		return nil
	},
}
