package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sunteam/sun/internal/config"
)

var checkConfigCmd = &cobra.Command{
	Use:   "checkconfig [path]",
	Short: "Validate a sun.toml config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		explicit := ""
		if len(args) > 0 {
			explicit = args[0]
		}

		path, err := config.Resolve(explicit)
		if err != nil {
			return err
		}

		_, warnings, err := config.Load(path)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
