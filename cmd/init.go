package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/mofc/compile"
)

// initCmd: mofc init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new compiler configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := compile.WriteConfig(path, compile.DefaultConfig()); err != nil {
			return fmt.Errorf("initializing config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
		return nil
	},
}
