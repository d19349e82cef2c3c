package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ghanima/protocol"
)

// version is set at build time via -ldflags "-X ghanima/host/cli.version=x.y.z"
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show ghanima-link and link protocol versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "ghanima-link version %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "link protocol: %s\n", protocol.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
