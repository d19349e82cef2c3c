// Package cli implements the ghanima-link command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ghanima/config"
	"ghanima/core"
)

var (
	// Global flags
	cfgFile      string
	logLevel     string
	logFormat    string
	outputFormat string

	// Shared state set during PersistentPreRun
	cfg       *config.Config
	formatter Formatter
)

// rootCmd is the base command for ghanima-link.
var rootCmd = &cobra.Command{
	Use:   "ghanima-link",
	Short: "Simulate, inspect and drive the split keyboard inter-half link",
	Long: `ghanima-link is the host tool for the link between the two halves of a
split keyboard. It can simulate both halves negotiating their roles, decode
captured wire traffic and run one half against a real UART.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override config with flags
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, _ := core.ParseLogLevel(cfg.Log.Level)
		format, _ := core.ParseLogFormat(cfg.Log.Format)
		core.SetLogLevel(level)
		core.SetLogOutput(cmd.ErrOrStderr(), format)

		formatter = NewFormatter(outputFormat)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "ghanima.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
}
