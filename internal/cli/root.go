// Package cli implements the ridx command line tool: generate test
// relations, build and inspect indexes, run scans and benchmarks.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ridx/internal/config"
)

var (
	homeFlag   string
	configFlag string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "ridx",
	Short:         "ridx - disk-resident B+ tree index over heap relations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(homeFlag, configFlag)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// relationPath resolves a relation name inside the configured data dir.
// Absolute paths pass through untouched.
func relationPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.DataDir, name)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "override the ridx home directory")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a config file")

	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(benchCmd)
}
