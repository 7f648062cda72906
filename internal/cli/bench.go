package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ridx/internal/bench"
)

var benchN int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark insert and scan against pebble, writing CSV and a plot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(cfg.Home, "bench")
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		results, err := bench.Run(dir, benchN)
		if err != nil {
			return err
		}

		for _, r := range results {
			fmt.Printf("%-8s %-8s n=%-9d %d ns/op\n", r.Engine, r.Operation, r.N, r.NsPerOp)
		}
		fmt.Printf("results in %s\n", dir)
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchN, "n", 200_000, "number of keys to load")
}
