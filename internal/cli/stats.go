package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"ridx"
	"ridx/internal/bufmgr"
)

var statsCmd = &cobra.Command{
	Use:   "stats <relation> <offset>",
	Short: "Print tree shape and buffer pool counters for an index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := strconv.Atoi(args[1])
		if err != nil || offset < 0 {
			return fmt.Errorf("invalid attribute offset %q", args[1])
		}

		bm := bufmgr.New(cfg.PoolPages)
		idx, indexName, err := ridx.Open(relationPath(args[0]), offset, ridx.Integer, bm, ridx.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		defer idx.Close()

		stats, err := idx.Stats()
		if err != nil {
			return err
		}
		pool := bm.Stats()

		fmt.Printf("index:    %s\n", indexName)
		fmt.Printf("height:   %d\n", stats.Height)
		fmt.Printf("leaves:   %d\n", stats.Leaves)
		fmt.Printf("entries:  %d\n", stats.Entries)
		if stats.Entries > 0 {
			fmt.Printf("keys:     [%d, %d]\n", stats.MinKey, stats.MaxKey)
		}
		fmt.Printf("pool:     frames=%d pinned=%d hits=%d misses=%d evictions=%d\n",
			pool.Frames, pool.Pinned, pool.Hits, pool.Misses, pool.Evictions)
		return nil
	},
}

// cliLogger returns a slog-backed logger when the config file sets verbose,
// else the discard logger.
func cliLogger() ridx.Logger {
	if cfg != nil && cfg.Verbose {
		return newSlog(os.Stderr)
	}
	return ridx.DiscardLogger{}
}
