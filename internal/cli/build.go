package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ridx"
	"ridx/internal/bufmgr"
)

var buildCmd = &cobra.Command{
	Use:   "build <relation> <offset>",
	Short: "Build (or reopen) the index over a relation's integer attribute",
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

		fmt.Printf("index %s: height=%d leaves=%d entries=%d\n",
			indexName, stats.Height, stats.Leaves, stats.Entries)
		return nil
	},
}
