package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ridx"
	"ridx/internal/bufmgr"
)

var (
	lowOpFlag  string
	highOpFlag string
)

var scanCmd = &cobra.Command{
	Use:   "scan <relation> <offset> <low> <high>",
	Short: "Range-scan an index and print matching record ids",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, err := strconv.Atoi(args[1])
		if err != nil || offset < 0 {
			return fmt.Errorf("invalid attribute offset %q", args[1])
		}
		low, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid low value %q", args[2])
		}
		high, err := strconv.ParseInt(args[3], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid high value %q", args[3])
		}

		lowOp, err := parseOp(lowOpFlag)
		if err != nil {
			return err
		}
		highOp, err := parseOp(highOpFlag)
		if err != nil {
			return err
		}

		bm := bufmgr.New(cfg.PoolPages)
		idx, _, err := ridx.Open(relationPath(args[0]), offset, ridx.Integer, bm, ridx.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		defer idx.Close()

		err = idx.StartScan(int32(low), lowOp, int32(high), highOp)
		if errors.Is(err, ridx.ErrNoSuchKey) {
			fmt.Println("no matching keys")
			return nil
		}
		if err != nil {
			return err
		}
		defer idx.EndScan()

		matches := 0
		for {
			rid, err := idx.ScanNext()
			if errors.Is(err, ridx.ErrScanCompleted) {
				break
			}
			if err != nil {
				return err
			}
			fmt.Printf("(%d, %d)\n", rid.PageNo, rid.SlotNo)
			matches++
		}

		fmt.Printf("%d matching entries\n", matches)
		return nil
	},
}

func parseOp(s string) (ridx.Operator, error) {
	switch s {
	case "lt":
		return ridx.LT, nil
	case "lte":
		return ridx.LTE, nil
	case "gt":
		return ridx.GT, nil
	case "gte":
		return ridx.GTE, nil
	default:
		return ridx.Empty, fmt.Errorf("unknown operator %q (want lt, lte, gt, or gte)", s)
	}
}

func init() {
	scanCmd.Flags().StringVar(&lowOpFlag, "low-op", "gte", "low bound operator (gt or gte)")
	scanCmd.Flags().StringVar(&highOpFlag, "high-op", "lte", "high bound operator (lt or lte)")
}
