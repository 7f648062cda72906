package ridx

import (
	"fmt"
	"math"

	"ridx/internal/base"
)

// Operator is a scan range comparison. Only GT/GTE are valid low-bound
// operators and only LT/LTE are valid high-bound operators.
type Operator int

const (
	LT Operator = iota
	LTE
	GT
	GTE
	Empty
)

func (op Operator) String() string {
	switch op {
	case LT:
		return "LT"
	case LTE:
		return "LTE"
	case GT:
		return "GT"
	case GTE:
		return "GTE"
	default:
		return "EMPTY"
	}
}

// scanExhausted marks a scan that ran off the end of the leaf chain.
const scanExhausted = math.MaxInt32

// StartScan begins a range scan over (low, high) under the given operators.
// On success the leaf holding the first matching entry stays pinned until
// EndScan or the scan hops past it. If no entry satisfies the low bound the
// scan state is cleared and ErrNoSuchKey returned.
func (idx *Index) StartScan(low int32, lowOp Operator, high int32, highOp Operator) error {
	if idx.closed {
		return ErrIndexClosed
	}

	if idx.scanActive {
		idx.endScanInternal()
	}

	if (lowOp != GT && lowOp != GTE) || (highOp != LT && highOp != LTE) {
		return fmt.Errorf("%w: %v/%v", ErrBadOperator, lowOp, highOp)
	}
	if low > high {
		return fmt.Errorf("%w: [%d, %d]", ErrBadScanRange, low, high)
	}

	idx.lowVal, idx.highVal = low, high
	idx.lowOp, idx.highOp = lowOp, highOp
	idx.scanActive = true

	next, err := idx.findScanStart(idx.rootPageNo)
	if err != nil {
		if idx.scanActive {
			idx.endScanInternal()
		}
		return err
	}
	idx.nextEntry = next
	return nil
}

// findScanStart descends from the inner node at pageNo toward the leftmost
// leaf that could hold the low bound, using the same pivot rule as insert so
// equal keys are found to the right. The chosen leaf stays pinned; every
// inner node visited is unpinned before returning. If the leaf holds no
// matching slot the scan starts at the first entry of its right sibling;
// with no right sibling the scan state is cleared and ErrNoSuchKey returned.
func (idx *Index) findScanStart(pageNo base.PageID) (int, error) {
	page, err := idx.bm.ReadPage(idx.file, pageNo)
	if err != nil {
		return 0, err
	}
	node := page.Inner()

	for i := 0; i <= base.InnerKeyCapacity; i++ {
		if i != base.InnerKeyCapacity && node.Children[i+1] != base.InvalidPageID && node.Keys[i] <= idx.lowVal {
			continue
		}

		if node.Level != 1 {
			next, err := idx.findScanStart(node.Children[i])
			idx.bm.UnpinPage(idx.file, pageNo, false)
			return next, err
		}

		leafNo := node.Children[i]
		leafPage, err := idx.bm.ReadPage(idx.file, leafNo)
		if err != nil {
			idx.bm.UnpinPage(idx.file, pageNo, false)
			return 0, err
		}
		idx.curPageNo = leafNo
		idx.curPage = leafPage

		leaf := leafPage.Leaf()
		for j := 0; j < base.LeafCapacity; j++ {
			if !leaf.Rids[j].Valid() {
				break
			}
			k := leaf.Keys[j]
			if (idx.lowOp == GT && k > idx.lowVal) || (idx.lowOp == GTE && k >= idx.lowVal) {
				idx.bm.UnpinPage(idx.file, pageNo, false)
				return j, nil
			}
		}

		// Nothing here satisfies the low bound: the right sibling's keys all lie
		// at or above the separator that steered the descent here, which exceeds
		// the low value, so its first entry is the first match.
		if sibNo := leaf.RightSib; sibNo != base.InvalidPageID {
			sibPage, err := idx.bm.ReadPage(idx.file, sibNo)
			idx.bm.UnpinPage(idx.file, pageNo, false)
			if err != nil {
				idx.endScanInternal()
				return 0, err
			}
			idx.bm.UnpinPage(idx.file, leafNo, false)
			idx.curPageNo, idx.curPage = sibNo, sibPage
			return 0, nil
		}

		// No right sibling: no leaf holds a key satisfying the low bound.
		idx.bm.UnpinPage(idx.file, pageNo, false)
		idx.endScanInternal()
		return 0, ErrNoSuchKey
	}

	idx.bm.UnpinPage(idx.file, pageNo, false)
	idx.endScanInternal()
	return 0, fmt.Errorf("inner node %d has no viable child for key %d", pageNo, idx.lowVal)
}

// ScanNext returns the record id of the next entry matching the scan
// criteria, hopping to the right sibling leaf when the current one is
// drained. Past the high bound or the end of the chain it returns
// ErrScanCompleted; the scan stays active until EndScan.
func (idx *Index) ScanNext() (RecordID, error) {
	if !idx.scanActive {
		return base.InvalidRecordID, ErrScanNotInitialized
	}

	leaf := idx.curPage.Leaf()
	if idx.nextEntry == scanExhausted || !leaf.Rids[idx.nextEntry].Valid() {
		return base.InvalidRecordID, ErrScanCompleted
	}

	k := leaf.Keys[idx.nextEntry]
	if !((idx.highOp == LT && k < idx.highVal) || (idx.highOp == LTE && k <= idx.highVal)) {
		return base.InvalidRecordID, ErrScanCompleted
	}
	rid := leaf.Rids[idx.nextEntry]

	// Advance: next slot in this leaf, else the right sibling, else done.
	switch {
	case idx.nextEntry+1 < base.LeafCapacity && leaf.Rids[idx.nextEntry+1].Valid():
		idx.nextEntry++

	case leaf.RightSib != base.InvalidPageID:
		sibNo := leaf.RightSib
		sibPage, err := idx.bm.ReadPage(idx.file, sibNo)
		if err != nil {
			return base.InvalidRecordID, err
		}
		if err := idx.bm.UnpinPage(idx.file, idx.curPageNo, false); err != nil {
			return base.InvalidRecordID, err
		}
		idx.curPageNo = sibNo
		idx.curPage = sibPage
		idx.nextEntry = 0

	default:
		idx.nextEntry = scanExhausted
	}

	return rid, nil
}

// EndScan terminates the current scan, unpinning the scan leaf and resetting
// the scan state.
func (idx *Index) EndScan() error {
	if !idx.scanActive {
		return ErrScanNotInitialized
	}
	idx.endScanInternal()
	return nil
}

func (idx *Index) endScanInternal() {
	if idx.curPageNo != base.InvalidPageID {
		idx.bm.UnpinPage(idx.file, idx.curPageNo, false)
	}
	idx.scanActive = false
	idx.curPageNo = base.InvalidPageID
	idx.curPage = nil
	idx.nextEntry = 0
	idx.lowVal, idx.highVal = 0, 0
	idx.lowOp, idx.highOp = Empty, Empty
}
