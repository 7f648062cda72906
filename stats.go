package ridx

import (
	"fmt"

	"ridx/internal/base"
)

// TreeStats summarizes the shape of the tree.
type TreeStats struct {
	Height  int // levels including the leaf level
	Leaves  int
	Entries int
	MinKey  int32
	MaxKey  int32
}

// Stats walks the tree and returns its shape. The walk pins and unpins one
// page at a time and leaves no residue in the buffer pool's pin counts.
func (idx *Index) Stats() (TreeStats, error) {
	if idx.closed {
		return TreeStats{}, ErrIndexClosed
	}

	stats := TreeStats{}
	leafNo, height, err := idx.leftmostLeaf()
	if err != nil {
		return TreeStats{}, err
	}
	stats.Height = height

	first := true
	err = idx.walkLeaves(leafNo, func(key int32, _ RecordID) {
		if first || key < stats.MinKey {
			stats.MinKey = key
		}
		if first || key > stats.MaxKey {
			stats.MaxKey = key
		}
		first = false
		stats.Entries++
	}, func(base.PageID) {
		stats.Leaves++
	})
	if err != nil {
		return TreeStats{}, err
	}
	return stats, nil
}

// leftmostLeaf descends Children[0] from the root and returns the first leaf
// of the chain along with the tree height.
func (idx *Index) leftmostLeaf() (base.PageID, int, error) {
	pageNo := idx.rootPageNo
	height := 1 // leaf level

	for {
		page, err := idx.bm.ReadPage(idx.file, pageNo)
		if err != nil {
			return base.InvalidPageID, 0, err
		}
		node := page.Inner()
		level := node.Level
		child := node.Children[0]
		if err := idx.bm.UnpinPage(idx.file, pageNo, false); err != nil {
			return base.InvalidPageID, 0, err
		}

		height++
		if child == base.InvalidPageID {
			return base.InvalidPageID, 0, fmt.Errorf("inner node %d has no first child", pageNo)
		}
		if level == 1 {
			return child, height, nil
		}
		pageNo = child
	}
}

// walkLeaves visits every leaf along the right-sibling chain starting at
// leafNo, invoking onLeaf per leaf and onEntry per live slot in order.
func (idx *Index) walkLeaves(leafNo base.PageID, onEntry func(int32, RecordID), onLeaf func(base.PageID)) error {
	for leafNo != base.InvalidPageID {
		page, err := idx.bm.ReadPage(idx.file, leafNo)
		if err != nil {
			return err
		}
		leaf := page.Leaf()

		if onLeaf != nil {
			onLeaf(leafNo)
		}
		for i := 0; i < base.LeafCapacity; i++ {
			if !leaf.Rids[i].Valid() {
				break
			}
			if onEntry != nil {
				onEntry(leaf.Keys[i], leaf.Rids[i])
			}
		}

		next := leaf.RightSib
		if err := idx.bm.UnpinPage(idx.file, leafNo, false); err != nil {
			return err
		}
		leafNo = next
	}
	return nil
}
