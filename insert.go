package ridx

import (
	"fmt"
	"slices"

	"ridx/internal/base"
)

// splitResult carries a completed child split up the recursion: the key to
// push into the parent and the new right sibling's page id. A zero right
// page means no split happened.
type splitResult struct {
	pushKey   int32
	rightPage base.PageID
}

var noSplit = splitResult{pushKey: -1, rightPage: base.InvalidPageID}

func (r splitResult) split() bool {
	return r.rightPage != base.InvalidPageID
}

// InsertEntry inserts (key, rid) into the index. Duplicate keys are
// permitted. Errors from the buffer layer are fatal to the operation; the
// tree is undefined after one.
func (idx *Index) InsertEntry(key int32, rid RecordID) error {
	if idx.closed {
		return ErrIndexClosed
	}

	res, err := idx.insertInner(idx.rootPageNo, key, rid)
	if err != nil {
		return err
	}
	if !res.split() {
		return nil
	}

	// The root itself split: grow the tree by one level.
	newRootNo, rootPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return err
	}

	root := rootPage.Inner()
	root.Reset(0)
	root.Keys[0] = res.pushKey
	root.Children[0] = idx.rootPageNo
	root.Children[1] = res.rightPage

	if err := idx.bm.UnpinPage(idx.file, newRootNo, true); err != nil {
		return err
	}

	idx.rootPageNo = newRootNo
	return idx.writeMetaRoot()
}

// insertInner descends through the inner node at pageNo. The pivot child is
// the first one whose separator key exceeds the insert key, so equal keys
// always go right.
func (idx *Index) insertInner(pageNo base.PageID, key int32, rid RecordID) (splitResult, error) {
	page, err := idx.bm.ReadPage(idx.file, pageNo)
	if err != nil {
		return noSplit, err
	}
	node := page.Inner()

	for i := 0; i <= base.InnerKeyCapacity; i++ {
		if i != base.InnerKeyCapacity && node.Children[i+1] != base.InvalidPageID && node.Keys[i] <= key {
			continue
		}

		var res splitResult
		if node.Level == 1 {
			res, err = idx.insertLeaf(node.Children[i], key, rid)
		} else {
			res, err = idx.insertInner(node.Children[i], key, rid)
		}
		if err != nil {
			idx.bm.UnpinPage(idx.file, pageNo, false)
			return noSplit, err
		}
		if !res.split() {
			if err := idx.bm.UnpinPage(idx.file, pageNo, false); err != nil {
				return noSplit, err
			}
			return noSplit, nil
		}

		return idx.placeInInner(pageNo, node, i, res)
	}

	idx.bm.UnpinPage(idx.file, pageNo, false)
	return noSplit, fmt.Errorf("inner node %d has no viable child for key %d", pageNo, key)
}

// placeInInner inserts a child split's (pushKey, rightPage) at pivot index i
// of the pinned inner node, splitting the node when it has no room.
func (idx *Index) placeInInner(pageNo base.PageID, node *base.InnerNode, i int, res splitResult) (splitResult, error) {
	workChildren := slices.Insert(append([]base.PageID(nil), node.Children[:]...), i+1, res.rightPage)
	workKeys := slices.Insert(append([]int32(nil), node.Keys[:]...), i, res.pushKey)

	if workChildren[len(workChildren)-1] == base.InvalidPageID {
		copy(node.Children[:], workChildren)
		copy(node.Keys[:], workKeys)
		if err := idx.bm.UnpinPage(idx.file, pageNo, true); err != nil {
			return noSplit, err
		}
		return noSplit, nil
	}

	newPageNo, newPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		idx.bm.UnpinPage(idx.file, pageNo, false)
		return noSplit, err
	}
	newNode := newPage.Inner()

	level := node.Level
	node.Reset(level)
	newNode.Reset(level)

	// Children [0, m) stay; the key at local slot m-1 is left unused because
	// the m-th child is the split boundary and its separator moves up.
	m := len(workChildren) / 2
	for j := 0; j < m; j++ {
		node.Children[j] = workChildren[j]
		if j != m-1 {
			node.Keys[j] = workKeys[j]
		}
	}
	for j := m; j < len(workChildren); j++ {
		newNode.Children[j-m] = workChildren[j]
		if j != len(workChildren)-1 {
			newNode.Keys[j-m] = workKeys[j]
		}
	}

	pushKey := workKeys[m-1]

	if err := idx.bm.UnpinPage(idx.file, pageNo, true); err != nil {
		return noSplit, err
	}
	if err := idx.bm.UnpinPage(idx.file, newPageNo, true); err != nil {
		return noSplit, err
	}
	return splitResult{pushKey: pushKey, rightPage: newPageNo}, nil
}

// insertLeaf inserts (key, rid) into the leaf at pageNo, keeping slots packed
// and sorted. A full leaf keeps (capacity+1)/2 entries, with the push-up key
// being the first key of the new right leaf.
func (idx *Index) insertLeaf(pageNo base.PageID, key int32, rid RecordID) (splitResult, error) {
	page, err := idx.bm.ReadPage(idx.file, pageNo)
	if err != nil {
		return noSplit, err
	}
	leaf := page.Leaf()

	insertPos := base.LeafCapacity
	for i := 0; i < base.LeafCapacity; i++ {
		if !leaf.Rids[i].Valid() || leaf.Keys[i] > key {
			insertPos = i
			break
		}
	}

	workKeys := slices.Insert(append([]int32(nil), leaf.Keys[:]...), insertPos, key)
	workRids := slices.Insert(append([]RecordID(nil), leaf.Rids[:]...), insertPos, rid)

	if !workRids[len(workRids)-1].Valid() {
		copy(leaf.Keys[:], workKeys)
		copy(leaf.Rids[:], workRids)
		if err := idx.bm.UnpinPage(idx.file, pageNo, true); err != nil {
			return noSplit, err
		}
		return noSplit, nil
	}

	newPageNo, newPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		idx.bm.UnpinPage(idx.file, pageNo, false)
		return noSplit, err
	}
	newLeaf := newPage.Leaf()

	rightSib := leaf.RightSib
	leaf.Reset()
	newLeaf.Reset()

	m := len(workRids) / 2
	for j := 0; j < m; j++ {
		leaf.Keys[j] = workKeys[j]
		leaf.Rids[j] = workRids[j]
	}
	for j := m; j < len(workRids); j++ {
		newLeaf.Keys[j-m] = workKeys[j]
		newLeaf.Rids[j-m] = workRids[j]
	}

	newLeaf.RightSib = rightSib
	leaf.RightSib = newPageNo

	if err := idx.bm.UnpinPage(idx.file, pageNo, true); err != nil {
		return noSplit, err
	}
	if err := idx.bm.UnpinPage(idx.file, newPageNo, true); err != nil {
		return noSplit, err
	}
	return splitResult{pushKey: workKeys[m], rightPage: newPageNo}, nil
}
