package base

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeViewSizes(t *testing.T) {
	t.Parallel()

	// The node views must fill a page exactly; the capacities are derived
	// from PageSize.
	assert.Equal(t, uintptr(PageSize), unsafe.Sizeof(LeafNode{}))
	assert.Equal(t, uintptr(PageSize), unsafe.Sizeof(InnerNode{}))
	assert.LessOrEqual(t, unsafe.Sizeof(IndexMeta{}), uintptr(PageSize))
}

func TestLeafViewAliasesPage(t *testing.T) {
	t.Parallel()

	page := &Page{}
	leaf := page.Leaf()
	leaf.Reset()

	leaf.Keys[0] = 42
	leaf.Rids[0] = RecordID{PageNo: 7, SlotNo: 3}

	// The view writes through to the page bytes.
	other := page.Leaf()
	assert.Equal(t, int32(42), other.Keys[0])
	assert.Equal(t, RecordID{PageNo: 7, SlotNo: 3}, other.Rids[0])
	assert.Equal(t, 1, other.NumEntries())
}

func TestLeafReset(t *testing.T) {
	t.Parallel()

	page := &Page{}
	leaf := page.Leaf()
	for i := range leaf.Rids {
		leaf.Rids[i] = RecordID{PageNo: uint32(i + 1)}
	}
	leaf.RightSib = 99

	leaf.Reset()

	assert.Equal(t, 0, leaf.NumEntries())
	assert.Equal(t, InvalidPageID, leaf.RightSib)
	for i := range leaf.Rids {
		assert.False(t, leaf.Rids[i].Valid())
	}
}

func TestInnerReset(t *testing.T) {
	t.Parallel()

	page := &Page{}
	node := page.Inner()
	for i := range node.Children {
		node.Children[i] = PageID(i + 1)
	}

	node.Reset(1)

	assert.Equal(t, int32(1), node.Level)
	for i := range node.Children {
		assert.Equal(t, InvalidPageID, node.Children[i])
	}
}

func TestMetaRoundTrip(t *testing.T) {
	t.Parallel()

	page := &Page{}
	meta := page.Meta()
	meta.Magic = MagicNumber
	meta.Version = FormatVersion
	meta.AttrByteOffset = 16
	meta.AttrType = Integer
	meta.SetRelationName("orders")
	meta.RootPageNo = 3
	meta.Checksum = page.ComputeChecksum()

	require.NoError(t, page.ValidateMeta())
	assert.Equal(t, "orders", meta.GetRelationName())
	assert.Equal(t, PageID(3), meta.RootPageNo)
}

func TestMetaValidateRejectsCorruption(t *testing.T) {
	t.Parallel()

	page := &Page{}
	meta := page.Meta()
	meta.Magic = MagicNumber
	meta.Version = FormatVersion
	meta.SetRelationName("orders")
	meta.Checksum = page.ComputeChecksum()
	require.NoError(t, page.ValidateMeta())

	// Flip a byte covered by the checksum.
	meta.RootPageNo = 12345
	assert.ErrorIs(t, page.ValidateMeta(), ErrInvalidChecksum)

	meta.Magic = 0xdeadbeef
	assert.ErrorIs(t, page.ValidateMeta(), ErrInvalidMagicNumber)
}

func TestRecordIDValid(t *testing.T) {
	t.Parallel()

	assert.False(t, InvalidRecordID.Valid())
	assert.True(t, RecordID{PageNo: 1, SlotNo: 0}.Valid())
}
