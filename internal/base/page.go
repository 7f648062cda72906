package base

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

const (
	PageSize = 4096

	// MagicNumber for index file format identification ("ridx" in hex)
	MagicNumber uint32 = 0x72696478

	FormatVersion uint16 = 1

	// RelationNameSize bounds the relation name stored in the meta page.
	RelationNameSize = 64

	// LeafCapacity is the number of (key, rid) slots in a leaf node, sized so
	// the LeafNode view fills a page exactly: key (4B) + rid (8B) per slot,
	// plus the right-sibling pointer.
	LeafCapacity = (PageSize - 4) / (4 + 8)

	// InnerKeyCapacity is the number of routing keys in an inner node; the
	// child array holds one entry more than the key array.
	InnerKeyCapacity = (PageSize - 4 - 4) / (4 + 4)
)

// Page is a raw disk page (4096 bytes). Node pages carry no type tag; a page
// is interpreted as meta, leaf, or inner purely by its position in the tree.
//
// LEAF NODE LAYOUT:
// ┌────────────────────────────────────────────────────────────┐
// │ Keys[0..LeafCapacity)         int32 × 341     (1364 bytes) │
// ├────────────────────────────────────────────────────────────┤
// │ Rids[0..LeafCapacity)         RecordID × 341  (2728 bytes) │
// ├────────────────────────────────────────────────────────────┤
// │ RightSib                      PageID          (4 bytes)    │
// └────────────────────────────────────────────────────────────┘
//
// INNER NODE LAYOUT:
// ┌────────────────────────────────────────────────────────────┐
// │ Level                         int32           (4 bytes)    │
// ├────────────────────────────────────────────────────────────┤
// │ Keys[0..InnerKeyCapacity)     int32 × 511     (2044 bytes) │
// ├────────────────────────────────────────────────────────────┤
// │ Children[0..InnerKeyCapacity] PageID × 512    (2048 bytes) │
// └────────────────────────────────────────────────────────────┘
//
// Leaf entries are packed from slot 0; the first slot whose rid is
// InvalidRecordID ends the live data. For an inner node with keys k[0..n)
// and children c[0..n], every key under c[i] is < k[i] and every key under
// c[i+1] is >= k[i]. Unused child slots hold InvalidPageID.
type Page struct {
	Data [PageSize]byte
}

// LeafNode is the leaf view over a page.
type LeafNode struct {
	Keys     [LeafCapacity]int32
	Rids     [LeafCapacity]RecordID
	RightSib PageID
}

// InnerNode is the inner-node view over a page. Level 1 means the children
// are leaves; level 0 means the children are inner nodes.
type InnerNode struct {
	Level    int32
	Keys     [InnerKeyCapacity]int32
	Children [InnerKeyCapacity + 1]PageID
}

// IndexMeta is the meta view over the index file's first page. Checksum
// covers every preceding byte of the struct.
type IndexMeta struct {
	Magic          uint32
	Version        uint16
	AttrByteOffset int32
	AttrType       Datatype
	RelationName   [RelationNameSize]byte
	RootPageNo     PageID
	Checksum       uint64
}

// The views must not overflow a page; a capacity change that breaks this
// fails to compile here.
const (
	_ = uintptr(PageSize) - unsafe.Sizeof(LeafNode{})
	_ = uintptr(PageSize) - unsafe.Sizeof(InnerNode{})
	_ = uintptr(PageSize) - unsafe.Sizeof(IndexMeta{})
)

// Leaf returns the leaf-node view of the page.
func (p *Page) Leaf() *LeafNode {
	return (*LeafNode)(unsafe.Pointer(&p.Data[0]))
}

// Inner returns the inner-node view of the page.
func (p *Page) Inner() *InnerNode {
	return (*InnerNode)(unsafe.Pointer(&p.Data[0]))
}

// Meta returns the meta view of the page.
func (p *Page) Meta() *IndexMeta {
	return (*IndexMeta)(unsafe.Pointer(&p.Data[0]))
}

// Reset clears the leaf to the empty state: every slot invalid, no sibling.
func (l *LeafNode) Reset() {
	for i := range l.Rids {
		l.Rids[i] = InvalidRecordID
	}
	l.RightSib = InvalidPageID
}

// NumEntries counts the live slots. Entries are packed from slot 0.
func (l *LeafNode) NumEntries() int {
	for i := range l.Rids {
		if !l.Rids[i].Valid() {
			return i
		}
	}
	return LeafCapacity
}

// Reset clears the inner node: level as given, all children invalid.
func (n *InnerNode) Reset(level int32) {
	n.Level = level
	for i := range n.Children {
		n.Children[i] = InvalidPageID
	}
}

const metaChecksumOffset = unsafe.Offsetof(IndexMeta{}.Checksum)

// ComputeChecksum hashes the meta page bytes preceding the checksum field.
func (p *Page) ComputeChecksum() uint64 {
	return xxhash.Sum64(p.Data[:metaChecksumOffset])
}

// SetRelationName stores a bounded copy of name in the meta page.
func (m *IndexMeta) SetRelationName(name string) {
	m.RelationName = [RelationNameSize]byte{}
	copy(m.RelationName[:], name)
}

// MatchesRelationName compares name against the stored relation name under
// the same truncation SetRelationName applies.
func (m *IndexMeta) MatchesRelationName(name string) bool {
	if len(name) > RelationNameSize {
		name = name[:RelationNameSize]
	}
	return m.GetRelationName() == name
}

// GetRelationName returns the stored relation name.
func (m *IndexMeta) GetRelationName() string {
	for i, b := range m.RelationName {
		if b == 0 {
			return string(m.RelationName[:i])
		}
	}
	return string(m.RelationName[:])
}

// ValidateMeta checks the meta page's magic, version, and checksum.
func (p *Page) ValidateMeta() error {
	m := p.Meta()
	if m.Magic != MagicNumber {
		return ErrInvalidMagicNumber
	}
	if m.Version != FormatVersion {
		return ErrInvalidVersion
	}
	if m.Checksum != p.ComputeChecksum() {
		return ErrInvalidChecksum
	}
	return nil
}
