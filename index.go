// Package ridx implements a disk-resident B+ tree index over a single
// integer attribute of records held in a heap relation. The index maps int32
// keys to record ids and supports point inserts plus half-open range scans
// over the leaf sibling chain. All page traffic goes through a buffer
// manager under a strict pin/unpin discipline.
package ridx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"ridx/internal/base"
	"ridx/internal/bufmgr"
	"ridx/internal/heap"
	"ridx/internal/storage"
)

// Re-exported so callers never import internal packages.
type (
	RecordID = base.RecordID
	Datatype = base.Datatype
)

const (
	Integer = base.Integer

	// LeafCapacity and InnerKeyCapacity expose the node fan-out for callers
	// sizing workloads and tests.
	LeafCapacity     = base.LeafCapacity
	InnerKeyCapacity = base.InnerKeyCapacity
)

// InvalidRecordID marks an empty leaf slot.
var InvalidRecordID = base.InvalidRecordID

// Index is a handle on one open index file. A handle must not be used
// concurrently; the tree is mutated only by InsertEntry and read by scans.
type Index struct {
	bm   *bufmgr.BufferManager
	file *storage.File
	log  Logger

	relationName   string
	attrByteOffset int
	attrType       Datatype

	headerPageNo base.PageID
	rootPageNo   base.PageID

	closed bool

	// scan state, valid only while scanActive
	scanActive bool
	lowVal     int32
	highVal    int32
	lowOp      Operator
	highOp     Operator
	curPageNo  base.PageID
	curPage    *base.Page
	nextEntry  int
}

// IndexFileName computes the on-disk name of the index over relationName's
// attribute at attrByteOffset.
func IndexFileName(relationName string, attrByteOffset int) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// Open opens the index over relationName's integer attribute at
// attrByteOffset, creating and bulk-loading it from the relation's heap file
// when no index file exists yet. It returns the handle and the index file
// name. An existing index whose meta page disagrees with the parameters
// fails with ErrMetadataMismatch.
func Open(relationName string, attrByteOffset int, attrType Datatype, bm *bufmgr.BufferManager, options ...Option) (*Index, string, error) {
	opts := defaultOptions()
	for _, opt := range options {
		opt(&opts)
	}

	idx := &Index{
		bm:             bm,
		log:            opts.logger,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
	}

	indexName := IndexFileName(relationName, attrByteOffset)

	f, err := storage.Open(indexName, false)
	switch {
	case err == nil:
		idx.file = f
		if err := idx.readMeta(); err != nil {
			bm.ReleaseFile(f)
			f.Close()
			return nil, "", err
		}

	case errors.Is(err, storage.ErrFileNotFound):
		f, err = storage.Open(indexName, true)
		if err != nil {
			return nil, "", err
		}
		idx.file = f
		if err := idx.initMeta(); err != nil {
			bm.ReleaseFile(f)
			f.Close()
			return nil, "", err
		}
		if err := idx.bulkLoad(); err != nil {
			idx.Close()
			return nil, "", err
		}

	default:
		return nil, "", err
	}

	return idx, indexName, nil
}

// readMeta validates an existing index file's meta page against the open
// parameters and records the root page id.
func (idx *Index) readMeta() error {
	idx.headerPageNo = idx.file.FirstPageNo()

	page, err := idx.bm.ReadPage(idx.file, idx.headerPageNo)
	if err != nil {
		return err
	}

	if err := page.ValidateMeta(); err != nil {
		idx.bm.UnpinPage(idx.file, idx.headerPageNo, false)
		return err
	}

	meta := page.Meta()
	if meta.AttrType != idx.attrType ||
		int(meta.AttrByteOffset) != idx.attrByteOffset ||
		!meta.MatchesRelationName(idx.relationName) {
		idx.bm.UnpinPage(idx.file, idx.headerPageNo, false)
		return fmt.Errorf("%w: index built over %q offset %d type %d",
			ErrMetadataMismatch, meta.GetRelationName(), meta.AttrByteOffset, meta.AttrType)
	}

	idx.rootPageNo = meta.RootPageNo
	return idx.bm.UnpinPage(idx.file, idx.headerPageNo, false)
}

// initMeta lays out a fresh index file: meta page, one empty leaf, and a
// level-1 root pointing at the leaf.
func (idx *Index) initMeta() error {
	metaPageNo, metaPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		return err
	}
	idx.headerPageNo = metaPageNo

	leafPageNo, leafPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		idx.bm.UnpinPage(idx.file, metaPageNo, false)
		return err
	}
	leafPage.Leaf().Reset()

	rootPageNo, rootPage, err := idx.bm.AllocPage(idx.file)
	if err != nil {
		idx.bm.UnpinPage(idx.file, metaPageNo, false)
		idx.bm.UnpinPage(idx.file, leafPageNo, true)
		return err
	}
	root := rootPage.Inner()
	root.Reset(1)
	root.Children[0] = leafPageNo
	idx.rootPageNo = rootPageNo

	meta := metaPage.Meta()
	meta.Magic = base.MagicNumber
	meta.Version = base.FormatVersion
	meta.AttrByteOffset = int32(idx.attrByteOffset)
	meta.AttrType = idx.attrType
	meta.SetRelationName(idx.relationName)
	meta.RootPageNo = rootPageNo
	meta.Checksum = metaPage.ComputeChecksum()

	idx.bm.UnpinPage(idx.file, leafPageNo, true)
	idx.bm.UnpinPage(idx.file, rootPageNo, true)
	return idx.bm.UnpinPage(idx.file, metaPageNo, true)
}

// writeMetaRoot rewrites the meta page after a root change so a reopen never
// recovers a stale root.
func (idx *Index) writeMetaRoot() error {
	page, err := idx.bm.ReadPage(idx.file, idx.headerPageNo)
	if err != nil {
		return err
	}

	meta := page.Meta()
	meta.RootPageNo = idx.rootPageNo
	meta.Checksum = page.ComputeChecksum()

	return idx.bm.UnpinPage(idx.file, idx.headerPageNo, true)
}

// bulkLoad streams the base relation and inserts one entry per record. A
// missing relation file is treated as an empty relation.
func (idx *Index) bulkLoad() error {
	rel, err := heap.Open(idx.relationName, false)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			idx.log.Warn("relation file missing, index starts empty", "relation", idx.relationName)
			return nil
		}
		return err
	}
	defer rel.Close()

	loaded := 0
	scan := heap.NewFileScan(rel)
	for {
		rid, record, err := scan.Next()
		if errors.Is(err, heap.ErrEndOfFile) {
			break
		}
		if err != nil {
			return err
		}

		if len(record) < idx.attrByteOffset+4 {
			idx.log.Warn("record shorter than attribute offset, skipped", "rid", rid, "len", len(record))
			continue
		}
		key := int32(binary.LittleEndian.Uint32(record[idx.attrByteOffset:]))

		if err := idx.InsertEntry(key, rid); err != nil {
			return err
		}
		loaded++
	}

	idx.log.Info("bulk load complete", "relation", idx.relationName, "entries", loaded)
	return nil
}

// Close ends any active scan, flushes the index file through the buffer
// manager, and releases the file handle. Close is idempotent.
func (idx *Index) Close() error {
	if idx.closed {
		return nil
	}

	if err := idx.EndScan(); err != nil && !errors.Is(err, ErrScanNotInitialized) {
		idx.log.Error("ending scan at close", "error", err)
	}

	var firstErr error
	if err := idx.bm.FlushFile(idx.file); err != nil {
		idx.log.Error("flushing index file", "error", err)
		firstErr = err
	}
	if err := idx.bm.ReleaseFile(idx.file); err != nil {
		idx.log.Error("releasing buffer frames", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := idx.file.Close(); err != nil {
		idx.log.Error("closing index file", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	idx.closed = true
	return firstErr
}
