package ridx

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridx/internal/base"
	"ridx/internal/bufmgr"
	"ridx/internal/heap"
)

// setup opens a fresh index over a relation that has no heap file, so every
// entry comes from InsertEntry.
func setup(t *testing.T) (*Index, *bufmgr.BufferManager) {
	t.Helper()

	bm := bufmgr.New(256)
	idx, _, err := Open(filepath.Join(t.TempDir(), "rel"), 0, Integer, bm)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx, bm
}

// ridFor fabricates a distinct record id per ordinal.
func ridFor(i int) RecordID {
	return RecordID{PageNo: uint32(i/100 + 1), SlotNo: base.SlotID(i % 100)}
}

// buildRelation writes n records whose leading 4 bytes hold the record's
// ordinal as a little-endian int32.
func buildRelation(t *testing.T, path string, n int) []RecordID {
	t.Helper()

	rel, err := heap.Open(path, true)
	require.NoError(t, err)

	rids := make([]RecordID, 0, n)
	rec := make([]byte, 16)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(rec, uint32(i))
		rid, err := rel.InsertRecord(rec)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.NoError(t, rel.Close())
	return rids
}

func TestOpenCreatesEmptyIndex(t *testing.T) {
	t.Parallel()

	idx, bm := setup(t)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Height)
	assert.Equal(t, 1, stats.Leaves)
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, bm.TotalPins())
}

func TestOpenReturnsIndexFileName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	relation := filepath.Join(dir, "orders")

	bm := bufmgr.New(256)
	idx, name, err := Open(relation, 8, Integer, bm)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, relation+".8", name)
}

func TestReopenPreservesEntries(t *testing.T) {
	t.Parallel()

	relation := filepath.Join(t.TempDir(), "rel")

	bm := bufmgr.New(256)
	idx, _, err := Open(relation, 0, Integer, bm)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}
	require.NoError(t, idx.Close())

	idx, _, err = Open(relation, 0, Integer, bm)
	require.NoError(t, err)
	defer idx.Close()

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1000, stats.Entries)
	assert.Equal(t, int32(0), stats.MinKey)
	assert.Equal(t, int32(999), stats.MaxKey)
}

func TestOpenMetadataMismatch(t *testing.T) {
	t.Parallel()

	relation := filepath.Join(t.TempDir(), "rel")

	bm := bufmgr.New(256)
	idx, _, err := Open(relation, 0, Integer, bm)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	// Same index file, different attribute type.
	_, _, err = Open(relation, 0, base.Double, bm)
	assert.ErrorIs(t, err, ErrMetadataMismatch)
	assert.Equal(t, 0, bm.TotalPins())
}

func TestBulkLoadFromRelation(t *testing.T) {
	t.Parallel()

	relation := filepath.Join(t.TempDir(), "rel")
	rids := buildRelation(t, relation, 10_000)

	bm := bufmgr.New(512)
	idx, _, err := Open(relation, 0, Integer, bm)
	require.NoError(t, err)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 10_000, stats.Entries)

	// Close and reopen: the same scan reproduces the same results.
	require.NoError(t, idx.Close())
	idx, _, err = Open(relation, 0, Integer, bm)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.StartScan(4999, GTE, 5001, LTE))
	var got []RecordID
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			assert.ErrorIs(t, err, ErrScanCompleted)
			break
		}
		got = append(got, rid)
	}
	require.NoError(t, idx.EndScan())

	assert.Equal(t, []RecordID{rids[4999], rids[5000], rids[5001]}, got)
	assert.Equal(t, 0, bm.TotalPins())
}

func TestBulkLoadMissingRelationStartsEmpty(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	relation := filepath.Join(t.TempDir(), "rel")
	bm := bufmgr.New(256)
	idx, _, err := Open(relation, 0, Integer, bm)
	require.NoError(t, err)

	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	require.ErrorIs(t, idx.InsertEntry(1, ridFor(1)), ErrIndexClosed)
	require.ErrorIs(t, idx.StartScan(0, GTE, 1, LTE), ErrIndexClosed)
}

func TestCloseEndsActiveScan(t *testing.T) {
	t.Parallel()

	relation := filepath.Join(t.TempDir(), "rel")
	bm := bufmgr.New(256)
	idx, _, err := Open(relation, 0, Integer, bm)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}
	require.NoError(t, idx.StartScan(0, GTE, 9, LTE))
	assert.Equal(t, 1, bm.TotalPins())

	require.NoError(t, idx.Close())
	assert.Equal(t, 0, bm.TotalPins())
}
