package ridx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanKeys drains an active scan, returning the rids in emission order.
func scanKeys(t *testing.T, idx *Index) []RecordID {
	t.Helper()

	var rids []RecordID
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			require.ErrorIs(t, err, ErrScanCompleted)
			return rids
		}
		rids = append(rids, rid)
	}
}

func TestScanFullRange(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	for i := 1; i <= 5; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}

	require.NoError(t, idx.StartScan(0, GT, 10, LT))
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())

	want := []RecordID{ridFor(1), ridFor(2), ridFor(3), ridFor(4), ridFor(5)}
	assert.Equal(t, want, rids)
}

func TestScanOperatorValidation(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	require.NoError(t, idx.InsertEntry(5, ridFor(5)))

	assert.ErrorIs(t, idx.StartScan(5, LT, 10, LTE), ErrBadOperator)
	assert.ErrorIs(t, idx.StartScan(5, GTE, 10, GT), ErrBadOperator)
	assert.ErrorIs(t, idx.StartScan(5, Empty, 10, LTE), ErrBadOperator)

	// Low above high is rejected with valid operators.
	assert.ErrorIs(t, idx.StartScan(10, GT, 5, LT), ErrBadScanRange)
}

func TestScanNoSuchKey(t *testing.T) {
	t.Parallel()

	idx, bm := setup(t)
	for i := 0; i < 100; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}

	// Low bound above every key: the scan fails and holds no pins.
	assert.ErrorIs(t, idx.StartScan(1000, GTE, 2000, LTE), ErrNoSuchKey)
	assert.Equal(t, 0, bm.TotalPins())

	// The failed scan left the handle idle.
	assert.ErrorIs(t, idx.EndScan(), ErrScanNotInitialized)
	_, err := idx.ScanNext()
	assert.ErrorIs(t, err, ErrScanNotInitialized)
}

func TestScanEmptyIndexNoSuchKey(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	assert.ErrorIs(t, idx.StartScan(0, GTE, 10, LTE), ErrNoSuchKey)
}

func TestScanWithoutStart(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)

	_, err := idx.ScanNext()
	assert.ErrorIs(t, err, ErrScanNotInitialized)
	assert.ErrorIs(t, idx.EndScan(), ErrScanNotInitialized)
}

func TestScanBoundExclusivity(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	for i := 1; i <= 10; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}

	// GT excludes the low value itself.
	require.NoError(t, idx.StartScan(3, GT, 10, LTE))
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())
	assert.Equal(t, ridFor(4), rids[0])
	assert.Len(t, rids, 7)

	// LT never emits the high value.
	require.NoError(t, idx.StartScan(1, GTE, 7, LT))
	rids = scanKeys(t, idx)
	require.NoError(t, idx.EndScan())
	assert.Equal(t, ridFor(6), rids[len(rids)-1])
	assert.Len(t, rids, 6)
}

func TestScanDuplicates(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, idx.InsertEntry(5, ridFor(i)))
	}

	require.NoError(t, idx.StartScan(4, GTE, 5, LTE))
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())

	assert.Len(t, rids, 3)
	assert.ElementsMatch(t, []RecordID{ridFor(0), ridFor(1), ridFor(2)}, rids)
}

func TestScanGTSkipsDuplicatesOfLowValue(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.InsertEntry(7, ridFor(i)))
	}
	require.NoError(t, idx.InsertEntry(8, ridFor(100)))

	require.NoError(t, idx.StartScan(7, GT, 100, LTE))
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())

	assert.Equal(t, []RecordID{ridFor(100)}, rids)
}

func TestScanCrossesLeafBoundaries(t *testing.T) {
	t.Parallel()

	idx, bm := setup(t)

	// Several leaves worth of keys.
	n := LeafCapacity*3 + 17
	for i := 0; i < n; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}

	require.NoError(t, idx.StartScan(0, GTE, int32(n-1), LTE))
	assert.Equal(t, 1, bm.TotalPins())
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())

	require.Len(t, rids, n)
	for i, rid := range rids {
		assert.Equal(t, ridFor(i), rid, "position %d", i)
	}
	assert.Equal(t, 0, bm.TotalPins())
}

func TestScanExhaustionIsSticky(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	require.NoError(t, idx.InsertEntry(1, ridFor(1)))

	require.NoError(t, idx.StartScan(0, GTE, 10, LTE))
	_, err := idx.ScanNext()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = idx.ScanNext()
		assert.ErrorIs(t, err, ErrScanCompleted)
	}
	require.NoError(t, idx.EndScan())
}

func TestStartScanRestartsActiveScan(t *testing.T) {
	t.Parallel()

	idx, bm := setup(t)
	for i := 0; i < 50; i++ {
		require.NoError(t, idx.InsertEntry(int32(i), ridFor(i)))
	}

	require.NoError(t, idx.StartScan(0, GTE, 49, LTE))
	_, err := idx.ScanNext()
	require.NoError(t, err)

	// A second StartScan ends the first; only one leaf pin remains.
	require.NoError(t, idx.StartScan(10, GTE, 20, LTE))
	assert.Equal(t, 1, bm.TotalPins())

	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())
	assert.Len(t, rids, 11)
	assert.Equal(t, ridFor(10), rids[0])
	assert.Equal(t, 0, bm.TotalPins())
}

func TestScanStopsAtHighBoundMidLeaf(t *testing.T) {
	t.Parallel()

	idx, _ := setup(t)
	keys := []int32{10, 20, 30, 40, 50}
	for i, k := range keys {
		require.NoError(t, idx.InsertEntry(k, ridFor(i)))
	}

	require.NoError(t, idx.StartScan(25, GT, 45, LTE))
	rids := scanKeys(t, idx)
	require.NoError(t, idx.EndScan())

	assert.Equal(t, []RecordID{ridFor(2), ridFor(3)}, rids)
}
