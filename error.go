package ridx

import (
	"errors"

	"ridx/internal/base"
	"ridx/internal/storage"
)

var (
	// ErrMetadataMismatch is returned by Open when an existing index file's
	// meta page disagrees with the open parameters.
	ErrMetadataMismatch = errors.New("index metadata does not match open parameters")

	// ErrBadOperator is returned by StartScan for operators outside
	// {GT, GTE} x {LT, LTE}.
	ErrBadOperator = errors.New("unsupported scan operator")

	// ErrBadScanRange is returned by StartScan when low exceeds high.
	ErrBadScanRange = errors.New("scan range low value exceeds high value")

	// ErrNoSuchKey is returned by StartScan when no entry satisfies the low
	// bound.
	ErrNoSuchKey = errors.New("no key satisfies the scan criteria")

	// ErrScanNotInitialized is returned by ScanNext and EndScan without an
	// active scan.
	ErrScanNotInitialized = errors.New("no scan in progress")

	// ErrScanCompleted is returned by ScanNext past the high bound or the end
	// of the leaf chain.
	ErrScanCompleted = errors.New("index scan completed")

	// ErrIndexClosed is returned by InsertEntry, StartScan and Stats on a
	// closed index handle.
	ErrIndexClosed = errors.New("index is closed")

	ErrFileNotFound       = storage.ErrFileNotFound
	ErrInvalidMagicNumber = base.ErrInvalidMagicNumber
	ErrInvalidVersion     = base.ErrInvalidVersion
	ErrInvalidChecksum    = base.ErrInvalidChecksum
)
