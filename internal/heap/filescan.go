package heap

import "ridx/internal/base"

// FileScan iterates every record of a heap file in (page, slot) order.
// Exhaustion is signaled with ErrEndOfFile.
type FileScan struct {
	file     *File
	pageNo   base.PageID
	slot     int
	page     *base.Page
	numSlots int
}

// NewFileScan starts a scan positioned before the first record.
func NewFileScan(f *File) *FileScan {
	return &FileScan{file: f}
}

// Next returns the next record and its id, or ErrEndOfFile when the relation
// is exhausted.
func (s *FileScan) Next() (base.RecordID, []byte, error) {
	for {
		if s.page == nil || s.slot >= s.numSlots {
			if err := s.advancePage(); err != nil {
				return base.InvalidRecordID, nil, err
			}
			continue
		}

		rec, ok := pageRecord(s.page, s.slot)
		rid := base.RecordID{PageNo: uint32(s.pageNo), SlotNo: base.SlotID(s.slot)}
		s.slot++
		if !ok {
			continue
		}

		out := make([]byte, len(rec))
		copy(out, rec)
		return rid, out, nil
	}
}

func (s *FileScan) advancePage() error {
	next := s.pageNo + 1
	if next > s.file.NumPages() {
		return ErrEndOfFile
	}

	page, err := s.file.readPage(next)
	if err != nil {
		return err
	}

	s.pageNo = next
	s.page = page
	s.numSlots = pageNumSlots(page)
	s.slot = 0
	return nil
}
