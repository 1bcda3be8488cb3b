package storage

import "fmt"

// RecordStore is the append-only struct array for one record type: a
// PagedFile sliced into fixed-width slots, one per rod_id (§4.2).
type RecordStore struct {
	pf         *PagedFile
	structSize int
	count      uint64 // number of stored records; rod_id ranges over [1, count]
}

// OpenRecordStore wraps pf as a record store for a type whose fixed struct
// width is structSize, seeding the live count from metadata (§4.7: "Seed
// each type's count ... from metadata and file size").
func OpenRecordStore(pf *PagedFile, structSize int, count uint64) *RecordStore {
	return &RecordStore{pf: pf, structSize: structSize, count: count}
}

// Count returns the number of records currently stored.
func (rs *RecordStore) Count() uint64 { return rs.count }

// PageCount returns the number of pages backing this type's data file.
func (rs *RecordStore) PageCount() uint32 { return rs.pf.PageCount() }

// RecordsPerPage is floor(PageSize / structSize), used to compute how many
// pages must be allocated to fit one more record (§3).
func (rs *RecordStore) RecordsPerPage() uint64 {
	if rs.structSize == 0 {
		return 0
	}
	return uint64(PageSize / rs.structSize)
}

// Append writes struct bytes as the next record and returns its newly
// assigned 1-based rod_id. len(data) must equal the type's struct size.
func (rs *RecordStore) Append(data []byte) (rodID uint64, err error) {
	if rs.pf.ReadOnly() {
		return 0, ErrReadOnly
	}
	if len(data) != rs.structSize {
		return 0, fmt.Errorf("storage: record size %d does not match struct size %d", len(data), rs.structSize)
	}

	slot := rs.count
	offset := int64(slot) * int64(rs.structSize)
	needed := offset + int64(rs.structSize)

	perPage := rs.RecordsPerPage()
	if perPage == 0 {
		return 0, fmt.Errorf("storage: struct size %d exceeds page size %d", rs.structSize, PageSize)
	}
	pagesNeeded := (slot / perPage) + 1
	for uint64(rs.pf.PageCount()) < pagesNeeded {
		if _, err := rs.pf.Grow(1); err != nil {
			return 0, err
		}
	}
	_ = needed

	if err := rs.pf.WriteAt(offset, data); err != nil {
		return 0, err
	}
	rs.count++
	return rs.count, nil
}

// Read returns the struct bytes for rodID, failing with ErrOutOfRange when
// rodID is 0 or beyond the current count.
func (rs *RecordStore) Read(rodID uint64) ([]byte, error) {
	if rodID == 0 || rodID > rs.count {
		return nil, fmt.Errorf("%w: rod_id %d (count %d)", ErrOutOfRange, rodID, rs.count)
	}
	offset := int64(rodID-1) * int64(rs.structSize)
	return rs.pf.ReadAt(offset, rs.structSize)
}

// Update overwrites the struct bytes for an already-stored rodID in place.
// Controller.Store never calls it: stored records are not back-patched.
func (rs *RecordStore) Update(rodID uint64, data []byte) error {
	if rs.pf.ReadOnly() {
		return ErrReadOnly
	}
	if rodID == 0 || rodID > rs.count {
		return fmt.Errorf("%w: rod_id %d (count %d)", ErrOutOfRange, rodID, rs.count)
	}
	if len(data) != rs.structSize {
		return fmt.Errorf("storage: record size %d does not match struct size %d", len(data), rs.structSize)
	}
	offset := int64(rodID-1) * int64(rs.structSize)
	return rs.pf.WriteAt(offset, data)
}

// Close releases the underlying paged file.
func (rs *RecordStore) Close() error { return rs.pf.Close() }
