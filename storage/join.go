package storage

import (
	"encoding/binary"
	"fmt"
)

const scalarElementSize = 8  // one rod_id
const polyElementSize = 16   // rod_id + class_tag

// ScalarJoin is the packed array of plain rod_ids backing non-polymorphic
// plural associations and indices (§4.4).
type ScalarJoin struct {
	pf   *PagedFile
	tail uint64 // next free element slot
}

// OpenScalarJoin wraps pf as a scalar join area, seeding the tail (in
// elements, not bytes) from metadata.
func OpenScalarJoin(pf *PagedFile, tailElements uint64) *ScalarJoin {
	return &ScalarJoin{pf: pf, tail: tailElements}
}

// Tail returns the number of elements allocated so far.
func (j *ScalarJoin) Tail() uint64 { return j.tail }

// Allocate reserves count contiguous slots at the current tail and returns
// the starting slot index. Allocations are never reclaimed (§4.4: "reopening
// a plural association reallocates a new range, leaving the prior range as
// garbage").
func (j *ScalarJoin) Allocate(count uint64) (offset uint64, err error) {
	if j.pf.ReadOnly() {
		return 0, ErrReadOnly
	}
	offset = j.tail
	needed := int64(offset+count) * scalarElementSize
	if err := j.pf.EnsureCapacity(needed); err != nil {
		return 0, err
	}
	j.tail += count
	return offset, nil
}

// Get reads the rod_id at slot (offset+i).
func (j *ScalarJoin) Get(offset, i uint64) (uint64, error) {
	b, err := j.pf.ReadAt(int64((offset+i)*scalarElementSize), scalarElementSize)
	if err != nil {
		return 0, fmt.Errorf("storage: scalar join range out of bounds: %w", err)
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Set writes the rod_id at slot (offset+i).
func (j *ScalarJoin) Set(offset, i, rodID uint64) error {
	if j.pf.ReadOnly() {
		return ErrReadOnly
	}
	buf := make([]byte, scalarElementSize)
	binary.LittleEndian.PutUint64(buf, rodID)
	return j.pf.WriteAt(int64((offset+i)*scalarElementSize), buf)
}

// Close releases the underlying paged file.
func (j *ScalarJoin) Close() error { return j.pf.Close() }

// PolyJoin is the packed array of (rod_id, class_tag) pairs backing
// polymorphic plural associations (§4.4).
type PolyJoin struct {
	pf   *PagedFile
	tail uint64
}

// OpenPolyJoin wraps pf as a polymorphic join area.
func OpenPolyJoin(pf *PagedFile, tailElements uint64) *PolyJoin {
	return &PolyJoin{pf: pf, tail: tailElements}
}

// Tail returns the number of elements allocated so far.
func (j *PolyJoin) Tail() uint64 { return j.tail }

// Allocate reserves count contiguous polymorphic slots and returns the
// starting slot index.
func (j *PolyJoin) Allocate(count uint64) (offset uint64, err error) {
	if j.pf.ReadOnly() {
		return 0, ErrReadOnly
	}
	offset = j.tail
	needed := int64(offset+count) * polyElementSize
	if err := j.pf.EnsureCapacity(needed); err != nil {
		return 0, err
	}
	j.tail += count
	return offset, nil
}

// Get reads the (rod_id, class_tag) pair at slot (offset+i). A zero rod_id
// denotes a null plural element (scenario 4: a null entry in the middle of
// a polymorphic has_many).
func (j *PolyJoin) Get(offset, i uint64) (rodID, classTag uint64, err error) {
	b, err := j.pf.ReadAt(int64((offset+i)*polyElementSize), polyElementSize)
	if err != nil {
		return 0, 0, fmt.Errorf("storage: polymorphic join range out of bounds: %w", err)
	}
	return binary.LittleEndian.Uint64(b), binary.LittleEndian.Uint64(b[8:]), nil
}

// Set writes the (rod_id, class_tag) pair at slot (offset+i).
func (j *PolyJoin) Set(offset, i, rodID, classTag uint64) error {
	if j.pf.ReadOnly() {
		return ErrReadOnly
	}
	buf := make([]byte, polyElementSize)
	binary.LittleEndian.PutUint64(buf, rodID)
	binary.LittleEndian.PutUint64(buf[8:], classTag)
	return j.pf.WriteAt(int64((offset+i)*polyElementSize), buf)
}

// Close releases the underlying paged file.
func (j *PolyJoin) Close() error { return j.pf.Close() }
