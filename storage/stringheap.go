package storage

import (
	"fmt"
	"unicode/utf8"
)

// StringHeap is the append-only UTF-8 byte heap addressed by (offset,
// length) (§4.3). There is no deduplication: interning the same string
// twice stores it twice, exactly as the spec specifies.
type StringHeap struct {
	pf   *PagedFile
	tail uint64 // next free byte offset
}

// OpenStringHeap wraps pf as a string heap, seeding the tail from the
// byte length recorded in metadata.
func OpenStringHeap(pf *PagedFile, tail uint64) *StringHeap {
	return &StringHeap{pf: pf, tail: tail}
}

// Tail returns the current heap length in bytes, persisted in metadata so
// reopening resumes appending at the right offset.
func (h *StringHeap) Tail() uint64 { return h.tail }

// Intern appends s, encoded as UTF-8, to the heap and returns its
// coordinates.
func (h *StringHeap) Intern(s string) (offset uint64, length uint32, err error) {
	if h.pf.ReadOnly() {
		return 0, 0, ErrReadOnly
	}
	b := []byte(s)
	offset = h.tail
	needed := int64(offset) + int64(len(b))
	if err := h.pf.EnsureCapacity(needed); err != nil {
		return 0, 0, err
	}
	if err := h.pf.WriteAt(int64(offset), b); err != nil {
		return 0, 0, err
	}
	h.tail += uint64(len(b))
	return offset, uint32(len(b)), nil
}

// Read returns the string stored at (offset, length), asserting the byte
// range is valid UTF-8 (invariant 3).
func (h *StringHeap) Read(offset uint64, length uint32) (string, error) {
	if length == 0 {
		return "", nil
	}
	b, err := h.pf.ReadAt(int64(offset), int(length))
	if err != nil {
		return "", fmt.Errorf("storage: string heap range out of bounds: %w", err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("storage: string heap range [%d,%d) is not valid UTF-8", offset, uint64(offset)+uint64(length))
	}
	return string(b), nil
}

// Close releases the underlying paged file.
func (h *StringHeap) Close() error { return h.pf.Close() }
