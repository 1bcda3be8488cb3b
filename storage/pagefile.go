// Package storage implements the on-disk bottom half of the engine: the
// page allocator, per-type record stores, the string heap and the join
// area. Everything here is a thin, arithmetic layer over a single growable,
// memory-mapped file per concern — no slotting, no free-space tracking,
// because every record this engine stores is fixed width (§4.2 of the
// spec: "the engine does not re-layout on open").
package storage

import (
	"errors"
	"fmt"
	"os"
)

// PageSize is the unit of file growth and memory mapping (§3: "fixed size,
// a system page multiple"). 4 KiB matches the teacher's own PageSize and
// the common host page size.
const PageSize = 4096

// ErrReadOnly is returned by any mutating operation against a PagedFile
// opened read-only.
var ErrReadOnly = errors.New("storage: database is read-only")

// ErrCorruptLayout is returned when an existing file's size is not a
// multiple of PageSize (invariant 1).
var ErrCorruptLayout = errors.New("storage: file size is not a multiple of the page size")

// ErrOutOfRange is returned by RecordStore.Read for rod_id 0 or any id
// beyond the current record count.
var ErrOutOfRange = errors.New("storage: rod_id out of range")

// PagedFile is a single growable file, grown in PageSize increments and
// kept mapped into memory for zero-copy reads. It is the shared building
// block for record stores, the string heap and the join area.
type PagedFile struct {
	path     string
	file     *os.File
	data     []byte // the live mapping (or fallback buffer on windows/js)
	pages    uint32
	readOnly bool
	memory   bool // true for in-memory-only instances (see NewMemPagedFile)
}

// OpenPagedFile opens or creates path, validates page alignment on an
// existing file, and maps it into memory.
func OpenPagedFile(path string, readOnly bool) (*PagedFile, error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := info.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s (size %d)", ErrCorruptLayout, path, size)
	}

	pf := &PagedFile{path: path, file: f, readOnly: readOnly, pages: uint32(size / PageSize)}
	if size > 0 {
		data, err := mapRegion(f, size, !readOnly)
		if err != nil {
			f.Close()
			return nil, err
		}
		pf.data = data
	}
	return pf, nil
}

// NewMemPagedFile creates a PagedFile backed only by a heap buffer, with no
// file on disk — used by tests.
func NewMemPagedFile() *PagedFile {
	return &PagedFile{memory: true}
}

// PageCount returns the number of PageSize pages currently allocated.
func (pf *PagedFile) PageCount() uint32 { return pf.pages }

// Size returns the current mapped size in bytes.
func (pf *PagedFile) Size() int64 { return int64(len(pf.data)) }

// ReadOnly reports whether mutating operations are rejected.
func (pf *PagedFile) ReadOnly() bool { return pf.readOnly }

// Grow extends the file by n pages and remaps it, returning the byte
// offset at which the new pages begin. Existing []byte views returned by
// Bytes must not be retained across a Grow call — the mapping is replaced.
func (pf *PagedFile) Grow(n uint32) (firstOffset int64, err error) {
	if pf.readOnly {
		return 0, ErrReadOnly
	}
	firstOffset = int64(pf.pages) * PageSize
	newSize := firstOffset + int64(n)*PageSize

	if pf.memory {
		grown := make([]byte, newSize)
		copy(grown, pf.data)
		pf.data = grown
		pf.pages += n
		return firstOffset, nil
	}

	// The buffer backends (windows, js) re-read the file on mapRegion, so
	// pending writes must reach the file before the old region is dropped.
	if err := flushRegion(pf.file, pf.data); err != nil {
		return 0, err
	}
	if err := unmapRegion(pf.data); err != nil {
		return 0, err
	}
	if err := pf.file.Truncate(newSize); err != nil {
		return 0, fmt.Errorf("storage: truncate %s: %w", pf.path, err)
	}
	data, err := mapRegion(pf.file, newSize, true)
	if err != nil {
		return 0, err
	}
	pf.data = data
	pf.pages += n
	return firstOffset, nil
}

// EnsureCapacity grows the file, in whole pages, until at least minSize
// bytes are mapped. It is the common path used by the record store, the
// string heap and the join area when their tail offset runs past the
// current mapping.
func (pf *PagedFile) EnsureCapacity(minSize int64) error {
	if int64(len(pf.data)) >= minSize {
		return nil
	}
	deficit := minSize - int64(len(pf.data))
	pages := uint32((deficit + PageSize - 1) / PageSize)
	_, err := pf.Grow(pages)
	return err
}

// Bytes returns the live mapped region. Callers must not retain slices of
// it across a Grow/Close call.
func (pf *PagedFile) Bytes() []byte { return pf.data }

// ReadAt copies length bytes at off into a fresh slice.
func (pf *PagedFile) ReadAt(off int64, length int) ([]byte, error) {
	if off < 0 || off+int64(length) > int64(len(pf.data)) {
		return nil, fmt.Errorf("storage: read [%d,%d) out of bounds (size %d)", off, off+int64(length), len(pf.data))
	}
	out := make([]byte, length)
	copy(out, pf.data[off:off+int64(length)])
	return out, nil
}

// WriteAt copies b into the mapping at off. The caller is responsible for
// having grown the file to cover [off, off+len(b)) first.
func (pf *PagedFile) WriteAt(off int64, b []byte) error {
	if pf.readOnly {
		return ErrReadOnly
	}
	if off < 0 || off+int64(len(b)) > int64(len(pf.data)) {
		return fmt.Errorf("storage: write [%d,%d) out of bounds (size %d)", off, off+int64(len(b)), len(pf.data))
	}
	copy(pf.data[off:], b)
	return nil
}

// Close flushes and releases the mapping.
func (pf *PagedFile) Close() error {
	if pf.memory {
		return nil
	}
	if err := flushRegion(pf.file, pf.data); err != nil {
		return err
	}
	if err := unmapRegion(pf.data); err != nil {
		return err
	}
	if !pf.readOnly {
		if err := pf.file.Sync(); err != nil {
			return err
		}
	}
	return pf.file.Close()
}
