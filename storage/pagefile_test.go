package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenPagedFileGrowsInPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.dat")

	pf, err := OpenPagedFile(path, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if pf.PageCount() != 0 {
		t.Fatalf("fresh file should have 0 pages, got %d", pf.PageCount())
	}

	if _, err := pf.Grow(2); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if pf.PageCount() != 2 {
		t.Fatalf("want 2 pages, got %d", pf.PageCount())
	}
	if pf.Size() != 2*PageSize {
		t.Fatalf("want size %d, got %d", 2*PageSize, pf.Size())
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must see the same page count (misaligned files are covered
	// by TestOpenPagedFileRejectsCorruptLayout).
	pf2, err := OpenPagedFile(path, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if pf2.PageCount() != 2 {
		t.Fatalf("reopen: want 2 pages, got %d", pf2.PageCount())
	}
	pf2.Close()
}

func TestOpenPagedFileRejectsCorruptLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.dat")

	pf, err := OpenPagedFile(path, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	pf.Grow(1)
	pf.Close()

	// Truncate to a non-page-aligned size behind the PagedFile's back.
	if err := os.Truncate(path, PageSize+1); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if _, err := OpenPagedFile(path, false); err == nil {
		t.Fatalf("expected CorruptLayout error")
	}
}

func TestReadWriteAtBounds(t *testing.T) {
	pf := NewMemPagedFile()
	if _, err := pf.Grow(1); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if err := pf.WriteAt(0, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := pf.ReadAt(0, 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	if _, err := pf.ReadAt(PageSize-2, 5); err == nil {
		t.Fatalf("expected out of bounds error")
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ro.dat")

	pf, _ := OpenPagedFile(path, false)
	pf.Grow(1)
	pf.Close()

	ro, err := OpenPagedFile(path, true)
	if err != nil {
		t.Fatalf("reopen readonly: %v", err)
	}
	defer ro.Close()

	if err := ro.WriteAt(0, []byte("x")); err != ErrReadOnly {
		t.Fatalf("want ErrReadOnly, got %v", err)
	}
	if _, err := ro.Grow(1); err != ErrReadOnly {
		t.Fatalf("want ErrReadOnly on Grow, got %v", err)
	}
}
