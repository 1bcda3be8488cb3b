//go:build !windows && !js && !wasip1

package storage

import (
	"fmt"
	"os"
	"syscall"
)

// mapRegion memory-maps the first size bytes of file. writable controls
// whether the mapping allows stores (PROT_WRITE) or is read-only.
func mapRegion(file *os.File, size int64, writable bool) ([]byte, error) {
	prot := syscall.PROT_READ
	if writable {
		prot |= syscall.PROT_WRITE
	}
	data, err := syscall.Mmap(int(file.Fd()), 0, int(size), prot, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("storage: mmap failed: %w", err)
	}
	return data, nil
}

// unmapRegion releases a mapping obtained from mapRegion.
func unmapRegion(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return syscall.Munmap(data)
}

// flushRegion is a no-op: a MAP_SHARED mapping writes directly through to
// the page cache, and syscall.Msync is not available across all unix
// targets from the plain "syscall" package, so durability relies on the
// backing *os.File's Sync() at Close — the same compromise the mmap
// storage this is adapted from documents and accepts.
func flushRegion(file *os.File, data []byte) error {
	return nil
}
