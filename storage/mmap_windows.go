//go:build windows

package storage

import (
	"fmt"
	"os"
)

// mapRegion has no native mmap fallback on windows in this engine (unlike
// the unix backend); data is read into an ordinary heap-allocated buffer
// and written back on Close and before every Grow, matching the Windows fallback strategy
// the mmap storage this is adapted from uses for the same reason: mapping
// a growable file on Windows needs extra bookkeeping (CreateFileMapping
// handle lifetime across remaps) this engine does not need to take on
// given its single-writer, single-process model.
func mapRegion(file *os.File, size int64, writable bool) ([]byte, error) {
	data := make([]byte, size)
	if size > 0 {
		if _, err := file.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("storage: read fallback failed: %w", err)
		}
	}
	return data, nil
}

// unmapRegion is a no-op on this platform; flushRegion is what actually
// persists the buffer.
func unmapRegion(data []byte) error {
	return nil
}

// flushRegion writes the fallback buffer back to file, since writes here
// only ever touch a plain heap slice.
func flushRegion(file *os.File, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := file.WriteAt(data, 0)
	return err
}
