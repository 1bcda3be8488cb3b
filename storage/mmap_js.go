//go:build js || wasip1

package storage

import "os"

// mapRegion on js/wasip1 has no real mmap syscall available, so it falls
// back to an ordinary buffer exactly like the windows backend, mirroring
// the teacher's own no-op file lock for this build target (no filesystem
// semantics to rely on in the browser/WASI sandbox).
func mapRegion(file *os.File, size int64, writable bool) ([]byte, error) {
	data := make([]byte, size)
	if size > 0 {
		if _, err := file.ReadAt(data, 0); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func unmapRegion(data []byte) error { return nil }

func flushRegion(file *os.File, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := file.WriteAt(data, 0)
	return err
}
