//go:build windows

package storage

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = modkernel32.NewProc("LockFileEx")
	procUnlockFileEx = modkernel32.NewProc("UnlockFileEx")
)

const (
	lockfileExclusiveLock = 0x00000002
	lockfileFailImmediate = 0x00000001
)

// fileLock represents an OS-level advisory lock over a database directory
// (Windows implementation), backing the same AlreadyOpen guarantee as the
// unix flock variant.
type fileLock struct {
	file *os.File
}

// lockFile acquires an exclusive lock on a "LOCK" sentinel file inside
// dirPath. Returns a fileLock that must be released with unlock().
func lockFile(dirPath string) (*fileLock, error) {
	lockPath := dirPath + string(os.PathSeparator) + "LOCK"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open lock file: %w", err)
	}

	ol := new(syscall.Overlapped)
	r1, _, err := procLockFileEx.Call(
		f.Fd(),
		uintptr(lockfileExclusiveLock|lockfileFailImmediate),
		0,
		1, 0,
		uintptr(unsafe.Pointer(ol)),
	)
	if r1 == 0 {
		f.Close()
		return nil, fmt.Errorf("storage: database %q is already open in another process", dirPath)
	}

	return &fileLock{file: f}, nil
}

// unlock releases the file lock.
func (fl *fileLock) unlock() error {
	if fl.file == nil {
		return nil
	}
	ol := new(syscall.Overlapped)
	procUnlockFileEx.Call(
		fl.file.Fd(),
		0,
		1, 0,
		uintptr(unsafe.Pointer(ol)),
	)
	err := fl.file.Close()
	if fl.file != nil {
		os.Remove(fl.file.Name())
	}
	return err
}
