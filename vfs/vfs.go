// Package vfs defines the file-access abstraction stores use to reach the
// filesystem, and a default os.File-backed implementation.
//
// Grounded on include/berrydb/vfs.h from the original C++ implementation,
// translated to Go interfaces; the default implementation's locking is
// grounded on other_examples/aergoio-kv_log__db.go's use of syscall.Flock,
// generalized to golang.org/x/sys/unix so it stays correct across the
// platforms that package supports rather than just the ones syscall does.
package vfs

import "io"

// Vfs opens and removes files on behalf of a store.
type Vfs interface {
	// OpenForRandomAccess opens path for unbuffered ReadAt/WriteAt access,
	// used for a store's log file. If createIfMissing and the file does
	// not exist, it is created; if errorIfExists, opening a file that
	// already exists fails with ErrAlreadyExists. created reports whether
	// this call created it.
	OpenForRandomAccess(path string, createIfMissing, errorIfExists bool) (f RandomAccessFile, created bool, err error)

	// OpenForBlockAccess opens path for page-aligned Read/Write access,
	// used for a store's data file. blockShift is log2 of the store's
	// page size, needed by implementations that must align I/O to the
	// underlying block device.
	OpenForBlockAccess(path string, blockShift int, createIfMissing, errorIfExists bool) (f BlockAccessFile, created bool, err error)

	// RemoveFile deletes path. Missing files are not an error.
	RemoveFile(path string) error
}

// RandomAccessFile is an unbuffered file opened for arbitrary-offset reads
// and writes, used for a store's log file.
type RandomAccessFile interface {
	io.ReaderAt
	io.WriterAt
	// Flush pushes buffered writes to the OS. A no-op for os.File, kept
	// for symmetry with implementations that do buffer.
	Flush() error
	// Sync forces the OS to persist previously written data to storage.
	Sync() error
	// Close releases the underlying descriptor. The file cannot be used
	// afterward.
	Close() error
}

// BlockAccessFile is a file opened for page-aligned reads and writes, used
// for a store's data file.
type BlockAccessFile interface {
	io.ReaderAt
	io.WriterAt
	// Size returns the file's current length in bytes.
	Size() (int64, error)
	// Sync forces the OS to persist previously written data to storage.
	Sync() error
	// Lock acquires a mandatory advisory lock on the whole file,
	// exclusive to this process, so a second BerryDB process cannot open
	// the same store concurrently. Returns ErrAlreadyLocked if another
	// process already holds it.
	Lock() error
	// Close releases the underlying descriptor, dropping any lock this
	// process holds. The file cannot be used afterward.
	Close() error
}

var defaultVfs Vfs

// DefaultVfs returns the process-wide os.File-backed Vfs, initializing it
// on first call.
func DefaultVfs() Vfs {
	defaultVfsOnce.Do(func() {
		defaultVfs = &libcVfs{}
	})
	return defaultVfs
}
