// Package errs holds the sentinel errors shared by every internal package
// (page, pagepool, txn, store). Defining them here, rather than in the root
// berrydb package, lets the internal packages return them directly without
// importing the root package and creating an import cycle; the root package
// re-exports each one as its own public name.
package errs

import "errors"

var (
	// ErrIoError means the underlying filesystem or VFS returned an error.
	ErrIoError = errors.New("berrydb: io error")
	// ErrNotFound means the desired key or file was not found.
	ErrNotFound = errors.New("berrydb: not found")
	// ErrAlreadyLocked means the resource has already been locked by
	// another user.
	ErrAlreadyLocked = errors.New("berrydb: already locked")
	// ErrAlreadyExists means an object with the given key already exists.
	ErrAlreadyExists = errors.New("berrydb: already exists")
	// ErrAlreadyClosed means Close has already been called.
	ErrAlreadyClosed = errors.New("berrydb: already closed")
	// ErrPoolFull means the page pool is over-utilized: no buffer was free,
	// evictable, or available to allocate.
	ErrPoolFull = errors.New("berrydb: pool full")
	// ErrInvalidArgument means a caller-supplied option or argument
	// violates a documented precondition.
	ErrInvalidArgument = errors.New("berrydb: invalid argument")
)
