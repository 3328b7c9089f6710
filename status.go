package berrydb

import "github.com/berrydb/berrydb/internal/errs"

// Error taxonomy for BerryDB operations. Use errors.Is to match, since
// these are usually returned wrapped with %w inside an error that adds
// context (a path, or an underlying OS error's text) instead of bare.
//
// These are aliases onto internal/errs so that every internal package can
// return the same error value without importing this root package.
var (
	// ErrIoError means the underlying filesystem or VFS returned an error.
	ErrIoError = errs.ErrIoError
	// ErrNotFound means the desired key or file was not found.
	ErrNotFound = errs.ErrNotFound
	// ErrAlreadyLocked means the resource has already been locked by
	// another user.
	ErrAlreadyLocked = errs.ErrAlreadyLocked
	// ErrAlreadyExists means an object with the given key already exists.
	ErrAlreadyExists = errs.ErrAlreadyExists
	// ErrAlreadyClosed means Close has already been called.
	ErrAlreadyClosed = errs.ErrAlreadyClosed
	// ErrPoolFull means the page pool is over-utilized: no buffer was free,
	// evictable, or available to allocate.
	ErrPoolFull = errs.ErrPoolFull
	// ErrInvalidArgument means a caller-supplied option or argument
	// violates a documented precondition.
	ErrInvalidArgument = errs.ErrInvalidArgument
)
