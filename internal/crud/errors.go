package crud

import "errors"

// Store errors.
var (
	// ErrNotEnabled is returned by an operation the store was built without.
	ErrNotEnabled = errors.New("operation not enabled")
	// ErrSuperseded is the outcome of a call replaced by a newer call of the
	// same operation before it completed.
	ErrSuperseded = errors.New("operation superseded by a newer call")
	// ErrEntityNotFound is the outcome of an update whose entity is not in
	// the item list.
	ErrEntityNotFound = errors.New("entity not found in items")
	// ErrServiceMissing is returned when an enabled operation has no
	// implementation on the data-access object.
	ErrServiceMissing = errors.New("service does not implement operation")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrUnknownOp is returned when parsing an unrecognised operation name.
	ErrUnknownOp = errors.New("unknown operation")
)
