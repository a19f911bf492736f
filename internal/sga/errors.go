package sga

import "errors"

// Sentinel errors surfaced to callers of internal/sga, internal/sgafs and
// internal/sgapack. Wrap with golang.org/x/xerrors and compare with
// errors.Is; wrapping never hides these from errors.Is.
var (
	ErrResourceNotFound   = errors.New("sga: resource not found")
	ErrDirectoryExpected  = errors.New("sga: directory expected")
	ErrFileExpected       = errors.New("sga: file expected")
	ErrFileExists         = errors.New("sga: file exists")
	ErrDirectoryExists    = errors.New("sga: directory exists")
	ErrRemoveRoot         = errors.New("sga: cannot remove root")
	ErrInvalidPath        = errors.New("sga: invalid path")
	ErrOperationFailed    = errors.New("sga: operation failed")
	ErrDriveExists        = errors.New("sga: drive exists")
	ErrOutOfBounds        = errors.New("sga: out of bounds")
	ErrUnsupportedVersion = errors.New("sga: unsupported version")
	ErrUnknownDialect     = errors.New("sga: unknown dialect")
	ErrIntegrity          = errors.New("sga: integrity check failed")
	ErrCrc32Mismatch      = errors.New("sga: crc32 mismatch")
	ErrNotWritable        = errors.New("sga: not writable")
)
