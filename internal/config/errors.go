package config

import (
	"errors"
	"fmt"
)

// Errors returned by store operations.
var (
	// ErrRead matches every ReadError.
	ErrRead = errors.New("settings unreadable")

	// ErrWrite matches every WriteError.
	ErrWrite = errors.New("settings not written")

	// ErrUnknownKey indicates GetKey was asked for a key the document lacks.
	ErrUnknownKey = errors.New("unknown setting")

	// ErrInvalidPatch indicates a Set patch that would break the document.
	ErrInvalidPatch = errors.New("invalid settings patch")

	// ErrDataDir indicates the data directory could not be created.
	ErrDataDir = errors.New("data directory unavailable")
)

// ReadError describes a settings document that is missing or malformed.
type ReadError struct {
	// Path is the document path.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is implements error matching for ReadError.
func (e *ReadError) Is(target error) bool {
	return target == ErrRead
}

// WriteError describes a failed replacement of the settings document.
// The previous document is left in place.
type WriteError struct {
	// Path is the document path.
	Path string
	// Op is the step that failed (create, write, sync, rename).
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s (%s): %v", e.Path, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is implements error matching for WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// PatchError names the offending key of an invalid patch.
type PatchError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *PatchError) Error() string {
	return fmt.Sprintf("invalid settings patch: %s: %s", e.Key, e.Reason)
}

// Is implements error matching for PatchError.
func (e *PatchError) Is(target error) bool {
	return target == ErrInvalidPatch
}
