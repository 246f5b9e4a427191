package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called twice.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNotRunning indicates work was posted after shutdown.
	ErrNotRunning = errors.New("application not running")
)

// InitError represents a fatal startup failure.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ComponentError represents a non-fatal error from one component. It is
// shown to the user with Title.
type ComponentError struct {
	Component string // e.g. "hotkeys", "menu", "watcher"
	Title     string // dialog title
	Err       error
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Title, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Title)
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RecoveredPanicError wraps a panic raised by a task.
type RecoveredPanicError struct {
	Value any
	Stack string
}

func (e *RecoveredPanicError) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}
