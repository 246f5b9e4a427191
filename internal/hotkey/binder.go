// Package hotkey registers resolved accelerators with a global hotkey
// facility and reports the ones that could not be claimed.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/soundboard/internal/keybind"
)

// Registrar is the platform's global hotkey facility.
type Registrar interface {
	// Register claims accel and calls fn each time it is pressed. It fails
	// when accel is malformed or already claimed elsewhere.
	Register(accel string, fn func()) error
	// Unregister releases accel.
	Unregister(accel string) error
}

// Trigger is called with the action whose accelerator was pressed.
type Trigger func(action keybind.Action)

// ErrClosed is returned by Bind after Close.
var ErrClosed = errors.New("binder closed")

// BindConflict lists the actions whose accelerators could not be registered.
// The other actions stay bound.
type BindConflict struct {
	Actions []keybind.Action
	// Errs holds the registrar error for each entry of Actions.
	Errs []error
}

// Error implements the error interface.
func (e *BindConflict) Error() string {
	names := make([]string, len(e.Actions))
	for i, a := range e.Actions {
		names[i] = string(a)
	}
	return fmt.Sprintf("could not bind the following accelerators: %s", strings.Join(names, ","))
}

// Unwrap returns the registrar errors.
func (e *BindConflict) Unwrap() []error {
	return e.Errs
}

// binding is one registered accelerator.
type binding struct {
	action keybind.Action
	accel  string
}

// Binder owns the accelerators registered for one process.
type Binder struct {
	registrar Registrar

	mu     sync.Mutex
	bound  []binding
	closed bool
}

// NewBinder returns a binder using r.
func NewBinder(r Registrar) *Binder {
	return &Binder{registrar: r}
}

// Bind registers every candidate with a non-empty accelerator. A failure does
// not stop the remaining registrations; all failures are returned together
// as a *BindConflict.
func (b *Binder) Bind(candidates []keybind.Candidate, trigger Trigger) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	var conflict BindConflict
	for _, c := range candidates {
		if c.Accelerator == "" {
			continue
		}
		action := c.Action
		err := b.registrar.Register(c.Accelerator, func() { trigger(action) })
		if err != nil {
			conflict.Actions = append(conflict.Actions, action)
			conflict.Errs = append(conflict.Errs, err)
			continue
		}
		b.bound = append(b.bound, binding{action: action, accel: c.Accelerator})
	}

	if len(conflict.Actions) > 0 {
		return &conflict
	}
	return nil
}

// Bound returns the actions currently registered, in registration order.
func (b *Binder) Bound() []keybind.Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]keybind.Action, len(b.bound))
	for i, bd := range b.bound {
		out[i] = bd.action
	}
	return out
}

// Close unregisters every bound accelerator. Only the first call does any
// work; later calls, and calls on a binder that bound nothing, return nil.
func (b *Binder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, bd := range b.bound {
		if err := b.registrar.Unregister(bd.accel); err != nil {
			errs = append(errs, fmt.Errorf("unregister %s (%s): %w", bd.accel, bd.action, err))
		}
	}
	b.bound = nil
	return errors.Join(errs...)
}
