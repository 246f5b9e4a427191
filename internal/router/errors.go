package router

import (
	"errors"
	"fmt"
)

// Sentinel errors for the router.
var (
	// ErrDelivery matches every *DeliveryError.
	ErrDelivery = errors.New("router delivery failed")

	// ErrUnknownChannel is returned for names outside the catalogue.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrWrongKind is returned when a notify channel is requested or the reverse.
	ErrWrongKind = errors.New("wrong message kind for channel")

	// ErrWrongDirection is returned when a side sends on the other side's channel.
	ErrWrongDirection = errors.New("wrong direction for channel")

	// ErrNoHandler is returned for a request nobody handles.
	ErrNoHandler = errors.New("no handler for request")

	// ErrBadPayload is returned when a payload cannot be encoded or decoded.
	ErrBadPayload = errors.New("malformed payload")

	// ErrNilListener is returned when a nil listener or handler is registered.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrClosed is returned by a port whose transport has shut down.
	ErrClosed = errors.New("port closed")
)

// DeliveryError rejects one message. Other channels are unaffected.
type DeliveryError struct {
	Channel Channel
	Err     error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("channel %q: %v", e.Channel, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrDelivery.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}

// PanicError records a listener that panicked during delivery.
type PanicError struct {
	SubscriptionID string
	Channel        Channel
	Value          any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener %s on %q panicked: %v", e.SubscriptionID, e.Channel, e.Value)
}
