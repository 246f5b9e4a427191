package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dshills/soundboard/internal/router"
)

// Endpoint paths.
const (
	PathIPC   = "/ipc"
	PathFocus = "/focus"
)

// FrameKind is the discipline of a frame on the wire.
type FrameKind string

const (
	// FrameNotify carries a notify message in either direction.
	FrameNotify FrameKind = "notify"
	// FrameRequest carries a request from the remote presentation.
	FrameRequest FrameKind = "request"
	// FrameResponse answers a request.
	FrameResponse FrameKind = "response"
	// FrameError rejects a request.
	FrameError FrameKind = "error"
)

// Frame is one websocket text message.
type Frame struct {
	Kind    FrameKind       `json:"kind"`
	ID      string          `json:"id,omitempty"`
	Channel router.Channel  `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Message returns the router message carried by the frame.
func (f Frame) Message() router.Message {
	return router.Message{Channel: f.Channel, Payload: f.Payload}
}

// ErrClosed is returned by a client after its connection has gone away.
var ErrClosed = errors.New("bridge closed")

// RemoteError is a request rejection reported by the other process.
type RemoteError struct {
	Channel router.Channel
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Channel, e.Message)
}
