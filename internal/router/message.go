package router

import (
	"encoding/json"
	"fmt"
)

// Message is one delivery on a channel. Payloads are JSON so that local
// delivery and the bridge behave the same.
type Message struct {
	Channel Channel         `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Empty reports whether the message carries no payload. A replay of a
// channel that was never broadcast is empty.
func (m Message) Empty() bool {
	return len(m.Payload) == 0 || string(m.Payload) == "null"
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if m.Empty() {
		return &DeliveryError{Channel: m.Channel, Err: fmt.Errorf("%w: empty", ErrBadPayload)}
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return &DeliveryError{Channel: m.Channel, Err: fmt.Errorf("%w: %v", ErrBadPayload, err)}
	}
	return nil
}

// Encode converts v into a payload. A nil v yields an empty payload and a
// json.RawMessage is used as is.
func Encode(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return data, nil
}

// Dialog is the payload of ChannelDialogError.
type Dialog struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Listener receives notify messages.
type Listener func(msg Message)
