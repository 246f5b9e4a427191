package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// RequestHandler answers a request. The returned value is encoded as the
// response payload; an error rejects the request.
type RequestHandler func(ctx context.Context, msg Message) (any, error)

// Port is the presentation side's view of the router. It is implemented by
// the in-process endpoint and by the bridge client.
type Port interface {
	// On subscribes to a control->presentation notify channel.
	On(ch Channel, l Listener) (*Subscription, error)

	// OnReplay subscribes like On and then emits ch, so a broadcast sent
	// before the subscription existed is delivered once.
	OnReplay(ch Channel, l Listener) (*Subscription, error)

	// Notify sends on a presentation->control notify channel.
	Notify(ch Channel, payload any) error

	// Request sends a request and waits for its response.
	Request(ctx context.Context, ch Channel, arg any) (Message, error)

	// Emit asks control to redeliver the last broadcast on ch.
	Emit(ch Channel) error
}

// Router connects one control side to one presentation side.
// Delivery is synchronous in the sender's goroutine, so messages on one
// channel from one sender arrive in the order they were sent.
type Router struct {
	toControl      *Registry
	toPresentation *Registry

	mu       sync.RWMutex
	handlers map[Channel]RequestHandler
	last     map[Channel]json.RawMessage

	control      *Control
	presentation *Presentation
}

// New creates a router with no listeners or handlers.
func New() *Router {
	r := &Router{
		toControl:      NewRegistry(),
		toPresentation: NewRegistry(),
		handlers:       make(map[Channel]RequestHandler),
		last:           make(map[Channel]json.RawMessage),
	}
	r.control = &Control{r: r}
	r.presentation = &Presentation{r: r}
	return r
}

// Control returns the control side endpoint.
func (r *Router) Control() *Control {
	return r.control
}

// Presentation returns the presentation side endpoint.
func (r *Router) Presentation() *Presentation {
	return r.presentation
}

// replay redelivers the last payload of the channel named in an emit message.
func (r *Router) replay(emit Message) error {
	var name string
	if err := emit.Decode(&name); err != nil {
		return err
	}
	target := Channel(name)
	if err := Check(target, KindNotify, ToPresentation); err != nil {
		return err
	}

	r.mu.RLock()
	data := r.last[target]
	r.mu.RUnlock()

	return r.toPresentation.Deliver(Message{Channel: target, Payload: data})
}

// Control is the privileged side of the router.
type Control struct {
	r *Router
}

// Notify broadcasts payload on a control->presentation channel and records
// it for replay.
func (c *Control) Notify(ch Channel, payload any) error {
	if err := Check(ch, KindNotify, ToPresentation); err != nil {
		return err
	}
	data, err := Encode(payload)
	if err != nil {
		return &DeliveryError{Channel: ch, Err: err}
	}

	c.r.mu.Lock()
	c.r.last[ch] = data
	c.r.mu.Unlock()

	return c.r.toPresentation.Deliver(Message{Channel: ch, Payload: data})
}

// On subscribes to a presentation->control notify channel.
func (c *Control) On(ch Channel, l Listener) (*Subscription, error) {
	if err := Check(ch, KindNotify, ToControl); err != nil {
		return nil, err
	}
	return c.r.toControl.Add(ch, l)
}

// Handle installs the handler for a request channel, replacing any previous one.
func (c *Control) Handle(ch Channel, h RequestHandler) error {
	if err := Check(ch, KindRequest, ToControl); err != nil {
		return err
	}
	if h == nil {
		return ErrNilListener
	}
	c.r.mu.Lock()
	c.r.handlers[ch] = h
	c.r.mu.Unlock()
	return nil
}

// Last returns the payload most recently broadcast on ch.
func (c *Control) Last(ch Channel) (Message, bool) {
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()
	data, ok := c.r.last[ch]
	return Message{Channel: ch, Payload: data}, ok
}

// Presentation is the constrained side of the router.
type Presentation struct {
	r *Router
}

var _ Port = (*Presentation)(nil)

// On subscribes to a control->presentation notify channel.
func (p *Presentation) On(ch Channel, l Listener) (*Subscription, error) {
	if err := Check(ch, KindNotify, ToPresentation); err != nil {
		return nil, err
	}
	return p.r.toPresentation.Add(ch, l)
}

// OnReplay subscribes to ch and emits it.
func (p *Presentation) OnReplay(ch Channel, l Listener) (*Subscription, error) {
	sub, err := p.On(ch, l)
	if err != nil {
		return nil, err
	}
	return sub, p.Emit(ch)
}

// Notify sends payload on a presentation->control channel. Emit messages
// are also replayed after the control listeners have run.
func (p *Presentation) Notify(ch Channel, payload any) error {
	if err := Check(ch, KindNotify, ToControl); err != nil {
		return err
	}
	data, err := Encode(payload)
	if err != nil {
		return &DeliveryError{Channel: ch, Err: err}
	}

	msg := Message{Channel: ch, Payload: data}
	err = p.r.toControl.Deliver(msg)
	if ch == ChannelEmit {
		err = errors.Join(err, p.r.replay(msg))
	}
	return err
}

// Emit asks control to redeliver the last broadcast on ch.
func (p *Presentation) Emit(ch Channel) error {
	return p.Notify(ChannelEmit, string(ch))
}

// Request calls the control handler for ch.
func (p *Presentation) Request(ctx context.Context, ch Channel, arg any) (Message, error) {
	if err := Check(ch, KindRequest, ToControl); err != nil {
		return Message{}, err
	}
	data, err := Encode(arg)
	if err != nil {
		return Message{}, &DeliveryError{Channel: ch, Err: err}
	}

	p.r.mu.RLock()
	h, ok := p.r.handlers[ch]
	p.r.mu.RUnlock()
	if !ok {
		return Message{}, &DeliveryError{Channel: ch, Err: ErrNoHandler}
	}

	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	result, err := h(ctx, Message{Channel: ch, Payload: data})
	if err != nil {
		return Message{}, err
	}
	out, err := Encode(result)
	if err != nil {
		return Message{}, &DeliveryError{Channel: ch, Err: err}
	}
	return Message{Channel: ch, Payload: out}, nil
}
