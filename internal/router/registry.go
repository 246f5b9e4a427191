package router

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is a registered listener.
type Subscription struct {
	id        string
	channel   Channel
	listener  Listener
	registry  *Registry
	cancelled atomic.Bool
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Channel returns the subscribed channel.
func (s *Subscription) Channel() Channel {
	return s.channel
}

// Active reports whether the subscription still receives messages.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Cancel stops delivery. Cancelling twice is harmless.
func (s *Subscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.registry.remove(s)
	}
}

// Registry maps channels to listeners in subscription order.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[Channel][]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Channel][]*Subscription)}
}

// Add subscribes l to ch.
func (r *Registry) Add(ch Channel, l Listener) (*Subscription, error) {
	if l == nil {
		return nil, ErrNilListener
	}
	sub := &Subscription{
		id:       uuid.NewString(),
		channel:  ch,
		listener: l,
		registry: r,
	}

	r.mu.Lock()
	r.subs[ch] = append(r.subs[ch], sub)
	r.mu.Unlock()
	return sub, nil
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[sub.channel]
	for i, s := range subs {
		if s == sub {
			r.subs[sub.channel] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[sub.channel]) == 0 {
		delete(r.subs, sub.channel)
	}
}

// count returns the number of listeners on ch.
func (r *Registry) count(ch Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[ch])
}

// Deliver calls every listener of msg.Channel in subscription order, in the
// calling goroutine. A panicking listener does not stop the others; its
// panic is returned as a *PanicError.
func (r *Registry) Deliver(msg Message) error {
	r.mu.RLock()
	subs := make([]*Subscription, len(r.subs[msg.Channel]))
	copy(subs, r.subs[msg.Channel])
	r.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		if err := invoke(sub, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(sub *Subscription, msg Message) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{SubscriptionID: sub.id, Channel: sub.channel, Value: v}
		}
	}()
	sub.listener(msg)
	return nil
}
