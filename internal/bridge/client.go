package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/router"
)

const handshakeTimeout = 10 * time.Second

// Client is a presentation endpoint living in another process. It speaks to
// a Server over a websocket and implements router.Port.
type Client struct {
	*conn
	registry *router.Registry
	logger   *logging.Logger

	mu      sync.Mutex
	pending map[string]chan Frame

	inboxMu sync.Mutex
	inbox   []Frame
	wake    chan struct{}
}

var _ router.Port = (*Client)(nil)

// Dial connects to the server listening on addr (host:port).
func Dial(ctx context.Context, addr string, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Null()
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	u := url.URL{Scheme: "ws", Host: addr, Path: PathIPC}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c := &Client{
		conn:     newConn(ws),
		registry: router.NewRegistry(),
		logger:   logger.WithComponent("bridge-client"),
		pending:  make(map[string]chan Frame),
		wake:     make(chan struct{}, 1),
	}
	go c.writeLoop()
	go c.readLoop()
	go c.deliverLoop()
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close ends the connection. Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	c.shutdown()
	return nil
}

// On subscribes to a control->presentation notify channel.
func (c *Client) On(ch router.Channel, l router.Listener) (*router.Subscription, error) {
	if err := router.Check(ch, router.KindNotify, router.ToPresentation); err != nil {
		return nil, err
	}
	return c.registry.Add(ch, l)
}

// OnReplay subscribes to ch and emits it.
func (c *Client) OnReplay(ch router.Channel, l router.Listener) (*router.Subscription, error) {
	sub, err := c.On(ch, l)
	if err != nil {
		return nil, err
	}
	return sub, c.Emit(ch)
}

// Notify sends payload on a presentation->control channel.
func (c *Client) Notify(ch router.Channel, payload any) error {
	if err := router.Check(ch, router.KindNotify, router.ToControl); err != nil {
		return err
	}
	data, err := router.Encode(payload)
	if err != nil {
		return &router.DeliveryError{Channel: ch, Err: err}
	}
	if !c.send(Frame{Kind: FrameNotify, Channel: ch, Payload: data}) {
		return ErrClosed
	}
	return nil
}

// Emit asks control to redeliver the last broadcast on ch. The replay
// arrives asynchronously through the connection.
func (c *Client) Emit(ch router.Channel) error {
	return c.Notify(router.ChannelEmit, string(ch))
}

// Request sends a request and waits for the reply, ctx, or the end of the
// connection, whichever comes first.
func (c *Client) Request(ctx context.Context, ch router.Channel, arg any) (router.Message, error) {
	if err := router.Check(ch, router.KindRequest, router.ToControl); err != nil {
		return router.Message{}, err
	}
	data, err := router.Encode(arg)
	if err != nil {
		return router.Message{}, &router.DeliveryError{Channel: ch, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return router.Message{}, err
	}

	id := uuid.NewString()
	reply := make(chan Frame, 1)
	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if !c.send(Frame{Kind: FrameRequest, ID: id, Channel: ch, Payload: data}) {
		return router.Message{}, ErrClosed
	}

	select {
	case f := <-reply:
		if f.Kind == FrameError {
			return router.Message{}, &RemoteError{Channel: ch, Message: f.Error}
		}
		return router.Message{Channel: ch, Payload: f.Payload}, nil
	case <-ctx.Done():
		return router.Message{}, ctx.Err()
	case <-c.done:
		return router.Message{}, ErrClosed
	}
}

func (c *Client) readLoop() {
	defer c.close()
	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if !expectedClose(err) && !c.closed() {
				c.logger.Warn("read failed: %v", err)
			}
			return
		}
		switch f.Kind {
		case FrameNotify:
			c.enqueue(f)
		case FrameResponse, FrameError:
			c.mu.Lock()
			reply, ok := c.pending[f.ID]
			c.mu.Unlock()
			if !ok {
				c.logger.Debug("reply for unknown request %s", f.ID)
				continue
			}
			reply <- f
		default:
			c.logger.Warn("unexpected %q frame on %s", f.Kind, f.Channel)
		}
	}
}

// enqueue hands a notify to deliverLoop. Listeners may issue requests, so
// they must not run on the reading goroutine.
func (c *Client) enqueue(f Frame) {
	c.inboxMu.Lock()
	c.inbox = append(c.inbox, f)
	c.inboxMu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) deliverLoop() {
	for {
		c.inboxMu.Lock()
		frames := c.inbox
		c.inbox = nil
		c.inboxMu.Unlock()

		for _, f := range frames {
			if err := c.registry.Deliver(f.Message()); err != nil {
				c.logger.Error("deliver %s: %v", f.Channel, err)
			}
		}
		if len(frames) > 0 {
			continue
		}

		select {
		case <-c.wake:
		case <-c.done:
			return
		}
	}
}

// RequestFocus asks the instance serving on addr to raise its surface.
func RequestFocus(ctx context.Context, addr string) error {
	u := url.URL{Scheme: "http", Host: addr, Path: PathFocus}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("focus %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("focus %s: unexpected status %s", addr, resp.Status)
	}
	return nil
}
