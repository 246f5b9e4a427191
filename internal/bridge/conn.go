package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	outboxSize = 64
)

// conn owns one websocket. All data frames go through a single writer
// goroutine; gorilla connections allow one concurrent writer.
type conn struct {
	ws   *websocket.Conn
	out  chan Frame
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		out:  make(chan Frame, outboxSize),
		done: make(chan struct{}),
	}
}

// send queues f for writing. It reports false once the connection is closed.
func (c *conn) send(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- f:
		return true
	case <-c.done:
		return false
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case f := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// shutdown says goodbye to the peer before closing.
func (c *conn) shutdown() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.close()
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// expectedClose reports whether err is an orderly end of the connection.
func expectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
