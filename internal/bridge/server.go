package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/router"
)

// Server exposes a router's presentation side to other processes.
// Each websocket connection on PathIPC acts as a presentation: it receives
// every broadcast and may notify and request like the in-process endpoint.
type Server struct {
	router   *router.Router
	focus    func()
	logger   *logging.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu     sync.Mutex
	conns  map[*conn]struct{}
	srv    *http.Server
	closed bool
}

// NewServer creates a server for r. focus is called for each POST on
// PathFocus and may be nil.
func NewServer(r *router.Router, focus func(), logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Null()
	}
	s := &Server{
		router: r,
		focus:  focus,
		logger: logger.WithComponent("bridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux:   http.NewServeMux(),
		conns: make(map[*conn]struct{}),
	}
	s.mux.HandleFunc(PathIPC, s.handleIPC)
	s.mux.HandleFunc(PathFocus, s.handleFocus)
	return s
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr asks for port 0.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return "", ErrClosed
	}
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	srv := s.srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed: %v", err)
		}
	}()
	s.logger.Info("listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Close stops the listener and drops every connection. It is safe to call
// more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	srv := s.srv
	s.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Connections returns the number of live websocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) handleIPC(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed: %v", err)
		return
	}
	c := newConn(ws)
	if !s.track(c) {
		c.shutdown()
		return
	}
	defer s.untrack(c)
	go c.writeLoop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presentation := s.router.Presentation()
	var subs []*router.Subscription
	for _, ch := range router.Broadcasts() {
		sub, err := presentation.On(ch, func(msg router.Message) {
			c.send(Frame{Kind: FrameNotify, Channel: msg.Channel, Payload: msg.Payload})
		})
		if err != nil {
			s.logger.Error("subscribe %s: %v", ch, err)
			continue
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	s.logger.Debug("client connected from %s", r.RemoteAddr)
	for {
		var f Frame
		if err := ws.ReadJSON(&f); err != nil {
			if !expectedClose(err) && !c.closed() {
				s.logger.Debug("read failed: %v", err)
			}
			break
		}
		s.dispatch(ctx, c, f)
	}
	c.close()
	s.logger.Debug("client disconnected from %s", r.RemoteAddr)
}

// dispatch runs notifies inline so their order is kept; requests run
// concurrently and reply by ID.
func (s *Server) dispatch(ctx context.Context, c *conn, f Frame) {
	presentation := s.router.Presentation()
	switch f.Kind {
	case FrameNotify:
		if f.Channel == router.ChannelEmit {
			if err := s.replay(c, f); err != nil {
				s.logger.Warn("emit: %v", err)
			}
			return
		}
		if err := presentation.Notify(f.Channel, f.Payload); err != nil {
			s.logger.Warn("notify %s: %v", f.Channel, err)
		}
	case FrameRequest:
		go func() {
			reply := Frame{Kind: FrameResponse, ID: f.ID, Channel: f.Channel}
			msg, err := presentation.Request(ctx, f.Channel, f.Payload)
			if err != nil {
				reply.Kind = FrameError
				reply.Error = err.Error()
			} else {
				reply.Payload = msg.Payload
			}
			c.send(reply)
		}()
	default:
		s.logger.Warn("unexpected %q frame on %s", f.Kind, f.Channel)
	}
}

// replay answers an emit with the last broadcast of the named channel, to
// the asking connection only.
func (s *Server) replay(c *conn, f Frame) error {
	var name string
	if err := f.Message().Decode(&name); err != nil {
		return err
	}
	ch := router.Channel(name)
	if err := router.Check(ch, router.KindNotify, router.ToPresentation); err != nil {
		return err
	}
	last, _ := s.router.Control().Last(ch)
	if !c.send(Frame{Kind: FrameNotify, Channel: ch, Payload: last.Payload}) {
		return ErrClosed
	}
	return nil
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.focus != nil {
		s.focus()
	}
	w.WriteHeader(http.StatusNoContent)
}
