// Package watcher reports changes to the settings document and the sets
// directory so a running process can pick up edits made outside it.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/soundboard/internal/config"
)

// Target is what a change affects.
type Target uint8

const (
	// TargetNone is a change nobody cares about.
	TargetNone Target = iota
	// TargetSettings is the settings document.
	TargetSettings
	// TargetSets is the sets directory or a file in it.
	TargetSets
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetSettings:
		return "settings"
	case TargetSets:
		return "sets"
	default:
		return "none"
	}
}

// Op is a set of file operations.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// String returns the operations joined with "|".
func (op Op) String() string {
	var parts []string
	for _, p := range []struct {
		op   Op
		name string
	}{
		{OpCreate, "CREATE"},
		{OpWrite, "WRITE"},
		{OpRemove, "REMOVE"},
		{OpRename, "RENAME"},
		{OpChmod, "CHMOD"},
	} {
		if op&p.op != 0 {
			parts = append(parts, p.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Event is a coalesced change to one target.
type Event struct {
	Target    Target
	Path      string
	Op        Op
	Timestamp time.Time
}

// Handler receives events. It runs on a timer goroutine, one event at a
// time per target.
type Handler func(Event)

// Config configures a watcher.
type Config struct {
	// Delay coalesces bursts of changes to one target into one event.
	Delay time.Duration

	// OnError receives fsnotify errors. Nil drops them.
	OnError func(error)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Delay: 150 * time.Millisecond}
}

// Option configures a watcher.
type Option func(*Config)

// WithDelay sets the coalescing delay.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		c.Delay = d
	}
}

// WithErrorHandler sets the error callback.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Config) {
		c.OnError = fn
	}
}

type pending struct {
	event Event
	timer *time.Timer
}

// Watcher watches one data directory.
type Watcher struct {
	dataDir string
	setsDir string
	handler Handler
	config  Config

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[Target]*pending
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New starts watching dataDir and its sets subdirectory. A missing sets
// directory is picked up once it is created.
func New(dataDir string, handler Handler, opts ...Option) (*Watcher, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultConfig().Delay
	}

	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		dataDir: abs,
		setsDir: filepath.Join(abs, config.SetsDir),
		handler: handler,
		config:  cfg,
		fsw:     fsw,
		pending: make(map[Target]*pending),
		closeCh: make(chan struct{}),
	}
	w.watchSets()

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// watchSets adds the sets directory if it exists.
func (w *Watcher) watchSets() {
	if info, err := os.Stat(w.setsDir); err == nil && info.IsDir() {
		if err := w.fsw.Add(w.setsDir); err != nil {
			w.reportError(err)
		}
	}
}

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for target, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, target)
	}
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	target := Classify(w.dataDir, ev.Name)
	if op == 0 || target == TargetNone {
		return
	}
	if ev.Name == w.setsDir && op&OpCreate != 0 {
		w.watchSets()
	}
	w.schedule(Event{Target: target, Path: ev.Name, Op: op, Timestamp: time.Now()})
}

// schedule coalesces ev with any pending event for the same target.
func (w *Watcher) schedule(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if p, ok := w.pending[ev.Target]; ok {
		p.event.Op |= ev.Op
		p.event.Path = ev.Path
		p.event.Timestamp = ev.Timestamp
		p.timer.Reset(w.config.Delay)
		return
	}

	target := ev.Target
	p := &pending{event: ev}
	p.timer = time.AfterFunc(w.config.Delay, func() { w.fire(target) })
	w.pending[target] = p
}

func (w *Watcher) fire(target Target) {
	w.mu.Lock()
	p, ok := w.pending[target]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, target)
	w.mu.Unlock()

	if w.handler != nil {
		w.handler(p.event)
	}
}

func (w *Watcher) reportError(err error) {
	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}

// Classify maps a changed path to its target. Hidden files, including the
// temporary files of atomic writes, are ignored.
func Classify(dataDir, path string) Target {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return TargetNone
	}

	dir := filepath.Dir(path)
	setsDir := filepath.Join(dataDir, config.SetsDir)
	switch {
	case dir == dataDir && base == config.SettingsFile:
		return TargetSettings
	case path == setsDir, dir == setsDir:
		return TargetSets
	default:
		return TargetNone
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
