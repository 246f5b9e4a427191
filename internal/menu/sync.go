package menu

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/logging"
)

// Installer replaces the active menu. Install must swap the whole tree in
// one step.
type Installer interface {
	Install(tree Tree) error
}

// DocumentSource supplies the settings document.
type DocumentSource interface {
	Get(ctx context.Context) (config.Document, error)
}

// Holder is an Installer that keeps the active tree for readers on other
// goroutines.
type Holder struct {
	tree     atomic.Pointer[Tree]
	mu       sync.Mutex
	onChange []func(Tree)
}

// Install swaps in tree and notifies change listeners.
func (h *Holder) Install(tree Tree) error {
	h.tree.Store(&tree)

	h.mu.Lock()
	fns := make([]func(Tree), len(h.onChange))
	copy(fns, h.onChange)
	h.mu.Unlock()

	for _, fn := range fns {
		fn(tree)
	}
	return nil
}

// Current returns the installed tree, if any.
func (h *Holder) Current() (Tree, bool) {
	t := h.tree.Load()
	if t == nil {
		return Tree{}, false
	}
	return *t, true
}

// OnChange registers fn to run after every install.
func (h *Holder) OnChange(fn func(Tree)) {
	h.mu.Lock()
	h.onChange = append(h.onChange, fn)
	h.mu.Unlock()
}

// Synchronizer rebuilds and installs the menu.
type Synchronizer struct {
	source    DocumentSource
	installer Installer
	env       Env
	logger    *logging.Logger

	mu   sync.Mutex
	last Config
}

// NewSynchronizer creates a synchronizer. A nil logger discards output.
func NewSynchronizer(source DocumentSource, installer Installer, env Env, logger *logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.Null()
	}
	return &Synchronizer{
		source:    source,
		installer: installer,
		env:       env,
		logger:    logger.WithComponent("menu"),
		last:      Config{AllDisabled: true},
	}
}

// Rebuild builds the menu for cfg and installs it. Nothing is installed
// when the settings cannot be read.
func (s *Synchronizer) Rebuild(ctx context.Context, cfg Config) error {
	doc, err := s.source.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading keybinds: %w", err)
	}

	tree := Build(cfg, doc.Keybinds, s.env)
	if err := s.installer.Install(tree); err != nil {
		return fmt.Errorf("installing menu: %w", err)
	}

	s.mu.Lock()
	s.last = cfg
	s.mu.Unlock()

	s.logger.Debug("menu installed (all disabled: %t, disabled slots: %d)", cfg.AllDisabled, len(cfg.Disabled))
	return nil
}

// Refresh rebuilds with the most recently installed configuration, picking
// up keybind changes.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.last
	s.mu.Unlock()
	return s.Rebuild(ctx, cfg)
}
