package surface

import (
	"fmt"
	"os"
	"sync"

	"github.com/dshills/soundboard/internal/logging"
)

// LogPlayer is a Player without an audio backend. It checks that the
// resource exists and logs what would play.
type LogPlayer struct {
	logger *logging.Logger

	mu      sync.Mutex
	current string
}

// NewLogPlayer creates a LogPlayer. A nil logger discards output.
func NewLogPlayer(logger *logging.Logger) *LogPlayer {
	if logger == nil {
		logger = logging.Null()
	}
	return &LogPlayer{logger: logger.WithComponent("player")}
}

// Play implements Player.
func (p *LogPlayer) Play(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	p.mu.Lock()
	p.current = path
	p.mu.Unlock()
	p.logger.Info("play %s", path)
	return nil
}

// Stop implements Player.
func (p *LogPlayer) Stop() {
	p.mu.Lock()
	path := p.current
	p.current = ""
	p.mu.Unlock()
	if path != "" {
		p.logger.Info("stop %s", path)
	}
}

// Current returns the resource being played.
func (p *LogPlayer) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
