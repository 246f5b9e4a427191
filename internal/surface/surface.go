// Package surface is the presentation side: it listens for control
// broadcasts, plays slots, loads sets and devices, and reports failures back
// as error dialogs.
package surface

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/router"
	"github.com/dshills/soundboard/internal/sets"
)

// NotPlaying is the playing slot when nothing plays.
const NotPlaying = -1

// Player plays resources on the enabled outputs.
type Player interface {
	Play(path string) error
	Stop()
}

// View displays presentation state.
type View interface {
	sets.Bindings
	ShowDevices(devices []Device)
	ShowPlaying(slot int)
}

// Surface wires the presentation listeners to a router port.
type Surface struct {
	port     router.Port
	player   Player
	devices  DeviceLister
	view     View
	selector *sets.Selector
	logger   *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	playing int
	subs    []*router.Subscription
}

// New creates a surface. A nil logger discards output.
func New(port router.Port, player Player, devices DeviceLister, view View, logger *logging.Logger) *Surface {
	if logger == nil {
		logger = logging.Null()
	}
	return &Surface{
		port:     port,
		player:   player,
		devices:  devices,
		view:     view,
		selector: sets.NewSelector(port, view),
		logger:   logger.WithComponent("surface"),
		playing:  NotPlaying,
	}
}

// Selector returns the set selector.
func (s *Surface) Selector() *sets.Selector {
	return s.selector
}

// Playing returns the slot being played, or NotPlaying.
func (s *Surface) Playing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Start subscribes every listener. The set and device listeners ask for a
// replay so a broadcast sent before Start is not lost.
func (s *Surface) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	subscribe := []struct {
		ch     router.Channel
		l      router.Listener
		replay bool
	}{
		{router.ChannelPlay, s.onPlay, false},
		{router.ChannelStop, func(router.Message) { s.stop() }, false},
		{router.ChannelSelectSet, s.onSelect, false},
		{router.ChannelLoadSets, s.onLoadSets, true},
		{router.ChannelLoadDevices, s.onLoadDevices, true},
	}

	var errs []error
	for _, sub := range subscribe {
		var (
			handle *router.Subscription
			err    error
		)
		if sub.replay {
			handle, err = s.port.OnReplay(sub.ch, sub.l)
		} else {
			handle, err = s.port.On(sub.ch, sub.l)
		}
		if handle != nil {
			s.mu.Lock()
			s.subs = append(s.subs, handle)
			s.mu.Unlock()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("subscribing to %s: %w", sub.ch, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops playback and cancels every subscription.
func (s *Surface) Close() {
	s.stop()

	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Surface) runContext() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// stop halts playback if anything is playing.
func (s *Surface) stop() {
	s.mu.Lock()
	slot := s.playing
	s.playing = NotPlaying
	s.mu.Unlock()

	if slot == NotPlaying {
		return
	}
	s.player.Stop()
	s.view.ShowPlaying(NotPlaying)
	s.logger.Debug("stopped slot %d", slot)
}

func (s *Surface) onPlay(msg router.Message) {
	var slot int
	if err := msg.Decode(&slot); err != nil {
		s.reportError("Could not play sound", err)
		return
	}
	s.stop()

	path := s.selector.Slot(slot)
	if path == "" {
		return
	}
	if err := s.player.Play(path); err != nil {
		s.reportError("Could not play sound", err)
		return
	}

	s.mu.Lock()
	s.playing = slot
	s.mu.Unlock()
	s.view.ShowPlaying(slot)
	s.logger.Debug("playing %q", path)
}

func (s *Surface) onSelect(msg router.Message) {
	s.stop()
	if msg.Empty() {
		return
	}
	var delta int
	if err := msg.Decode(&delta); err != nil {
		s.reportError("Could not select set", err)
		return
	}
	if err := s.selector.SelectDelta(delta); err != nil {
		s.reportError("Could not select set", err)
		return
	}
	s.logSelected()
}

func (s *Surface) logSelected() {
	if set, ok := s.selector.Current(); ok {
		s.logger.Debug("selected %q (%d slots assigned)", set.Name, set.Assigned())
	}
}

func (s *Surface) onLoadSets(router.Message) {
	s.stop()
	s.logger.Debug("loading sets")

	resp, err := s.port.Request(s.runContext(), router.ChannelSettingsPath, nil)
	if err != nil {
		s.reportError("Could not load sets", err)
		return
	}
	var dir string
	if err := resp.Decode(&dir); err != nil {
		s.reportError("Could not load sets", err)
		return
	}

	loaded, err := sets.LoadDir(filepath.Join(dir, config.SetsDir))
	if err != nil {
		s.reportError("Could not load sets", err)
		if loaded == nil {
			return
		}
	}
	if err := s.selector.LoadSets(loaded); err != nil {
		s.reportError("Could not load sets", err)
		return
	}
	s.logger.Debug("loaded %d sets", len(loaded))
	s.logSelected()
}

func (s *Surface) onLoadDevices(router.Message) {
	s.stop()
	s.logger.Debug("listing output devices")

	found, err := s.devices.Devices(s.runContext())
	if err != nil {
		s.reportError("Could not list devices", err)
		return
	}
	devices := Dedupe(found)
	s.view.ShowDevices(devices)
	s.logger.Debug("found %d devices", len(devices))
}

// reportError logs err and asks control to show it.
func (s *Surface) reportError(title string, err error) {
	s.logger.Error("%s: %v", title, err)
	if nerr := s.port.Notify(router.ChannelDialogError, router.Dialog{Title: title, Message: err.Error()}); nerr != nil {
		s.logger.Error("reporting %q: %v", title, nerr)
	}
}
