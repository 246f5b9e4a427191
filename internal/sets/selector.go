package sets

import (
	"fmt"
	"sync"

	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/router"
)

// NoSelection is the index when no set is selected.
const NoSelection = -1

// Bindings receives the active slot mapping. name is empty when no set is
// selected.
type Bindings interface {
	Bind(name string, slots [keybind.SlotCount]string)
}

// Selector holds the loaded sets and the selected index. It starts with no
// sets and no selection.
type Selector struct {
	port     router.Port
	bindings Bindings

	mu    sync.Mutex
	sets  []Set
	index int
}

// NewSelector creates a selector that pushes slot mappings to bindings and
// menu updates through port.
func NewSelector(port router.Port, bindings Bindings) *Selector {
	return &Selector{port: port, bindings: bindings, index: NoSelection}
}

// LoadSets replaces every set, selects the first one if any, and applies
// the selection.
func (s *Selector) LoadSets(sets []Set) error {
	s.mu.Lock()
	s.sets = append([]Set(nil), sets...)
	s.index = NoSelection
	if len(s.sets) > 0 {
		s.index = 0
	}
	s.mu.Unlock()

	return s.apply()
}

// SelectDelta moves the selection by delta, wrapping in both directions.
// It does nothing when no sets are loaded.
func (s *Selector) SelectDelta(delta int) error {
	s.mu.Lock()
	n := len(s.sets)
	if n == 0 {
		s.mu.Unlock()
		return nil
	}
	s.index = ((s.index+delta)%n + n) % n
	s.mu.Unlock()

	return s.apply()
}

// Index returns the selected index, or NoSelection.
func (s *Selector) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Current returns the selected set.
func (s *Selector) Current() (Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == NoSelection {
		return Set{}, false
	}
	return s.sets[s.index], true
}

// Slot returns the resource of slot i in the selected set, or "" when the
// slot is unassigned or nothing is selected.
func (s *Selector) Slot(i int) string {
	if i < 0 || i >= keybind.SlotCount {
		return ""
	}
	set, ok := s.Current()
	if !ok {
		return ""
	}
	return set.Slots[i]
}

// apply pushes the current mapping to the bindings and asks control to
// rebuild the menu.
func (s *Selector) apply() error {
	set, selected := s.Current()

	s.bindings.Bind(set.Name, set.Slots)

	cfg := menu.ConfigFromSlots(set.Slots, selected)
	if err := s.port.Notify(router.ChannelMenuReload, cfg); err != nil {
		return fmt.Errorf("requesting menu reload: %w", err)
	}
	return nil
}
