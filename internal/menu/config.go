package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/soundboard/internal/keybind"
)

// Config describes which parts of the sounds menu are available. It is
// rebuilt from the current set on every selection and never persisted.
//
// On the wire it is {"sounds": false} when no set is selected, or
// {"sounds": {"sound3": false}} listing the unassigned slots.
type Config struct {
	// AllDisabled disables every slot and the stop item.
	AllDisabled bool

	// Disabled holds the slot actions without an assigned resource.
	Disabled map[keybind.Action]bool
}

// ConfigFromSlots derives the menu configuration for a set of slot
// mappings. selected is false when no set is active.
func ConfigFromSlots(slots [keybind.SlotCount]string, selected bool) Config {
	if !selected {
		return Config{AllDisabled: true}
	}
	cfg := Config{Disabled: make(map[keybind.Action]bool)}
	for i, path := range slots {
		if path == "" {
			cfg.Disabled[keybind.SlotAction(i)] = true
		}
	}
	return cfg
}

// SlotEnabled reports whether slot i can be fired.
func (c Config) SlotEnabled(i int) bool {
	return !c.AllDisabled && !c.Disabled[keybind.SlotAction(i)]
}

// StopEnabled reports whether the stop item is available.
func (c Config) StopEnabled() bool {
	return !c.AllDisabled
}

// MarshalJSON implements json.Marshaler.
func (c Config) MarshalJSON() ([]byte, error) {
	if c.AllDisabled {
		return []byte(`{"sounds":false}`), nil
	}
	names := make([]string, 0, len(c.Disabled))
	for a, off := range c.Disabled {
		if off {
			names = append(names, string(a))
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString(`{"sounds":{`)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:false", name)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. A slot listed under "sounds"
// is disabled whatever its value.
func (c *Config) UnmarshalJSON(data []byte) error {
	var wire struct {
		Sounds json.RawMessage `json:"sounds"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*c = Config{}
	sounds := bytes.TrimSpace(wire.Sounds)
	switch {
	case len(sounds) == 0, bytes.Equal(sounds, []byte("null")), bytes.Equal(sounds, []byte("true")):
		return nil
	case bytes.Equal(sounds, []byte("false")):
		c.AllDisabled = true
		return nil
	}

	var slots map[string]json.RawMessage
	if err := json.Unmarshal(sounds, &slots); err != nil {
		return fmt.Errorf("menu config: sounds must be false or an object: %w", err)
	}
	c.Disabled = make(map[keybind.Action]bool, len(slots))
	for name := range slots {
		if a := keybind.Action(name); a.Slot() >= 0 {
			c.Disabled[a] = true
		}
	}
	return nil
}
