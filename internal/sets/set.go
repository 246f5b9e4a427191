// Package sets loads named slot sets and tracks which one is selected.
package sets

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/soundboard/internal/keybind"
)

// Set is a named assignment of resources to every slot. An empty string
// marks an unassigned slot.
type Set struct {
	Name  string
	Slots [keybind.SlotCount]string
}

// Assigned returns the number of slots with a resource.
func (s Set) Assigned() int {
	n := 0
	for _, p := range s.Slots {
		if p != "" {
			n++
		}
	}
	return n
}

// Parse reads a plain text set: line i is the resource of slot i. Lines are
// trimmed, lines past the tenth are ignored and missing lines are unassigned.
func Parse(name string, r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Set{}, fmt.Errorf("reading set %q: %w", name, err)
	}

	set := Set{Name: name}
	lines := strings.Split(string(data), "\n")
	for i := 0; i < len(lines) && i < keybind.SlotCount; i++ {
		set.Slots[i] = strings.TrimSpace(lines[i])
	}
	return set, nil
}

// ParseYAML reads a set written as a YAML sequence of up to ten resources.
// Null entries are unassigned.
func ParseYAML(name string, r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Set{}, fmt.Errorf("reading set %q: %w", name, err)
	}

	set := Set{Name: name}
	if len(bytes.TrimSpace(data)) == 0 {
		return set, nil
	}

	var entries []*string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return Set{}, fmt.Errorf("parsing set %q: %w", name, err)
	}
	for i := 0; i < len(entries) && i < keybind.SlotCount; i++ {
		if entries[i] != nil {
			set.Slots[i] = strings.TrimSpace(*entries[i])
		}
	}
	return set, nil
}
