package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/soundboard/internal/keybind"
)

// CurrentVersion is the document version written by this release.
const CurrentVersion = 1

// Top-level document keys.
const (
	KeyVersion  = "version"
	KeyKeybinds = "keybinds"
)

// Keybinds maps keybind entry names (the modifier and every action) to
// accelerator fragments.
type Keybinds map[string]string

// Clone returns a copy of k.
func (k Keybinds) Clone() Keybinds {
	if k == nil {
		return nil
	}
	out := make(Keybinds, len(k))
	for name, v := range k {
		out[name] = v
	}
	return out
}

// Document is the persisted settings document.
type Document struct {
	Version  int      `json:"version"`
	Keybinds Keybinds `json:"keybinds"`
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	return Document{Version: d.Version, Keybinds: d.Keybinds.Clone()}
}

// Defaults returns the hard-coded default document.
func Defaults() Document {
	kb := Keybinds{
		keybind.ModifierKey:           "CmdOrCtrl+Alt",
		string(keybind.ActionStop):    "numdiv",
		string(keybind.ActionNextSet): "PageDown",
		string(keybind.ActionPrevSet): "PageUp",
	}
	for i := 0; i < keybind.SlotCount; i++ {
		kb[string(keybind.SlotAction(i))] = fmt.Sprintf("num%d", i)
	}
	return Document{Version: CurrentVersion, Keybinds: kb}
}

// defaultsMap returns Defaults in the generic form used by Upgrade.
func defaultsMap() map[string]any {
	d := Defaults()
	kb := make(map[string]any, len(d.Keybinds))
	for k, v := range d.Keybinds {
		kb[k] = v
	}
	return map[string]any{
		KeyVersion:  d.Version,
		KeyKeybinds: kb,
	}
}

// Patch is a partial document. Only the keys that are set are applied, and
// each replaces the whole top-level value.
type Patch struct {
	Version  *int     `json:"version,omitempty"`
	Keybinds Keybinds `json:"keybinds,omitempty"`
}

// ParsePatch decodes a JSON patch, rejecting keys outside the document.
func ParsePatch(data []byte) (Patch, error) {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Validate checks that applying p keeps the document well formed: a
// version must be positive and a keybinds map must hold exactly the closed
// key set.
func (p Patch) Validate() error {
	if p.Version != nil && *p.Version <= 0 {
		return &PatchError{Key: KeyVersion, Reason: "must be positive"}
	}
	if p.Keybinds == nil {
		return nil
	}

	var unknown []string
	for name := range p.Keybinds {
		if !keybind.IsKey(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &PatchError{Key: KeyKeybinds, Reason: fmt.Sprintf("unknown entries %v", unknown)}
	}
	for _, name := range keybind.Keys() {
		if _, ok := p.Keybinds[name]; !ok {
			return &PatchError{Key: KeyKeybinds, Reason: fmt.Sprintf("missing entry %q", name)}
		}
	}
	return nil
}

// Apply returns base with p shallowly assigned over it.
func (p Patch) Apply(base Document) Document {
	merged := base.Clone()
	if p.Version != nil {
		merged.Version = *p.Version
	}
	if p.Keybinds != nil {
		merged.Keybinds = p.Keybinds.Clone()
	}
	return merged
}
