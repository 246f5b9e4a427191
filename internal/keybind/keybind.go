// Package keybind defines the closed set of bindable actions and resolves
// stored keybinds into platform accelerators.
//
// Every accelerator is the stored modifier joined with the action's own
// keybind:
//
//	Resolve("CmdOrCtrl+Alt", "num3") // "CmdOrCtrl+Alt+num3"
//	Resolve("", "F5")                // "F5"
//	Resolve("", "")                  // "" (not bound)
package keybind

import (
	"fmt"
	"strings"
)

// Separator joins accelerator components.
const Separator = "+"

// SlotCount is the number of fixed trigger slots.
const SlotCount = 10

// ModifierKey is the keybinds entry holding the prefix shared by every action.
const ModifierKey = "modifier"

// Action names one bindable action.
type Action string

const (
	ActionStop    Action = "stop"
	ActionNextSet Action = "nextSet"
	ActionPrevSet Action = "prevSet"
)

// SlotAction returns the "fire slot i" action.
func SlotAction(i int) Action {
	return Action(fmt.Sprintf("sound%d", i))
}

// Slot returns the slot index of a fire action, or -1 for other actions.
func (a Action) Slot() int {
	var n int
	if _, err := fmt.Sscanf(string(a), "sound%d", &n); err != nil {
		return -1
	}
	if n < 0 || n >= SlotCount || string(SlotAction(n)) != string(a) {
		return -1
	}
	return n
}

// String returns the action name.
func (a Action) String() string { return string(a) }

// Actions returns every bindable action in fixed order: the ten slots, then
// stop, nextSet and prevSet.
func Actions() []Action {
	actions := make([]Action, 0, SlotCount+3)
	for i := 0; i < SlotCount; i++ {
		actions = append(actions, SlotAction(i))
	}
	return append(actions, ActionStop, ActionNextSet, ActionPrevSet)
}

// Keys returns every keybinds entry name: the modifier plus all actions.
func Keys() []string {
	keys := []string{ModifierKey}
	for _, a := range Actions() {
		keys = append(keys, string(a))
	}
	return keys
}

// IsKey reports whether name is a member of the closed keybinds set.
func IsKey(name string) bool {
	if name == ModifierKey {
		return true
	}
	for _, a := range Actions() {
		if string(a) == name {
			return true
		}
	}
	return false
}

// Resolve joins the non-empty members of [modifier, keybind] with Separator.
// An empty result means "do not bind".
func Resolve(modifier, keybind string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{modifier, keybind} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, Separator)
}

// Candidate pairs an action with its resolved accelerator.
type Candidate struct {
	Action      Action
	Accelerator string
}

// Candidates resolves every action against keybinds, in Actions order.
func Candidates(keybinds map[string]string) []Candidate {
	modifier := keybinds[ModifierKey]
	out := make([]Candidate, 0, SlotCount+3)
	for _, a := range Actions() {
		out = append(out, Candidate{Action: a, Accelerator: Resolve(modifier, keybinds[string(a)])})
	}
	return out
}

// Accelerator resolves a single action against keybinds.
func Accelerator(keybinds map[string]string, a Action) string {
	return Resolve(keybinds[ModifierKey], keybinds[string(a)])
}
