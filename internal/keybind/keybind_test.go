package keybind

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		modifier string
		keybind  string
		expected string
	}{
		{"Ctrl", "A", "Ctrl+A"},
		{"", "A", "A"},
		{"Ctrl", "", "Ctrl"},
		{"", "", ""},
		{"CmdOrCtrl+Alt", "num0", "CmdOrCtrl+Alt+num0"},
	}

	for _, tt := range tests {
		if got := Resolve(tt.modifier, tt.keybind); got != tt.expected {
			t.Errorf("Resolve(%q, %q) = %q, expected %q", tt.modifier, tt.keybind, got, tt.expected)
		}
	}
}

func TestActions(t *testing.T) {
	actions := Actions()
	if len(actions) != 13 {
		t.Fatalf("expected 13 actions, got %d", len(actions))
	}
	if actions[0] != "sound0" || actions[9] != "sound9" {
		t.Errorf("unexpected slot actions: %v", actions[:10])
	}
	if actions[10] != ActionStop || actions[11] != ActionNextSet || actions[12] != ActionPrevSet {
		t.Errorf("unexpected trailing actions: %v", actions[10:])
	}
}

func TestAction_Slot(t *testing.T) {
	tests := []struct {
		action   Action
		expected int
	}{
		{"sound0", 0},
		{"sound9", 9},
		{"sound10", -1},
		{"sound01", -1},
		{ActionStop, -1},
		{"sound", -1},
	}

	for _, tt := range tests {
		if got := tt.action.Slot(); got != tt.expected {
			t.Errorf("%q.Slot() = %d, expected %d", tt.action, got, tt.expected)
		}
	}
}

func TestIsKey(t *testing.T) {
	for _, k := range Keys() {
		if !IsKey(k) {
			t.Errorf("IsKey(%q) = false", k)
		}
	}
	if IsKey("sound10") || IsKey("play") {
		t.Error("IsKey accepted a key outside the closed set")
	}
}

func TestCandidates(t *testing.T) {
	kb := map[string]string{
		"modifier": "Alt",
		"sound3":   "3",
		"stop":     "",
	}

	candidates := Candidates(kb)
	if len(candidates) != 13 {
		t.Fatalf("expected 13 candidates, got %d", len(candidates))
	}

	byAction := make(map[Action]string)
	for _, c := range candidates {
		byAction[c.Action] = c.Accelerator
	}
	if byAction["sound3"] != "Alt+3" {
		t.Errorf("sound3 = %q", byAction["sound3"])
	}
	// An empty keybind still resolves to the bare modifier.
	if byAction[ActionStop] != "Alt" {
		t.Errorf("stop = %q", byAction[ActionStop])
	}
	if got := Accelerator(kb, "sound3"); got != "Alt+3" {
		t.Errorf("Accelerator(sound3) = %q", got)
	}
}
