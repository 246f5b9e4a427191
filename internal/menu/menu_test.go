package menu

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/router"
)

func slotsWithGap(gap int) [keybind.SlotCount]string {
	var slots [keybind.SlotCount]string
	for i := range slots {
		if i != gap {
			slots[i] = "/sounds/" + string(rune('a'+i)) + ".ogg"
		}
	}
	return slots
}

func TestBuild_UnassignedSlotDisabled(t *testing.T) {
	cfg := ConfigFromSlots(slotsWithGap(3), true)
	tree := Build(cfg, config.Defaults().Keybinds, Env{Platform: "linux"})

	for i := 0; i < keybind.SlotCount; i++ {
		item, ok := tree.Find(SlotID(i))
		if !ok {
			t.Fatalf("slot %d missing from menu", i)
		}
		want := i != 3
		if item.Enabled != want {
			t.Errorf("slot %d enabled = %t, want %t", i, item.Enabled, want)
		}
		if item.Label != "Sound #"+string(rune('0'+i)) {
			t.Errorf("slot %d label = %q", i, item.Label)
		}
	}

	stop, _ := tree.Find(IDStop)
	if !stop.Enabled {
		t.Error("stop disabled while a set is selected")
	}
}

func TestBuild_NoSetSelected(t *testing.T) {
	tree := Build(ConfigFromSlots(slotsWithGap(-1), false), config.Defaults().Keybinds, Env{})

	for i := 0; i < keybind.SlotCount; i++ {
		if item, _ := tree.Find(SlotID(i)); item.Enabled {
			t.Errorf("slot %d enabled with no set", i)
		}
	}
	if stop, _ := tree.Find(IDStop); stop.Enabled {
		t.Error("stop enabled with no set")
	}
	for _, id := range []string{IDPrevSet, IDNextSet, IDSetsReload, IDDevicesLoad} {
		if item, _ := tree.Find(id); !item.Enabled {
			t.Errorf("%s disabled", id)
		}
	}
}

func TestBuild_Accelerators(t *testing.T) {
	tree := Build(Config{}, config.Defaults().Keybinds, Env{})

	tests := []struct {
		id    string
		accel string
	}{
		{SlotID(0), "CmdOrCtrl+Alt+num0"},
		{SlotID(9), "CmdOrCtrl+Alt+num9"},
		{IDStop, "CmdOrCtrl+Alt+numdiv"},
		{IDPrevSet, "CmdOrCtrl+Alt+PageUp"},
		{IDNextSet, "CmdOrCtrl+Alt+PageDown"},
		{IDSetsReload, ""},
	}
	for _, tt := range tests {
		item, ok := tree.Find(tt.id)
		if !ok {
			t.Fatalf("%s missing", tt.id)
		}
		if item.Accelerator != tt.accel {
			t.Errorf("%s accelerator = %q, want %q", tt.id, item.Accelerator, tt.accel)
		}
	}
}

func TestBuild_Commands(t *testing.T) {
	tree := Build(Config{}, config.Defaults().Keybinds, Env{})

	tests := []struct {
		id  string
		ch  router.Channel
		arg any
	}{
		{SlotID(4), router.ChannelPlay, 4},
		{IDStop, router.ChannelStop, nil},
		{IDPrevSet, router.ChannelSelectSet, -1},
		{IDNextSet, router.ChannelSelectSet, 1},
		{IDSetsReload, router.ChannelLoadSets, nil},
		{IDDevicesLoad, router.ChannelLoadDevices, nil},
	}
	for _, tt := range tests {
		item, _ := tree.Find(tt.id)
		if item.Command == nil {
			t.Fatalf("%s has no command", tt.id)
		}
		if item.Command.Channel != tt.ch || item.Command.Arg != tt.arg {
			t.Errorf("%s command = %+v, want %s %v", tt.id, *item.Command, tt.ch, tt.arg)
		}
	}

	for _, id := range []string{IDSetsCreate, IDSetsDelete, IDSetsRename} {
		item, _ := tree.Find(id)
		if item.Enabled || item.Command != nil {
			t.Errorf("%s should be a disabled placeholder", id)
		}
	}

	if n := len(tree.Leaves()); n != 15 {
		t.Errorf("Leaves() = %d items, want 15", n)
	}
}

func TestBuild_Environment(t *testing.T) {
	tests := []struct {
		name      string
		env       Env
		appMenu   bool
		devTools  bool
		helpItems int
	}{
		{"linux release", Env{Platform: "linux"}, false, false, 1},
		{"darwin release", Env{Platform: PlatformDarwin}, true, false, 1},
		{"linux debug", Env{Platform: "linux", Debug: true}, false, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(Config{}, config.Defaults().Keybinds, tt.env)

			_, hasApp := tree.Find(IDApp)
			if hasApp != tt.appMenu {
				t.Errorf("app menu present = %t, want %t", hasApp, tt.appMenu)
			}
			if hasApp && tree.Items[0].Role != RoleAppMenu {
				t.Error("app menu is not the first entry")
			}
			_, hasDev := tree.Find(IDDevTools)
			if hasDev != tt.devTools {
				t.Errorf("dev tools present = %t, want %t", hasDev, tt.devTools)
			}
			help, _ := tree.Find(IDHelp)
			if len(help.Submenu) != tt.helpItems {
				t.Errorf("help has %d items, want %d", len(help.Submenu), tt.helpItems)
			}
			if last := help.Submenu[len(help.Submenu)-1]; last.Role != RoleAbout {
				t.Errorf("last help item role = %q", last.Role)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	cfg := ConfigFromSlots(slotsWithGap(7), true)
	a := Build(cfg, config.Defaults().Keybinds, Env{Debug: true})
	b := Build(cfg, config.Defaults().Keybinds, Env{Debug: true})

	var idsA, idsB []string
	a.Walk(func(i Item) bool { idsA = append(idsA, i.ID+i.Accelerator); return true })
	b.Walk(func(i Item) bool { idsB = append(idsB, i.ID+i.Accelerator); return true })
	if len(idsA) != len(idsB) {
		t.Fatal("builds differ in size")
	}
	for i := range idsA {
		if idsA[i] != idsB[i] {
			t.Fatalf("builds differ at %d: %s vs %s", i, idsA[i], idsB[i])
		}
	}
}

func TestConfigJSON(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		wire string
	}{
		{"no set", Config{AllDisabled: true}, `{"sounds":false}`},
		{"gaps", ConfigFromSlots(slotsWithGap(3), true), `{"sounds":{"sound3":false}}`},
		{"all assigned", Config{}, `{"sounds":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.wire {
				t.Errorf("Marshal() = %s, want %s", data, tt.wire)
			}

			var back Config
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatal(err)
			}
			for i := 0; i < keybind.SlotCount; i++ {
				if back.SlotEnabled(i) != tt.cfg.SlotEnabled(i) {
					t.Errorf("slot %d enabled changed across the wire", i)
				}
			}
		})
	}
}

func TestConfigUnmarshalLenient(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(`{}`), &cfg); err != nil || cfg.AllDisabled || !cfg.SlotEnabled(0) {
		t.Errorf("empty object = %+v, %v", cfg, err)
	}
	if err := json.Unmarshal([]byte(`{"sounds":{"sound2":true,"other":false}}`), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.SlotEnabled(2) {
		t.Error("listed slot should be disabled whatever its value")
	}
	if len(cfg.Disabled) != 1 {
		t.Errorf("non-slot names kept: %v", cfg.Disabled)
	}
	if err := json.Unmarshal([]byte(`{"sounds":3}`), &cfg); err == nil {
		t.Error("expected an error for a numeric sounds value")
	}
}

type fakeSource struct {
	doc config.Document
	err error
}

func (f *fakeSource) Get(context.Context) (config.Document, error) {
	return f.doc, f.err
}

type countingInstaller struct {
	installs []Tree
}

func (c *countingInstaller) Install(t Tree) error {
	c.installs = append(c.installs, t)
	return nil
}

func TestSynchronizer_Rebuild(t *testing.T) {
	src := &fakeSource{doc: config.Defaults()}
	inst := &countingInstaller{}
	s := NewSynchronizer(src, inst, Env{}, nil)

	if err := s.Rebuild(context.Background(), ConfigFromSlots(slotsWithGap(3), true)); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if len(inst.installs) != 1 {
		t.Fatalf("Install called %d times, want 1", len(inst.installs))
	}
	if item, _ := inst.installs[0].Find(SlotID(3)); item.Enabled {
		t.Error("slot 3 enabled after rebuild")
	}

	// Refresh reuses the last configuration with new keybinds.
	src.doc.Keybinds = src.doc.Keybinds.Clone()
	src.doc.Keybinds["stop"] = "Escape"
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	latest := inst.installs[len(inst.installs)-1]
	if item, _ := latest.Find(SlotID(3)); item.Enabled {
		t.Error("Refresh() lost the slot configuration")
	}
	if stop, _ := latest.Find(IDStop); stop.Accelerator != "CmdOrCtrl+Alt+Escape" {
		t.Errorf("stop accelerator = %q", stop.Accelerator)
	}
}

func TestSynchronizer_ReadFailureInstallsNothing(t *testing.T) {
	readErr := errors.New("corrupt")
	inst := &countingInstaller{}
	s := NewSynchronizer(&fakeSource{err: readErr}, inst, Env{}, nil)

	if err := s.Rebuild(context.Background(), Config{}); !errors.Is(err, readErr) {
		t.Errorf("Rebuild() error = %v", err)
	}
	if len(inst.installs) != 0 {
		t.Error("menu installed despite a read failure")
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if _, ok := h.Current(); ok {
		t.Error("empty holder reports a tree")
	}

	var seen int
	h.OnChange(func(Tree) { seen++ })

	tree := Build(Config{}, config.Defaults().Keybinds, Env{})
	if err := h.Install(tree); err != nil {
		t.Fatal(err)
	}
	got, ok := h.Current()
	if !ok || len(got.Items) != len(tree.Items) {
		t.Error("Current() does not return the installed tree")
	}
	if seen != 1 {
		t.Errorf("OnChange ran %d times", seen)
	}
}

func TestTray(t *testing.T) {
	tree := Tray("soundboard")
	title, _ := tree.Find(IDTrayTitle)
	if title.Label != "soundboard" || title.Enabled {
		t.Errorf("title = %+v", title)
	}
	quit, _ := tree.Find(IDQuit)
	if quit.Role != RoleQuit || !quit.Enabled {
		t.Errorf("quit = %+v", quit)
	}
}
