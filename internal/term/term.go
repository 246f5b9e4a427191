// Package term is the terminal surface of the soundboard. One Terminal
// plays every desktop role the control side needs: it captures global
// keys, shows the menu, displays error dialogs and renders the slot view.
package term

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/soundboard/internal/hotkey"
	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/surface"
)

var (
	// ErrTaken is returned when an accelerator is already registered.
	ErrTaken = errors.New("accelerator already registered")
	// ErrNotRegistered is returned when unregistering an unknown accelerator.
	ErrNotRegistered = errors.New("accelerator not registered")
)

var (
	_ hotkey.Registrar = (*Terminal)(nil)
	_ menu.Installer   = (*Terminal)(nil)
	_ surface.View     = (*Terminal)(nil)
)

type hotkeyEntry struct {
	accel string
	fn    func()
}

// Terminal draws on a tcell screen and dispatches its key events.
type Terminal struct {
	screen tcell.Screen
	logger *logging.Logger

	mu       sync.Mutex
	hotkeys  map[Key]hotkeyEntry
	accels   map[string]Key
	tree     menu.Tree
	items    []menu.Item
	tray     []menu.Item
	entries  []menu.Item
	cursor   int
	set      string
	slots    [keybind.SlotCount]string
	devices  []surface.Device
	playing  int
	dialogs  []dialog
	activate func(menu.Item)
	quit     func()
}

type dialog struct {
	title   string
	message string
}

// New wraps an initialized screen.
func New(screen tcell.Screen, logger *logging.Logger) *Terminal {
	if logger == nil {
		logger = logging.Null()
	}
	return &Terminal{
		screen:  screen,
		logger:  logger.WithComponent("term"),
		hotkeys: make(map[Key]hotkeyEntry),
		accels:  make(map[string]Key),
		playing: surface.NotPlaying,
	}
}

// Open creates and initializes a screen on the controlling terminal.
func Open(logger *logging.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return New(screen, logger), nil
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.screen.Fini()
}

// OnActivate sets the callback for menu items chosen with Enter.
func (t *Terminal) OnActivate(fn func(menu.Item)) {
	t.mu.Lock()
	t.activate = fn
	t.mu.Unlock()
}

// OnQuit sets the callback for quit requests.
func (t *Terminal) OnQuit(fn func()) {
	t.mu.Lock()
	t.quit = fn
	t.mu.Unlock()
}

// Register claims accel. Two accelerators that reach the terminal as the
// same key conflict.
func (t *Terminal) Register(accel string, fn func()) error {
	k, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.hotkeys[k]; ok {
		return fmt.Errorf("%w: %s (as %s, held by %s)", ErrTaken, accel, k, prev.accel)
	}
	t.hotkeys[k] = hotkeyEntry{accel: accel, fn: fn}
	t.accels[accel] = k
	return nil
}

// Unregister releases accel.
func (t *Terminal) Unregister(accel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k, ok := t.accels[accel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, accel)
	}
	delete(t.accels, accel)
	delete(t.hotkeys, k)
	return nil
}

// Registered returns the number of claimed accelerators.
func (t *Terminal) Registered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hotkeys)
}

// Install replaces the displayed menu.
func (t *Terminal) Install(tree menu.Tree) error {
	t.mu.Lock()
	t.tree = tree
	t.items = leaves(tree)
	t.resetEntries()
	t.mu.Unlock()
	t.draw()
	return nil
}

// Tray returns the installer for the tray menu, listed below the main menu.
func (t *Terminal) Tray() menu.Installer {
	return trayInstaller{t}
}

type trayInstaller struct {
	t *Terminal
}

func (ti trayInstaller) Install(tree menu.Tree) error {
	t := ti.t
	t.mu.Lock()
	t.tray = leaves(tree)
	t.resetEntries()
	t.mu.Unlock()
	t.draw()
	return nil
}

func leaves(tree menu.Tree) []menu.Item {
	var out []menu.Item
	tree.Walk(func(item menu.Item) bool {
		if item.Kind == menu.KindItem {
			out = append(out, item)
		}
		return true
	})
	return out
}

// resetEntries joins the menu and tray items. Callers hold t.mu.
func (t *Terminal) resetEntries() {
	t.entries = append(append([]menu.Item(nil), t.items...), t.tray...)
	if t.cursor >= len(t.entries) {
		t.cursor = 0
	}
}

// ShowError queues a modal error. Each key press dismisses one.
func (t *Terminal) ShowError(title, message string) {
	t.mu.Lock()
	t.dialogs = append(t.dialogs, dialog{title: title, message: message})
	t.mu.Unlock()
	t.draw()
}

// Bind shows the set name and its slot mapping.
func (t *Terminal) Bind(name string, slots [keybind.SlotCount]string) {
	t.mu.Lock()
	t.set = name
	t.slots = slots
	t.mu.Unlock()
	t.draw()
}

// ShowDevices shows the output devices.
func (t *Terminal) ShowDevices(devices []surface.Device) {
	t.mu.Lock()
	t.devices = append([]surface.Device(nil), devices...)
	t.mu.Unlock()
	t.draw()
}

// ShowPlaying marks the playing slot, or none for surface.NotPlaying.
func (t *Terminal) ShowPlaying(slot int) {
	t.mu.Lock()
	t.playing = slot
	t.mu.Unlock()
	t.draw()
}

// Focus redraws the whole screen and rings the bell.
func (t *Terminal) Focus() {
	t.screen.Sync()
	_ = t.screen.Beep()
	t.draw()
}

// Run dispatches screen events until ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	t.draw()
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			t.HandleKey(ev)
		case *tcell.EventResize:
			t.screen.Sync()
			t.draw()
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// HandleKey processes one key event: an open dialog swallows it, then
// hotkeys win over menu navigation.
func (t *Terminal) HandleKey(ev *tcell.EventKey) {
	t.mu.Lock()
	if len(t.dialogs) > 0 {
		t.dialogs = t.dialogs[1:]
		t.mu.Unlock()
		t.draw()
		return
	}
	if hk, ok := t.hotkeys[FromEvent(ev)]; ok {
		t.mu.Unlock()
		hk.fn()
		return
	}

	var chosen *menu.Item
	quit := false
	switch {
	case ev.Key() == tcell.KeyUp:
		t.move(-1)
	case ev.Key() == tcell.KeyDown:
		t.move(1)
	case ev.Key() == tcell.KeyEnter:
		if t.cursor < len(t.entries) {
			if item := t.entries[t.cursor]; item.Enabled {
				chosen = &item
			}
		}
	case ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
		quit = true
	}
	activate, onQuit := t.activate, t.quit
	t.mu.Unlock()

	if chosen != nil {
		switch {
		case activate != nil:
			activate(*chosen)
		case chosen.Role == menu.RoleQuit:
			quit = true
		}
	}
	if quit && onQuit != nil {
		onQuit()
	}
	t.draw()
}

// move steps the cursor over enabled entries. Callers hold t.mu.
func (t *Terminal) move(delta int) {
	n := len(t.entries)
	for i, pos := 0, t.cursor; i < n; i++ {
		pos = ((pos+delta)%n + n) % n
		if t.entries[pos].Enabled {
			t.cursor = pos
			return
		}
	}
}

// Selected returns the item under the cursor.
func (t *Terminal) Selected() (menu.Item, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursor >= len(t.entries) {
		return menu.Item{}, false
	}
	return t.entries[t.cursor], true
}

var (
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleDisabled = tcell.StyleDefault.Dim(true)
	styleCursor   = tcell.StyleDefault.Reverse(true)
	stylePlaying  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed)
)

func (t *Terminal) draw() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	width, height := t.screen.Size()
	y := 0
	line := func(text string, style tcell.Style) {
		if y < height {
			t.puts(0, y, width, text, style)
		}
		y++
	}

	var titles []string
	for _, item := range t.tree.Items {
		if item.Kind == menu.KindSubmenu && item.Label != "" {
			titles = append(titles, strings.ReplaceAll(item.Label, "&", ""))
		}
	}
	if len(titles) == 0 {
		titles = append(titles, "soundboard")
	}
	line(strings.Join(titles, "  "), styleTitle)

	set := t.set
	if set == "" {
		set = "(no set)"
	}
	line("Set: "+set, tcell.StyleDefault)
	for i, path := range t.slots {
		style := tcell.StyleDefault
		marker := " "
		switch {
		case i == t.playing:
			style, marker = stylePlaying, ">"
		case path == "":
			style = styleDisabled
		}
		line(fmt.Sprintf("%s %d  %s", marker, i, path), style)
	}
	y++

	for i, item := range t.entries {
		style := tcell.StyleDefault
		if !item.Enabled {
			style = styleDisabled
		}
		if i == t.cursor {
			style = styleCursor
		}
		label := item.Label
		if label == "" {
			label = string(item.Role)
		}
		text := "  " + label
		if item.Accelerator != "" {
			text += "  [" + item.Accelerator + "]"
		}
		line(text, style)
	}

	if len(t.devices) > 0 {
		y++
		labels := make([]string, 0, len(t.devices))
		for _, d := range t.devices {
			label := d.Label
			if d.Enabled {
				label = "*" + label
			}
			labels = append(labels, label)
		}
		line("Devices: "+strings.Join(labels, ", "), tcell.StyleDefault)
	}

	if len(t.dialogs) > 0 && height > 0 {
		d := t.dialogs[0]
		text := d.title + ": " + d.message
		if more := len(t.dialogs) - 1; more > 0 {
			text += fmt.Sprintf(" (%d more)", more)
		}
		t.puts(0, height-1, width, text, styleError)
	}
	t.screen.Show()
}

func (t *Terminal) puts(x, y, width int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= width {
			return
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
