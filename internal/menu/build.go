package menu

import (
	"fmt"

	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/router"
)

// PlatformDarwin is the platform that gets an application menu prefix.
const PlatformDarwin = "darwin"

// Item IDs of the fixed entries.
const (
	IDApp         = "app"
	IDSounds      = "sounds"
	IDPlay        = "sounds.play"
	IDStop        = "sounds.stop"
	IDPrevSet     = "sounds.prevSet"
	IDNextSet     = "sounds.nextSet"
	IDSets        = "sounds.sets"
	IDSetsReload  = "sounds.sets.reload"
	IDSetsCreate  = "sounds.sets.create"
	IDSetsDelete  = "sounds.sets.delete"
	IDSetsRename  = "sounds.sets.rename"
	IDDevices     = "devices"
	IDDevicesLoad = "devices.reload"
	IDHelp        = "help"
	IDDevTools    = "help.devtools"
	IDAbout       = "help.about"
	IDTrayTitle   = "tray.title"
	IDQuit        = "tray.quit"
)

// SlotID returns the ID of the "fire slot i" leaf.
func SlotID(i int) string {
	return fmt.Sprintf("%s.%d", IDPlay, i)
}

// Env is the build environment.
type Env struct {
	// Platform is a GOOS value.
	Platform string
	// Debug adds developer entries.
	Debug bool
}

// Build constructs the menu for cfg using keybinds for accelerators.
// It has no side effects.
func Build(cfg Config, keybinds map[string]string, env Env) Tree {
	var items []Item
	if env.Platform == PlatformDarwin {
		items = append(items, Item{ID: IDApp, Kind: KindSubmenu, Role: RoleAppMenu, Enabled: true})
	}
	items = append(items,
		soundsMenu(cfg, keybinds),
		Item{
			ID:      IDDevices,
			Label:   "&Devices",
			Kind:    KindSubmenu,
			Enabled: true,
			Submenu: []Item{
				leaf(IDDevicesLoad, "Reload", "", true, router.ChannelLoadDevices, nil),
			},
		},
		helpMenu(env),
	)
	return Tree{Items: items}
}

func soundsMenu(cfg Config, keybinds map[string]string) Item {
	play := make([]Item, 0, keybind.SlotCount)
	for i := 0; i < keybind.SlotCount; i++ {
		play = append(play, leaf(
			SlotID(i),
			fmt.Sprintf("Sound #%d", i),
			keybind.Accelerator(keybinds, keybind.SlotAction(i)),
			cfg.SlotEnabled(i),
			router.ChannelPlay, i,
		))
	}

	return Item{
		ID:      IDSounds,
		Label:   "&Sounds",
		Kind:    KindSubmenu,
		Enabled: true,
		Submenu: []Item{
			{ID: IDPlay, Label: "Play sound", Kind: KindSubmenu, Enabled: true, Submenu: play},
			leaf(IDStop, "Stop sound", keybind.Accelerator(keybinds, keybind.ActionStop),
				cfg.StopEnabled(), router.ChannelStop, nil),
			separator(),
			leaf(IDPrevSet, "Select previous set", keybind.Accelerator(keybinds, keybind.ActionPrevSet),
				true, router.ChannelSelectSet, -1),
			leaf(IDNextSet, "Select next set", keybind.Accelerator(keybinds, keybind.ActionNextSet),
				true, router.ChannelSelectSet, +1),
			{
				ID:      IDSets,
				Label:   "Manage sets",
				Kind:    KindSubmenu,
				Enabled: true,
				Submenu: []Item{
					leaf(IDSetsReload, "Reload", "", true, router.ChannelLoadSets, nil),
					separator(),
					{ID: IDSetsCreate, Label: "Create new", Kind: KindItem},
					{ID: IDSetsDelete, Label: "Delete current", Kind: KindItem},
					{ID: IDSetsRename, Label: "Rename current", Kind: KindItem},
				},
			},
		},
	}
}

func helpMenu(env Env) Item {
	var sub []Item
	if env.Debug {
		sub = append(sub,
			Item{ID: IDDevTools, Kind: KindItem, Role: RoleToggleDevTools, Enabled: true},
			separator(),
		)
	}
	sub = append(sub, Item{ID: IDAbout, Kind: KindItem, Role: RoleAbout, Enabled: true})
	return Item{ID: IDHelp, Kind: KindSubmenu, Role: RoleHelp, Enabled: true, Submenu: sub}
}

// Tray builds the tray context menu.
func Tray(appName string) Tree {
	return Tree{Items: []Item{
		{ID: IDTrayTitle, Label: appName, Kind: KindItem},
		separator(),
		{ID: IDQuit, Label: "Quit", Kind: KindItem, Role: RoleQuit, Enabled: true},
	}}
}

func leaf(id, label, accel string, enabled bool, ch router.Channel, arg any) Item {
	return Item{
		ID:          id,
		Label:       label,
		Kind:        KindItem,
		Accelerator: accel,
		Enabled:     enabled,
		Command:     &Command{Channel: ch, Arg: arg},
	}
}

func separator() Item {
	return Item{Kind: KindSeparator}
}
