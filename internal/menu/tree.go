package menu

import "github.com/dshills/soundboard/internal/router"

// Kind distinguishes menu entries.
type Kind uint8

const (
	// KindItem is an activatable leaf.
	KindItem Kind = iota

	// KindSubmenu holds child items.
	KindSubmenu

	// KindSeparator is a divider.
	KindSeparator
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindSubmenu:
		return "submenu"
	case KindSeparator:
		return "separator"
	default:
		return "unknown"
	}
}

// Role names a built-in item the presentation layer implements itself.
type Role string

const (
	RoleNone           Role = ""
	RoleAppMenu        Role = "appMenu"
	RoleHelp           Role = "help"
	RoleAbout          Role = "about"
	RoleToggleDevTools Role = "toggleDevTools"
	RoleQuit           Role = "quit"
)

// Command is what activating a leaf sends to the presentation.
type Command struct {
	Channel router.Channel
	Arg     any
}

// Item is one menu entry.
type Item struct {
	ID          string
	Label       string
	Kind        Kind
	Role        Role
	Accelerator string
	Enabled     bool
	Command     *Command
	Submenu     []Item
}

// Tree is a complete menu bar.
type Tree struct {
	Items []Item
}

// Walk calls fn for every item depth-first, stopping early when fn returns false.
func (t Tree) Walk(fn func(item Item) bool) {
	var walk func(items []Item) bool
	walk = func(items []Item) bool {
		for _, item := range items {
			if !fn(item) {
				return false
			}
			if !walk(item.Submenu) {
				return false
			}
		}
		return true
	}
	walk(t.Items)
}

// Find returns the item with the given ID.
func (t Tree) Find(id string) (Item, bool) {
	var found Item
	ok := false
	t.Walk(func(item Item) bool {
		if item.ID == id {
			found, ok = item, true
			return false
		}
		return true
	})
	return found, ok
}

// Leaves returns the items that carry a command, in menu order.
func (t Tree) Leaves() []Item {
	var out []Item
	t.Walk(func(item Item) bool {
		if item.Kind == KindItem && item.Command != nil {
			out = append(out, item)
		}
		return true
	})
	return out
}
