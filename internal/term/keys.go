package term

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/soundboard/internal/keybind"
)

// ErrUnsupported is returned for accelerators a terminal cannot deliver.
var ErrUnsupported = errors.New("unsupported accelerator")

// Key is a normalized key combination.
type Key struct {
	Code tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

func (k Key) String() string {
	var parts []string
	if k.Mod&tcell.ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if k.Mod&tcell.ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if k.Mod&tcell.ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if k.Code == tcell.KeyRune {
		parts = append(parts, string(k.Rune))
	} else {
		parts = append(parts, tcell.KeyNames[k.Code])
	}
	return strings.Join(parts, keybind.Separator)
}

var modifiers = map[string]tcell.ModMask{
	"cmdorctrl":        tcell.ModCtrl,
	"commandorcontrol": tcell.ModCtrl,
	"ctrl":             tcell.ModCtrl,
	"control":          tcell.ModCtrl,
	"cmd":              tcell.ModCtrl,
	"command":          tcell.ModCtrl,
	"super":            tcell.ModCtrl,
	"meta":             tcell.ModCtrl,
	"alt":              tcell.ModAlt,
	"option":           tcell.ModAlt,
	"altgr":            tcell.ModAlt,
	"shift":            tcell.ModShift,
}

var namedKeys = map[string]tcell.Key{
	"pageup":    tcell.KeyPgUp,
	"pagedown":  tcell.KeyPgDn,
	"up":        tcell.KeyUp,
	"down":      tcell.KeyDown,
	"left":      tcell.KeyLeft,
	"right":     tcell.KeyRight,
	"home":      tcell.KeyHome,
	"end":       tcell.KeyEnd,
	"insert":    tcell.KeyInsert,
	"delete":    tcell.KeyDelete,
	"enter":     tcell.KeyEnter,
	"return":    tcell.KeyEnter,
	"tab":       tcell.KeyTab,
	"escape":    tcell.KeyEscape,
	"esc":       tcell.KeyEscape,
	"backspace": tcell.KeyBackspace2,
}

var namedRunes = map[string]rune{
	"space":   ' ',
	"plus":    '+',
	"numdiv":  '/',
	"nummult": '*',
	"numadd":  '+',
	"numsub":  '-',
	"numdec":  '.',
}

// ParseAccelerator converts an accelerator such as "CmdOrCtrl+Alt+num3"
// into the key a terminal reports for it. Keypad names map to the
// characters they type. Rune keys drop Ctrl and Shift, which terminals
// fold into the character itself.
func ParseAccelerator(accel string) (Key, error) {
	if accel == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrUnsupported)
	}
	parts := strings.Split(accel, keybind.Separator)
	// A trailing "+" names the plus key: "Ctrl++".
	if strings.HasSuffix(accel, keybind.Separator+keybind.Separator) {
		parts = append(parts[:len(parts)-2], "plus")
	}

	var k Key
	for i, part := range parts {
		lower := strings.ToLower(strings.TrimSpace(part))
		if i < len(parts)-1 {
			mod, ok := modifiers[lower]
			if !ok {
				return Key{}, fmt.Errorf("%w: modifier %q in %q", ErrUnsupported, part, accel)
			}
			k.Mod |= mod
			continue
		}
		if err := k.setKey(lower); err != nil {
			return Key{}, fmt.Errorf("%w: key %q in %q", err, part, accel)
		}
	}
	if k.Code == tcell.KeyRune && k.Mod&tcell.ModCtrl != 0 && k.Rune >= 'a' && k.Rune <= 'z' {
		k.Code = tcell.KeyCtrlA + tcell.Key(k.Rune-'a')
	}
	return k.normalize(), nil
}

func (k *Key) setKey(name string) error {
	if code, ok := namedKeys[name]; ok {
		k.Code = code
		return nil
	}
	if r, ok := namedRunes[name]; ok {
		k.Code, k.Rune = tcell.KeyRune, r
		return nil
	}
	if strings.HasPrefix(name, "num") && len(name) == 4 && name[3] >= '0' && name[3] <= '9' {
		k.Code, k.Rune = tcell.KeyRune, rune(name[3])
		return nil
	}
	if len(name) >= 2 && name[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 {
			k.Code = tcell.KeyF1 + tcell.Key(n-1)
			return nil
		}
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		k.Code, k.Rune = tcell.KeyRune, r
		return nil
	}
	return ErrUnsupported
}

func (k Key) normalize() Key {
	k.Mod &= tcell.ModCtrl | tcell.ModAlt | tcell.ModShift
	if k.Code >= tcell.KeyCtrlA && k.Code <= tcell.KeyCtrlZ {
		k.Mod |= tcell.ModCtrl
	}
	if k.Code == tcell.KeyRune {
		k.Mod &^= tcell.ModCtrl | tcell.ModShift
	} else {
		k.Rune = 0
	}
	return k
}

// FromEvent returns the normalized key of a terminal key event.
func FromEvent(ev *tcell.EventKey) Key {
	k := Key{Code: ev.Key(), Rune: ev.Rune(), Mod: ev.Modifiers()}
	if k.Code == tcell.KeyBackspace {
		k.Code = tcell.KeyBackspace2
	}
	if k.Code == tcell.KeyRune {
		k.Rune = toLower(k.Rune)
	}
	return k.normalize()
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
