package grid

import "strings"

// Modifiers held during a key press.
type Modifiers struct {
	Ctrl, Command, Shift bool
}

// KeyPress is a platform independent key event.
type KeyPress struct {
	// Name of the key; letters may be either case.
	Name string
	Modifiers
}

// ShortcutAction maps a key press to a history action. The primary modifier is
// Command on macOS (goos "darwin" or "ios") and Ctrl elsewhere. Undo is
// primary+Z; redo is primary+Shift+Z or Ctrl+Y.
func ShortcutAction(k KeyPress, goos string) (Action, bool) {
	primary := k.Ctrl
	if goos == "darwin" || goos == "ios" {
		primary = k.Command
	}
	switch strings.ToUpper(k.Name) {
	case "Z":
		if !primary {
			return nil, false
		}
		if k.Shift {
			return Redo{}, true
		}
		return Undo{}, true
	case "Y":
		if k.Ctrl && !k.Shift {
			return Redo{}, true
		}
	}
	return nil, false
}

// HandleKey applies the history shortcut matching k, if any. Shortcuts only
// work in edit mode. It reports whether the key was consumed.
func (b *Board) HandleKey(k KeyPress, goos string) bool {
	if b.locked {
		return false
	}
	a, ok := ShortcutAction(k, goos)
	if !ok {
		return false
	}
	b.dispatch(a)
	return true
}
