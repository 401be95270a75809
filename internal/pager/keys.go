package pager

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// keyString names a key event the way keymaps spell it: "j", "G",
// "ctrl+d", "cmd+f", "pgdn", "space".
func keyString(ev *tcell.EventKey) string {
	mods := ev.Modifiers()
	if mods&tcell.ModMeta != 0 && ev.Key() == tcell.KeyRune {
		return "cmd+" + strings.ToLower(string(ev.Rune()))
	}
	if mods&tcell.ModCtrl != 0 {
		switch ev.Key() {
		case tcell.KeyRune:
			return "ctrl+" + strings.ToLower(string(ev.Rune()))
		case tcell.KeyHome:
			return "ctrl+home"
		case tcell.KeyEnd:
			return "ctrl+end"
		}
	}
	if ev.Key() == tcell.KeyRune {
		r := ev.Rune()
		if r == ' ' {
			return "space"
		}
		return string(r)
	}
	// Named keys come before ctrlKeyName: KeyTab == KeyCtrlI, KeyEnter == KeyCtrlM.
	switch ev.Key() {
	case tcell.KeyTab:
		return "tab"
	case tcell.KeyBacktab:
		return "shift+tab"
	case tcell.KeyUp:
		return "up"
	case tcell.KeyDown:
		return "down"
	case tcell.KeyLeft:
		return "left"
	case tcell.KeyRight:
		return "right"
	case tcell.KeyPgUp:
		return "pgup"
	case tcell.KeyPgDn:
		return "pgdn"
	case tcell.KeyHome:
		return "home"
	case tcell.KeyEnd:
		return "end"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return "backspace"
	case tcell.KeyEnter:
		return "enter"
	case tcell.KeyDelete:
		return "del"
	case tcell.KeyEscape:
		return "esc"
	}
	return ctrlKeyName(ev.Key())
}

func ctrlKeyName(key tcell.Key) string {
	if key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ {
		return "ctrl+" + string(rune('a'+key-tcell.KeyCtrlA))
	}
	return ""
}
