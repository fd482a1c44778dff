package x11

// Keysym values for the keys bindings can name. Printable ASCII maps to
// its own codepoint; the rest is the common function-key range.
var namedKeysyms = map[string]uint32{
	"Return":    0xff0d,
	"Escape":    0xff1b,
	"Tab":       0xff09,
	"BackSpace": 0xff08,
	"Delete":    0xffff,
	"space":     0x0020,
	"Left":      0xff51,
	"Up":        0xff52,
	"Right":     0xff53,
	"Down":      0xff54,
	"Home":      0xff50,
	"End":       0xff57,
	"Prior":     0xff55,
	"Next":      0xff56,
	"Print":     0xff61,
	"F1":        0xffbe,
	"F2":        0xffbf,
	"F3":        0xffc0,
	"F4":        0xffc1,
	"F5":        0xffc2,
	"F6":        0xffc3,
	"F7":        0xffc4,
	"F8":        0xffc5,
	"F9":        0xffc6,
	"F10":       0xffc7,
	"F11":       0xffc8,
	"F12":       0xffc9,
}

// keysymByName resolves a binding key name to its keysym.
func keysymByName(name string) (uint32, bool) {
	if sym, ok := namedKeysyms[name]; ok {
		return sym, true
	}
	if len(name) == 1 {
		c := name[0]
		if c >= 0x20 && c < 0x7f {
			return uint32(c), true
		}
	}
	return 0, false
}

// keysymName is the inverse mapping, for decoding key press events.
func keysymName(sym uint32) (string, bool) {
	if sym == 0x20 {
		return "space", true
	}
	if sym > 0x20 && sym < 0x7f {
		return string(rune(sym)), true
	}
	for name, s := range namedKeysyms {
		if s == sym {
			return name, true
		}
	}
	return "", false
}
