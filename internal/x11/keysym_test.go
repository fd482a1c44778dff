package x11

import (
	"testing"

	"github.com/zafkar/oxwm/internal/config"
)

func TestKeysymRoundTrip(t *testing.T) {
	for _, name := range []string{"a", "9", "Return", "Escape", "space", "F5", "Left"} {
		sym, ok := keysymByName(name)
		if !ok {
			t.Fatalf("no keysym for %q", name)
		}
		got, ok := keysymName(sym)
		if !ok || got != name {
			t.Fatalf("keysym 0x%x names %q, want %q", sym, got, name)
		}
	}
}

func TestKeysymUnknown(t *testing.T) {
	if _, ok := keysymByName("NoSuchKey"); ok {
		t.Fatal("bogus key name resolved")
	}
	if _, ok := keysymName(0xffffff); ok {
		t.Fatal("bogus keysym named")
	}
}

func TestModifierTranslation(t *testing.T) {
	all := config.ModShift | config.ModControl | config.ModAlt | config.ModSuper
	if got := modsFromState(stateFromMods(all)); got != all {
		t.Fatalf("round trip = %b, want %b", got, all)
	}
	// Lock and NumLock bits must not leak into the decoded mask.
	state := stateFromMods(config.ModSuper) | xLockMask | xMod2Mask
	if got := modsFromState(state); got != config.ModSuper {
		t.Fatalf("mods = %b, want super only", got)
	}
}
