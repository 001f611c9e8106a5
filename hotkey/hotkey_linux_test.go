//go:build linux

package hotkey

import "testing"

func TestMatcherExactModifiers(t *testing.T) {
	m, err := newMatcher(Combo{Mods: ModAlt, Key: "o"})
	if err != nil {
		t.Fatal(err)
	}
	const (
		lAlt   = 56
		lShift = 42
		keyO   = 24
	)

	if down, _ := m.feed(keyO, keyPress); down {
		t.Fatal("fired without modifier")
	}
	m.feed(keyO, keyRelease)

	m.feed(lAlt, keyPress)
	if down, _ := m.feed(keyO, keyPress); !down {
		t.Fatal("did not fire with alt held")
	}
	if down, _ := m.feed(keyO, 2); down {
		t.Fatal("autorepeat fired")
	}
	if _, up := m.feed(keyO, keyRelease); !up {
		t.Fatal("no keyup")
	}

	m.feed(lShift, keyPress)
	if down, _ := m.feed(keyO, keyPress); down {
		t.Fatal("fired with extra shift held")
	}
	m.feed(keyO, keyRelease)
	m.feed(lShift, keyRelease)
	m.feed(lAlt, keyRelease)

	if got := m.heldMods(); got != 0 {
		t.Errorf("modifiers still held: %v", got)
	}
}

func TestMatcherRightHandModifiers(t *testing.T) {
	m, err := newMatcher(Combo{Mods: ModCtrl | ModShift, Key: "space"})
	if err != nil {
		t.Fatal(err)
	}
	m.feed(97, keyPress)
	m.feed(54, keyPress)
	if down, _ := m.feed(57, keyPress); !down {
		t.Fatal("right ctrl+shift+space did not fire")
	}
}

func TestNewRejectsUnknownKey(t *testing.T) {
	if _, err := New(Combo{Key: "home"}); err == nil {
		t.Fatal("expected error")
	}
}
