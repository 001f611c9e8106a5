package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

var modNames = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModShift, "shift"},
	{ModAlt, "alt"},
	{ModSuper, "cmd"},
}

// Combo is one key plus the exact set of modifiers that must be held.
type Combo struct {
	Mods Modifier
	Key  string
}

func (c Combo) String() string {
	var parts []string
	for _, m := range modNames {
		if c.Mods&m.mod != 0 {
			parts = append(parts, "<"+m.name+">")
		}
	}
	if len(c.Key) == 1 {
		parts = append(parts, c.Key)
	} else {
		parts = append(parts, "<"+c.Key+">")
	}
	return strings.Join(parts, "+")
}

func modifierByName(name string) (Modifier, bool) {
	switch strings.TrimSuffix(strings.TrimSuffix(name, "_l"), "_r") {
	case "ctrl", "control":
		return ModCtrl, true
	case "shift":
		return ModShift, true
	case "alt", "alt_gr", "option":
		return ModAlt, true
	case "cmd", "super", "win", "meta":
		return ModSuper, true
	}
	return 0, false
}

// ParseCombo reads the "<alt>+o" / "<ctrl>+<shift>+<f9>" syntax used in the
// config file.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return c, fmt.Errorf("empty hotkey")
	}
	for _, tok := range strings.Split(s, "+") {
		special := strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") && len(tok) > 2
		name := tok
		if special {
			name = tok[1 : len(tok)-1]
			if m, ok := modifierByName(name); ok {
				c.Mods |= m
				continue
			}
		} else if len(tok) != 1 {
			return Combo{}, fmt.Errorf("hotkey %q: %q must be a single character or <name>", s, tok)
		}
		if c.Key != "" {
			return Combo{}, fmt.Errorf("hotkey %q has more than one non-modifier key", s)
		}
		if !validKey(name) {
			return Combo{}, fmt.Errorf("hotkey %q: unsupported key %q", s, name)
		}
		c.Key = name
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("hotkey %q has no key, only modifiers", s)
	}
	return c, nil
}

func validKey(k string) bool {
	if len(k) == 1 {
		return (k[0] >= 'a' && k[0] <= 'z') || (k[0] >= '0' && k[0] <= '9')
	}
	switch k {
	case "space", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f12":
		return true
	}
	return false
}
