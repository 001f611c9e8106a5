//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

const inputEventSize = 24

// evdev codes, from linux/input-event-codes.h
var modCodes = map[uint16]Modifier{
	29:  ModCtrl,
	97:  ModCtrl,
	42:  ModShift,
	54:  ModShift,
	56:  ModAlt,
	100: ModAlt,
	125: ModSuper,
	126: ModSuper,
}

var keyCodes = map[string]uint16{
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"a": 30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"space": 57, "f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64, "f7": 65, "f8": 66, "f9": 67, "f10": 68,
	"f11": 87, "f12": 88,
}

// matcher tracks modifier state for one device and reports when the combo
// key goes down with exactly the combo's modifiers held.
type matcher struct {
	key  uint16
	mods Modifier

	held    map[uint16]bool
	keyDown bool
}

func newMatcher(c Combo) (*matcher, error) {
	code, ok := keyCodes[c.Key]
	if !ok {
		return nil, fmt.Errorf("no evdev code for key %q", c.Key)
	}
	return &matcher{key: code, mods: c.Mods, held: map[uint16]bool{}}, nil
}

func (m *matcher) heldMods() Modifier {
	var mods Modifier
	for code, down := range m.held {
		if down {
			mods |= modCodes[code]
		}
	}
	return mods
}

// feed returns (down, up) for one key event. Autorepeat (value 2) is ignored.
func (m *matcher) feed(code uint16, value int32) (down, up bool) {
	if _, ok := modCodes[code]; ok {
		switch value {
		case keyPress:
			m.held[code] = true
		case keyRelease:
			delete(m.held, code)
		}
		return false, false
	}
	if code != m.key {
		return false, false
	}
	switch value {
	case keyPress:
		if !m.keyDown && m.heldMods() == m.mods {
			m.keyDown = true
			return true, false
		}
	case keyRelease:
		if m.keyDown {
			m.keyDown = false
			return false, true
		}
	}
	return false, false
}

type linuxHotkey struct {
	combo   Combo
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

// New reads keyboards directly through evdev, which works on both X11 and
// Wayland but needs membership of the input group.
func New(c Combo) (Hotkey, error) {
	if _, err := newMatcher(c); err != nil {
		return nil, err
	}
	return &linuxHotkey{
		combo:   c,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}, nil
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		m, _ := newMatcher(h.combo)
		go h.readEvents(f, m)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *linuxHotkey) readEvents(f *os.File, m *matcher) {
	buf := make([]byte, inputEventSize*16)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			down, up := m.feed(evCode, evValue)
			if down {
				select {
				case h.keydown <- struct{}{}:
				default:
				}
			}
			if up {
				select {
				case h.keyup <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard filters out mice and power buttons, whose key capability
// bitmaps are short.
func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
