package hotkey

import (
	"errors"
	"sync"
)

// Fake is a Hotkey for tests. Press behaves like a physical press of the
// combo: nothing is delivered unless the hotkey is registered.
type Fake struct {
	keydown chan struct{}
	keyup   chan struct{}

	mu         sync.Mutex
	registered bool
	presses    int
}

func NewFake() *Fake {
	return &Fake{
		keydown: make(chan struct{}),
		keyup:   make(chan struct{}, 1),
	}
}

func (f *Fake) Register() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registered {
		return errors.New("hotkey already registered")
	}
	f.registered = true
	return nil
}

func (f *Fake) Unregister() {
	f.mu.Lock()
	f.registered = false
	f.mu.Unlock()
}

func (f *Fake) Keydown() <-chan struct{} { return f.keydown }
func (f *Fake) Keyup() <-chan struct{}   { return f.keyup }

// Press blocks until the key-down has been read, then releases the key.
// It reports false when the hotkey is not registered.
func (f *Fake) Press() bool {
	f.mu.Lock()
	ok := f.registered
	if ok {
		f.presses++
	}
	f.mu.Unlock()
	if !ok {
		return false
	}
	f.keydown <- struct{}{}
	select {
	case f.keyup <- struct{}{}:
	default:
	}
	return true
}

// Presses is the number of delivered presses.
func (f *Fake) Presses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presses
}
