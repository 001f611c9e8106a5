package transcriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dictate/audio"
)

// Fake returns fixed text or a fixed error. Hold blocks calls until the
// returned release func runs, so tests can observe the in-flight state.
type Fake struct {
	mu      sync.Mutex
	text    string
	err     error
	loadErr error
	gate    chan struct{}
	delay   time.Duration
	calls   int
	started chan struct{}
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err, started: make(chan struct{}, 16)}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SetLoadError(err error) {
	f.mu.Lock()
	f.loadErr = err
	f.mu.Unlock()
}

func (f *Fake) Load(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadErr
}

// SetDelay makes every call take at least d, like a real model would.
func (f *Fake) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *Fake) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Started receives one value per Transcribe call, before any hold.
func (f *Fake) Started() <-chan struct{} { return f.started }

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Fake) Transcribe(ctx context.Context, _ *audio.Payload) (string, error) {
	f.mu.Lock()
	f.calls++
	gate, delay := f.gate, f.delay
	text, err := f.text, f.err
	f.mu.Unlock()

	select {
	case f.started <- struct{}{}:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", fmt.Errorf("fake transcriber error: %w", err)
	}
	return text, nil
}
