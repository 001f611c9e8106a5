package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dictate/audio"
	"dictate/config"
	"dictate/log"
	"dictate/vad"
)

var (
	ErrTooShort = errors.New("recording too short")
	ErrNoSpeech = errors.New("no speech detected")
)

// Error is a failed engine call. It is terminal for the session; nothing
// retries it.
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine is a speech-to-text backend.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, p *audio.Payload) (string, error)
}

// Loader is implemented by engines with an expensive startup step (model
// load, server probe).
type Loader interface {
	Load(ctx context.Context) error
}

type Options struct {
	MinDuration time.Duration
	// SpeechGate skips the engine when the VAD finds no voiced frames.
	SpeechGate bool
	VADMode    int
	Timeout    time.Duration
}

type Client struct {
	engine Engine
	opts   Options

	mu   sync.Mutex
	load *loadState
}

type loadState struct {
	done chan struct{}
	err  error
}

func NewClient(engine Engine, opts Options) *Client {
	return &Client{engine: engine, opts: opts}
}

func (c *Client) Name() string { return c.engine.Name() }

// startLoad begins loading unless a load is in flight or already succeeded.
// A failed load is retried on the next call.
func (c *Client) startLoad(ctx context.Context) *loadState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.load != nil {
		select {
		case <-c.load.done:
			if c.load.err == nil {
				return c.load
			}
		default:
			return c.load
		}
	}

	ls := &loadState{done: make(chan struct{})}
	c.load = ls
	go func() {
		defer close(ls.done)
		l, ok := c.engine.(Loader)
		if !ok {
			return
		}
		start := time.Now()
		ls.err = l.Load(ctx)
		if ls.err != nil {
			log.Errorf("%s engine load failed: %v", c.engine.Name(), ls.err)
			return
		}
		log.Infof("%s engine ready in %s", c.engine.Name(), time.Since(start).Round(time.Millisecond))
	}()
	return ls
}

// Load starts loading the engine in the background and returns immediately.
func (c *Client) Load(ctx context.Context) {
	c.startLoad(ctx)
}

// WaitLoaded blocks until the engine is loaded.
func (c *Client) WaitLoaded(ctx context.Context) error {
	ls := c.startLoad(ctx)
	select {
	case <-ls.done:
		return ls.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transcribe returns the recognized text. Short or silent payloads
// short-circuit to ErrTooShort / ErrNoSpeech without touching the engine.
func (c *Client) Transcribe(ctx context.Context, p *audio.Payload) (string, error) {
	if p == nil || p.Frames() == 0 || p.Duration() < c.opts.MinDuration {
		return "", ErrTooShort
	}

	if c.opts.SpeechGate {
		res, err := vad.Analyze(p, c.opts.VADMode)
		switch {
		case err != nil:
			log.Warnf("speech gate skipped: %v", err)
		case !res.Speech:
			return "", ErrNoSpeech
		}
	}

	if err := c.WaitLoaded(ctx); err != nil {
		return "", &Error{Engine: c.engine.Name(), Err: fmt.Errorf("model failed to load: %w", err)}
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	text, err := c.engine.Transcribe(ctx, p)
	if err != nil {
		return "", &Error{Engine: c.engine.Name(), Err: err}
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

// New builds the engine selected by cfg.
func New(cfg config.WhisperConfig, tempDir string) (Engine, error) {
	switch cfg.Engine {
	case "server":
		return NewServer(ServerConfig{
			BaseURL:  cfg.ServerURL,
			APIKey:   cfg.APIKey,
			Model:    ServerModel(cfg.Model, cfg.ServerModel),
			Language: cfg.Language,
			Upload:   cfg.Upload,
			Timeout:  cfg.Timeout.Duration,
		}), nil
	case "ctranslate2":
		return &CTranslate2{
			Binary:      cfg.Binary,
			Model:       cfg.Model,
			Device:      cfg.Device,
			ComputeType: cfg.ComputeType,
			Language:    cfg.Language,
			BeamSize:    cfg.BeamSize,
			VADFilter:   cfg.VADFilter,
			TempDir:     tempDir,
		}, nil
	case "fake":
		f := NewFake("hello world", nil)
		// DICTATE_FAKE_LATENCY slows the fake engine down for binary tests
		if v := os.Getenv("DICTATE_FAKE_LATENCY"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("DICTATE_FAKE_LATENCY: %w", err)
			}
			f.SetDelay(d)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
}
