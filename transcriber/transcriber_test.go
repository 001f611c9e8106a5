package transcriber

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dictate/audio"
	"dictate/config"
)

func silence(d time.Duration) *audio.Payload {
	n := int(d.Seconds() * 16000)
	return audio.NewPayload(make([]byte, n*2), 16000, 1)
}

func newTestClient(f *Fake, opts Options) *Client {
	if opts.MinDuration == 0 {
		opts.MinDuration = 300 * time.Millisecond
	}
	return NewClient(f, opts)
}

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
	}
	got := m.Sum()
	want := 170 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestTranscribeTooShortSkipsEngine(t *testing.T) {
	f := NewFake("hello", nil)
	c := newTestClient(f, Options{})

	for _, p := range []*audio.Payload{nil, silence(0), silence(299 * time.Millisecond)} {
		if _, err := c.Transcribe(context.Background(), p); !errors.Is(err, ErrTooShort) {
			t.Errorf("Transcribe(%v) error = %v, want ErrTooShort", p.Duration(), err)
		}
	}
	if f.Calls() != 0 {
		t.Errorf("engine called %d times for short audio", f.Calls())
	}
}

func TestTranscribeSpeechGate(t *testing.T) {
	f := NewFake("hello", nil)
	c := newTestClient(f, Options{SpeechGate: true, VADMode: 1})

	_, err := c.Transcribe(context.Background(), silence(2*time.Second))
	if !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("error = %v, want ErrNoSpeech", err)
	}
	if f.Calls() != 0 {
		t.Errorf("engine called %d times for silence", f.Calls())
	}
}

func TestTranscribeNormalizesText(t *testing.T) {
	f := NewFake("  hello\n world  ", nil)
	c := newTestClient(f, Options{})

	text, err := c.Transcribe(context.Background(), silence(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if f.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", f.Calls())
	}
}

func TestTranscribeEmptyTextIsNoSpeech(t *testing.T) {
	c := newTestClient(NewFake(" \n ", nil), Options{})
	if _, err := c.Transcribe(context.Background(), silence(time.Second)); !errors.Is(err, ErrNoSpeech) {
		t.Errorf("error = %v, want ErrNoSpeech", err)
	}
}

func TestTranscribeEngineError(t *testing.T) {
	c := newTestClient(NewFake("", errors.New("cuda out of memory")), Options{})

	_, err := c.Transcribe(context.Background(), silence(time.Second))
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if te.Engine != "fake" || !strings.Contains(err.Error(), "cuda out of memory") {
		t.Errorf("error = %v", err)
	}
}

func TestTranscribeLoadFailureRetried(t *testing.T) {
	f := NewFake("ok", nil)
	f.SetLoadError(errors.New("connection refused"))
	c := newTestClient(f, Options{})

	_, err := c.Transcribe(context.Background(), silence(time.Second))
	var te *Error
	if !errors.As(err, &te) || !strings.Contains(err.Error(), "model failed to load") {
		t.Fatalf("error = %v, want load failure", err)
	}
	if f.Calls() != 0 {
		t.Error("engine called although load failed")
	}

	f.SetLoadError(nil)
	text, err := c.Transcribe(context.Background(), silence(time.Second))
	if err != nil || text != "ok" {
		t.Fatalf("after recovery: %q, %v", text, err)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	f := NewFake("late", nil)
	release := f.Hold()
	defer release()
	c := newTestClient(f, Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.Transcribe(context.Background(), silence(time.Second))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not honoured")
	}
}

func TestLoadInBackground(t *testing.T) {
	f := NewFake("x", nil)
	c := newTestClient(f, Options{})
	c.Load(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.WaitLoaded(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestNewEngine(t *testing.T) {
	for _, tt := range []struct {
		engine string
		want   string
	}{
		{"server", "server"},
		{"ctranslate2", "ctranslate2"},
		{"fake", "fake"},
	} {
		t.Run(tt.engine, func(t *testing.T) {
			cfg := config.Default().Whisper
			cfg.Engine = tt.engine
			e, err := New(cfg, t.TempDir())
			if err != nil {
				t.Fatal(err)
			}
			if e.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", e.Name(), tt.want)
			}
		})
	}
	t.Run("unknown", func(t *testing.T) {
		cfg := config.Default().Whisper
		cfg.Engine = "cloud"
		if _, err := New(cfg, ""); err == nil {
			t.Error("expected error for unknown engine")
		}
	})
}

func TestFakeEngineLatency(t *testing.T) {
	cfg := config.Default().Whisper
	cfg.Engine = "fake"
	t.Setenv("DICTATE_FAKE_LATENCY", "150ms")
	e, err := New(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if _, err := e.Transcribe(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took < 150*time.Millisecond {
		t.Errorf("Transcribe took %s, want at least 150ms", took)
	}

	t.Setenv("DICTATE_FAKE_LATENCY", "soon")
	if _, err := New(cfg, ""); err == nil {
		t.Error("expected error for bad latency")
	}
}

func TestServerModel(t *testing.T) {
	if got := ServerModel("base.en", ""); got != "Systran/faster-whisper-base.en" {
		t.Errorf("got %q", got)
	}
	if got := ServerModel("base.en", "deepdml/faster-whisper-large-v3-turbo-ct2"); got != "deepdml/faster-whisper-large-v3-turbo-ct2" {
		t.Errorf("override ignored: %q", got)
	}
}
