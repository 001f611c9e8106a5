// Package notify raises desktop notifications for dictation status.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/beeep"

	"dictate/log"
)

type Urgency string

const (
	Low      Urgency = "low"
	Normal   Urgency = "normal"
	Critical Urgency = "critical"
)

type Kind int

const (
	KindRecording Kind = iota
	KindTranscribing
	KindDelivered
	KindTooShort
	KindNoSpeech
	KindFailure
	KindDeliveryFailure
)

func (k Kind) String() string {
	switch k {
	case KindRecording:
		return "recording"
	case KindTranscribing:
		return "transcribing"
	case KindDelivered:
		return "delivered"
	case KindTooShort:
		return "too_short"
	case KindNoSpeech:
		return "no_speech"
	case KindFailure:
		return "failure"
	case KindDeliveryFailure:
		return "delivery_failure"
	}
	return "unknown"
}

type Notification struct {
	Kind    Kind
	Title   string
	Body    string
	Icon    string
	Urgency Urgency
	Timeout time.Duration
}

func Recording(key string) Notification {
	return Notification{KindRecording, "Recording...", "Press " + key + " to stop", "audio-input-microphone", Normal, 30 * time.Second}
}

func Transcribing() Notification {
	return Notification{KindTranscribing, "Transcribing...", "Processing your speech", "emblem-synchronizing", Normal, 30 * time.Second}
}

func Delivered(title, text string) Notification {
	return Notification{KindDelivered, title, Preview(text, 100), "emblem-ok-symbolic", Normal, 3 * time.Second}
}

func TooShort() Notification {
	return Notification{KindTooShort, "Too short", "Hold on a little longer before stopping", "dialog-warning", Normal, 2 * time.Second}
}

func NoSpeech() Notification {
	return Notification{KindNoSpeech, "No speech detected", "Try speaking louder", "dialog-warning", Normal, 2 * time.Second}
}

func Failure(title string, err error) Notification {
	return Notification{KindFailure, title, Preview(err.Error(), 120), "dialog-error", Critical, 3 * time.Second}
}

func DeliveryFailure(body string) Notification {
	return Notification{KindDeliveryFailure, "Delivery failed", body, "dialog-error", Critical, 3 * time.Second}
}

// Preview truncates s to n runes, adding "..." when cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Runner matches clipboard.Runner; kept separate to avoid the import.
type Runner func(ctx context.Context, name string, args ...string) error

// Notifier sends notifications through notify-send, falling back to beeep
// (D-Bus directly) when notify-send is missing or fails.
type Notifier struct {
	App     string
	Enabled bool
	Timeout time.Duration
	Run     Runner
	// Fallback is beeep.Notify unless replaced.
	Fallback func(title, body, icon string) error

	mu       sync.Mutex
	disabled bool // notify-send failed once; use Fallback only
}

func New(enabled bool, run Runner, timeout time.Duration) *Notifier {
	return &Notifier{
		App:     "dictate",
		Enabled: enabled,
		Timeout: timeout,
		Run:     run,
		Fallback: func(title, body, icon string) error {
			return beeep.Notify(title, body, icon)
		},
	}
}

func (n *Notifier) args(note Notification) []string {
	return []string{
		"-a", n.App,
		"-i", note.Icon,
		"-t", strconv.FormatInt(note.Timeout.Milliseconds(), 10),
		"-u", string(note.Urgency),
		// replace the previous bubble instead of stacking
		"-h", "string:x-canonical-private-synchronous:" + n.App,
		note.Title,
		note.Body,
	}
}

// Notify never returns an error to the caller; a notification that cannot
// be shown is only logged.
func (n *Notifier) Notify(note Notification) {
	if n == nil || !n.Enabled {
		return
	}

	n.mu.Lock()
	useFallback := n.disabled || n.Run == nil
	n.mu.Unlock()

	if !useFallback {
		timeout := n.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := n.Run(ctx, "notify-send", n.args(note)...)
		cancel()
		if err == nil {
			return
		}
		log.Warnf("notify-send failed, switching to fallback: %v", err)
		n.mu.Lock()
		n.disabled = true
		n.mu.Unlock()
	}

	if n.Fallback == nil {
		return
	}
	if err := n.Fallback(note.Title, note.Body, ""); err != nil {
		log.Warnf("notification %s: %v", note.Kind, err)
	}
}

func (n Notification) String() string {
	return fmt.Sprintf("[%s] %s: %s", n.Urgency, n.Title, n.Body)
}
