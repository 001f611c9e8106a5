package dictation

import (
	"time"

	"dictate/audio"
	"dictate/output"
)

type State int32

const (
	Idle State = iota
	Recording
	Transcribing
	// Error is transient: the controller passes through it on a failed
	// session and is back in Idle before the next toggle is read.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Transcribing:
		return "transcribing"
	case Error:
		return "error"
	}
	return "unknown"
}

type Outcome int

const (
	Pending Outcome = iota
	Delivered
	TooShort
	NoSpeech
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Delivered:
		return "delivered"
	case TooShort:
		return "too_short"
	case NoSpeech:
		return "no_speech"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Session is one record, transcribe, deliver cycle.
type Session struct {
	ID      uint64
	Started time.Time
	Ended   time.Time
	// Payload is kept for logging after it has been handed to the
	// transcriber; it is never read again by the controller.
	Payload  *audio.Payload
	Text     string
	Err      error
	Outcome  Outcome
	Delivery output.Result
}
