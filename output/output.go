// Package output delivers recognized text to the clipboard and the focused
// window, then reports the outcome as a notification.
package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dictate/log"
	"dictate/notify"
)

// ChannelError is a failed delivery channel. It never fails the session.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

type ChannelResult struct {
	Attempted bool
	Err       error
}

func (c ChannelResult) OK() bool { return c.Attempted && c.Err == nil }

func (c ChannelResult) String() string {
	switch {
	case !c.Attempted:
		return "off"
	case c.Err != nil:
		return "failed"
	}
	return "ok"
}

type Result struct {
	Clipboard  ChannelResult
	Keystrokes ChannelResult
}

// OK is true when every attempted channel succeeded.
func (r Result) OK() bool {
	return r.Clipboard.Err == nil && r.Keystrokes.Err == nil
}

// Err joins the per-channel failures, or nil.
func (r Result) Err() error {
	return errors.Join(r.Clipboard.Err, r.Keystrokes.Err)
}

type Notifier interface {
	Notify(notify.Notification)
}

type Options struct {
	Clipboard bool
	Keystroke bool
	// Timeout bounds each channel.
	Timeout time.Duration
}

// Dispatcher runs each enabled channel exactly once, independently.
type Dispatcher struct {
	opts   Options
	copy   func(text string) error
	typ    func(ctx context.Context, text string) error
	notify Notifier
}

func NewDispatcher(opts Options, copyFn func(string) error, typeFn func(context.Context, string) error, n Notifier) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Dispatcher{opts: opts, copy: copyFn, typ: typeFn, notify: n}
}

// Deliver copies and/or types text and raises one notification describing
// the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, text string) Result {
	var res Result

	if d.opts.Clipboard {
		res.Clipboard.Attempted = true
		if err := d.withTimeout(func() error { return d.copy(text) }); err != nil {
			res.Clipboard.Err = &ChannelError{Channel: "clipboard", Err: err}
			log.Warnf("clipboard delivery failed: %v", err)
		}
	}

	if d.opts.Keystroke {
		res.Keystrokes.Attempted = true
		tctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		err := d.typ(tctx, text)
		cancel()
		if err != nil {
			res.Keystrokes.Err = &ChannelError{Channel: "keystrokes", Err: err}
			log.Warnf("keystroke delivery failed: %v", err)
		}
	}

	if d.notify != nil {
		d.notify.Notify(d.notification(text, res))
	}
	return res
}

func (d *Dispatcher) notification(text string, res Result) notify.Notification {
	switch {
	case res.OK() && res.Clipboard.Attempted:
		return notify.Delivered("Copied!", text)
	case res.OK() && res.Keystrokes.Attempted:
		return notify.Delivered("Typed!", text)
	case res.OK():
		return notify.Delivered("Transcribed", text)
	}

	var parts []string
	if res.Clipboard.Err != nil {
		parts = append(parts, "clipboard failed")
	} else if res.Clipboard.OK() {
		parts = append(parts, "copied to clipboard")
	}
	if res.Keystrokes.Err != nil {
		parts = append(parts, "typing failed")
	} else if res.Keystrokes.OK() {
		parts = append(parts, "typed")
	}
	return notify.DeliveryFailure(strings.Join(parts, ", ") + ": " + notify.Preview(text, 60))
}

// withTimeout bounds calls that take no context (atotto shells out without
// one). The call keeps running in the background if it overruns.
func (d *Dispatcher) withTimeout(fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d.opts.Timeout):
		return fmt.Errorf("timed out after %s", d.opts.Timeout)
	}
}
