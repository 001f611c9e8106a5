// Package dictation drives the toggle, record, transcribe, deliver cycle.
//
// A Controller is a state machine owned by one goroutine (Run). Toggles are
// handled in arrival order, each to completion. Transcription runs on a
// worker goroutine and reports back with the session ID, so the hotkey path
// never waits on the engine.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dictate/audio"
	"dictate/encoder"
	"dictate/log"
	"dictate/notify"
	"dictate/output"
	"dictate/transcriber"
)

type Recorder interface {
	Start() (audio.Handle, error)
	Stop(h audio.Handle) (*audio.Payload, error)
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, p *audio.Payload) (string, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, text string) output.Result
}

type Notifier interface {
	Notify(notify.Notification)
}

// Hooks run on the controller goroutine and must not block.
type Hooks struct {
	OnStart      func()
	OnStop       func()
	OnError      func()
	OnSessionEnd func(Session)
}

type Options struct {
	MinDuration time.Duration
	// HotkeyLabel is shown in the recording notification.
	HotkeyLabel string
	// KeepLast, when set, is where the last recording is written as WAV.
	KeepLast string
	Hooks    Hooks
}

type eventKind int

const (
	captureExited eventKind = iota
	transcribed
)

type event struct {
	kind eventKind
	id   uint64
	text string
	err  error
}

type current struct {
	Session
	handle    audio.Handle
	stopWatch chan struct{}
}

type Controller struct {
	rec  Recorder
	tr   Transcriber
	out  Deliverer
	note Notifier
	opts Options

	state   atomic.Int32
	toggles chan chan State
	events  chan event
	done    chan struct{}

	running atomic.Bool
	workers sync.WaitGroup

	mu   sync.Mutex
	last Session
	ran  int

	// owned by the Run goroutine
	nextID uint64
	cur    *current
}

func New(rec Recorder, tr Transcriber, out Deliverer, note Notifier, opts Options) *Controller {
	return &Controller{
		rec:     rec,
		tr:      tr,
		out:     out,
		note:    note,
		opts:    opts,
		toggles: make(chan chan State),
		events:  make(chan event, 4),
		done:    make(chan struct{}),
	}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Last returns the most recently finished session.
func (c *Controller) Last() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Sessions is the number of finished sessions.
func (c *Controller) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ran
}

// Toggle feeds one toggle to a running controller and waits until it has
// been handled. It returns the state after handling.
func (c *Controller) Toggle() State {
	reply := make(chan State, 1)
	select {
	case c.toggles <- reply:
	case <-c.done:
		return c.State()
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return c.State()
	}
}

// Run consumes toggles until ctx is cancelled. An active recording is
// stopped and discarded on the way out; an in-flight transcription is left
// to finish and its result dropped.
func (c *Controller) Run(ctx context.Context, toggles <-chan struct{}) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("controller already running")
	}
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case _, ok := <-toggles:
			if !ok {
				toggles = nil
				continue
			}
			c.handleToggle(ctx)
		case reply := <-c.toggles:
			c.handleToggle(ctx)
			reply <- c.State()
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Controller) setState(to State) {
	from := State(c.state.Swap(int32(to)))
	var id uint64
	if c.cur != nil {
		id = c.cur.ID
	}
	log.Transition(id, from.String(), to.String())
}

// post hands an event to the Run goroutine, or drops it once Run returned.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) handleToggle(ctx context.Context) {
	switch c.State() {
	case Idle:
		c.startRecording()
	case Recording:
		c.stopRecording(ctx)
	default:
		var id uint64
		if c.cur != nil {
			id = c.cur.ID
		}
		log.ToggleIgnored(id, c.State().String())
	}
}

func (c *Controller) startRecording() {
	c.nextID++
	c.cur = &current{Session: Session{ID: c.nextID, Started: time.Now()}}
	c.setState(Recording)

	h, err := c.rec.Start()
	if err != nil {
		c.fail("Recording failed", err)
		return
	}
	c.cur.handle = h
	c.cur.stopWatch = make(chan struct{})
	go c.watch(c.cur.ID, h, c.cur.stopWatch)

	c.hook(c.opts.Hooks.OnStart)
	c.notify(notify.Recording(c.opts.HotkeyLabel))
}

// watch reports a capture process that exits before it was asked to stop.
func (c *Controller) watch(id uint64, h audio.Handle, stop <-chan struct{}) {
	select {
	case <-h.Exited():
		c.post(event{kind: captureExited, id: id})
	case <-stop:
	}
}

func (c *Controller) stopCapture() (*audio.Payload, error) {
	close(c.cur.stopWatch)
	p, err := c.rec.Stop(c.cur.handle)
	c.cur.handle = nil
	c.hook(c.opts.Hooks.OnStop)
	if p != nil {
		c.keepLast(p)
	}
	return p, err
}

func (c *Controller) stopRecording(ctx context.Context) {
	p, err := c.stopCapture()
	if err != nil {
		c.fail("Recording failed", err)
		return
	}
	if p.Degraded {
		log.Warnf("session %d: capture had to be killed, audio may be truncated", c.cur.ID)
	}
	c.cur.Payload = p

	if p.Duration() < c.opts.MinDuration || p.Frames() == 0 {
		c.finish(TooShort, ptr(notify.TooShort()))
		return
	}

	c.setState(Transcribing)
	c.notify(notify.Transcribing())

	id := c.cur.ID
	// The engine call is not cancellable once started.
	wctx := context.WithoutCancel(ctx)
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		start := time.Now()
		text, err := c.tr.Transcribe(wctx, p)
		log.Transcription(id, c.tr.Name(), p.Duration().Seconds(), time.Since(start), err)
		c.post(event{kind: transcribed, id: id, text: text, err: err})
	}()
}

func (c *Controller) handleEvent(ctx context.Context, ev event) {
	switch ev.kind {
	case captureExited:
		if c.cur == nil || c.cur.ID != ev.id || c.State() != Recording {
			return
		}
		_, err := c.stopCapture()
		if err == nil {
			err = errors.New("capture process exited")
		}
		c.fail("Recording failed", err)

	case transcribed:
		if c.cur == nil || c.cur.ID != ev.id || c.State() != Transcribing {
			log.Warnf("discarding stale transcription result for session %d", ev.id)
			return
		}
		c.transcriptionDone(ctx, ev.text, ev.err)
	}
}

func (c *Controller) transcriptionDone(ctx context.Context, text string, err error) {
	switch {
	case errors.Is(err, transcriber.ErrNoSpeech):
		c.finish(NoSpeech, ptr(notify.NoSpeech()))
		return
	case errors.Is(err, transcriber.ErrTooShort):
		c.finish(TooShort, ptr(notify.TooShort()))
		return
	case err != nil:
		c.fail("Transcription failed", err)
		return
	}

	c.cur.Text = text
	log.TranscriptionText(text)
	res := c.out.Deliver(ctx, text)
	c.cur.Delivery = res
	log.Delivery(c.cur.ID, len([]rune(text)), res.Clipboard.String(), res.Keystrokes.String())
	if derr := res.Err(); derr != nil {
		c.cur.Err = derr
	}
	// the dispatcher raised its own notification
	c.finish(Delivered, nil)
}

func (c *Controller) fail(title string, err error) {
	c.setState(Error)
	c.cur.Err = err
	log.Errorf("session %d: %s: %v", c.cur.ID, title, err)
	c.hook(c.opts.Hooks.OnError)
	c.finish(Failed, ptr(notify.Failure(title, err)))
}

func ptr(n notify.Notification) *notify.Notification { return &n }

// finish archives the current session and returns to Idle. n may be nil
// when someone else already told the user.
func (c *Controller) finish(o Outcome, n *notify.Notification) {
	if n != nil {
		c.notify(*n)
	}
	s := c.cur.Session
	s.Outcome = o
	s.Ended = time.Now()

	c.mu.Lock()
	c.last = s
	c.ran++
	c.mu.Unlock()

	c.setState(Idle)
	c.cur = nil
	if fn := c.opts.Hooks.OnSessionEnd; fn != nil {
		fn(s)
	}
}

func (c *Controller) shutdown() {
	if c.cur == nil {
		return
	}
	if c.State() == Recording && c.cur.handle != nil {
		if _, err := c.stopCapture(); err != nil {
			log.Warnf("session %d: stopping capture on shutdown: %v", c.cur.ID, err)
		}
		c.cur.Err = context.Canceled
		c.finish(Failed, nil)
		return
	}
	log.Infof("session %d: shutting down with transcription in flight, result will be dropped", c.cur.ID)
}

func (c *Controller) keepLast(p *audio.Payload) {
	if c.opts.KeepLast == "" || len(p.Data) == 0 {
		return
	}
	if err := encoder.SaveWAV(c.opts.KeepLast, p); err != nil {
		log.Warnf("saving last recording: %v", err)
	}
}

func (c *Controller) notify(n notify.Notification) {
	if c.note != nil {
		c.note.Notify(n)
	}
}

func (c *Controller) hook(fn func()) {
	if fn != nil {
		fn()
	}
}

// Wait blocks until in-flight transcription workers have returned.
func (c *Controller) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("transcription still running after %s", timeout)
	}
}
