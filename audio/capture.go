package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dictate/log"
)

var (
	ErrAlreadyCapturing = errors.New("capture already active")
	ErrUnknownHandle    = errors.New("handle does not belong to the active capture")
)

// StartError means the capture process could not be launched or died
// during the start grace period (usually: no audio device).
type StartError struct {
	Command string
	Err     error
	Stderr  string
}

func (e *StartError) Error() string {
	msg := fmt.Sprintf("capture start %s: %v", e.Command, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *StartError) Unwrap() error { return e.Err }

// StopError means the capture process had already exited on its own when
// Stop was called. The payload returned alongside it is marked Degraded.
type StopError struct {
	PID    int
	Err    error
	Stderr string
}

func (e *StopError) Error() string {
	msg := fmt.Sprintf("capture process %d exited unexpectedly: %v", e.PID, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *StopError) Unwrap() error { return e.Err }

// exitWaitDelay bounds how long Wait keeps reading stderr after the
// capture process has exited.
const exitWaitDelay = 100 * time.Millisecond

// Handle identifies one running capture.
type Handle interface {
	PID() int
	// Exited is closed once the process has exited and been reaped.
	Exited() <-chan struct{}
}

type CaptureConfig struct {
	// Argv is the capture command; "{output}" is replaced with the temp
	// file path.
	Argv        []string
	SampleRate  int
	Channels    int
	TempDir     string
	StartGrace  time.Duration
	StopTimeout time.Duration
}

// Capturer owns at most one capture subprocess at a time.
type Capturer struct {
	cfg CaptureConfig

	mu     sync.Mutex
	active *recording
}

func NewCapturer(cfg CaptureConfig) *Capturer {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Capturer{cfg: cfg}
}

type recording struct {
	cmd     *exec.Cmd
	path    string
	stderr  *tailBuffer
	started time.Time
	exited  chan struct{}
	waitErr error
}

func (r *recording) PID() int                { return r.cmd.Process.Pid }
func (r *recording) Exited() <-chan struct{} { return r.exited }

func (c *Capturer) tempPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return filepath.Join(c.cfg.TempDir, fmt.Sprintf("dictate-%s.pcm", id))
}

// Start launches the capture process. It returns only after the start grace
// period so that a missing device is reported here and not at Stop.
func (c *Capturer) Start() (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrAlreadyCapturing
	}
	if len(c.cfg.Argv) == 0 {
		return nil, &StartError{Command: "", Err: errors.New("no capture command configured")}
	}

	name := c.cfg.Argv[0]
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, &StartError{Command: name, Err: err}
	}

	path := c.tempPath()
	args := make([]string, 0, len(c.cfg.Argv)-1)
	for _, a := range c.cfg.Argv[1:] {
		args = append(args, strings.ReplaceAll(a, "{output}", path))
	}

	stderr := &tailBuffer{max: 2048}
	cmd := exec.Command(bin, args...)
	cmd.Stderr = stderr
	// Children of a wrapper script inherit the stderr pipe; do not let them
	// hold Wait open after the recorder itself is gone.
	cmd.WaitDelay = exitWaitDelay
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return nil, &StartError{Command: name, Err: err}
	}

	r := &recording{
		cmd:     cmd,
		path:    path,
		stderr:  stderr,
		started: time.Now(),
		exited:  make(chan struct{}),
	}
	go func() {
		r.waitErr = cmd.Wait()
		close(r.exited)
	}()

	if c.cfg.StartGrace > 0 {
		select {
		case <-r.exited:
			kill(cmd)
			os.Remove(path)
			err := r.waitErr
			if err == nil {
				err = errors.New("exited immediately")
			}
			return nil, &StartError{Command: name, Err: err, Stderr: stderr.String()}
		case <-time.After(c.cfg.StartGrace):
		}
	}

	c.active = r
	log.CaptureStart(r.PID(), path)
	return r, nil
}

// Stop terminates the capture (SIGTERM, bounded wait, SIGKILL), reads and
// removes the temp file and returns the recorded audio.
func (c *Capturer) Stop(h Handle) (*Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := h.(*recording)
	if !ok || r == nil || r != c.active {
		return nil, ErrUnknownHandle
	}
	c.active = nil

	var crashed, killed bool
	select {
	case <-r.exited:
		crashed = true
		// the leader is gone but the rest of its group may not be
		kill(r.cmd)
	default:
		if err := terminate(r.cmd); err != nil {
			log.Warnf("capture terminate %d: %v", r.PID(), err)
		}
		select {
		case <-r.exited:
		case <-time.After(c.cfg.StopTimeout):
			log.Warnf("capture %d did not exit after %s, killing", r.PID(), c.cfg.StopTimeout)
			kill(r.cmd)
			killed = true
			<-r.exited
		}
	}

	data, readErr := os.ReadFile(r.path)
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("removing %s: %v", r.path, err)
	}

	p := NewPayload(data, c.cfg.SampleRate, c.cfg.Channels)
	p.Degraded = crashed || killed
	log.CaptureStop(r.PID(), p.Duration().Seconds(), len(p.Data), p.Degraded, killed)

	if crashed {
		err := r.waitErr
		if err == nil {
			err = errors.New("exited before stop")
		}
		return p, &StopError{PID: r.PID(), Err: err, Stderr: r.stderr.String()}
	}
	if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
		return p, &StopError{PID: r.PID(), Err: fmt.Errorf("reading capture file: %w", readErr)}
	}
	return p, nil
}

// Active reports whether a capture process is currently owned.
func (c *Capturer) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Close stops and discards any active capture.
func (c *Capturer) Close() {
	c.mu.Lock()
	r := c.active
	c.mu.Unlock()
	if r != nil {
		c.Stop(r)
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}
