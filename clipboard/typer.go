package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes an external command and returns an error unless it
// exits 0.
type Runner func(ctx context.Context, name string, args ...string) error

func ExecRunner(ctx context.Context, name string, args ...string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Typer injects text into the focused window.
type Typer struct {
	// Method is xdotool, wtype, uinput or paste.
	Method  string
	Timeout time.Duration
	Run     Runner
}

func NewTyper(method string, timeout time.Duration) *Typer {
	return &Typer{Method: method, Timeout: timeout, Run: ExecRunner}
}

// Tool names the external binary the method needs, if any.
func (t *Typer) Tool() string {
	switch t.Method {
	case "xdotool", "wtype":
		return t.Method
	}
	return ""
}

func (t *Typer) Type(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("nothing to type")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	switch t.Method {
	case "xdotool":
		// --clearmodifiers releases the still-held hotkey modifiers
		return t.Run(ctx, "xdotool", "type", "--clearmodifiers", "--", text)
	case "wtype":
		return t.Run(ctx, "wtype", "--", text)
	case "uinput":
		return typeUinput(text)
	case "paste":
		if err := Copy(text); err != nil {
			return fmt.Errorf("copy before paste: %w", err)
		}
		return Paste()
	}
	return fmt.Errorf("unknown type method %q", t.Method)
}
