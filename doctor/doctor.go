// Package doctor checks that everything dictate shells out to is present
// and usable.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"dictate/audio"
	"dictate/clipboard"
	"dictate/config"
	"dictate/hotkey"
	"dictate/transcriber"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	nameStyle = lipgloss.NewStyle().Width(22)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	}
	return "FAIL"
}

func (s Status) render() string {
	switch s {
	case Pass:
		return passStyle.Render(s.String())
	case Warn:
		return warnStyle.Render(s.String())
	}
	return failStyle.Render(s.String())
}

// Check is one diagnostic. A failing check with Optional set is reported as
// a warning and does not fail the run.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) (string, error)
}

type Result struct {
	Name   string
	Status Status
	Detail string
}

// Deps are the probes the checks use. Zero fields fall back to the real
// implementations.
type Deps struct {
	LookPath  func(string) (string, error)
	Sources   func() ([]audio.Source, error)
	Hotkey    func() (string, error)
	Uinput    func() (string, error)
	Clipboard func() bool
	Engine    func(config.WhisperConfig) (transcriber.Engine, error)
}

func (d *Deps) fill() {
	if d.LookPath == nil {
		d.LookPath = exec.LookPath
	}
	if d.Sources == nil {
		d.Sources = audio.ListSources
	}
	if d.Hotkey == nil {
		d.Hotkey = hotkey.Diagnose
	}
	if d.Uinput == nil {
		d.Uinput = clipboard.VerifyUinput
	}
	if d.Clipboard == nil {
		d.Clipboard = clipboard.Available
	}
	if d.Engine == nil {
		d.Engine = func(w config.WhisperConfig) (transcriber.Engine, error) { return transcriber.New(w, "") }
	}
}

func binaryCheck(d Deps, name, bin string, optional bool) Check {
	return Check{
		Name:     name,
		Optional: optional,
		Run: func(context.Context) (string, error) {
			path, err := d.LookPath(bin)
			if err != nil {
				return "", fmt.Errorf("%s not found in PATH", bin)
			}
			return path, nil
		},
	}
}

// Checks builds the check list for cfg.
func Checks(cfg config.Config, d Deps) []Check {
	d.fill()
	var checks []Check

	capBin := cfg.Capture.Backend
	if capBin == "command" && len(cfg.Capture.Command) > 0 {
		capBin = cfg.Capture.Command[0]
	}
	checks = append(checks, binaryCheck(d, "capture backend", capBin, false))

	checks = append(checks, Check{
		Name:     "audio sources",
		Optional: true,
		Run: func(context.Context) (string, error) {
			sources, err := d.Sources()
			if err != nil {
				return "", err
			}
			if len(sources) == 0 {
				return "", fmt.Errorf("no capture sources found")
			}
			var names []string
			for _, s := range sources {
				name := s.Name
				if s.Default {
					name += " (default)"
				}
				if audio.IsBluetooth(s.Name) {
					name += " [bluetooth: expect lower quality]"
				}
				names = append(names, name)
			}
			return strings.Join(names, "; "), nil
		},
	})

	if cfg.Behavior.Clipboard {
		checks = append(checks, Check{
			Name: "clipboard",
			Run: func(context.Context) (string, error) {
				if !d.Clipboard() {
					return "", fmt.Errorf("no clipboard utility (install xclip, xsel or wl-clipboard)")
				}
				return "available", nil
			},
		})
	}

	if cfg.Behavior.AutoType {
		switch cfg.Behavior.TypeMethod {
		case "xdotool", "wtype":
			checks = append(checks, binaryCheck(d, "keystroke typing", cfg.Behavior.TypeMethod, false))
		case "uinput":
			checks = append(checks, Check{
				Name: "keystroke typing",
				Run: func(context.Context) (string, error) {
					msg, err := d.Uinput()
					if err != nil {
						return "", fmt.Errorf("%w (fix: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput)", err)
					}
					return msg, nil
				},
			})
		case "paste":
			checks = append(checks, Check{
				Name: "keystroke typing",
				Run:  func(context.Context) (string, error) { return "paste shortcut", nil },
			})
		}
	}

	if cfg.Behavior.Notifications {
		checks = append(checks, Check{
			Name:     "notifications",
			Optional: true,
			Run: func(context.Context) (string, error) {
				if path, err := d.LookPath("notify-send"); err == nil {
					return path, nil
				}
				return "", fmt.Errorf("notify-send not found, falling back to the desktop notification API")
			},
		})
	}

	checks = append(checks, Check{
		Name: "hotkey " + cfg.Hotkey.Key,
		Run: func(context.Context) (string, error) {
			if _, err := hotkey.ParseCombo(cfg.Hotkey.Key); err != nil {
				return "", err
			}
			return d.Hotkey()
		},
	})

	checks = append(checks, Check{
		Name: "engine " + cfg.Whisper.Engine,
		Run: func(ctx context.Context) (string, error) {
			eng, err := d.Engine(cfg.Whisper)
			if err != nil {
				return "", err
			}
			if l, ok := eng.(transcriber.Loader); ok {
				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if err := l.Load(ctx); err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("%s ready (model %s)", eng.Name(), cfg.Whisper.Model), nil
		},
	})

	return checks
}

// Run executes checks in order and writes one line per check to w. It
// returns 0 when nothing failed.
func Run(ctx context.Context, w io.Writer, checks []Check) ([]Result, int) {
	fmt.Fprintln(w, "dictate doctor")
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("=", 40)))

	code := 0
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		detail, err := c.Run(ctx)
		r := Result{Name: c.Name, Status: Pass, Detail: detail}
		if err != nil {
			r.Detail = err.Error()
			r.Status = Fail
			if c.Optional {
				r.Status = Warn
			}
		}
		if r.Status == Fail {
			code = 1
		}
		results = append(results, r)
		fmt.Fprintf(w, "%s %s %s\n", r.Status.render(), nameStyle.Render(r.Name), dimStyle.Render(r.Detail))
	}

	fmt.Fprintln(w)
	if code == 0 {
		fmt.Fprintln(w, "All checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. See details above.")
	}
	return results, code
}

// PressTest waits for the configured hotkey to be pressed. It gives up on
// timeout or when ctx is cancelled.
func PressTest(ctx context.Context, w io.Writer, combo hotkey.Combo, timeout time.Duration) bool {
	restore := saveTerminal()
	defer restore()

	fmt.Fprintf(w, "\nPress %s...\n", combo)
	hk, err := hotkey.New(combo)
	if err == nil {
		err = hk.Register()
	}
	if err != nil {
		fmt.Fprintf(w, "%s could not register hotkey: %v\n", Fail.render(), err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Fprintf(w, "%s hotkey detected\n", Pass.render())
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		return true
	case <-time.After(timeout):
		fmt.Fprintf(w, "%s timeout waiting for hotkey\n", Fail.render())
		return false
	case <-ctx.Done():
		fmt.Fprintf(w, "\nInterrupted\n")
		return false
	}
}
