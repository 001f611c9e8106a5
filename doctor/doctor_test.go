package doctor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"dictate/audio"
	"dictate/config"
	"dictate/transcriber"
)

func fakeDeps(missing ...string) Deps {
	return Deps{
		LookPath: func(bin string) (string, error) {
			for _, m := range missing {
				if m == bin {
					return "", errors.New("not found")
				}
			}
			return "/usr/bin/" + bin, nil
		},
		Sources: func() ([]audio.Source, error) {
			return []audio.Source{{ID: "0", Name: "Built-in Mic", Default: true}}, nil
		},
		Hotkey:    func() (string, error) { return "1 keyboard(s) found", nil },
		Uinput:    func() (string, error) { return "uinput ok", nil },
		Clipboard: func() bool { return true },
		Engine: func(config.WhisperConfig) (transcriber.Engine, error) {
			return transcriber.NewFake("x", nil), nil
		},
	}
}

func statuses(results []Result) map[string]Status {
	m := map[string]Status{}
	for _, r := range results {
		m[r.Name] = r.Status
	}
	return m
}

func TestAllPass(t *testing.T) {
	var buf bytes.Buffer
	results, code := Run(context.Background(), &buf, Checks(config.Default(), fakeDeps()))
	if code != 0 {
		t.Fatalf("exit code %d:\n%s", code, buf.String())
	}
	for _, r := range results {
		if r.Status != Pass {
			t.Errorf("%s: %s %s", r.Name, r.Status, r.Detail)
		}
	}
	if !strings.Contains(buf.String(), "All checks passed!") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestMissingCaptureBinaryFails(t *testing.T) {
	var buf bytes.Buffer
	results, code := Run(context.Background(), &buf, Checks(config.Default(), fakeDeps("parecord")))
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
	if got := statuses(results)["capture backend"]; got != Fail {
		t.Errorf("capture backend = %s", got)
	}
	if !strings.Contains(buf.String(), "parecord not found") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestMissingNotifySendWarns(t *testing.T) {
	results, code := Run(context.Background(), &bytes.Buffer{}, Checks(config.Default(), fakeDeps("notify-send")))
	if code != 0 {
		t.Fatalf("optional check failed the run")
	}
	if got := statuses(results)["notifications"]; got != Warn {
		t.Errorf("notifications = %s, want WARN", got)
	}
}

func TestChecksFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Behavior.AutoType = false
	cfg.Behavior.Notifications = false
	cfg.Capture.Backend = "command"
	cfg.Capture.Command = []string{"pw-record", "{output}"}

	results, _ := Run(context.Background(), &bytes.Buffer{}, Checks(cfg, fakeDeps("xdotool", "notify-send")))
	got := statuses(results)
	if _, ok := got["keystroke typing"]; ok {
		t.Error("typing checked with auto_type off")
	}
	if _, ok := got["notifications"]; ok {
		t.Error("notifications checked while disabled")
	}

	var detail string
	for _, r := range results {
		if r.Name == "capture backend" {
			detail = r.Detail
		}
	}
	if detail != "/usr/bin/pw-record" {
		t.Errorf("capture backend detail = %q", detail)
	}
}

func TestEngineLoadFailure(t *testing.T) {
	d := fakeDeps()
	d.Engine = func(config.WhisperConfig) (transcriber.Engine, error) {
		f := transcriber.NewFake("", nil)
		f.SetLoadError(errors.New("connection refused"))
		return f, nil
	}
	results, code := Run(context.Background(), &bytes.Buffer{}, Checks(config.Default(), d))
	if code != 1 || statuses(results)["engine server"] != Fail {
		t.Errorf("engine failure not reported: %+v", results)
	}
}

func TestBadHotkeyFails(t *testing.T) {
	cfg := config.Default()
	cfg.Hotkey.Key = "<alt>+<home>"
	results, _ := Run(context.Background(), &bytes.Buffer{}, Checks(cfg, fakeDeps()))
	if statuses(results)["hotkey <alt>+<home>"] != Fail {
		t.Errorf("bad hotkey passed: %+v", results)
	}
}
