package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Hotkey.Key != "<alt>+o" {
		t.Errorf("Hotkey.Key = %q, want <alt>+o", cfg.Hotkey.Key)
	}
	if cfg.Capture.MinDuration.Duration != 300*time.Millisecond {
		t.Errorf("MinDuration = %v, want 300ms", cfg.Capture.MinDuration.Duration)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Whisper.Model != "base.en" {
		t.Errorf("Model = %q, want base.en", cfg.Whisper.Model)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[whisper]
model = "small.en"
device = "cuda"
compute_type = "float16"

[hotkey]
key = "<ctrl>+<shift>+d"

[capture]
min_duration = "500ms"

[behavior]
auto_type = false
notifications = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Whisper.Model != "small.en" || cfg.Whisper.Device != "cuda" || cfg.Whisper.ComputeType != "float16" {
		t.Errorf("whisper section not applied: %+v", cfg.Whisper)
	}
	if cfg.Hotkey.Key != "<ctrl>+<shift>+d" {
		t.Errorf("Key = %q", cfg.Hotkey.Key)
	}
	if cfg.Capture.MinDuration.Duration != 500*time.Millisecond {
		t.Errorf("MinDuration = %v", cfg.Capture.MinDuration.Duration)
	}
	if cfg.Behavior.AutoType || cfg.Behavior.Notifications {
		t.Errorf("behavior section not applied: %+v", cfg.Behavior)
	}
	// untouched keys keep defaults
	if !cfg.Behavior.Clipboard {
		t.Error("Clipboard default lost")
	}
	if cfg.Whisper.BeamSize != 5 {
		t.Errorf("BeamSize = %d, want 5", cfg.Whisper.BeamSize)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, "[whisper]\nmodle = \"base.en\"\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "modle") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, "[capture]\nmin_duration = \"soon\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"model", func(c *Config) { c.Whisper.Model = "huge" }, "whisper.model"},
		{"device", func(c *Config) { c.Whisper.Device = "tpu" }, "whisper.device"},
		{"compute", func(c *Config) { c.Whisper.ComputeType = "int4" }, "whisper.compute_type"},
		{"engine", func(c *Config) { c.Whisper.Engine = "cloud" }, "whisper.engine"},
		{"beam", func(c *Config) { c.Whisper.BeamSize = 0 }, "beam_size"},
		{"server url", func(c *Config) { c.Whisper.ServerURL = "" }, "server_url"},
		{"key", func(c *Config) { c.Hotkey.Key = " " }, "hotkey.key"},
		{"backend", func(c *Config) { c.Capture.Backend = "sox" }, "capture.backend"},
		{"command", func(c *Config) { c.Capture.Backend = "command" }, "capture.command"},
		{"channels", func(c *Config) { c.Capture.Channels = 6 }, "capture.channels"},
		{"type method", func(c *Config) { c.Behavior.TypeMethod = "ydotool" }, "behavior.type_method"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	if got, _ := ResolvePath("/etc/x.toml"); got != "/etc/x.toml" {
		t.Errorf("flag path not preferred: %q", got)
	}
	t.Setenv("DICTATE_CONFIG", "/tmp/env.toml")
	if got, _ := ResolvePath(""); got != "/tmp/env.toml" {
		t.Errorf("env path not used: %q", got)
	}
	t.Setenv("DICTATE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got, _ := ResolvePath(""); got != "/tmp/xdg/dictate/config.toml" {
		t.Errorf("xdg path = %q", got)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Whisper.Timeout.Duration != 2*time.Minute {
		t.Errorf("Timeout = %v", cfg.Whisper.Timeout.Duration)
	}
	if err := WriteDefault(path); err == nil {
		t.Error("expected refusal to overwrite")
	}
}
