// Package config loads the dictate TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from TOML strings like "300ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Whisper  WhisperConfig  `toml:"whisper"`
	Hotkey   HotkeyConfig   `toml:"hotkey"`
	Capture  CaptureConfig  `toml:"capture"`
	Behavior BehaviorConfig `toml:"behavior"`
	Log      LogConfig      `toml:"log"`
}

type WhisperConfig struct {
	Engine      string   `toml:"engine"`
	Model       string   `toml:"model"`
	Device      string   `toml:"device"`
	ComputeType string   `toml:"compute_type"`
	Language    string   `toml:"language"`
	BeamSize    int      `toml:"beam_size"`
	VADFilter   bool     `toml:"vad_filter"`
	SpeechGate  bool     `toml:"speech_gate"`
	ServerURL   string   `toml:"server_url"`
	ServerModel string   `toml:"server_model"`
	APIKey      string   `toml:"api_key"`
	Upload      string   `toml:"upload_format"`
	Binary      string   `toml:"binary"`
	Timeout     Duration `toml:"timeout"`
}

type HotkeyConfig struct {
	Key string `toml:"key"`
}

type CaptureConfig struct {
	Backend     string   `toml:"backend"`
	Command     []string `toml:"command"`
	Source      string   `toml:"source"`
	SampleRate  int      `toml:"sample_rate"`
	Channels    int      `toml:"channels"`
	MinDuration Duration `toml:"min_duration"`
	StartGrace  Duration `toml:"start_grace"`
	StopTimeout Duration `toml:"stop_timeout"`
	TempDir     string   `toml:"temp_dir"`
}

type BehaviorConfig struct {
	Clipboard         bool     `toml:"clipboard"`
	AutoType          bool     `toml:"auto_type"`
	TypeMethod        string   `toml:"type_method"`
	Notifications     bool     `toml:"notifications"`
	Sounds            bool     `toml:"sounds"`
	KeepLastRecording bool     `toml:"keep_last_recording"`
	CommandTimeout    Duration `toml:"command_timeout"`
}

type LogConfig struct {
	Dir     string `toml:"dir"`
	Console bool   `toml:"console"`
}

var (
	Engines      = []string{"server", "ctranslate2", "fake"}
	Models       = []string{"tiny.en", "base.en", "small.en", "medium.en", "large-v3"}
	Devices      = []string{"cpu", "cuda"}
	ComputeTypes = []string{"int8", "int8_float16", "int8_float32", "int8_bfloat16", "int16", "float16", "bfloat16", "float32", "default", "auto"}
	Backends     = []string{"parecord", "arecord", "ffmpeg", "command"}
	TypeMethods  = []string{"xdotool", "wtype", "uinput", "paste"}
	Uploads      = []string{"flac", "wav"}
)

func Default() Config {
	return Config{
		Whisper: WhisperConfig{
			Engine:      "server",
			Model:       "base.en",
			Device:      "cpu",
			ComputeType: "int8",
			Language:    "en",
			BeamSize:    5,
			VADFilter:   true,
			SpeechGate:  true,
			ServerURL:   "http://127.0.0.1:8000/v1",
			Upload:      "flac",
			Binary:      "whisper-ctranslate2",
			Timeout:     Duration{2 * time.Minute},
		},
		Hotkey: HotkeyConfig{
			Key: "<alt>+o",
		},
		Capture: CaptureConfig{
			Backend:     "parecord",
			SampleRate:  16000,
			Channels:    1,
			MinDuration: Duration{300 * time.Millisecond},
			StartGrace:  Duration{150 * time.Millisecond},
			StopTimeout: Duration{2 * time.Second},
		},
		Behavior: BehaviorConfig{
			Clipboard:      true,
			AutoType:       true,
			TypeMethod:     "xdotool",
			Notifications:  true,
			CommandTimeout: Duration{5 * time.Second},
		},
		Log: LogConfig{
			Console: true,
		},
	}
}

// ResolvePath picks the config file: flag, then DICTATE_CONFIG, then the
// XDG config directory.
func ResolvePath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if env := os.Getenv("DICTATE_CONFIG"); env != "" {
		return env, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "dictate", "config.toml"), nil
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid %s %q (allowed: %s)", field, value, strings.Join(allowed, ", "))
}

func (c *Config) Validate() error {
	w := c.Whisper
	if err := oneOf("whisper.engine", w.Engine, Engines); err != nil {
		return err
	}
	if err := oneOf("whisper.model", w.Model, Models); err != nil {
		return err
	}
	if err := oneOf("whisper.device", w.Device, Devices); err != nil {
		return err
	}
	if err := oneOf("whisper.compute_type", w.ComputeType, ComputeTypes); err != nil {
		return err
	}
	if err := oneOf("whisper.upload_format", w.Upload, Uploads); err != nil {
		return err
	}
	if w.BeamSize < 1 {
		return fmt.Errorf("invalid whisper.beam_size %d (must be >= 1)", w.BeamSize)
	}
	if w.Engine == "server" && w.ServerURL == "" {
		return errors.New("whisper.server_url is required for the server engine")
	}
	if w.Timeout.Duration <= 0 {
		return fmt.Errorf("invalid whisper.timeout %s", w.Timeout.Duration)
	}

	if strings.TrimSpace(c.Hotkey.Key) == "" {
		return errors.New("hotkey.key is empty")
	}

	cp := c.Capture
	if err := oneOf("capture.backend", cp.Backend, Backends); err != nil {
		return err
	}
	if cp.Backend == "command" && len(cp.Command) == 0 {
		return errors.New("capture.command is required for the command backend")
	}
	if cp.SampleRate <= 0 {
		return fmt.Errorf("invalid capture.sample_rate %d (must be > 0)", cp.SampleRate)
	}
	if cp.Channels < 1 || cp.Channels > 2 {
		return fmt.Errorf("invalid capture.channels %d (allowed 1..2)", cp.Channels)
	}
	if cp.MinDuration.Duration < 0 {
		return fmt.Errorf("invalid capture.min_duration %s", cp.MinDuration.Duration)
	}
	if cp.StopTimeout.Duration <= 0 {
		return fmt.Errorf("invalid capture.stop_timeout %s", cp.StopTimeout.Duration)
	}

	b := c.Behavior
	if err := oneOf("behavior.type_method", b.TypeMethod, TypeMethods); err != nil {
		return err
	}
	if b.CommandTimeout.Duration <= 0 {
		return fmt.Errorf("invalid behavior.command_timeout %s", b.CommandTimeout.Duration)
	}
	return nil
}

// CacheDir is where the last recording is kept when enabled.
func CacheDir() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = base
	}
	return filepath.Join(dir, "dictate"), nil
}
