package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"dictate/audio"
	"dictate/config"
	"dictate/doctor"
	"dictate/hotkey"
	"dictate/log"
	"dictate/shutdown"
	"dictate/transcriber"
	"dictate/vad"
)

var version = "dev"

var (
	cfgFile     string
	logPath     string
	keyFlag     string
	engineFlag  string
	modelFlag   string
	deviceFlag  string
	computeFlag string
	noType      bool
	noNotify    bool
	soundsFlag  bool
	scriptFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "dictate",
	Short: "Toggle-to-talk voice dictation",
	Long: `dictate listens for a global hotkey. The first press starts recording,
the second stops it, transcribes the audio with a local Whisper engine, and
copies and types the text into the focused window.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if scriptFlag {
			return runScript(cmd.Context(), cfg, os.Stdin)
		}
		return runDaemon(cmd.Context(), cfg)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check capture, engine, clipboard, typing and hotkey setup",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, code := doctor.Run(cmd.Context(), cmd.OutOrStdout(), doctor.Checks(cfg, doctor.Deps{}))
		if press, _ := cmd.Flags().GetBool("press"); press && code == 0 {
			combo, _ := hotkey.ParseCombo(cfg.Hotkey.Key)
			ctx, cancel := shutdown.Context(cmd.Context(), nil)
			ok := doctor.PressTest(ctx, cmd.OutOrStdout(), combo, 10*time.Second)
			cancel()
			if !ok {
				code = 1
			}
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe a WAV or raw PCM file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := audio.LoadFile(args[0], cfg.Capture.SampleRate, cfg.Capture.Channels)
		if err != nil {
			return err
		}
		engine, err := transcriber.New(cfg.Whisper, cfg.Capture.TempDir)
		if err != nil {
			return err
		}
		client := transcriber.NewClient(engine, transcriber.Options{
			MinDuration: cfg.Capture.MinDuration.Duration,
			SpeechGate:  cfg.Whisper.SpeechGate,
			VADMode:     vad.DefaultMode,
			Timeout:     cfg.Whisper.Timeout.Duration,
		})
		text, err := client.Transcribe(cmd.Context(), p)
		switch {
		case errors.Is(err, transcriber.ErrTooShort):
			return fmt.Errorf("%s: audio shorter than %s", args[0], cfg.Capture.MinDuration.Duration)
		case errors.Is(err, transcriber.ErrNoSpeech):
			return fmt.Errorf("%s: no speech detected", args[0])
		case err != nil:
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture sources, or pick one interactively",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sources, err := audio.ListSources()
		if err != nil {
			return err
		}
		if pick, _ := cmd.Flags().GetBool("select"); !pick {
			for _, s := range sources {
				mark := " "
				if s.Default {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", mark, s.ID, s.Name)
			}
			return nil
		}
		src, err := audio.SelectSource(sources)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Add to the [capture] section of your config:\n  source = %q\n", src.ID)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.ResolvePath(cfgFile)
		if err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dictate %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dictate/config.toml)")
	pf.StringVar(&logPath, "logpath", "", "log directory (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&keyFlag, "key", "", "hotkey, e.g. <alt>+o or <ctrl>+<shift>+d")
	pf.StringVar(&engineFlag, "engine", "", "transcription engine: server, ctranslate2 or fake")
	pf.StringVar(&modelFlag, "model", "", "whisper model: tiny.en, base.en, small.en, medium.en, large-v3")
	pf.StringVar(&deviceFlag, "device", "", "compute device: cpu or cuda")
	pf.StringVar(&computeFlag, "compute-type", "", "compute precision, e.g. int8 or float16")
	pf.BoolVar(&noType, "no-type", false, "copy to the clipboard only, do not type")
	pf.BoolVar(&noNotify, "no-notify", false, "disable desktop notifications")
	pf.BoolVar(&soundsFlag, "sounds", false, "play audio cues on start and stop")

	rootCmd.Flags().BoolVar(&scriptFlag, "test", false, "headless mode driven by commands on stdin")
	rootCmd.Flags().MarkHidden("test")

	doctorCmd.Flags().Bool("press", false, "also wait for the hotkey to be pressed")
	devicesCmd.Flags().Bool("select", false, "pick a source interactively")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(doctorCmd, transcribeCmd, devicesCmd, configCmd, versionCmd)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (config.Config, error) {
	path, err := config.ResolvePath(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Hotkey.Key, keyFlag)
	set(&cfg.Whisper.Engine, engineFlag)
	set(&cfg.Whisper.Model, modelFlag)
	set(&cfg.Whisper.Device, deviceFlag)
	set(&cfg.Whisper.ComputeType, computeFlag)
	set(&cfg.Log.Dir, logPath)
	if noType {
		cfg.Behavior.AutoType = false
	}
	if noNotify {
		cfg.Behavior.Notifications = false
	}
	if soundsFlag {
		cfg.Behavior.Sounds = true
	}
}

func setupLogging(cfg config.Config) error {
	dir, err := log.ResolveDir(cfg.Log.Dir)
	if err != nil {
		return fmt.Errorf("resolving log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := log.Init(log.Options{Console: cfg.Log.Console}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	return nil
}

func lastRecordingPath(cfg config.Config) string {
	if !cfg.Behavior.KeepLastRecording {
		return ""
	}
	dir, err := config.CacheDir()
	if err != nil {
		log.Warnf("keep_last_recording disabled: %v", err)
		return ""
	}
	return filepath.Join(dir, "last_recording.wav")
}

func execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
