package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dictate/audio"
	"dictate/beep"
	"dictate/clipboard"
	"dictate/config"
	"dictate/dictation"
	"dictate/hotkey"
	"dictate/log"
	"dictate/notify"
	"dictate/output"
	"dictate/shutdown"
	"dictate/transcriber"
	"dictate/vad"
)

// app is the wired controller plus the pieces that need cleanup.
type app struct {
	ctrl     *dictation.Controller
	capturer *audio.Capturer
	client   *transcriber.Client
}

func newApp(cfg config.Config) (*app, error) {
	combo, err := hotkey.ParseCombo(cfg.Hotkey.Key)
	if err != nil {
		return nil, err
	}

	argv, err := audio.BackendArgv(cfg.Capture.Backend, cfg.Capture.Command, cfg.Capture.Source,
		cfg.Capture.SampleRate, cfg.Capture.Channels)
	if err != nil {
		return nil, err
	}
	capturer := audio.NewCapturer(audio.CaptureConfig{
		Argv:        argv,
		SampleRate:  cfg.Capture.SampleRate,
		Channels:    cfg.Capture.Channels,
		TempDir:     cfg.Capture.TempDir,
		StartGrace:  cfg.Capture.StartGrace.Duration,
		StopTimeout: cfg.Capture.StopTimeout.Duration,
	})

	engine, err := transcriber.New(cfg.Whisper, cfg.Capture.TempDir)
	if err != nil {
		return nil, err
	}
	client := transcriber.NewClient(engine, transcriber.Options{
		MinDuration: cfg.Capture.MinDuration.Duration,
		SpeechGate:  cfg.Whisper.SpeechGate,
		VADMode:     vad.DefaultMode,
		Timeout:     cfg.Whisper.Timeout.Duration,
	})

	timeout := cfg.Behavior.CommandTimeout.Duration
	notifier := notify.New(cfg.Behavior.Notifications, clipboard.ExecRunner, timeout)
	typer := clipboard.NewTyper(cfg.Behavior.TypeMethod, timeout)
	dispatcher := output.NewDispatcher(output.Options{
		Clipboard: cfg.Behavior.Clipboard,
		Keystroke: cfg.Behavior.AutoType,
		Timeout:   timeout,
	}, clipboard.Copy, typer.Type, notifier)

	beep.Enable(cfg.Behavior.Sounds)
	ctrl := dictation.New(capturer, client, dispatcher, notifier, dictation.Options{
		MinDuration: cfg.Capture.MinDuration.Duration,
		HotkeyLabel: combo.String(),
		KeepLast:    lastRecordingPath(cfg),
		Hooks: dictation.Hooks{
			OnStart: func() { beep.Play(beep.Start) },
			OnStop:  func() { beep.Play(beep.Stop) },
			OnError: func() { beep.Play(beep.Error) },
		},
	})
	return &app{ctrl: ctrl, capturer: capturer, client: client}, nil
}

func logSignal(s os.Signal) {
	log.Infof("received %s, shutting down", s)
}

func runDaemon(ctx context.Context, cfg config.Config) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.capturer.Close()

	combo, _ := hotkey.ParseCombo(cfg.Hotkey.Key)
	hk, err := hotkey.New(combo)
	if err != nil {
		return err
	}
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		return fmt.Errorf("registering hotkey %s: %w", combo, err)
	}
	defer hk.Unregister()

	ctx, cancel := shutdown.Context(ctx, logSignal)
	defer cancel()

	log.SessionStart(a.client.Name(), cfg.Whisper.Model, cfg.Whisper.Device, cfg.Whisper.ComputeType, combo.String())
	a.client.Load(ctx)
	if cfg.Behavior.Sounds {
		go beep.Init()
	}

	fmt.Fprintf(os.Stderr, "dictate %s ready: press %s to start and stop recording\n", version, combo)
	err = a.ctrl.Run(ctx, hotkey.Toggles(ctx, hk, 200*time.Millisecond))
	log.SessionEnd(a.ctrl.Sessions())
	return err
}
