package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"dictate/config"
	"dictate/dictation"
	"dictate/log"
	"dictate/shutdown"
)

// runScript drives the controller from text commands instead of a hotkey,
// for integration tests:
//
//	TOGGLE     one hotkey press
//	SLEEP n    wait n milliseconds
//	WAIT       wait until the controller is idle again
//	QUIT       stop
func runScript(ctx context.Context, cfg config.Config, in io.Reader) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer log.Close()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.capturer.Close()

	ctx, cancel := shutdown.Context(ctx, logSignal)
	defer cancel()

	log.SessionStart(a.client.Name(), cfg.Whisper.Model, cfg.Whisper.Device, cfg.Whisper.ComputeType, cfg.Hotkey.Key)
	a.client.Load(ctx)

	runErr := make(chan error, 1)
	go func() { runErr <- a.ctrl.Run(ctx, nil) }()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
		case "TOGGLE":
			a.ctrl.Toggle()
		case "SLEEP":
			ms, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("bad SLEEP argument %q", arg)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
		case "WAIT":
			waitIdle(ctx, a.ctrl)
		case "QUIT":
			cancel()
		default:
			return fmt.Errorf("unknown command %q", line)
		}
		if ctx.Err() != nil {
			break
		}
	}
	cancel()
	err = <-runErr
	log.SessionEnd(a.ctrl.Sessions())
	return err
}

func waitIdle(ctx context.Context, c *dictation.Controller) {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for c.State() != dictation.Idle {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
