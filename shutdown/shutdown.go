// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context returns a child of parent that is cancelled on the first
// termination signal. onSignal, if set, runs before the cancel.
func Context(parent context.Context, onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		defer signal.Stop(ch)
		select {
		case s := <-ch:
			if onSignal != nil {
				onSignal(s)
			}
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
