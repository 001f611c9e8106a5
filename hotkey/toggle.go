package hotkey

import (
	"context"
	"time"
)

// Toggles turns key presses into toggle events. Presses closer together
// than minGap are dropped as bounce. The channel closes when ctx is done.
func Toggles(ctx context.Context, hk Hotkey, minGap time.Duration) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		var last time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
			}
			now := time.Now()
			if !last.IsZero() && now.Sub(last) < minGap {
				continue
			}
			last = now
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
