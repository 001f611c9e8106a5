package doctor

import (
	"os"

	"golang.org/x/term"
)

// saveTerminal snapshots stdin's terminal mode. The returned func puts it
// back; evdev grabs on some setups leave the tty with echo off.
func saveTerminal() func() {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.GetState(fd)
	if err != nil {
		return func() {}
	}
	return func() { term.Restore(fd, state) }
}
