package audio

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Source is a capture device known to the sound server.
type Source struct {
	ID      string
	Name    string
	Default bool
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bluez") || strings.Contains(lower, "bluetooth")
}

// BackendArgv builds the capture command line for a named backend. The
// "command" backend takes custom argv verbatim, with {rate}, {channels} and
// {source} substituted; {output} is left for the Capturer.
func BackendArgv(backend string, custom []string, source string, rate, channels int) ([]string, error) {
	r := strconv.Itoa(rate)
	ch := strconv.Itoa(channels)

	switch backend {
	case "parecord":
		argv := []string{"parecord", "--raw", "--format=s16le",
			"--rate=" + r, "--channels=" + ch, "--latency-msec=10"}
		if source != "" {
			argv = append(argv, "--device="+source)
		}
		return append(argv, "{output}"), nil
	case "arecord":
		argv := []string{"arecord", "-q", "-t", "raw", "-f", "S16_LE", "-r", r, "-c", ch}
		if source != "" {
			argv = append(argv, "-D", source)
		}
		return append(argv, "{output}"), nil
	case "ffmpeg":
		in := source
		if in == "" {
			in = "default"
		}
		return []string{"ffmpeg", "-hide_banner", "-loglevel", "error", "-nostdin",
			"-f", "pulse", "-i", in, "-ac", ch, "-ar", r, "-f", "s16le", "-y", "{output}"}, nil
	case "command":
		if len(custom) == 0 {
			return nil, fmt.Errorf("command backend needs an argv")
		}
		rep := strings.NewReplacer("{rate}", r, "{channels}", ch, "{source}", source)
		argv := make([]string, len(custom))
		for i, a := range custom {
			argv[i] = rep.Replace(a)
		}
		return argv, nil
	}
	return nil, fmt.Errorf("unknown capture backend %q", backend)
}

// SelectSource presents an interactive picker on the terminal. With a
// single source it returns that source without prompting.
func SelectSource(sources []Source) (*Source, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no capture sources found")
	}
	if len(sources) == 1 {
		return &sources[0], nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	for i, s := range sources {
		if s.Default {
			cursor = i
		}
	}
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select capture source (↑/↓, Enter to confirm):\r\n\r\n")
		for i, s := range sources {
			tag := ""
			if IsBluetooth(s.Name) {
				tag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", s.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", s.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		if n == 1 {
			switch buf[0] {
			case 13: // Enter
				fmt.Print("\r\n")
				return &sources[cursor], nil
			case 3, 'q': // Ctrl+C
				fmt.Print("\r\n")
				return nil, fmt.Errorf("cancelled")
			case 'j':
				if cursor < len(sources)-1 {
					cursor++
				}
			case 'k':
				if cursor > 0 {
					cursor--
				}
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				if cursor > 0 {
					cursor--
				}
			case 'B':
				if cursor < len(sources)-1 {
					cursor++
				}
			}
		}
		fmt.Printf("\x1b[%dA", len(sources)+2)
		render()
	}
}
