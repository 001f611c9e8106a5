//go:build unix

package transcriber

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeCT2 mimics whisper-ctranslate2: it records its argv and writes a
// transcript next to the input in --output_dir.
const fakeCT2 = `#!/bin/sh
in="$1"
printf '%s\n' "$@" > "$ARGS_FILE"
shift
while [ $# -gt 0 ]; do
	case "$1" in
	--output_dir) out="$2"; shift ;;
	esac
	shift
done
base=$(basename "$in" .wav)
printf ' hello\n world\n' > "$out/$base.txt"
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whisper-ctranslate2")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCTranslate2Transcribe(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("ARGS_FILE", argsFile)

	tmp := t.TempDir()
	e := &CTranslate2{
		Binary:      writeScript(t, fakeCT2),
		Model:       "small.en",
		Device:      "cuda",
		ComputeType: "float16",
		Language:    "en",
		BeamSize:    5,
		VADFilter:   true,
		TempDir:     tmp,
	}
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	c := NewClient(e, Options{MinDuration: 300 * time.Millisecond})
	text, err := c.Transcribe(context.Background(), silence(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(raw)
	for _, want := range []string{"--model\nsmall.en", "--device\ncuda", "--compute_type\nfloat16", "--vad_filter\nTrue", "--language\nen"} {
		if !strings.Contains(args, want) {
			t.Errorf("argv missing %q:\n%s", want, args)
		}
	}

	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned: %d entries", len(entries))
	}
}

func TestCTranslate2Failure(t *testing.T) {
	e := &CTranslate2{
		Binary:   writeScript(t, "#!/bin/sh\necho 'RuntimeError: CUDA failed' >&2\nexit 1\n"),
		Model:    "base.en",
		BeamSize: 5,
		TempDir:  t.TempDir(),
	}
	_, err := e.Transcribe(context.Background(), silence(time.Second))
	if err == nil || !strings.Contains(err.Error(), "CUDA failed") {
		t.Errorf("error = %v, want stderr in message", err)
	}
}

func TestCTranslate2MissingBinary(t *testing.T) {
	e := &CTranslate2{Binary: "dictate-no-such-whisper"}
	if err := e.Load(context.Background()); err == nil {
		t.Error("expected error for missing binary")
	}
}
