package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"dictate/audio"
	"dictate/encoder"
)

// CTranslate2 runs the whisper-ctranslate2 CLI (faster-whisper) once per
// recording. The model is loaded per call, so this engine is slower to
// respond than Server but needs no daemon.
type CTranslate2 struct {
	Binary      string
	Model       string
	Device      string
	ComputeType string
	Language    string
	BeamSize    int
	VADFilter   bool
	TempDir     string
}

func (c *CTranslate2) Name() string { return "ctranslate2" }

func (c *CTranslate2) Load(context.Context) error {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return fmt.Errorf("%s not found: %w", c.Binary, err)
	}
	return nil
}

func (c *CTranslate2) args(input, outDir string) []string {
	args := []string{input,
		"--model", c.Model,
		"--device", c.Device,
		"--compute_type", c.ComputeType,
		"--beam_size", strconv.Itoa(c.BeamSize),
		"--vad_filter", pyBool(c.VADFilter),
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	if c.Language != "" && c.Language != "auto" {
		args = append(args, "--language", c.Language)
	}
	return args
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func (c *CTranslate2) Transcribe(ctx context.Context, p *audio.Payload) (string, error) {
	dir, err := os.MkdirTemp(c.TempDir, "dictate-ct2-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "recording.wav")
	if err := encoder.SaveWAV(input, p); err != nil {
		return "", err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Binary, c.args(input, dir)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		if msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.Binary, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.Binary, err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "recording.txt"))
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(out), nil
}
