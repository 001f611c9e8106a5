package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"dictate/audio"
	"dictate/encoder"
	"dictate/log"
)

// ServerModel maps a faster-whisper model size to the repository name an
// OpenAI-compatible whisper server (speaches, faster-whisper-server)
// expects, unless an explicit override is configured.
func ServerModel(model, override string) string {
	if override != "" {
		return override
	}
	return "Systran/faster-whisper-" + model
}

type ServerConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Upload   string // flac or wav
	Timeout  time.Duration
}

// Server talks to a local model server that keeps the model resident.
type Server struct {
	cfg    ServerConfig
	client openai.Client
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Upload == "" {
		cfg.Upload = "flac"
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// local servers ignore the key but the client insists on one
		apiKey = "dictate"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(newTracedClient(logRequest)),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Server{cfg: cfg, client: openai.NewClient(opts...)}
}

func logRequest(method, path string, status int, m *NetworkMetrics) {
	log.Infof("http %s %s status=%d total=%s ttfb=%s reused=%t",
		method, path, status, m.Total.Round(time.Millisecond), m.TTFB.Round(time.Millisecond), m.ConnReused)
}

func (s *Server) Name() string { return "server" }

// Load checks the server is reachable. An unlisted model is only a warning:
// servers like speaches download models on first use.
func (s *Server) Load(ctx context.Context) error {
	page, err := s.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("model server at %s: %w", s.cfg.BaseURL, err)
	}
	for _, m := range page.Data {
		if m.ID == s.cfg.Model {
			return nil
		}
	}
	log.Warnf("model %s not listed by %s; the server may download it on first use", s.cfg.Model, s.cfg.BaseURL)
	return nil
}

func (s *Server) Transcribe(ctx context.Context, p *audio.Payload) (string, error) {
	enc, err := encoder.Encode(s.cfg.Upload, p)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", s.cfg.Upload, err)
	}
	raw := len(p.Data)
	log.Infof("encoded %d bytes pcm -> %d bytes %s in %s",
		raw, len(enc.Bytes()), s.cfg.Upload, enc.EncodeTime().Round(time.Microsecond))

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(enc.Bytes()), encoder.FileName(s.cfg.Upload), encoder.ContentType(s.cfg.Upload)),
		Model: openai.AudioModel(s.cfg.Model),
	}
	if s.cfg.Language != "" && s.cfg.Language != "auto" {
		params.Language = openai.String(s.cfg.Language)
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
