package encoder

import (
	"fmt"
	"time"

	"dictate/audio"
)

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

// Encoder turns mono 16-bit PCM blocks into an upload-ready file.
type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

func New(format string, sampleRate int) (Encoder, error) {
	switch format {
	case "flac":
		return NewFlac(sampleRate)
	case "wav":
		return NewWav(sampleRate), nil
	}
	return nil, fmt.Errorf("unknown upload format %q", format)
}

// ContentType and FileName describe the encoded file for multipart upload.
func ContentType(format string) string {
	if format == "flac" {
		return "audio/flac"
	}
	return "audio/wav"
}

func FileName(format string) string {
	return "audio." + format
}

// Encode downmixes p to mono and encodes it in BlockSize blocks.
func Encode(format string, p *audio.Payload) (Encoder, error) {
	enc, err := New(format, p.SampleRate)
	if err != nil {
		return nil, err
	}
	samples := p.Mono()
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		start := time.Now()
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
		enc.AddEncodeTime(time.Since(start))
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc, nil
}
