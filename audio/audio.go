package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

const (
	WAVHeaderSize  = 44
	BytesPerSample = 2 // s16le
)

// Payload is one recording's raw s16le PCM audio. It is produced by a
// Capturer and consumed exactly once by the transcriber.
type Payload struct {
	Data       []byte
	SampleRate int
	Channels   int
	// Degraded marks audio recovered from a capture process that died or
	// had to be killed; the tail may be missing.
	Degraded bool
}

func NewPayload(data []byte, sampleRate, channels int) *Payload {
	frame := BytesPerSample * channels
	if frame > 0 {
		data = data[:len(data)-len(data)%frame]
	}
	return &Payload{Data: data, SampleRate: sampleRate, Channels: channels}
}

func (p *Payload) Frames() int {
	if p == nil || p.Channels == 0 {
		return 0
	}
	return len(p.Data) / (BytesPerSample * p.Channels)
}

func (p *Payload) Duration() time.Duration {
	if p == nil || p.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(p.Frames()) / float64(p.SampleRate) * float64(time.Second))
}

// Samples decodes the PCM bytes. Multi-channel audio stays interleaved.
func (p *Payload) Samples() []int16 {
	out := make([]int16, len(p.Data)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p.Data[i*BytesPerSample:]))
	}
	return out
}

// Mono returns the first channel only.
func (p *Payload) Mono() []int16 {
	s := p.Samples()
	if p.Channels <= 1 {
		return s
	}
	out := make([]int16, 0, len(s)/p.Channels)
	for i := 0; i < len(s); i += p.Channels {
		out = append(out, s[i])
	}
	return out
}

// LoadFile reads a 16-bit PCM WAV file, or a headerless .pcm/.raw file which
// is assumed to be s16le at the given rate and channel count.
func LoadFile(path string, rawRate, rawChannels int) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".pcm") || strings.HasSuffix(lower, ".raw") {
		return NewPayload(data, rawRate, rawChannels), nil
	}
	return ParseWAV(data)
}

// ParseWAV walks the RIFF chunks of a 16-bit PCM WAV file.
func ParseWAV(data []byte) (*Payload, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	var (
		rate, channels, bits int
		haveFmt              bool
	)
	r := bytes.NewReader(data[12:])
	for {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return nil, errors.New("wav: no data chunk")
		}
		// streaming writers leave 0 or 0xFFFFFFFF as the size placeholder
		size := int64(hdr.Size)
		if string(hdr.ID[:]) == "data" && (hdr.Size == 0 || hdr.Size == math.MaxUint32) {
			size = int64(r.Len())
		}
		body := make([]byte, min(size, int64(r.Len())))
		n, _ := r.Read(body)
		body = body[:n]
		switch string(hdr.ID[:]) {
		case "fmt ":
			if len(body) < 16 {
				return nil, errors.New("wav: short fmt chunk")
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 1 {
				return nil, fmt.Errorf("wav: unsupported format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			rate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, errors.New("wav: data before fmt chunk")
			}
			if bits != 16 {
				return nil, fmt.Errorf("wav: unsupported bit depth %d (want 16)", bits)
			}
			return NewPayload(body, rate, channels), nil
		}
		if hdr.Size%2 == 1 {
			r.ReadByte()
		}
	}
}
