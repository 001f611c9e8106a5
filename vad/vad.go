// Package vad gates recordings on the WebRTC voice activity detector.
package vad

import (
	"fmt"
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"dictate/audio"
)

const (
	FrameMs  = 20
	Debounce = 3 // consecutive speech frames to confirm voice

	// DefaultMode is less aggressive than the streaming detector would be;
	// a false "no speech" throws a recording away.
	DefaultMode = 1
)

// Processor classifies 20ms frames of mono s16le audio.
type Processor struct {
	vad        *webrtcvad.VAD
	sampleRate int
	frameBytes int

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	speechRun     int
	totalFrames   int
	speechFrames  int
}

func New(sampleRate, mode int) (*Processor, error) {
	switch sampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("vad: unsupported sample rate %d", sampleRate)
	}
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(mode); err != nil {
		return nil, err
	}
	frameBytes := sampleRate * FrameMs / 1000 * audio.BytesPerSample
	return &Processor{vad: v, sampleRate: sampleRate, frameBytes: frameBytes}, nil
}

func (p *Processor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)
	for len(p.buf) >= p.frameBytes {
		frame := p.buf[:p.frameBytes]
		p.buf = p.buf[p.frameBytes:]

		active, err := p.vad.Process(p.sampleRate, frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if active {
			p.speechFrames++
			p.speechRun++
			if p.speechRun >= Debounce {
				p.voiceDetected = true
			}
		} else {
			p.speechRun = 0
		}
	}
}

func (p *Processor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

func (p *Processor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = p.buf[:0]
	p.voiceDetected = false
	p.speechRun = 0
	p.totalFrames = 0
	p.speechFrames = 0
}

// Result summarises one recording.
type Result struct {
	Speech       bool
	TotalFrames  int
	SpeechFrames int
}

func (r Result) Voiced() time.Duration {
	return time.Duration(r.SpeechFrames) * FrameMs * time.Millisecond
}

// Analyze runs the detector over a whole payload, first channel only.
func Analyze(p *audio.Payload, mode int) (Result, error) {
	proc, err := New(p.SampleRate, mode)
	if err != nil {
		return Result{}, err
	}
	data := p.Data
	if p.Channels > 1 {
		mono := p.Mono()
		data = make([]byte, len(mono)*audio.BytesPerSample)
		for i, s := range mono {
			data[2*i] = byte(s)
			data[2*i+1] = byte(uint16(s) >> 8)
		}
	}
	proc.Process(data)
	total, speech := proc.Stats()
	return Result{Speech: proc.VoiceDetected(), TotalFrames: total, SpeechFrames: speech}, nil
}
