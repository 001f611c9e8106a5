// Package beep plays short audio cues when recording starts, stops or fails.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

type Cue int

const (
	Start Cue = iota
	Stop
	Error
)

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Stop: medium pitch, slightly longer
	stopFreq   = 900
	stopVolume = 0.5
	stopDecay  = 40

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

var (
	enabled atomic.Bool

	cues     map[Cue][]int16
	cuesOnce sync.Once
)

// Enable turns cues on or off. They are off until enabled.
func Enable(on bool) { enabled.Store(on) }

func Enabled() bool { return enabled.Load() }

func initCues() {
	// the pulse sink needs ~200ms of tail to flush its buffer
	cues = map[Cue][]int16{
		Start: Tick(sampleRate, startFreq, 0.2, startVolume, startDecay),
		Stop:  Tick(sampleRate, stopFreq, 0.2, stopVolume, stopDecay),
		Error: DoubleTick(sampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}
}

// Tick is a mono sine tone with an exponential decay envelope.
func Tick(rate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(rate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(rate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func DoubleTick(rate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	tick := Tick(rate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(rate)*gapDur))
	out := make([]int16, 0, len(tick)*2+len(gap))
	out = append(out, tick...)
	out = append(out, gap...)
	out = append(out, tick...)
	return out
}

// Init builds the cue samples and opens the output device ahead of the
// first cue.
func Init() {
	cuesOnce.Do(initCues)
	initOutput()
}

// Play starts c in the background and returns immediately.
func Play(c Cue) {
	if !enabled.Load() {
		return
	}
	cuesOnce.Do(initCues)
	go play(cues[c])
}
