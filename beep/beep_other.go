//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"dictate/log"
)

var (
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	outputOnce sync.Once

	// accessed from the device callback
	playing atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initOutput() {
	outputOnce.Do(func() {
		var err error
		malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			log.Warnf("audio output init: %v", err)
			return
		}
		if err := initDevice(); err != nil {
			log.Warnf("audio output device: %v", err)
			malgoCtx.Uninit()
			malgoCtx = nil
		}
	})
}

func dataCallback(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	samples := playing.Load()
	var n uint32
	if samples != nil {
		pos := playPos.Load()
		n = min(want, uint32(len(*samples))-pos)
		copy(out[:n], (*samples)[pos:pos+n])
		playPos.Store(pos + n)
		if pos+n >= uint32(len(*samples)) {
			playing.Store(nil)
		}
	}
	clear(out[n:want])
}

func pcmBytes(mono []int16) []byte {
	buf := make([]byte, len(mono)*2)
	for i, s := range mono {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func play(mono []int16) {
	initOutput()
	if malgoCtx == nil || len(mono) == 0 {
		return
	}
	samples := pcmBytes(mono)

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}
	device.Stop()
	playPos.Store(0)
	playing.Store(&samples)

	if err := device.Start(); err != nil {
		// recreate after sleep/wake
		device.Uninit()
		if err := initDevice(); err != nil {
			playing.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playing.Store(nil)
		}
	}
}
