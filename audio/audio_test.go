package audio

import (
	"encoding/binary"
	"os"
	"math"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"
)

func wavBytes(pcm []byte, rate, channels int) []byte {
	b := make([]byte, WAVHeaderSize+len(pcm))
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], uint32(36+len(pcm)))
	copy(b[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1)
	binary.LittleEndian.PutUint16(b[22:], uint16(channels))
	binary.LittleEndian.PutUint32(b[24:], uint32(rate))
	binary.LittleEndian.PutUint32(b[28:], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(b[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(b[34:], 16)
	copy(b[36:], "data")
	binary.LittleEndian.PutUint32(b[40:], uint32(len(pcm)))
	copy(b[44:], pcm)
	return b
}

func TestPayloadDuration(t *testing.T) {
	p := NewPayload(make([]byte, 16000), 16000, 1)
	if d := p.Duration(); d != 500*time.Millisecond {
		t.Errorf("Duration = %s, want 500ms", d)
	}
	stereo := NewPayload(make([]byte, 16000), 16000, 2)
	if d := stereo.Duration(); d != 250*time.Millisecond {
		t.Errorf("stereo Duration = %s, want 250ms", d)
	}
	var nilPayload *Payload
	if nilPayload.Duration() != 0 {
		t.Error("nil payload has duration")
	}
}

func TestNewPayloadTrimsPartialFrame(t *testing.T) {
	p := NewPayload(make([]byte, 7), 16000, 2)
	if len(p.Data) != 4 {
		t.Errorf("len(Data) = %d, want 4", len(p.Data))
	}
}

func TestPayloadMono(t *testing.T) {
	data := make([]byte, 8)
	for i, v := range []int16{1, -1, 2, -2} {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	p := NewPayload(data, 16000, 2)
	if got := p.Mono(); !slices.Equal(got, []int16{1, 2}) {
		t.Errorf("Mono = %v, want [1 2]", got)
	}
}

func TestParseWAV(t *testing.T) {
	pcm := make([]byte, 3200)
	p, err := ParseWAV(wavBytes(pcm, 8000, 1))
	if err != nil {
		t.Fatal(err)
	}
	if p.SampleRate != 8000 || p.Channels != 1 || len(p.Data) != 3200 {
		t.Errorf("got rate=%d ch=%d len=%d", p.SampleRate, p.Channels, len(p.Data))
	}
	if _, err := ParseWAV([]byte("not audio at all")); err == nil {
		t.Error("expected error for non-WAV input")
	}
}

func TestParseWAVStreamingSize(t *testing.T) {
	pcm := make([]byte, 32000)
	for _, size := range []uint32{math.MaxUint32, 0, 1 << 30} {
		b := wavBytes(pcm, 16000, 1)
		binary.LittleEndian.PutUint32(b[4:], math.MaxUint32)
		binary.LittleEndian.PutUint32(b[40:], size)

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		p, err := ParseWAV(b)
		runtime.ReadMemStats(&after)
		if err != nil {
			t.Fatalf("size %#x: %v", size, err)
		}
		if p.Frames() != 16000 {
			t.Errorf("size %#x: Frames = %d, want 16000", size, p.Frames())
		}
		if grew := after.TotalAlloc - before.TotalAlloc; grew > 16<<20 {
			t.Errorf("size %#x: allocated %d bytes for a 32KB file", size, grew)
		}
	}
}

func TestLoadFileRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.pcm")
	if err := os.WriteFile(path, make([]byte, 32000), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadFile(path, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Duration() != time.Second {
		t.Errorf("Duration = %s, want 1s", p.Duration())
	}
}

func TestBackendArgv(t *testing.T) {
	argv, err := BackendArgv("parecord", nil, "alsa_input.usb", 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"parecord", "--raw", "--format=s16le", "--rate=16000", "--channels=1",
		"--latency-msec=10", "--device=alsa_input.usb", "{output}"}
	if !slices.Equal(argv, want) {
		t.Errorf("parecord argv = %v", argv)
	}

	argv, err = BackendArgv("command", []string{"rec", "-r", "{rate}", "-c", "{channels}", "{output}"}, "", 48000, 2)
	if err != nil {
		t.Fatal(err)
	}
	want = []string{"rec", "-r", "48000", "-c", "2", "{output}"}
	if !slices.Equal(argv, want) {
		t.Errorf("command argv = %v", argv)
	}

	if _, err := BackendArgv("sox", nil, "", 16000, 1); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := BackendArgv("command", nil, "", 16000, 1); err == nil {
		t.Error("expected error for empty custom command")
	}
}

func TestIsBluetooth(t *testing.T) {
	if !IsBluetooth("bluez_input.AA_BB.headset") {
		t.Error("bluez source not detected")
	}
	if IsBluetooth("alsa_input.pci-0000_00_1f.3.analog-stereo") {
		t.Error("analog source flagged as bluetooth")
	}
}
