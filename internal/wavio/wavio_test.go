package wavio

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/osc"
)

func TestWriteReadRoundTrip(t *testing.T) {
	g, err := osc.NewSeeded(buffer.DefaultFormat(), 1)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	tone, err := g.Sine(440, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	tone = tone.Gain(-6).ToStereo()

	path := filepath.Join(t.TempDir(), "out", "tone.wav")
	if err := WriteBuffer(path, tone); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Format() != tone.Format() {
		t.Fatalf("format mismatch: got %v want %v", got.Format(), tone.Format())
	}
	if got.Frames() != tone.Frames() {
		t.Fatalf("frame count mismatch: got %d want %d", got.Frames(), tone.Frames())
	}
	a, b := tone.Samples(), got.Samples()
	for i := range a {
		if d := a[i] - b[i]; d < -4 || d > 4 {
			t.Fatalf("sample %d: wrote %d read %d", i, a[i], b[i])
		}
	}
}

func TestReadVoiceConverts(t *testing.T) {
	src := buffer.Format{SampleRate: 22050, Channels: 2, BitDepth: 16}
	g, err := osc.NewSeeded(src, 1)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	hit, err := g.Sine(220, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	path := filepath.Join(t.TempDir(), "hit.wav")
	if err := WriteBuffer(path, hit); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}

	want := buffer.DefaultFormat()
	voice, err := ReadVoice(path, want)
	if err != nil {
		t.Fatalf("ReadVoice: %v", err)
	}
	if voice.Format() != want {
		t.Fatalf("expected %v, got %v", want, voice.Format())
	}
	if d := math.Abs(voice.Duration().Seconds() - 0.2); d > 0.01 {
		t.Fatalf("expected ~200ms after resampling, got %v", voice.Duration())
	}
	if voice.Peak() == 0 {
		t.Fatalf("converted voice is silent")
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := ReadVoice("x.wav", buffer.Format{}); err == nil {
		t.Fatalf("expected error for invalid target format")
	}
}
