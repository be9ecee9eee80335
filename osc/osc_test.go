package osc

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

func TestSineTuning(t *testing.T) {
	g := newTestGenerator(t)
	for _, freq := range []float64{110, 261.63, 440, 1000} {
		t.Run(fmt.Sprintf("%.2fHz", freq), func(t *testing.T) {
			b, err := g.Sine(freq, time.Second)
			if err != nil {
				t.Fatalf("Sine: %v", err)
			}
			if b.Frames() != 44100 {
				t.Fatalf("expected 44100 frames, got %d", b.Frames())
			}
			got := measureFundamentalFreq(b.Floats(), 44100)
			if math.Abs(got-freq) > 1.0 {
				t.Fatalf("expected %.2f Hz, measured %.2f Hz", freq, got)
			}
		})
	}
}

func TestSineStartsAtZeroPhaseAndIsDeterministic(t *testing.T) {
	g := newTestGenerator(t)
	a, _ := g.Sine(440, 100*time.Millisecond)
	b, _ := g.Sine(440, 100*time.Millisecond)
	if a.Samples()[0] != 0 {
		t.Fatalf("expected first sample at zero phase, got %d", a.Samples()[0])
	}
	if !a.Equal(b) {
		t.Fatalf("sine output differs between calls")
	}
}

func TestDegenerateSweepEqualsSine(t *testing.T) {
	g := newTestGenerator(t)
	for _, freq := range []float64{50, 150, 523.25} {
		sweep, err := g.SweptSine(freq, freq, 250*time.Millisecond)
		if err != nil {
			t.Fatalf("SweptSine: %v", err)
		}
		sine, err := g.Sine(freq, 250*time.Millisecond)
		if err != nil {
			t.Fatalf("Sine: %v", err)
		}
		if !sweep.Equal(sine) {
			t.Fatalf("%.2f Hz: degenerate sweep differs from sine", freq)
		}
	}
}

func TestSweptSineDescends(t *testing.T) {
	g := newTestGenerator(t)
	b, err := g.SweptSine(150, 50, time.Second)
	if err != nil {
		t.Fatalf("SweptSine: %v", err)
	}
	s := b.Floats()
	head := measureFundamentalFreq(s[:4410], 44100)
	tail := measureFundamentalFreq(s[len(s)-4410:], 44100)
	if head < 130 || head > 155 {
		t.Fatalf("expected sweep to start near 150 Hz, measured %.2f", head)
	}
	if tail < 45 || tail > 65 {
		t.Fatalf("expected sweep to end near 50 Hz, measured %.2f", tail)
	}
}

func TestSawtoothRangeAndPitch(t *testing.T) {
	g := newTestGenerator(t)
	b, err := g.Sawtooth(100, time.Second)
	if err != nil {
		t.Fatalf("Sawtooth: %v", err)
	}
	s := b.Floats()
	if s[0] != -1 {
		t.Fatalf("expected sawtooth to start at -1, got %f", s[0])
	}
	for i, v := range s {
		if v < -1 || v >= 1 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
	// A sawtooth crosses zero once upward per cycle and jumps down once.
	got := measureFundamentalFreq(s, 44100)
	if math.Abs(got-100) > 1.5 {
		t.Fatalf("expected 100 Hz, measured %.2f", got)
	}
}

func TestWhiteNoiseSeeded(t *testing.T) {
	f := buffer.DefaultFormat()
	g1, _ := NewSeeded(f, 42)
	g2, _ := NewSeeded(f, 42)
	g3, _ := NewSeeded(f, 43)
	a, _ := g1.WhiteNoise(50 * time.Millisecond)
	b, _ := g2.WhiteNoise(50 * time.Millisecond)
	c, _ := g3.WhiteNoise(50 * time.Millisecond)
	if !a.Equal(b) {
		t.Fatalf("same seed must produce the same noise")
	}
	if a.Equal(c) {
		t.Fatalf("different seeds produced identical noise")
	}
	if a.Peak() == 0 {
		t.Fatalf("noise is silent")
	}
}

func TestVibratoStaysNearCarrier(t *testing.T) {
	g := newTestGenerator(t)
	b, err := g.VibratoSine(440, 0.5, 6, time.Second)
	if err != nil {
		t.Fatalf("VibratoSine: %v", err)
	}
	got := measureFundamentalFreq(b.Floats(), 44100)
	if math.Abs(got-440) > 2 {
		t.Fatalf("expected ~440 Hz, measured %.2f", got)
	}
	if _, err := g.VibratoSine(100, 200, 6, time.Second); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency for excessive depth, got %v", err)
	}
}

func TestGeneratorRejectsBadInput(t *testing.T) {
	g := newTestGenerator(t)
	if _, err := g.Sine(440, 0); !errors.Is(err, buffer.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := g.WhiteNoise(-time.Second); !errors.Is(err, buffer.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := g.Sawtooth(0, time.Second); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
	if _, err := g.SweptSine(150, 30000, time.Second); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency above Nyquist, got %v", err)
	}
}

func TestStereoGeneratorDuplicatesChannels(t *testing.T) {
	f := buffer.DefaultFormat()
	f.Channels = 2
	g, err := NewSeeded(f, 1)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	b, err := g.Sine(440, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Sine: %v", err)
	}
	l, r := b.Channel(0), b.Channel(1)
	for i := range l {
		if l[i] != r[i] {
			t.Fatalf("channels differ at frame %d", i)
		}
	}
}
