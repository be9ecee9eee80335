package reverb

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

func TestImpulseShapeAndDeterminism(t *testing.T) {
	f := buffer.Format{SampleRate: 32000, Channels: 2, BitDepth: 16}
	cfg := DefaultConfig()
	cfg.Seed = 42
	a, err := Impulse(f, cfg)
	if err != nil {
		t.Fatalf("Impulse: %v", err)
	}
	if len(a) != 2 || len(a[0]) != int(0.6*32000) {
		t.Fatalf("unexpected IR shape: %d channels, %d frames", len(a), len(a[0]))
	}
	if p := math.Max(maxAbs(a[0]), maxAbs(a[1])); math.Abs(p-1) > 1e-9 {
		t.Fatalf("expected unit peak, got %f", p)
	}
	b, _ := Impulse(f, cfg)
	for c := range a {
		for i := range a[c] {
			if a[c][i] != b[c][i] {
				t.Fatalf("IR differs for the same seed at ch %d frame %d", c, i)
			}
		}
	}
	head := rms(a[0][:3200])
	tail := rms(a[0][len(a[0])-3200:])
	if tail >= head {
		t.Fatalf("expected a decaying tail: head %.4f tail %.4f", head, tail)
	}

	mono, _ := Impulse(buffer.DefaultFormat(), cfg)
	if len(mono) != 1 {
		t.Fatalf("expected one channel for mono, got %d", len(mono))
	}
}

func TestApplyKeepsLengthAndAddsTail(t *testing.T) {
	f := buffer.DefaultFormat()
	// A short burst followed by silence.
	data := make([]int, 8820)
	for i := 0; i < 441; i++ {
		data[i] = 16000
		if i%2 == 1 {
			data[i] = -16000
		}
	}
	b, _ := buffer.New(f, data)
	out, err := Apply(b, DefaultConfig())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Frames() != b.Frames() {
		t.Fatalf("reverb must keep the voice length")
	}
	tail, _ := out.Slice(2000, 8820)
	if tail.Peak() == 0 {
		t.Fatalf("expected a reverb tail after the burst")
	}

	dry := DefaultConfig()
	dry.Wet = 0
	same, err := Apply(b, dry)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !same.Equal(b) {
		t.Fatalf("wet=0 must leave the voice unchanged")
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Duration = 0 },
		func(c *Config) { c.Wet = 1.5 },
		func(c *Config) { c.Brightness = 0 },
		func(c *Config) { c.LowDecay = 0 },
		func(c *Config) { c.EarlyCount = -1 },
	}
	for i, mod := range bad {
		cfg := DefaultConfig()
		mod(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
	cfg := DefaultConfig()
	cfg.Duration = time.Millisecond
	if err := cfg.Validate(); err != nil {
		t.Fatalf("short IR should be valid: %v", err)
	}
}

func TestConvolveMatchesDirect(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	h := []float64{0.5, -0.25, 0.125}
	got, err := convolve(x, h)
	if err != nil {
		t.Fatalf("convolve: %v", err)
	}
	if len(got) != len(x)+len(h)-1 {
		t.Fatalf("unexpected length %d", len(got))
	}
	for n := range got {
		var want float64
		for k := range h {
			if i := n - k; i >= 0 && i < len(x) {
				want += x[i] * h[k]
			}
		}
		if math.Abs(got[n]-want) > 1e-4 {
			t.Fatalf("mismatch at %d: got %f want %f", n, got[n], want)
		}
	}
}
