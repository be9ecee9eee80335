// Package reverb synthesizes short room impulse responses and convolves voices
// with them.
package reverb

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-dub/buffer"
)

// ErrInvalidConfig reports reverb settings that cannot be rendered.
var ErrInvalidConfig = errors.New("invalid reverb config")

// Config controls the impulse response and the wet/dry balance.
type Config struct {
	Duration    time.Duration
	Seed        int64
	EarlyCount  int
	LateLevel   float64
	StereoWidth float64
	Brightness  float64
	LowDecay    time.Duration
	HighDecay   time.Duration
	FadeOut     time.Duration // cosine fade at the end of the IR; 0 = none

	// Wet is the share of the convolved signal in [0,1].
	Wet float64
}

// DefaultConfig is a small dark room that suits dub stabs.
func DefaultConfig() Config {
	return Config{
		Duration:    600 * time.Millisecond,
		Seed:        1,
		EarlyCount:  24,
		LateLevel:   0.06,
		StereoWidth: 0.6,
		Brightness:  0.6,
		LowDecay:    900 * time.Millisecond,
		HighDecay:   150 * time.Millisecond,
		FadeOut:     10 * time.Millisecond,
		Wet:         0.25,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be > 0", ErrInvalidConfig)
	case c.EarlyCount < 0:
		return fmt.Errorf("%w: early count must be >= 0", ErrInvalidConfig)
	case c.LateLevel < 0:
		return fmt.Errorf("%w: late level must be >= 0", ErrInvalidConfig)
	case c.StereoWidth < 0:
		return fmt.Errorf("%w: stereo width must be >= 0", ErrInvalidConfig)
	case c.Brightness <= 0:
		return fmt.Errorf("%w: brightness must be > 0", ErrInvalidConfig)
	case c.LowDecay <= 0 || c.HighDecay <= 0:
		return fmt.Errorf("%w: decay times must be > 0", ErrInvalidConfig)
	case c.FadeOut < 0:
		return fmt.Errorf("%w: fade out must be >= 0", ErrInvalidConfig)
	case c.Wet < 0 || c.Wet > 1:
		return fmt.Errorf("%w: wet must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}

// Impulse renders the IR, one slice per channel of f, peak-normalized to 1.
// Mono formats get the left channel.
func Impulse(f buffer.Format, cfg Config) ([][]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	sr := float64(f.SampleRate)
	n := int(math.Round(cfg.Duration.Seconds() * sr))
	if n < 1 {
		n = 1
	}
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	left[0], right[0] = 1, 1

	// Early reflections between 1 and 50 ms.
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.001 + 0.049*rng.Float64()
		idx := int(t * sr)
		amp := (0.10 + 0.35*rng.Float64()) * math.Exp(-t*20.0)
		amp *= math.Pow(0.5+0.5*rng.Float64(), 1.0/cfg.Brightness)
		pan := (rng.Float64()*2.0 - 1.0) * cfg.StereoWidth
		if idx <= 0 || idx >= n {
			continue
		}
		left[idx] += amp * (1.0 - 0.5*pan)
		right[idx] += amp * (1.0 + 0.5*pan)
	}

	// Diffuse tail: lowpassed noise on the slow envelope, raw noise on the fast.
	if cfg.LateLevel > 0 {
		lowTau := 0.75 * cfg.LowDecay.Seconds()
		highTau := 0.75 * cfg.HighDecay.Seconds()
		air := math.Max(0, 0.3*(cfg.Brightness-0.3))
		var lpL, lpR, hpL, hpR float64
		for i := 0; i < n; i++ {
			t := float64(i) / sr
			lowEnv := math.Exp(-t / lowTau)
			highEnv := math.Exp(-t / highTau)
			nL, nR := rng.NormFloat64(), rng.NormFloat64()
			lpL = 0.985*lpL + 0.015*nL
			lpR = 0.985*lpR + 0.015*nR
			hpL = 0.15*nL - 0.15*hpL
			hpR = 0.15*nR - 0.15*hpR
			left[i] += cfg.LateLevel * (lowEnv*lpL + air*highEnv*hpL)
			right[i] += cfg.LateLevel * (lowEnv*lpR + air*highEnv*hpR)
		}
	}

	for _, ch := range [][]float64{left, right} {
		highpassDC(ch, 0.995)
		fadeOut(ch, int(math.Round(cfg.FadeOut.Seconds()*sr)))
	}
	peak := math.Max(maxAbs(left), maxAbs(right))
	if peak < 1e-12 {
		peak = 1e-12
	}
	for i := range left {
		left[i] /= peak
		right[i] /= peak
	}
	if f.Channels == 1 {
		return [][]float64{left}, nil
	}
	return [][]float64{left, right}, nil
}

// Apply convolves b with cfg's impulse response and blends it with the dry
// signal. The result keeps b's length; the tail past the end is dropped.
func Apply(b buffer.Buffer, cfg Config) (buffer.Buffer, error) {
	ir, err := Impulse(b.Format(), cfg)
	if err != nil {
		return buffer.Buffer{}, err
	}
	frames := b.Frames()
	if frames == 0 || cfg.Wet == 0 {
		return b.Gain(0), nil
	}
	ch := b.Format().Channels
	out := make([]float64, frames*ch)
	for c := 0; c < ch; c++ {
		dry := b.Channel(c)
		wet, err := convolve(dry, ir[c])
		if err != nil {
			return buffer.Buffer{}, fmt.Errorf("convolve channel %d: %w", c, err)
		}
		// Scale the tail so the wet path has roughly the dry path's energy.
		g := cfg.Wet / math.Max(rms(wet[:frames]), 1e-12) * math.Max(rms(dry), 1e-12)
		for i := 0; i < frames; i++ {
			out[i*ch+c] = (1-cfg.Wet)*dry[i] + g*wet[i]
		}
	}
	return b.Derive(out)
}

func convolve(x, h []float64) ([]float64, error) {
	a := make([]float32, len(x))
	for i, v := range x {
		a[i] = float32(v)
	}
	k := make([]float32, len(h))
	for i, v := range h {
		k[i] = float32(v)
	}
	dst := make([]float32, len(a)+len(k)-1)
	if err := algofft.ConvolveReal(dst, a, k); err != nil {
		return nil, err
	}
	out := make([]float64, len(dst))
	for i, v := range dst {
		out[i] = float64(v)
	}
	return out, nil
}

func highpassDC(x []float64, r float64) {
	var prevIn, prevOut float64
	for i := range x {
		y := x[i] - prevIn + r*prevOut
		prevIn = x[i]
		prevOut = y
		x[i] = y
	}
}

// fadeOut applies a cosine fade over the last n samples of buf.
func fadeOut(buf []float64, n int) {
	if n <= 0 || len(buf) == 0 {
		return
	}
	if n > len(buf) {
		n = len(buf)
	}
	start := len(buf) - n
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		buf[start+i] *= 0.5 * (1.0 + math.Cos(t*math.Pi))
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
