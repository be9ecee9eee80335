// Package osc generates primitive waveforms and envelope curves as buffers.
//
// All pitched generators run a phase accumulator that starts at zero, so their
// output is fully deterministic. White noise draws from an injectable Source.
package osc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

// ErrInvalidFrequency reports a non-positive, non-finite or above-Nyquist frequency.
var ErrInvalidFrequency = errors.New("invalid frequency")

// Source supplies uniform random numbers in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Generator renders waveforms in a fixed format.
type Generator struct {
	format buffer.Format
	src    Source
}

// New creates a generator. A nil src falls back to the process-level random
// source, which makes WhiteNoise non-reproducible.
func New(format buffer.Format, src Source) (*Generator, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = globalSource{}
	}
	return &Generator{format: format, src: src}, nil
}

// NewSeeded creates a generator whose noise is reproducible for a given seed.
// The returned generator must not be shared between goroutines.
func NewSeeded(format buffer.Format, seed int64) (*Generator, error) {
	return New(format, rand.New(rand.NewSource(seed)))
}

// Format returns the format of every buffer the generator produces.
func (g *Generator) Format() buffer.Format { return g.format }

// Sine renders a sine wave at freq.
func (g *Generator) Sine(freq float64, d time.Duration) (buffer.Buffer, error) {
	if err := g.checkFreq(freq); err != nil {
		return buffer.Buffer{}, err
	}
	n, err := g.frames(d)
	if err != nil {
		return buffer.Buffer{}, err
	}
	return g.emit(g.accumulate(n, func(int) float64 { return freq }))
}

// SweptSine renders a sine whose instantaneous frequency ramps linearly from
// start (first sample) to end (last sample). Phase is integrated sample by
// sample, which keeps the sweep free of the chirp artifacts a closed-form
// sin(2*pi*f(t)*t) produces.
func (g *Generator) SweptSine(start, end float64, d time.Duration) (buffer.Buffer, error) {
	if err := g.checkFreq(start); err != nil {
		return buffer.Buffer{}, err
	}
	if err := g.checkFreq(end); err != nil {
		return buffer.Buffer{}, err
	}
	n, err := g.frames(d)
	if err != nil {
		return buffer.Buffer{}, err
	}
	span := float64(n - 1)
	return g.emit(g.accumulate(n, func(i int) float64 {
		if span <= 0 {
			return start
		}
		return start + (end-start)*float64(i)/span
	}))
}

// VibratoSine renders a sine at freq whose pitch wobbles by depthHz at rateHz.
func (g *Generator) VibratoSine(freq, depthHz, rateHz float64, d time.Duration) (buffer.Buffer, error) {
	if err := g.checkFreq(freq); err != nil {
		return buffer.Buffer{}, err
	}
	if depthHz < 0 || depthHz >= freq || rateHz < 0 {
		return buffer.Buffer{}, fmt.Errorf("%w: vibrato depth %.2f Hz rate %.2f Hz", ErrInvalidFrequency, depthHz, rateHz)
	}
	n, err := g.frames(d)
	if err != nil {
		return buffer.Buffer{}, err
	}
	sr := float64(g.format.SampleRate)
	return g.emit(g.accumulate(n, func(i int) float64 {
		return freq + depthHz*math.Sin(2*math.Pi*rateHz*float64(i)/sr)
	}))
}

// Sawtooth renders a rising sawtooth in [-1, 1) at freq.
func (g *Generator) Sawtooth(freq float64, d time.Duration) (buffer.Buffer, error) {
	if err := g.checkFreq(freq); err != nil {
		return buffer.Buffer{}, err
	}
	n, err := g.frames(d)
	if err != nil {
		return buffer.Buffer{}, err
	}
	out := make([]float64, n)
	step := freq / float64(g.format.SampleRate)
	pos := 0.0
	for i := range out {
		out[i] = 2*pos - 1
		pos += step
		if pos >= 1 {
			pos -= 1
		}
	}
	return g.emit(out)
}

// WhiteNoise renders uniform noise in [-1, 1).
func (g *Generator) WhiteNoise(d time.Duration) (buffer.Buffer, error) {
	n, err := g.frames(d)
	if err != nil {
		return buffer.Buffer{}, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = g.src.Float64()*2 - 1
	}
	return g.emit(out)
}

// accumulate integrates freqAt into a running phase and returns sin(phase).
func (g *Generator) accumulate(n int, freqAt func(i int) float64) []float64 {
	out := make([]float64, n)
	k := 2 * math.Pi / float64(g.format.SampleRate)
	phase := 0.0
	for i := range out {
		out[i] = math.Sin(phase)
		phase += k * freqAt(i)
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}
	return out
}

func (g *Generator) emit(mono []float64) (buffer.Buffer, error) {
	if g.format.Channels == 1 {
		return buffer.FromFloats(g.format, mono)
	}
	st := make([]float64, len(mono)*g.format.Channels)
	for i, v := range mono {
		for c := 0; c < g.format.Channels; c++ {
			st[i*g.format.Channels+c] = v
		}
	}
	return buffer.FromFloats(g.format, st)
}

func (g *Generator) frames(d time.Duration) (int, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: generator duration %v", buffer.ErrInvalidDuration, d)
	}
	return g.format.Frames(d)
}

func (g *Generator) checkFreq(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 || f >= float64(g.format.SampleRate)/2 {
		return fmt.Errorf("%w: %g Hz at %d Hz sample rate", ErrInvalidFrequency, f, g.format.SampleRate)
	}
	return nil
}
