// Package dsp holds the sample-level filters used to shape instrument voices.
package dsp

import (
	"fmt"
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dub/buffer"
)

// Processor filters one sample at a time and keeps its own history.
type Processor interface {
	Process(x float64) float64
	Reset()
}

// Biquad implements a second-order IIR filter.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewBiquad creates a biquad from normalized coefficients (a0 == 1).
func NewBiquad(b0, b1, b2, a1, a2 float64) *Biquad {
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// Process runs one sample through the filter (Direct Form I).
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	y = dspcore.FlushDenormals(y)

	b.x2 = b.x1
	b.x1 = x
	b.y2 = b.y1
	b.y1 = y
	return y
}

// Reset clears the filter history.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass creates an RBJ lowpass biquad.
func NewLowpass(cutoff, sampleRate, q float64) (*Biquad, error) {
	if err := checkCutoff(cutoff, sampleRate); err != nil {
		return nil, err
	}
	if q <= 0 {
		return nil, fmt.Errorf("q must be > 0, got %g", q)
	}
	w0 := 2.0 * math.Pi * cutoff / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(b0/a0, b1/a0, b2/a0, a1/a0, a2/a0), nil
}

// OnePole is an RC-style lowpass: y += alpha*(x-y).
type OnePole struct {
	alpha float64
	y     float64
}

// NewOnePole creates a one-pole lowpass with the given -3 dB cutoff.
func NewOnePole(cutoff, sampleRate float64) (*OnePole, error) {
	if err := checkCutoff(cutoff, sampleRate); err != nil {
		return nil, err
	}
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	dt := 1.0 / sampleRate
	return &OnePole{alpha: dt / (rc + dt)}, nil
}

// Process runs one sample through the filter.
func (p *OnePole) Process(x float64) float64 {
	p.y += p.alpha * (x - p.y)
	p.y = dspcore.FlushDenormals(p.y)
	return p.y
}

// Reset clears the filter state.
func (p *OnePole) Reset() { p.y = 0 }

// Apply filters every channel of b with its own processor from newProc.
func Apply(b buffer.Buffer, newProc func() (Processor, error)) (buffer.Buffer, error) {
	format := b.Format()
	out := b.Floats()
	for c := 0; c < format.Channels; c++ {
		p, err := newProc()
		if err != nil {
			return buffer.Buffer{}, err
		}
		for i := c; i < len(out); i += format.Channels {
			out[i] = p.Process(out[i])
		}
	}
	return b.Derive(out)
}

// LowpassBuffer filters b with a one-pole or biquad lowpass. kind is "onepole"
// (the default when empty) or "biquad".
func LowpassBuffer(b buffer.Buffer, kind string, cutoff float64) (buffer.Buffer, error) {
	sr := float64(b.Format().SampleRate)
	switch kind {
	case "", "onepole":
		return Apply(b, func() (Processor, error) { return NewOnePole(cutoff, sr) })
	case "biquad":
		return Apply(b, func() (Processor, error) { return NewLowpass(cutoff, sr, math.Sqrt2/2) })
	default:
		return buffer.Buffer{}, fmt.Errorf("unknown filter kind %q", kind)
	}
}

func checkCutoff(cutoff, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %g", sampleRate)
	}
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return fmt.Errorf("cutoff %g Hz outside (0, %g)", cutoff, sampleRate/2)
	}
	return nil
}
