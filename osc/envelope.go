package osc

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dub/buffer"
)

// Envelope is a per-frame gain curve.
type Envelope []float64

// EnvelopeSpec describes an ADSR over a fixed note duration. The sustain
// plateau fills whatever Attack+Decay+Release leave of Duration.
type EnvelopeSpec struct {
	Attack       time.Duration
	Decay        time.Duration
	SustainLevel float64
	Release      time.Duration
	Duration     time.Duration
}

// Validate checks the segment durations against the note duration.
func (s EnvelopeSpec) Validate() error {
	if s.Attack < 0 || s.Decay < 0 || s.Release < 0 {
		return fmt.Errorf("%w: negative envelope segment", buffer.ErrInvalidDuration)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: envelope duration %v", buffer.ErrInvalidDuration, s.Duration)
	}
	if s.Attack+s.Decay+s.Release > s.Duration {
		return fmt.Errorf("%w: attack+decay+release %v exceeds duration %v",
			buffer.ErrInvalidDuration, s.Attack+s.Decay+s.Release, s.Duration)
	}
	if s.SustainLevel < 0 || s.SustainLevel > 1 {
		return fmt.Errorf("sustain level must be in [0,1], got %g", s.SustainLevel)
	}
	return nil
}

// Envelope renders the ADSR at sampleRate.
func (s EnvelopeSpec) Envelope(sampleRate int) (Envelope, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	sustain := s.Duration - s.Attack - s.Decay - s.Release
	return ADSR(sampleRate, s.Attack, s.Decay, s.SustainLevel, sustain, s.Release)
}

// ADSR concatenates four linear segments: 0→1 over attack, 1→sustainLevel
// over decay, a flat sustainLevel plateau, and sustainLevel→0 over release.
func ADSR(sampleRate int, attack, decay time.Duration, sustainLevel float64, sustain, release time.Duration) (Envelope, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if attack < 0 || decay < 0 || sustain < 0 || release < 0 {
		return nil, fmt.Errorf("%w: negative envelope segment", buffer.ErrInvalidDuration)
	}
	if sustainLevel < 0 || sustainLevel > 1 {
		return nil, fmt.Errorf("sustain level must be in [0,1], got %g", sustainLevel)
	}
	f := buffer.Format{SampleRate: sampleRate}
	nA, _ := f.Frames(attack)
	nD, _ := f.Frames(decay)
	nS, _ := f.Frames(sustain)
	nR, _ := f.Frames(release)

	env := make(Envelope, 0, nA+nD+nS+nR)
	env = appendRamp(env, 0, 1, nA)
	env = appendRamp(env, 1, sustainLevel, nD)
	for i := 0; i < nS; i++ {
		env = append(env, sustainLevel)
	}
	env = appendRamp(env, sustainLevel, 0, nR)
	return env, nil
}

// appendRamp appends n points from `from` to `to`, both endpoints included.
func appendRamp(env Envelope, from, to float64, n int) Envelope {
	switch {
	case n <= 0:
		return env
	case n == 1:
		return append(env, to)
	}
	span := float64(n - 1)
	for i := 0; i < n; i++ {
		env = append(env, from+(to-from)*float64(i)/span)
	}
	return env
}

// ExpDecay renders exp(-t/tau) over d.
func ExpDecay(sampleRate int, tau, d time.Duration) (Envelope, error) {
	if tau <= 0 || d <= 0 {
		return nil, fmt.Errorf("%w: decay tau %v over %v", buffer.ErrInvalidDuration, tau, d)
	}
	n, err := buffer.Format{SampleRate: sampleRate}.Frames(d)
	if err != nil {
		return nil, err
	}
	env := make(Envelope, n)
	k := float32(1.0 / (tau.Seconds() * float64(sampleRate)))
	for i := range env {
		env[i] = float64(approx.FastExp(-float32(i) * k))
	}
	return env, nil
}

// Resize linearly resamples the curve onto n points.
func (e Envelope) Resize(n int) Envelope {
	out := make(Envelope, n)
	switch {
	case n == 0 || len(e) == 0:
		return out
	case len(e) == n:
		copy(out, e)
		return out
	case n == 1 || len(e) == 1:
		for i := range out {
			out[i] = e[0]
		}
		return out
	}
	ratio := float64(len(e)-1) / float64(n-1)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(e)-1 {
			out[i] = e[len(e)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = e[j] + frac*(e[j+1]-e[j])
	}
	return out
}

// Apply multiplies b frame by frame with the envelope, resampled to b's length.
func (e Envelope) Apply(b buffer.Buffer) (buffer.Buffer, error) {
	return b.Scale(e.Resize(b.Frames()))
}
