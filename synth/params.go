package synth

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-dub/osc"
	"github.com/cwbudde/algo-dub/reverb"
)

var (
	// ErrInvalidParams reports a voice parameter record that cannot be rendered.
	ErrInvalidParams = errors.New("invalid voice params")
	// ErrUnknownKind reports a voice kind with no synthesizer.
	ErrUnknownKind = errors.New("unknown voice kind")
)

// Kind selects the synthesizer used for a voice.
type Kind string

const (
	KindKick  Kind = "kick"
	KindSnare Kind = "snare"
	KindNoise Kind = "noise"
	KindBass  Kind = "bass"
	KindLead  Kind = "lead"
)

// Waveform selects the carrier of tonal voices.
type Waveform string

const (
	WaveSine Waveform = "sine"
	WaveSaw  Waveform = "saw"
)

// DefaultStepDuration is the voice length of the dub presets: an eighth of a
// two-second bar.
const DefaultStepDuration = 250 * time.Millisecond

// Params holds every knob of every voice kind. Fields that do not apply to
// Kind are ignored.
type Params struct {
	Kind     Kind
	Duration time.Duration

	// Carrier frequency of bass/lead voices and the body of the snare.
	Frequency float64
	Waveform  Waveform

	// Kick pitch sweep, always descending.
	StartFrequency float64
	EndFrequency   float64
	ClickFraction  float64
	ClickGainDB    float64

	// Snare layers as fractions of Duration.
	NoiseFraction float64
	NoiseGainDB   float64
	BodyFraction  float64
	BodyGainDB    float64

	VibratoDepth float64 // Hz
	VibratoRate  float64 // Hz

	PreGainDB float64
	Filter    string // "onepole" or "biquad"
	Cutoff    float64
	DriveDB   float64
	Echo      *EchoParams
	Reverb    *reverb.Config

	// Envelope shapes the carrier. A zero Envelope.Duration means Duration.
	Envelope *osc.EnvelopeSpec

	Normalize  bool
	HeadroomDB float64
	GainDB     float64
}

// EchoParams configures the single-tap echo: an attenuated copy offset by
// Delay, then the whole signal scaled by 10*log10(Decay) dB.
type EchoParams struct {
	Delay         time.Duration
	Decay         float64
	AttenuationDB float64
}

// DefaultParams returns the dub preset for kind.
func DefaultParams(kind Kind) Params {
	p := Params{Kind: kind, Duration: DefaultStepDuration, HeadroomDB: 0.1}
	switch kind {
	case KindKick:
		p.StartFrequency = 150
		p.EndFrequency = 50
		p.ClickFraction = 0.05
		p.ClickGainDB = -30
		p.GainDB = 6
	case KindSnare:
		p.Frequency = 180
		p.NoiseFraction = 0.4
		p.NoiseGainDB = -3
		p.BodyFraction = 0.6
		p.BodyGainDB = -12
		p.GainDB = 2
	case KindBass:
		p.Frequency = 130.81 / 2
		p.Waveform = WaveSaw
		p.PreGainDB = 15
		p.Filter = "onepole"
		p.Cutoff = 120
		p.DriveDB = 20
		p.Echo = &EchoParams{Delay: 100 * time.Millisecond, Decay: 0.5, AttenuationDB: 20}
		p.Normalize = true
	case KindLead:
		p.Frequency = 130.81
		p.Waveform = WaveSine
		p.VibratoDepth = 0.5
		p.VibratoRate = 6
		p.Echo = &EchoParams{Delay: 50 * time.Millisecond, Decay: 0.7, AttenuationDB: 20}
		p.Normalize = true
	}
	return p
}

// Validate checks the fields used by p.Kind.
func (p Params) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("%w: duration %v", ErrInvalidParams, p.Duration)
	}
	if !finite(p.GainDB) || !finite(p.PreGainDB) || !finite(p.DriveDB) || p.HeadroomDB < 0 {
		return fmt.Errorf("%w: non-finite gain or negative headroom", ErrInvalidParams)
	}
	switch p.Kind {
	case KindKick:
		if p.StartFrequency <= 0 || p.EndFrequency <= 0 {
			return fmt.Errorf("%w: kick sweep %g→%g Hz", ErrInvalidParams, p.StartFrequency, p.EndFrequency)
		}
		if p.EndFrequency > p.StartFrequency {
			return fmt.Errorf("%w: kick sweep must descend, got %g→%g Hz", ErrInvalidParams, p.StartFrequency, p.EndFrequency)
		}
		if p.ClickFraction < 0 || p.ClickFraction > 1 {
			return fmt.Errorf("%w: click fraction %g", ErrInvalidParams, p.ClickFraction)
		}
	case KindSnare:
		if p.Frequency <= 0 {
			return fmt.Errorf("%w: snare body frequency %g", ErrInvalidParams, p.Frequency)
		}
		if p.NoiseFraction <= 0 || p.NoiseFraction > 1 || p.BodyFraction <= 0 || p.BodyFraction > 1 {
			return fmt.Errorf("%w: snare fractions noise=%g body=%g", ErrInvalidParams, p.NoiseFraction, p.BodyFraction)
		}
	case KindNoise:
	case KindBass, KindLead:
		if p.Frequency <= 0 {
			return fmt.Errorf("%w: frequency %g", ErrInvalidParams, p.Frequency)
		}
		switch p.Waveform {
		case WaveSine, WaveSaw, "":
		default:
			return fmt.Errorf("%w: waveform %q", ErrInvalidParams, p.Waveform)
		}
		if p.Cutoff < 0 {
			return fmt.Errorf("%w: cutoff %g", ErrInvalidParams, p.Cutoff)
		}
		if p.VibratoDepth < 0 || p.VibratoRate < 0 {
			return fmt.Errorf("%w: negative vibrato", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
	if e := p.Echo; e != nil {
		if e.Delay < 0 || e.Decay <= 0 || e.Decay > 1 || e.AttenuationDB < 0 {
			return fmt.Errorf("%w: echo delay=%v decay=%g attenuation=%g", ErrInvalidParams, e.Delay, e.Decay, e.AttenuationDB)
		}
	}
	if r := p.Reverb; r != nil {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidParams, err)
		}
	}
	return nil
}

// envelopeSpec resolves the envelope against the voice duration.
func (p Params) envelopeSpec() *osc.EnvelopeSpec {
	if p.Envelope == nil {
		return nil
	}
	spec := *p.Envelope
	if spec.Duration == 0 {
		spec.Duration = p.Duration
	}
	return &spec
}

func (p Params) fraction(f float64) time.Duration {
	return time.Duration(float64(p.Duration) * f)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
