// Package synth renders instrument voices from parameter records. Voices are
// stateless templates: each is rendered once and reused for every trigger.
package synth

import (
	"fmt"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/dsp"
	"github.com/cwbudde/algo-dub/osc"
	"github.com/cwbudde/algo-dub/reverb"
)

// Synthesize renders one voice.
func Synthesize(g *osc.Generator, p Params) (buffer.Buffer, error) {
	if err := p.Validate(); err != nil {
		return buffer.Buffer{}, err
	}
	var (
		out buffer.Buffer
		err error
	)
	switch p.Kind {
	case KindKick:
		out, err = kick(g, p)
	case KindSnare:
		out, err = snare(g, p)
	case KindNoise:
		out, err = noise(g, p)
	case KindBass, KindLead:
		out, err = tone(g, p)
	default:
		return buffer.Buffer{}, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
	if err != nil {
		return buffer.Buffer{}, fmt.Errorf("%s voice: %w", p.Kind, err)
	}
	return out, nil
}

// kick overlays a short decaying noise click onto a descending sine sweep.
func kick(g *osc.Generator, p Params) (buffer.Buffer, error) {
	body, err := g.SweptSine(p.StartFrequency, p.EndFrequency, p.Duration)
	if err != nil {
		return buffer.Buffer{}, err
	}
	if body, err = applyEnvelope(body, p); err != nil {
		return buffer.Buffer{}, err
	}

	clickLen := p.fraction(p.ClickFraction)
	if frames, _ := g.Format().Frames(clickLen); frames > 0 {
		click, err := g.WhiteNoise(clickLen)
		if err != nil {
			return buffer.Buffer{}, err
		}
		decay, err := osc.ExpDecay(g.Format().SampleRate, clickLen/3, clickLen)
		if err != nil {
			return buffer.Buffer{}, err
		}
		if click, err = decay.Apply(click); err != nil {
			return buffer.Buffer{}, err
		}
		if body, err = body.Overlay(click.Gain(p.ClickGainDB), 0); err != nil {
			return buffer.Buffer{}, err
		}
	}
	if body, err = applyReverb(body, p); err != nil {
		return buffer.Buffer{}, err
	}
	return body.Gain(p.GainDB), nil
}

// snare lays a noise burst over a quieter tonal body.
func snare(g *osc.Generator, p Params) (buffer.Buffer, error) {
	body, err := g.Sine(p.Frequency, p.fraction(p.BodyFraction))
	if err != nil {
		return buffer.Buffer{}, err
	}
	burst, err := g.WhiteNoise(p.fraction(p.NoiseFraction))
	if err != nil {
		return buffer.Buffer{}, err
	}
	out, err := body.Gain(p.BodyGainDB).Mix(burst.Gain(p.NoiseGainDB), 0)
	if err != nil {
		return buffer.Buffer{}, err
	}
	if out, err = applyEnvelope(out, p); err != nil {
		return buffer.Buffer{}, err
	}
	if out, err = applyReverb(out, p); err != nil {
		return buffer.Buffer{}, err
	}
	return out.Gain(p.GainDB), nil
}

func noise(g *osc.Generator, p Params) (buffer.Buffer, error) {
	out, err := g.WhiteNoise(p.Duration)
	if err != nil {
		return buffer.Buffer{}, err
	}
	if out, err = applyEnvelope(out, p); err != nil {
		return buffer.Buffer{}, err
	}
	return out.Gain(p.GainDB), nil
}

// tone renders the bass/lead chain: carrier, envelope, pre-gain, lowpass,
// drive, echo, reverb, normalize, output gain. Stages with zero settings are
// skipped.
func tone(g *osc.Generator, p Params) (buffer.Buffer, error) {
	var (
		out buffer.Buffer
		err error
	)
	switch {
	case p.Waveform == WaveSaw:
		out, err = g.Sawtooth(p.Frequency, p.Duration)
	case p.VibratoDepth > 0 && p.VibratoRate > 0:
		out, err = g.VibratoSine(p.Frequency, p.VibratoDepth, p.VibratoRate, p.Duration)
	default:
		out, err = g.Sine(p.Frequency, p.Duration)
	}
	if err != nil {
		return buffer.Buffer{}, err
	}
	if out, err = applyEnvelope(out, p); err != nil {
		return buffer.Buffer{}, err
	}

	out = out.Gain(p.PreGainDB)
	if p.Cutoff > 0 {
		if out, err = dsp.LowpassBuffer(out, p.Filter, p.Cutoff); err != nil {
			return buffer.Buffer{}, err
		}
	}
	if p.DriveDB != 0 {
		out = Drive(out, p.DriveDB, p.HeadroomDB)
	}
	if p.Echo != nil {
		wet, err := Echo(out, *p.Echo)
		if err != nil {
			return buffer.Buffer{}, err
		}
		if out, err = out.Overlay(wet, 0); err != nil {
			return buffer.Buffer{}, err
		}
	}
	if out, err = applyReverb(out, p); err != nil {
		return buffer.Buffer{}, err
	}
	if p.Normalize {
		out = out.Normalize(p.HeadroomDB)
	}
	return out.Gain(p.GainDB), nil
}

func applyReverb(b buffer.Buffer, p Params) (buffer.Buffer, error) {
	if p.Reverb == nil {
		return b, nil
	}
	return reverb.Apply(b, *p.Reverb)
}

func applyEnvelope(b buffer.Buffer, p Params) (buffer.Buffer, error) {
	spec := p.envelopeSpec()
	if spec == nil {
		return b, nil
	}
	env, err := spec.Envelope(b.Format().SampleRate)
	if err != nil {
		return buffer.Buffer{}, err
	}
	return env.Apply(b)
}
