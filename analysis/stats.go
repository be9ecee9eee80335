// Package analysis measures rendered buffers: levels, spectra and distances
// between two renders.
package analysis

import (
	"math"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

// Stats summarizes a buffer.
type Stats struct {
	Format   string
	Frames   int
	Duration time.Duration
	PeakDBFS float64
	RMSDBFS  float64
	CrestDB  float64
	Clipped  int
	// DecayDBPerS is the slope of the RMS envelope after its peak; NaN when the
	// buffer is too short or does not decay.
	DecayDBPerS float64
}

// Measure computes Stats over all channels of b.
func Measure(b buffer.Buffer) Stats {
	s := Stats{
		Format:      b.Format().String(),
		Frames:      b.Frames(),
		Duration:    b.Duration(),
		PeakDBFS:    b.PeakDBFS(),
		Clipped:     b.Clipped(),
		DecayDBPerS: math.NaN(),
	}
	x := b.Floats()
	s.RMSDBFS = linToDB(rms1(x))
	if b.Peak() > 0 {
		s.CrestDB = s.PeakDBFS - s.RMSDBFS
	}

	mono := b.ToMono().Floats()
	const frame, hop = 256, 128
	if env := rmsEnvelope(mono, frame, hop); len(env) > 0 {
		s.DecayDBPerS = decaySlopeDBPerS(env, float64(hop)/float64(b.Format().SampleRate))
	}
	return s
}
