package synth

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/osc"
)

func newTestGenerator(t *testing.T) *osc.Generator {
	t.Helper()
	g, err := osc.NewSeeded(buffer.DefaultFormat(), 11)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	return g
}

// measureFundamentalFreq estimates pitch from zero crossings.
func measureFundamentalFreq(samples []float64, sampleRate float64) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	return float64(crossings) / (2 * float64(len(samples)) / sampleRate)
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
