package osc

import (
	"testing"

	"github.com/cwbudde/algo-dub/buffer"
)

// measureFundamentalFreq estimates pitch from zero crossings.
func measureFundamentalFreq(samples []float64, sampleRate float64) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float64(len(samples)) / sampleRate
	return float64(crossings) / (2.0 * duration)
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewSeeded(buffer.DefaultFormat(), 7)
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	return g
}
