package synth

import (
	"math"

	"github.com/cwbudde/algo-dub/buffer"
)

// Echo overlays a copy of b attenuated by AttenuationDB at Delay, keeping b's
// length, and scales the result by 10*log10(Decay) dB.
func Echo(b buffer.Buffer, e EchoParams) (buffer.Buffer, error) {
	offset, err := b.Format().Frames(e.Delay)
	if err != nil {
		return buffer.Buffer{}, err
	}
	wet, err := b.Overlay(b.Gain(-e.AttenuationDB), offset)
	if err != nil {
		return buffer.Buffer{}, err
	}
	return wet.Gain(10 * math.Log10(e.Decay)), nil
}

// Drive boosts b by driveDB, letting the sample range clip it, then normalizes
// back to headroomDB below full scale.
func Drive(b buffer.Buffer, driveDB, headroomDB float64) buffer.Buffer {
	return b.Gain(driveDB).Normalize(headroomDB)
}
