package buffer

import (
	"fmt"
	"math"
	"time"
)

// Buffer is an immutable block of interleaved PCM samples. Every operation
// returns a new Buffer; inputs are never modified.
type Buffer struct {
	format  Format
	data    []int
	clipped int
}

// New copies samples into a buffer, clamping values outside the bit depth.
func New(format Format, samples []int) (Buffer, error) {
	if err := format.Validate(); err != nil {
		return Buffer{}, err
	}
	if len(samples)%format.Channels != 0 {
		return Buffer{}, fmt.Errorf("%w: %d samples for %d channels", ErrInvalidFormat, len(samples), format.Channels)
	}
	b := Buffer{format: format, data: make([]int, len(samples))}
	for i, v := range samples {
		b.data[i] = b.clamp(v)
	}
	return b, nil
}

// FromFloats quantizes normalized samples in [-1, 1] to the format's bit depth.
func FromFloats(format Format, samples []float64) (Buffer, error) {
	if err := format.Validate(); err != nil {
		return Buffer{}, err
	}
	if len(samples)%format.Channels != 0 {
		return Buffer{}, fmt.Errorf("%w: %d samples for %d channels", ErrInvalidFormat, len(samples), format.Channels)
	}
	scale := float64(format.MaxValue())
	b := Buffer{format: format, data: make([]int, len(samples))}
	for i, v := range samples {
		b.data[i] = b.quantize(v * scale)
	}
	return b, nil
}

// Silence returns d worth of zero samples. A zero duration yields an empty buffer.
func Silence(format Format, d time.Duration) (Buffer, error) {
	if err := format.Validate(); err != nil {
		return Buffer{}, err
	}
	frames, err := format.Frames(d)
	if err != nil {
		return Buffer{}, err
	}
	return silentFrames(format, frames), nil
}

func silentFrames(format Format, frames int) Buffer {
	return Buffer{format: format, data: make([]int, frames*format.Channels)}
}

// Format returns the buffer's sample layout.
func (b Buffer) Format() Format { return b.format }

// Frames returns the number of sample frames.
func (b Buffer) Frames() int {
	if b.format.Channels == 0 {
		return 0
	}
	return len(b.data) / b.format.Channels
}

// Len returns the number of samples across all channels.
func (b Buffer) Len() int { return len(b.data) }

// Duration returns the playing time of the buffer.
func (b Buffer) Duration() time.Duration {
	return b.format.FrameDuration(b.Frames())
}

// Clipped reports how many samples were clamped while producing this buffer
// and the buffers it was derived from.
func (b Buffer) Clipped() int { return b.clipped }

// Samples returns a copy of the interleaved samples.
func (b Buffer) Samples() []int {
	out := make([]int, len(b.data))
	copy(out, b.data)
	return out
}

// Floats returns the interleaved samples normalized to [-1, 1].
func (b Buffer) Floats() []float64 {
	out := make([]float64, len(b.data))
	if len(b.data) == 0 {
		return out
	}
	scale := 1.0 / float64(b.format.MaxValue())
	for i, v := range b.data {
		out[i] = float64(v) * scale
	}
	return out
}

// Channel returns one channel's samples normalized to [-1, 1].
func (b Buffer) Channel(ch int) []float64 {
	if ch < 0 || ch >= b.format.Channels {
		return nil
	}
	n := b.Frames()
	out := make([]float64, n)
	scale := 1.0 / float64(b.format.MaxValue())
	for i := 0; i < n; i++ {
		out[i] = float64(b.data[i*b.format.Channels+ch]) * scale
	}
	return out
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() int {
	peak := 0
	for _, v := range b.data {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// PeakDBFS returns the peak level relative to full scale (-Inf for silence).
func (b Buffer) PeakDBFS() float64 {
	p := b.Peak()
	if p == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(p)/float64(b.format.MaxValue()))
}

// Equal reports whether both buffers hold the same samples in the same format.
// The clip counter is diagnostic and not compared.
func (b Buffer) Equal(o Buffer) bool {
	if b.format != o.format || len(b.data) != len(o.data) {
		return false
	}
	for i := range b.data {
		if b.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

func (b *Buffer) clamp(v int) int {
	if v > b.format.MaxValue() {
		b.clipped++
		return b.format.MaxValue()
	}
	if v < b.format.MinValue() {
		b.clipped++
		return b.format.MinValue()
	}
	return v
}

// quantize rounds x to the nearest sample, clamping in the float domain so
// huge or non-finite values cannot overflow the int conversion.
func (b *Buffer) quantize(x float64) int {
	switch {
	case math.IsNaN(x):
		b.clipped++
		return 0
	case x > float64(b.format.MaxValue()):
		b.clipped++
		return b.format.MaxValue()
	case x < float64(b.format.MinValue()):
		b.clipped++
		return b.format.MinValue()
	}
	return int(math.Round(x))
}

func dbToGain(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}
