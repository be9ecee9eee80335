package buffer

import (
	"fmt"
	"time"

	"github.com/go-audio/audio"
)

// Format describes the sample layout a buffer is stored in. Buffers can only be
// combined when their formats are equal.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is 44.1 kHz mono 16-bit, the layout all dub presets use.
func DefaultFormat() Format {
	return Format{SampleRate: 44100, Channels: 1, BitDepth: 16}
}

// Validate checks that the format can hold samples.
func (f Format) Validate() error {
	if f.SampleRate < 1000 {
		return fmt.Errorf("%w: sample rate too low: %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidFormat, f.Channels)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidFormat, f.BitDepth)
	}
	return nil
}

// MaxValue is the largest representable sample.
func (f Format) MaxValue() int {
	return 1<<(f.BitDepth-1) - 1
}

// MinValue is the smallest representable sample.
func (f Format) MinValue() int {
	return -(1 << (f.BitDepth - 1))
}

// Frames converts a duration to a frame count, truncating partial frames.
func (f Format) Frames(d time.Duration) (int, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDuration, d)
	}
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second)), nil
}

// FrameDuration converts a frame count back to a duration.
func (f Format) FrameDuration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(f.SampleRate))
}

// AudioFormat returns the go-audio description used by encoders.
func (f Format) AudioFormat() *audio.Format {
	return &audio.Format{
		NumChannels: f.Channels,
		SampleRate:  f.SampleRate,
	}
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%dch/%d-bit", f.SampleRate, f.Channels, f.BitDepth)
}
