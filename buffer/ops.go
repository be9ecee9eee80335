package buffer

import (
	"fmt"
	"math"
	"time"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// Concat joins buffers end to end. All buffers must share one format.
func Concat(bufs ...Buffer) (Buffer, error) {
	if len(bufs) == 0 {
		return Buffer{}, fmt.Errorf("concat: no buffers")
	}
	format := bufs[0].format
	total := 0
	clipped := 0
	for i, b := range bufs {
		if b.format != format {
			return Buffer{}, fmt.Errorf("concat part %d (%v vs %v): %w", i, b.format, format, ErrFormatMismatch)
		}
		total += len(b.data)
		clipped += b.clipped
	}
	out := Buffer{format: format, data: make([]int, 0, total), clipped: clipped}
	for _, b := range bufs {
		out.data = append(out.data, b.data...)
	}
	return out, nil
}

// Mix adds o onto b starting at frame offset. The result is long enough to hold
// both; the shorter side is treated as zero-padded. Sums outside the sample
// range are clamped and counted.
func (b Buffer) Mix(o Buffer, offset int) (Buffer, error) {
	if err := b.checkOverlay(o, offset); err != nil {
		return Buffer{}, err
	}
	frames := b.Frames()
	if end := offset + o.Frames(); end > frames {
		frames = end
	}
	return b.overlay(o, offset, frames), nil
}

// Overlay adds o onto b starting at frame offset and keeps b's length: the part
// of o that runs past the end of b is dropped.
func (b Buffer) Overlay(o Buffer, offset int) (Buffer, error) {
	if err := b.checkOverlay(o, offset); err != nil {
		return Buffer{}, err
	}
	return b.overlay(o, offset, b.Frames()), nil
}

func (b Buffer) checkOverlay(o Buffer, offset int) error {
	if b.format != o.format {
		return fmt.Errorf("overlay (%v vs %v): %w", o.format, b.format, ErrFormatMismatch)
	}
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrOutOfRange, offset)
	}
	return nil
}

func (b Buffer) overlay(o Buffer, offset int, frames int) Buffer {
	ch := b.format.Channels
	out := Buffer{format: b.format, data: make([]int, frames*ch), clipped: b.clipped + o.clipped}
	copy(out.data, b.data)
	start := offset * ch
	for i, v := range o.data {
		j := start + i
		if j >= len(out.data) {
			break
		}
		if v == 0 {
			continue
		}
		out.data[j] = out.clamp(out.data[j] + v)
	}
	return out
}

// Gain scales every sample by 10^(db/20).
func (b Buffer) Gain(db float64) Buffer {
	out := Buffer{format: b.format, data: make([]int, len(b.data)), clipped: b.clipped}
	if db == 0 {
		copy(out.data, b.data)
		return out
	}
	g := dbToGain(db)
	for i, v := range b.data {
		out.data[i] = out.quantize(float64(v) * g)
	}
	return out
}

// Scale multiplies each frame by the matching entry of gains. len(gains) must
// equal the frame count.
func (b Buffer) Scale(gains []float64) (Buffer, error) {
	frames := b.Frames()
	if len(gains) != frames {
		return Buffer{}, fmt.Errorf("%w: %d gains for %d frames", ErrOutOfRange, len(gains), frames)
	}
	ch := b.format.Channels
	out := Buffer{format: b.format, data: make([]int, len(b.data)), clipped: b.clipped}
	for f := 0; f < frames; f++ {
		for c := 0; c < ch; c++ {
			i := f*ch + c
			out.data[i] = out.quantize(float64(b.data[i]) * gains[f])
		}
	}
	return out, nil
}

// Repeat concatenates b with itself n times. n == 0 yields an empty buffer.
func (b Buffer) Repeat(n int) (Buffer, error) {
	if n < 0 {
		return Buffer{}, fmt.Errorf("%w: repeat count %d", ErrOutOfRange, n)
	}
	out := Buffer{format: b.format, data: make([]int, 0, len(b.data)*n), clipped: b.clipped * n}
	for i := 0; i < n; i++ {
		out.data = append(out.data, b.data...)
	}
	return out, nil
}

// Slice returns frames [start, end). The clip count of b is carried over.
func (b Buffer) Slice(start, end int) (Buffer, error) {
	if start < 0 || end < start || end > b.Frames() {
		return Buffer{}, fmt.Errorf("%w: slice [%d:%d] of %d frames", ErrOutOfRange, start, end, b.Frames())
	}
	ch := b.format.Channels
	out := Buffer{format: b.format, data: make([]int, (end-start)*ch), clipped: b.clipped}
	copy(out.data, b.data[start*ch:end*ch])
	return out, nil
}

// PadTo returns a buffer of exactly d, padding with silence or truncating.
func (b Buffer) PadTo(d time.Duration) (Buffer, error) {
	frames, err := b.format.Frames(d)
	if err != nil {
		return Buffer{}, err
	}
	if frames <= b.Frames() {
		return b.Slice(0, frames)
	}
	ch := b.format.Channels
	out := Buffer{format: b.format, data: make([]int, frames*ch), clipped: b.clipped}
	copy(out.data, b.data)
	return out, nil
}

// Normalize scales the buffer so its peak sits headroomDB below full scale.
// Silent buffers are returned unchanged.
func (b Buffer) Normalize(headroomDB float64) Buffer {
	peak := b.Peak()
	if peak == 0 {
		return b.Gain(0)
	}
	target := float64(b.format.MaxValue()) * dbToGain(-headroomDB)
	return b.Gain(20 * math.Log10(target/float64(peak)))
}

// ToStereo duplicates a mono buffer into two channels.
func (b Buffer) ToStereo() Buffer {
	if b.format.Channels == 2 {
		return b.Gain(0)
	}
	f := b.format
	f.Channels = 2
	out := Buffer{format: f, data: make([]int, len(b.data)*2), clipped: b.clipped}
	for i, v := range b.data {
		out.data[i*2] = v
		out.data[i*2+1] = v
	}
	return out
}

// ToMono averages the channels of a stereo buffer.
func (b Buffer) ToMono() Buffer {
	if b.format.Channels == 1 {
		return b.Gain(0)
	}
	f := b.format
	f.Channels = 1
	n := b.Frames()
	out := Buffer{format: f, data: make([]int, n), clipped: b.clipped}
	for i := 0; i < n; i++ {
		out.data[i] = (b.data[i*2] + b.data[i*2+1]) / 2
	}
	return out
}

// Resample converts the buffer to another sample rate.
func (b Buffer) Resample(rate int) (Buffer, error) {
	if rate == b.format.SampleRate {
		return b.Gain(0), nil
	}
	f := b.format
	f.SampleRate = rate
	if err := f.Validate(); err != nil {
		return Buffer{}, err
	}

	chans := make([][]float64, b.format.Channels)
	frames := -1
	for c := range chans {
		r, err := dspresample.NewForRates(
			float64(b.format.SampleRate),
			float64(rate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return Buffer{}, err
		}
		chans[c] = r.Process(b.Channel(c))
		if frames < 0 || len(chans[c]) < frames {
			frames = len(chans[c])
		}
	}

	interleaved := make([]float64, frames*f.Channels)
	for c, data := range chans {
		for i := 0; i < frames; i++ {
			interleaved[i*f.Channels+c] = data[i]
		}
	}
	out, err := FromFloats(f, interleaved)
	if err != nil {
		return Buffer{}, err
	}
	out.clipped += b.clipped
	return out, nil
}

// Derive quantizes normalized samples into a new buffer in b's format. The
// result inherits b's clip count, so processing chains keep their diagnostics.
func (b Buffer) Derive(samples []float64) (Buffer, error) {
	out, err := FromFloats(b.format, samples)
	if err != nil {
		return Buffer{}, err
	}
	out.clipped += b.clipped
	return out, nil
}
