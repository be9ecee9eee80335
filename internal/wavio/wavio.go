// Package wavio moves buffers in and out of WAV files.
package wavio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-dub/buffer"
)

// WriteBuffer writes b as PCM WAV at b's rate, channel count and bit depth.
func WriteBuffer(path string, b buffer.Buffer) error {
	f := b.Format()
	if err := f.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := wav.NewEncoder(file, f.SampleRate, f.BitDepth, f.Channels, 1)
	floats := b.Floats()
	data := make([]float32, len(floats))
	for i, v := range floats {
		data[i] = float32(v)
	}
	buf := &audio.Float32Buffer{
		Format:         f.AudioFormat(),
		Data:           data,
		SourceBitDepth: f.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return enc.Close()
}

// Read decodes a WAV file in its own format.
func Read(path string) (buffer.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return buffer.Buffer{}, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return buffer.Buffer{}, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return buffer.Buffer{}, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return buffer.Buffer{}, fmt.Errorf("invalid wav buffer: %s", path)
	}

	numCh := buf.Format.NumChannels
	frames := len(buf.Data) / numCh
	if frames == 0 {
		return buffer.Buffer{}, fmt.Errorf("empty wav data: %s", path)
	}
	ch := numCh
	if ch > 2 {
		ch = 2
	}
	depth := buf.SourceBitDepth
	switch depth {
	case 8, 16, 24, 32:
	default:
		depth = 16
	}
	format := buffer.Format{SampleRate: buf.Format.SampleRate, Channels: ch, BitDepth: depth}

	// Extra channels beyond the first two are dropped.
	data := make([]float64, frames*ch)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			data[i*ch+c] = float64(buf.Data[i*numCh+c])
		}
	}
	return buffer.FromFloats(format, data)
}

// ReadVoice loads a sample voice and converts it to format: channel count,
// sample rate and bit depth.
func ReadVoice(path string, format buffer.Format) (buffer.Buffer, error) {
	if err := format.Validate(); err != nil {
		return buffer.Buffer{}, err
	}
	b, err := Read(path)
	if err != nil {
		return buffer.Buffer{}, err
	}
	if b.Format().Channels != format.Channels {
		if format.Channels == 1 {
			b = b.ToMono()
		} else {
			b = b.ToStereo()
		}
	}
	if b, err = b.Resample(format.SampleRate); err != nil {
		return buffer.Buffer{}, fmt.Errorf("resample %s: %w", path, err)
	}
	if b.Format() == format {
		return b, nil
	}
	src := b.Format()
	src.BitDepth = format.BitDepth
	out, err := buffer.FromFloats(src, b.Floats())
	if err != nil {
		return buffer.Buffer{}, err
	}
	return out, nil
}
