package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

const maxFFTSize = 1 << 16

// Spectrum is the averaged magnitude spectrum of a signal.
type Spectrum struct {
	SampleRate int
	Size       int
	Mags       []float64 // bins 0..Size/2
}

// BinHz is the width of one bin.
func (s Spectrum) BinHz() float64 {
	return float64(s.SampleRate) / float64(s.Size)
}

// MagnitudeSpectrum windows x with a Hann window and averages magnitude
// spectra over half-overlapping frames. The frame size is the largest power of
// two not above len(x), capped at 65536.
func MagnitudeSpectrum(x []float64, sampleRate int) (Spectrum, error) {
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	size := fftSizeFor(len(x))
	if size < 64 {
		return Spectrum{}, fmt.Errorf("signal too short for spectrum: %d samples", len(x))
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return Spectrum{}, fmt.Errorf("fft plan: %w", err)
	}

	hann := make([]float64, size)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	spec := make([]complex128, size/2+1)
	frame := make([]float64, size)
	s := Spectrum{SampleRate: sampleRate, Size: size, Mags: make([]float64, size/2+1)}
	frames := 0
	for pos := 0; pos+size <= len(x); pos += size / 2 {
		for i := range frame {
			frame[i] = x[pos+i] * hann[i]
		}
		plan.Forward(spec, frame)
		for k := range s.Mags {
			s.Mags[k] += cmplx.Abs(spec[k])
		}
		frames++
	}
	for k := range s.Mags {
		s.Mags[k] /= float64(frames)
	}
	return s, nil
}

// Peak returns the frequency of the strongest bin above minHz, refined by
// parabolic interpolation over the neighbouring bins.
func (s Spectrum) Peak(minHz float64) float64 {
	lo := int(math.Ceil(minHz / s.BinHz()))
	if lo < 1 {
		lo = 1
	}
	best := -1
	for k := lo; k < len(s.Mags)-1; k++ {
		if best < 0 || s.Mags[k] > s.Mags[best] {
			best = k
		}
	}
	if best < 0 || s.Mags[best] == 0 {
		return 0
	}
	a := linToDB(s.Mags[best-1])
	b := linToDB(s.Mags[best])
	c := linToDB(s.Mags[best+1])
	offset := 0.0
	if den := a - 2*b + c; den != 0 {
		offset = 0.5 * (a - c) / den
	}
	return (float64(best) + offset) * s.BinHz()
}

// BandEnergy sums squared magnitudes of the bins in [loHz, hiHz).
func (s Spectrum) BandEnergy(loHz, hiHz float64) float64 {
	var sum float64
	for k, m := range s.Mags {
		f := float64(k) * s.BinHz()
		if f >= loHz && f < hiHz {
			sum += m * m
		}
	}
	return sum
}

// DominantFrequency estimates the strongest frequency of x above 20 Hz.
func DominantFrequency(x []float64, sampleRate int) (float64, error) {
	s, err := MagnitudeSpectrum(x, sampleRate)
	if err != nil {
		return 0, err
	}
	return s.Peak(20), nil
}

func fftSizeFor(n int) int {
	size := 1
	for size*2 <= n && size*2 <= maxFFTSize {
		size *= 2
	}
	return size
}
