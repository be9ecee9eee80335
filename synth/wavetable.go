package synth

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/osc"
)

// Wavetable maps 1-based note indices to pre-rendered voices.
type Wavetable struct {
	notes map[int]buffer.Buffer
}

// NewWavetable wraps notes. Indices must be positive.
func NewWavetable(notes map[int]buffer.Buffer) (*Wavetable, error) {
	t := &Wavetable{notes: make(map[int]buffer.Buffer, len(notes))}
	for n, b := range notes {
		if n < 1 {
			return nil, fmt.Errorf("%w: note index %d", ErrInvalidParams, n)
		}
		t.notes[n] = b
	}
	return t, nil
}

// Lookup returns the voice for note n. Indices that are not present report
// false; callers treat them as silence.
func (t *Wavetable) Lookup(n int) (buffer.Buffer, bool) {
	if t == nil {
		return buffer.Buffer{}, false
	}
	b, ok := t.notes[n]
	return b, ok
}

// Format is the format of the table's voices. An empty or nil table reports
// false.
func (t *Wavetable) Format() (buffer.Format, bool) {
	if t == nil || len(t.notes) == 0 {
		return buffer.Format{}, false
	}
	return t.notes[t.Indices()[0]].Format(), true
}

// Indices returns the defined note indices in ascending order.
func (t *Wavetable) Indices() []int {
	out := make([]int, 0, len(t.notes))
	for n := range t.notes {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Len is the number of defined notes.
func (t *Wavetable) Len() int { return len(t.notes) }

// NoteFrequency is the equal-tempered frequency semitones above base.
func NoteFrequency(base float64, semitones int) float64 {
	return base * math.Pow(2, float64(semitones)/12)
}

// SemitoneTable renders one voice per entry of offsets (note index → semitone
// offset from base), using p as the template for every note.
func SemitoneTable(g *osc.Generator, base float64, offsets map[int]int, p Params) (*Wavetable, error) {
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return nil, fmt.Errorf("%w: base frequency %g", ErrInvalidParams, base)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: empty wavetable", ErrInvalidParams)
	}
	idx := make([]int, 0, len(offsets))
	for n := range offsets {
		idx = append(idx, n)
	}
	sort.Ints(idx)

	notes := make(map[int]buffer.Buffer, len(offsets))
	for _, n := range idx {
		if n < 1 {
			return nil, fmt.Errorf("%w: note index %d", ErrInvalidParams, n)
		}
		np := p
		np.Frequency = NoteFrequency(base, offsets[n])
		b, err := Synthesize(g, np)
		if err != nil {
			return nil, fmt.Errorf("note %d (%.2f Hz): %w", n, np.Frequency, err)
		}
		notes[n] = b
	}
	return &Wavetable{notes: notes}, nil
}

// Chromatic renders one octave from base: index n+1 holds base·2^(n/12) for
// n = 0..11.
func Chromatic(g *osc.Generator, base float64, p Params) (*Wavetable, error) {
	offsets := make(map[int]int, 12)
	for n := 0; n < 12; n++ {
		offsets[n+1] = n
	}
	return SemitoneTable(g, base, offsets, p)
}
