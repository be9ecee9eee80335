package synth

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/osc"
)

// Spec describes one named kit entry. With Offsets set the entry is rendered
// as a wavetable around Base; otherwise it is a single drum voice. Sample, when
// non-nil, is used as the drum voice instead of synthesizing Params.
type Spec struct {
	Name    string
	Params  Params
	Base    float64
	Offsets map[int]int
	Sample  *buffer.Buffer
}

// Melodic reports whether the entry renders to a wavetable.
func (s Spec) Melodic() bool { return len(s.Offsets) > 0 }

// Kit is a set of rendered voices and wavetables keyed by name.
type Kit struct {
	mu     sync.RWMutex
	drums  map[string]buffer.Buffer
	tables map[string]*Wavetable
}

// NewKit returns an empty kit.
func NewKit() *Kit {
	return &Kit{
		drums:  make(map[string]buffer.Buffer),
		tables: make(map[string]*Wavetable),
	}
}

// BuildKit renders every spec concurrently, at most workers at a time
// (workers <= 0 means no limit). Each entry draws noise from its own generator
// seeded from seed and the entry name, so the result does not depend on
// scheduling.
func BuildKit(ctx context.Context, format buffer.Format, seed int64, specs []Spec, workers int) (*Kit, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: unnamed voice", ErrInvalidParams)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate voice %q", ErrInvalidParams, s.Name)
		}
		seen[s.Name] = true
	}

	kit := NewKit()
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, s := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return kit.build(format, VoiceSeed(seed, s.Name), s)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return kit, nil
}

func (k *Kit) build(format buffer.Format, seed int64, s Spec) error {
	if s.Sample != nil && !s.Melodic() {
		if s.Sample.Format() != format {
			return fmt.Errorf("voice %q sample (%v vs %v): %w", s.Name, s.Sample.Format(), format, buffer.ErrFormatMismatch)
		}
		k.Add(s.Name, *s.Sample)
		return nil
	}
	gen, err := osc.NewSeeded(format, seed)
	if err != nil {
		return err
	}
	if s.Melodic() {
		base := s.Base
		if base == 0 {
			base = s.Params.Frequency
		}
		t, err := SemitoneTable(gen, base, s.Offsets, s.Params)
		if err != nil {
			return fmt.Errorf("voice %q: %w", s.Name, err)
		}
		k.AddTable(s.Name, t)
		return nil
	}
	b, err := Synthesize(gen, s.Params)
	if err != nil {
		return fmt.Errorf("voice %q: %w", s.Name, err)
	}
	k.Add(s.Name, b)
	return nil
}

// VoiceSeed derives the noise seed of a named voice.
func VoiceSeed(seed int64, name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}

// Add stores a drum voice.
func (k *Kit) Add(name string, b buffer.Buffer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.drums[name] = b
}

// AddTable stores a wavetable.
func (k *Kit) AddTable(name string, t *Wavetable) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tables[name] = t
}

// Drum returns the drum voice called name.
func (k *Kit) Drum(name string) (buffer.Buffer, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	b, ok := k.drums[name]
	return b, ok
}

// Table returns the wavetable called name.
func (k *Kit) Table(name string) (*Wavetable, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	t, ok := k.tables[name]
	return t, ok
}

// Names lists every voice and table, sorted.
func (k *Kit) Names() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.drums)+len(k.tables))
	for n := range k.drums {
		out = append(out, n)
	}
	for n := range k.tables {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
