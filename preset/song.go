package preset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/internal/wavio"
	"github.com/cwbudde/algo-dub/sequencer"
	"github.com/cwbudde/algo-dub/song"
	"github.com/cwbudde/algo-dub/synth"
)

// Arrangement is a song with every voice rendered and every block bound.
type Arrangement struct {
	Song     *Song
	Kit      *synth.Kit
	Blocks   map[string]*sequencer.Block
	Sections []song.Section
}

// Build renders the voices (at most workers at a time) and binds the blocks.
func (s *Song) Build(ctx context.Context, workers int) (*Arrangement, error) {
	specs := append([]synth.Spec(nil), s.Voices...)
	names := make([]string, 0, len(s.WavPaths))
	for name := range s.WavPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sample, err := wavio.ReadVoice(s.WavPaths[name], s.Format)
		if err != nil {
			return nil, fmt.Errorf("voice %q: %w", name, err)
		}
		specs = append(specs, synth.Spec{Name: name, Sample: &sample})
	}

	kit, err := synth.BuildKit(ctx, s.Format, s.Seed, specs, workers)
	if err != nil {
		return nil, err
	}

	a := &Arrangement{Song: s, Kit: kit, Blocks: make(map[string]*sequencer.Block, len(s.Blocks))}
	for name, blk := range s.Blocks {
		bindings := make(map[string]sequencer.Binding, len(blk))
		for ch := range blk {
			if t, ok := kit.Table(ch); ok {
				bindings[ch] = sequencer.Melodic{Table: t}
			} else if v, ok := kit.Drum(ch); ok {
				bindings[ch] = sequencer.Drum{Voice: v}
			}
		}
		b, err := sequencer.NewBlock(sequencer.Pattern(blk), bindings, s.Levels)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", name, err)
		}
		a.Blocks[name] = b
	}
	for _, sec := range s.Sections {
		a.Sections = append(a.Sections, song.Section{Name: sec.Block, Block: a.Blocks[sec.Block], Repeat: *sec.Repeat})
	}
	return a, nil
}

// Check collects the diagnostics of every block.
func (a *Arrangement) Check() error {
	names := make([]string, 0, len(a.Blocks))
	for name := range a.Blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs []error
	for _, name := range names {
		if err := a.Blocks[name].Check(); err != nil {
			errs = append(errs, fmt.Errorf("block %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Render assembles the song, optionally solo-ing channel, and converts it to
// stereo when the song asks for it.
func (a *Arrangement) Render(ctx context.Context, channel string, workers int) (buffer.Buffer, error) {
	asm := song.Assembler{BlockDuration: a.Song.BlockDuration, Workers: workers}
	out, err := asm.Assemble(ctx, a.Sections, channel)
	if err != nil {
		return buffer.Buffer{}, err
	}
	if a.Song.Stereo {
		out = out.ToStereo()
	}
	return out, nil
}
