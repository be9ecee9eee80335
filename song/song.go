// Package song assembles rendered blocks into a complete arrangement.
package song

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/sequencer"
)

// ErrEmptySong reports an arrangement without sections.
var ErrEmptySong = errors.New("empty song")

// Section plays Block Repeat times in a row.
type Section struct {
	Name   string
	Block  *sequencer.Block
	Repeat int
}

// Assembler renders sections at a fixed block duration.
type Assembler struct {
	BlockDuration time.Duration
	// Workers bounds concurrent section renders; <= 0 means unbounded.
	Workers int
}

// Assemble renders every section and joins them in order. A non-empty filter
// solos that channel in every section; sections without it contribute silence.
func (a Assembler) Assemble(ctx context.Context, sections []Section, filter string) (buffer.Buffer, error) {
	if len(sections) == 0 {
		return buffer.Buffer{}, ErrEmptySong
	}
	if a.BlockDuration <= 0 {
		return buffer.Buffer{}, fmt.Errorf("%w: block duration %v", buffer.ErrInvalidDuration, a.BlockDuration)
	}
	found := filter == ""
	for i, s := range sections {
		if s.Block == nil {
			return buffer.Buffer{}, fmt.Errorf("section %d (%s): no block", i, s.Name)
		}
		if s.Repeat < 0 {
			return buffer.Buffer{}, fmt.Errorf("section %d (%s): %w: %d", i, s.Name, sequencer.ErrInvalidLoopCount, s.Repeat)
		}
		if !found && s.Block.Has(filter) {
			found = true
		}
	}
	if !found {
		return buffer.Buffer{}, fmt.Errorf("%w: no section contains %q", sequencer.ErrUnboundChannel, filter)
	}

	parts := make([]buffer.Buffer, len(sections))
	g, ctx := errgroup.WithContext(ctx)
	if a.Workers > 0 {
		g.SetLimit(a.Workers)
	}
	for i, s := range sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			blk := s.Block
			if filter != "" {
				blk = blk.Only(filter)
			}
			out, err := sequencer.Render(blk, a.BlockDuration, s.Repeat)
			if err != nil {
				return fmt.Errorf("section %d (%s): %w", i, s.Name, err)
			}
			parts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return buffer.Buffer{}, err
	}
	return buffer.Concat(parts...)
}

// Duration is the length Assemble produces for sections.
func (a Assembler) Duration(sections []Section) time.Duration {
	var total time.Duration
	for _, s := range sections {
		total += time.Duration(s.Repeat) * a.BlockDuration
	}
	return total
}
