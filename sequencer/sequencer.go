// Package sequencer renders fixed-grid step patterns into sample buffers.
package sequencer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

var (
	// ErrUnboundChannel is returned when a pattern or filter names a channel
	// that has no binding.
	ErrUnboundChannel = errors.New("unbound channel")
	// ErrNoteIndexOutOfRange marks melodic steps the table does not hold.
	// Those steps render as silence; Block.Check reports them.
	ErrNoteIndexOutOfRange = errors.New("note index out of range")
	// ErrInvalidPattern is returned for empty, ragged or negative patterns.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrInvalidLoopCount is returned for negative repeat counts.
	ErrInvalidLoopCount = errors.New("invalid loop count")
)

// NoteTable resolves melodic step values to voices. Format reports the format
// shared by its entries, and false for an empty table.
type NoteTable interface {
	Lookup(n int) (buffer.Buffer, bool)
	Format() (buffer.Format, bool)
}

// Binding ties a channel to what its steps trigger. It is either a Drum or a
// Melodic.
type Binding interface {
	// voice returns what step value v triggers, and false for silence.
	voice(v int) (buffer.Buffer, bool)
	format() (buffer.Format, bool)
}

// Drum triggers one voice for every nonzero step.
type Drum struct {
	Voice buffer.Buffer
}

func (d Drum) voice(v int) (buffer.Buffer, bool) { return d.Voice, v != 0 }

func (d Drum) format() (buffer.Format, bool) { return d.Voice.Format(), true }

// Melodic triggers table entry v for step value v. Values the table does not
// hold are silent.
type Melodic struct {
	Table NoteTable
}

func (m Melodic) voice(v int) (buffer.Buffer, bool) {
	if v == 0 || m.Table == nil {
		return buffer.Buffer{}, false
	}
	return m.Table.Lookup(v)
}

func (m Melodic) format() (buffer.Format, bool) {
	if m.Table == nil {
		return buffer.Format{}, false
	}
	return m.Table.Format()
}

// Pattern maps channel names to step values. 0 is a rest.
type Pattern map[string][]int

// Steps returns the shared step count.
func (p Pattern) Steps() int {
	for _, s := range p {
		return len(s)
	}
	return 0
}

// Channels returns the channel names in sorted order.
func (p Pattern) Channels() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Block is a validated pattern with its bindings and per-channel levels (dB).
type Block struct {
	pattern  Pattern
	bindings map[string]Binding
	levels   map[string]float64
	steps    int
	format   buffer.Format
	hasFmt   bool
}

// NewBlock validates pattern against bindings. Channels missing from levels
// play at 0 dB.
func NewBlock(pattern Pattern, bindings map[string]Binding, levels map[string]float64) (*Block, error) {
	if len(pattern) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidPattern)
	}
	steps := -1
	for _, name := range pattern.Channels() {
		s := pattern[name]
		if len(s) == 0 {
			return nil, fmt.Errorf("%w: channel %q has no steps", ErrInvalidPattern, name)
		}
		if steps >= 0 && len(s) != steps {
			return nil, fmt.Errorf("%w: channel %q has %d steps, want %d", ErrInvalidPattern, name, len(s), steps)
		}
		steps = len(s)
		for i, v := range s {
			if v < 0 {
				return nil, fmt.Errorf("%w: channel %q step %d is %d", ErrInvalidPattern, name, i, v)
			}
		}
		bnd, ok := bindings[name]
		if !ok || bnd == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnboundChannel, name)
		}
	}

	b := &Block{
		pattern:  make(Pattern, len(pattern)),
		bindings: make(map[string]Binding, len(pattern)),
		levels:   make(map[string]float64, len(pattern)),
		steps:    steps,
	}
	for name, s := range pattern {
		b.pattern[name] = append([]int(nil), s...)
		b.bindings[name] = bindings[name]
		b.levels[name] = levels[name]
	}
	b.format, b.hasFmt = b.resolveFormat()
	return b, nil
}

// Steps is the number of steps per channel.
func (b *Block) Steps() int { return b.steps }

// Channels returns the channel names in sorted order.
func (b *Block) Channels() []string { return b.pattern.Channels() }

// Has reports whether the block contains channel.
func (b *Block) Has(channel string) bool {
	_, ok := b.pattern[channel]
	return ok
}

// Pattern returns a copy of the block's pattern.
func (b *Block) Pattern() Pattern {
	out := make(Pattern, len(b.pattern))
	for name, s := range b.pattern {
		out[name] = append([]int(nil), s...)
	}
	return out
}

// Only returns a copy in which every channel but channel is muted. A block
// without channel becomes entirely silent.
func (b *Block) Only(channel string) *Block {
	out := &Block{
		pattern:  make(Pattern, len(b.pattern)),
		bindings: b.bindings,
		levels:   b.levels,
		steps:    b.steps,
		format:   b.format,
		hasFmt:   b.hasFmt,
	}
	for name, s := range b.pattern {
		if name == channel {
			out.pattern[name] = append([]int(nil), s...)
			continue
		}
		out.pattern[name] = make([]int, len(s))
	}
	return out
}

// Check reports melodic steps whose note index the channel's table does not
// hold. Such steps render as silence; Check exists for diagnostics only.
func (b *Block) Check() error {
	var errs []error
	for _, name := range b.Channels() {
		m, ok := b.bindings[name].(Melodic)
		if !ok {
			continue
		}
		for i, v := range b.pattern[name] {
			if v == 0 {
				continue
			}
			if _, ok := m.voice(v); !ok {
				errs = append(errs, fmt.Errorf("channel %q step %d: %w: %d", name, i, ErrNoteIndexOutOfRange, v))
			}
		}
	}
	return errors.Join(errs...)
}

// Format returns the format of the block's voices, taken from the first
// binding that has one when the block was built.
func (b *Block) Format() (buffer.Format, error) {
	if !b.hasFmt {
		return buffer.Format{}, fmt.Errorf("%w: block has no voices to take a format from", ErrInvalidPattern)
	}
	return b.format, nil
}

func (b *Block) resolveFormat() (buffer.Format, bool) {
	for _, name := range b.Channels() {
		bnd := b.bindings[name]
		if f, ok := bnd.format(); ok {
			return f, true
		}
		for _, v := range b.pattern[name] {
			if voice, ok := bnd.voice(v); ok {
				return voice.Format(), true
			}
		}
	}
	return buffer.Format{}, false
}

// Render plays the block once over total and repeats the result loops times.
// Each step lasts total/Steps(); a voice longer than its step is cut off at
// the step boundary.
func Render(b *Block, total time.Duration, loops int) (buffer.Buffer, error) {
	if total <= 0 {
		return buffer.Buffer{}, fmt.Errorf("%w: block duration %v", buffer.ErrInvalidDuration, total)
	}
	if loops < 0 {
		return buffer.Buffer{}, fmt.Errorf("%w: %d", ErrInvalidLoopCount, loops)
	}
	format, err := b.Format()
	if err != nil {
		return buffer.Buffer{}, err
	}
	base, err := buffer.Silence(format, total)
	if err != nil {
		return buffer.Buffer{}, err
	}
	step := total / time.Duration(b.steps)
	if step <= 0 {
		return buffer.Buffer{}, fmt.Errorf("%w: %d steps in %v", buffer.ErrInvalidDuration, b.steps, total)
	}
	rest, err := buffer.Silence(format, step)
	if err != nil {
		return buffer.Buffer{}, err
	}

	for _, name := range b.Channels() {
		track, err := b.track(name, rest)
		if err != nil {
			return buffer.Buffer{}, fmt.Errorf("channel %q: %w", name, err)
		}
		if base, err = base.Overlay(track, 0); err != nil {
			return buffer.Buffer{}, fmt.Errorf("channel %q: %w", name, err)
		}
	}
	return base.Repeat(loops)
}

func (b *Block) track(name string, rest buffer.Buffer) (buffer.Buffer, error) {
	bnd := b.bindings[name]
	level := b.levels[name]
	// Voices are reused across steps; attenuate each distinct value once.
	cache := make(map[int]buffer.Buffer)
	segs := make([]buffer.Buffer, 0, b.steps)
	for _, v := range b.pattern[name] {
		voice, ok := bnd.voice(v)
		if !ok {
			segs = append(segs, rest)
			continue
		}
		att, seen := cache[v]
		if !seen {
			att = voice.Gain(level)
			cache[v] = att
		}
		seg, err := rest.Overlay(att, 0)
		if err != nil {
			return buffer.Buffer{}, err
		}
		segs = append(segs, seg)
	}
	return buffer.Concat(segs...)
}
