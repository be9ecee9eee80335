package sequencer

import (
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/algo-dub/buffer"
)

type table map[int]buffer.Buffer

func (t table) Lookup(n int) (buffer.Buffer, bool) {
	b, ok := t[n]
	return b, ok
}

func (t table) Format() (buffer.Format, bool) {
	for _, b := range t {
		return b.Format(), true
	}
	return buffer.Format{}, false
}

func constVoice(t *testing.T, value, frames int) buffer.Buffer {
	t.Helper()
	data := make([]int, frames)
	for i := range data {
		data[i] = value
	}
	b, err := buffer.New(buffer.DefaultFormat(), data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestRenderSingleKick(t *testing.T) {
	kick := constVoice(t, 1000, 4410) // 100 ms
	blk, err := NewBlock(Pattern{"kick": {1, 0}}, map[string]Binding{"kick": Drum{Voice: kick}}, nil)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	out, err := Render(blk, time.Second, 2)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.Frames() != 88200 {
		t.Fatalf("expected 2 s of audio, got %d frames", out.Frames())
	}
	s := out.Samples()
	for _, loop := range []int{0, 44100} {
		for i := 0; i < 4410; i++ {
			if s[loop+i] != 1000 {
				t.Fatalf("loop at %d: expected kick at frame %d, got %d", loop, i, s[loop+i])
			}
		}
		for i := 4410; i < 44100; i++ {
			if s[loop+i] != 0 {
				t.Fatalf("loop at %d: expected silence at frame %d, got %d", loop, i, s[loop+i])
			}
		}
	}
}

func TestRenderTruncatesLongVoices(t *testing.T) {
	long := constVoice(t, 500, 44100)
	blk, _ := NewBlock(Pattern{"pad": {1, 0, 0, 0}}, map[string]Binding{"pad": Drum{Voice: long}}, nil)
	out, err := Render(blk, time.Second, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := out.Samples()
	if s[11024] != 500 || s[11025] != 0 {
		t.Fatalf("expected voice cut at the step boundary, got %d then %d", s[11024], s[11025])
	}
}

func TestRenderMixesChannelsWithLevels(t *testing.T) {
	a := constVoice(t, 1000, 100)
	b := constVoice(t, 1000, 100)
	blk, err := NewBlock(
		Pattern{"a": {1}, "b": {1}},
		map[string]Binding{"a": Drum{Voice: a}, "b": Drum{Voice: b}},
		map[string]float64{"b": -20},
	)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	out, err := Render(blk, 100*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := out.Samples()[0]; got != 1100 {
		t.Fatalf("expected 1000 + 100, got %d", got)
	}
}

func TestRenderMelodic(t *testing.T) {
	notes := table{1: constVoice(t, 100, 10), 5: constVoice(t, 500, 10)}
	blk, err := NewBlock(Pattern{"lead": {1, 5, 9, 0}}, map[string]Binding{"lead": Melodic{Table: notes}}, nil)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	out, err := Render(blk, 400*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := out.Samples()
	step := 4410
	want := []int{100, 500, 0, 0}
	for i, w := range want {
		if s[i*step] != w {
			t.Fatalf("step %d: expected %d, got %d", i, w, s[i*step])
		}
	}
	if err := blk.Check(); !errors.Is(err, ErrNoteIndexOutOfRange) {
		t.Fatalf("expected ErrNoteIndexOutOfRange from Check, got %v", err)
	}
}

func TestRenderMelodicWithoutNotesIsSilence(t *testing.T) {
	notes := table{1: constVoice(t, 100, 10)}
	for _, steps := range [][]int{{0, 0, 0, 0}, {9, 0}} {
		blk, err := NewBlock(Pattern{"lead": steps}, map[string]Binding{"lead": Melodic{Table: notes}}, nil)
		if err != nil {
			t.Fatalf("NewBlock(%v): %v", steps, err)
		}
		out, err := Render(blk, 400*time.Millisecond, 1)
		if err != nil {
			t.Fatalf("Render(%v): %v", steps, err)
		}
		want, _ := buffer.Silence(buffer.DefaultFormat(), 400*time.Millisecond)
		if !out.Equal(want) {
			t.Fatalf("%v: expected %d silent frames, got %d frames peaking at %d", steps, want.Frames(), out.Frames(), out.Peak())
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	kick := constVoice(t, 700, 300)
	snare := constVoice(t, -300, 200)
	bindings := map[string]Binding{"kick": Drum{Voice: kick}, "snare": Drum{Voice: snare}}
	blk, _ := NewBlock(Pattern{"kick": {1, 0, 1, 0}, "snare": {0, 1, 0, 1}}, bindings, nil)
	a, _ := Render(blk, 200*time.Millisecond, 3)
	b, _ := Render(blk, 200*time.Millisecond, 3)
	if !a.Equal(b) {
		t.Fatalf("render is not deterministic")
	}
}

func TestZeroLoopsIsSilenceOfZero(t *testing.T) {
	blk, _ := NewBlock(Pattern{"k": {1}}, map[string]Binding{"k": Drum{Voice: constVoice(t, 1, 10)}}, nil)
	out, err := Render(blk, time.Second, 0)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	empty, _ := buffer.Silence(buffer.DefaultFormat(), 0)
	if !out.Equal(empty) {
		t.Fatalf("expected an empty buffer, got %d frames", out.Frames())
	}
}

func TestNewBlockValidation(t *testing.T) {
	v := Drum{Voice: constVoice(t, 1, 10)}
	cases := []struct {
		name     string
		pattern  Pattern
		bindings map[string]Binding
		want     error
	}{
		{"empty", Pattern{}, nil, ErrInvalidPattern},
		{"no steps", Pattern{"k": {}}, map[string]Binding{"k": v}, ErrInvalidPattern},
		{"ragged", Pattern{"a": {1, 0}, "b": {1}}, map[string]Binding{"a": v, "b": v}, ErrInvalidPattern},
		{"negative", Pattern{"a": {1, -1}}, map[string]Binding{"a": v}, ErrInvalidPattern},
		{"unbound", Pattern{"a": {1}, "ghost": {1}}, map[string]Binding{"a": v}, ErrUnboundChannel},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewBlock(c.pattern, c.bindings, nil); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestRenderRejectsBadArguments(t *testing.T) {
	blk, _ := NewBlock(Pattern{"k": {1}}, map[string]Binding{"k": Drum{Voice: constVoice(t, 1, 10)}}, nil)
	if _, err := Render(blk, 0, 1); !errors.Is(err, buffer.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := Render(blk, time.Second, -1); !errors.Is(err, ErrInvalidLoopCount) {
		t.Fatalf("expected ErrInvalidLoopCount, got %v", err)
	}
}

func TestOnlyMutesOtherChannels(t *testing.T) {
	bindings := map[string]Binding{
		"kick":  Drum{Voice: constVoice(t, 1000, 10)},
		"snare": Drum{Voice: constVoice(t, 200, 10)},
	}
	blk, _ := NewBlock(Pattern{"kick": {1, 0}, "snare": {1, 1}}, bindings, nil)
	solo := blk.Only("snare")
	out, err := Render(solo, 100*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := out.Samples()[0]; got != 200 {
		t.Fatalf("expected only the snare, got %d", got)
	}
	if blk.Pattern()["kick"][0] != 1 {
		t.Fatalf("Only must not modify the original block")
	}

	silent, err := Render(blk.Only("bass"), 100*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if silent.Peak() != 0 {
		t.Fatalf("expected silence for a channel the block lacks")
	}
}
