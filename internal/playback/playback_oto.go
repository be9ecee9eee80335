//go:build !headless

package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-dub/buffer"
)

// oto allows one context per process; it is opened on first use with that
// buffer's rate and channel count.
var (
	ctxOnce sync.Once
	otoCtx  *oto.Context
	otoFmt  buffer.Format
	otoErr  error
)

func openContext(f buffer.Format) (*oto.Context, error) {
	ctxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   f.SampleRate,
			ChannelCount: f.Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   50 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoFmt = f
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoFmt.SampleRate != f.SampleRate || otoFmt.Channels != f.Channels {
		return nil, fmt.Errorf("playback opened at %d Hz/%dch, got %v: %w", otoFmt.SampleRate, otoFmt.Channels, f, buffer.ErrFormatMismatch)
	}
	return otoCtx, nil
}

// Play blocks until b has been played or ctx is done.
func Play(ctx context.Context, b buffer.Buffer) (err error) {
	octx, err := openContext(b.Format())
	if err != nil {
		return err
	}
	player := octx.NewPlayer(encodeFloat32LE(b))
	defer func() {
		player.Pause()
		if cerr := player.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close player: %w", cerr)
		}
	}()
	player.Play()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return player.Err()
}

// Available reports whether an audio backend is compiled in.
func Available() bool { return true }
