//go:build headless

package playback

import (
	"context"

	"github.com/cwbudde/algo-dub/buffer"
)

// Play always fails in headless builds.
func Play(ctx context.Context, b buffer.Buffer) error {
	return ErrUnavailable
}

// Available reports whether an audio backend is compiled in.
func Available() bool { return false }
