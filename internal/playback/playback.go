// Package playback sends rendered buffers to the default audio device.
package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"

	"github.com/cwbudde/algo-dub/buffer"
)

// ErrUnavailable is returned when the binary was built without an audio
// backend.
var ErrUnavailable = errors.New("audio playback unavailable")

// encodeFloat32LE interleaves b as little-endian float32 PCM.
func encodeFloat32LE(b buffer.Buffer) *bytes.Reader {
	floats := b.Floats()
	raw := make([]byte, len(floats)*4)
	for i, v := range floats {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
	}
	return bytes.NewReader(raw)
}
