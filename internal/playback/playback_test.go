package playback

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cwbudde/algo-dub/buffer"
)

func TestEncodeFloat32LE(t *testing.T) {
	b, err := buffer.New(buffer.DefaultFormat(), []int{0, 32767, -32767, 16384})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r := encodeFloat32LE(b)
	raw := make([]byte, r.Len())
	if _, err := r.Read(raw); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(raw) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(raw))
	}
	want := []float32{0, 1, -1, 16384.0 / 32767}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if math.Abs(float64(got-w)) > 1e-6 {
			t.Fatalf("sample %d: got %f want %f", i, got, w)
		}
	}
}
