package main

import (
	"testing"

	"github.com/cwbudde/algo-dub/synth"
)

func TestFindVoice(t *testing.T) {
	s, err := loadSong("")
	if err != nil {
		t.Fatalf("loadSong: %v", err)
	}
	kick, ok := findVoice(s, "kick")
	if !ok {
		t.Fatalf("default song has no kick voice")
	}
	if kick.Params.Kind != synth.KindKick {
		t.Fatalf("expected kick params, got kind %q", kick.Params.Kind)
	}
	lead, ok := findVoice(s, "lead")
	if !ok || !lead.Melodic() {
		t.Fatalf("expected a melodic lead voice, got %+v (%t)", lead, ok)
	}
	if _, ok := findVoice(s, "cowbell"); ok {
		t.Fatalf("unknown voice must not be found")
	}
}
