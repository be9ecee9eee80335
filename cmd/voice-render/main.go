package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/cwbudde/algo-dub/analysis"
	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/internal/playback"
	"github.com/cwbudde/algo-dub/internal/wavio"
	"github.com/cwbudde/algo-dub/osc"
	"github.com/cwbudde/algo-dub/preset"
	"github.com/cwbudde/algo-dub/synth"
)

func main() {
	logger := log.New(os.Stdout, "", log.Ldate|log.Ltime)

	songPath := pflag.StringP("song", "s", "", "take the voice from this song JSON file (default: built-in dub song)")
	voice := pflag.StringP("voice", "v", "", "voice name from the song")
	kind := pflag.StringP("kind", "k", "kick", "voice kind when --voice is not set: kick, snare, noise, bass, lead")
	freq := pflag.Float64P("freq", "f", 0, "carrier frequency override in Hz")
	note := pflag.IntP("note", "n", 0, "semitone offset from the carrier frequency")
	duration := pflag.Float64P("duration", "d", 0, "duration override in seconds")
	sampleRate := pflag.Int("sample-rate", 44100, "render sample rate in Hz when --voice is not set")
	seed := pflag.Int64("seed", 1, "noise seed")
	output := pflag.StringP("output", "o", "voice.wav", "output WAV file path")
	compare := pflag.String("compare", "", "reference WAV to compare the render against")
	play := pflag.BoolP("play", "p", false, "play the voice after rendering")
	pflag.Parse()

	format := buffer.DefaultFormat()
	format.SampleRate = *sampleRate
	params := synth.DefaultParams(synth.Kind(*kind))
	name := *kind
	if *voice != "" {
		s, err := loadSong(*songPath)
		if err != nil {
			logger.Fatalf("Error loading song: %v", err)
		}
		spec, ok := findVoice(s, *voice)
		if !ok {
			logger.Fatalf("voice %q is not a synthesized voice of song %q", *voice, s.Name)
		}
		format = s.Format
		params = spec.Params
		if spec.Melodic() && spec.Base > 0 {
			params.Frequency = spec.Base
		}
		name = *voice
	}
	if *freq > 0 {
		params.Frequency = *freq
		params.StartFrequency = *freq
	}
	if *note != 0 {
		params.Frequency = synth.NoteFrequency(params.Frequency, *note)
	}
	if *duration > 0 {
		params.Duration = time.Duration(*duration * float64(time.Second))
	}

	fmt.Printf("Rendering %s (%s, %.2f Hz, %v) at %v...\n", name, params.Kind, params.Frequency, params.Duration, format)

	gen, err := osc.NewSeeded(format, synth.VoiceSeed(*seed, name))
	if err != nil {
		logger.Fatalf("generator: %v", err)
	}
	out, err := synth.Synthesize(gen, params)
	if err != nil {
		logger.Fatalf("synthesize: %v", err)
	}
	if err := wavio.WriteBuffer(*output, out); err != nil {
		logger.Fatalf("Error writing WAV file: %v", err)
	}
	st := analysis.Measure(out)
	fmt.Printf("Successfully wrote %s (%d frames, peak %.2f dBFS, %d clipped)\n", *output, st.Frames, st.PeakDBFS, st.Clipped)

	if *compare != "" {
		ref, err := wavio.ReadVoice(*compare, out.Format())
		if err != nil {
			logger.Fatalf("Error reading reference: %v", err)
		}
		m, err := analysis.Compare(ref, out)
		if err != nil {
			logger.Fatalf("compare: %v", err)
		}
		fmt.Printf("Lag:         %d frames\n", m.LagFrames)
		fmt.Printf("Time RMSE:   %.4f\n", m.TimeRMSE)
		fmt.Printf("Envelope:    %.2f dB RMSE\n", m.EnvelopeRMSEDB)
		fmt.Printf("Spectrum:    %.2f dB RMSE\n", m.SpectralRMSEDB)
		fmt.Printf("Similarity:  %.3f (score %.3f)\n", m.Similarity, m.Score)
	}

	if *play {
		if err := playback.Play(context.Background(), out); err != nil {
			logger.Fatalf("play: %v", err)
		}
	}
}

func loadSong(path string) (*preset.Song, error) {
	if path == "" {
		return preset.Default()
	}
	return preset.Load(path)
}

func findVoice(s *preset.Song, name string) (synth.Spec, bool) {
	for _, v := range s.Voices {
		if v.Name == name {
			return v, true
		}
	}
	return synth.Spec{}, false
}
