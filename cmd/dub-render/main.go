package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/cwbudde/algo-dub/analysis"
	"github.com/cwbudde/algo-dub/internal/playback"
	"github.com/cwbudde/algo-dub/internal/watch"
	"github.com/cwbudde/algo-dub/internal/wavio"
	"github.com/cwbudde/algo-dub/preset"
)

var logger *log.Logger

type options struct {
	songPath string
	output   string
	channel  string
	workers  int
	seed     int64
	stereo   bool
	play     bool
	watch    bool
	dump     bool
	stats    bool

	seedSet   bool
	stereoSet bool
}

func main() {
	logger = log.New(os.Stdout, "", log.Ldate|log.Ltime)

	var o options
	pflag.StringVarP(&o.songPath, "song", "s", "", "song JSON file (default: built-in dub song)")
	pflag.StringVarP(&o.output, "output", "o", "dub.wav", "output WAV file path")
	pflag.StringVarP(&o.channel, "channel", "c", "", "render only this channel")
	pflag.IntVarP(&o.workers, "workers", "j", runtime.NumCPU(), "parallel voice and section renders")
	pflag.Int64Var(&o.seed, "seed", 1, "noise seed override")
	pflag.BoolVar(&o.stereo, "stereo", true, "convert to stereo before export")
	pflag.BoolVarP(&o.play, "play", "p", false, "play the result after rendering")
	pflag.BoolVarP(&o.watch, "watch", "w", false, "re-render whenever the song file changes")
	pflag.BoolVar(&o.dump, "dump", false, "dump the parsed song before rendering")
	pflag.BoolVar(&o.stats, "stats", false, "print level statistics of the result")
	pflag.Parse()
	o.seedSet = pflag.CommandLine.Changed("seed")
	o.stereoSet = pflag.CommandLine.Changed("stereo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.watch && o.songPath == "" {
		logger.Fatalf("--watch needs --song")
	}
	if err := firstRender(ctx, o); err != nil {
		logger.Fatalf("render failed: %v", err)
	}
	if !o.watch {
		return
	}
	logger.Printf("Watching %s", o.songPath)
	err := watch.File(ctx, o.songPath, watch.DefaultDebounce, func() {
		logger.Printf("%s changed, re-rendering", o.songPath)
		if err := run(ctx, o); err != nil {
			logger.Printf("render failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("watch: %v", err)
	}
}

// firstRender runs the initial render. In watch mode a failure is only logged
// so that the next save of the song file can fix it.
func firstRender(ctx context.Context, o options) error {
	err := run(ctx, o)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	if o.watch {
		logger.Printf("render failed: %v", err)
		return nil
	}
	return err
}

func run(ctx context.Context, o options) error {
	start := time.Now()
	s, err := loadSong(o.songPath)
	if err != nil {
		return err
	}
	if o.seedSet {
		s.Seed = o.seed
	}
	if o.stereoSet {
		s.Stereo = o.stereo
	}
	if o.dump {
		spew.Dump(s)
	}

	logger.Printf("Rendering %q: %d voices, %d blocks, %d sections at %v", s.Name, len(s.Voices)+len(s.WavPaths), len(s.Blocks), len(s.Sections), s.Format)
	arr, err := s.Build(ctx, o.workers)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := arr.Check(); err != nil {
		logger.Printf("warning: %v", err)
	}
	out, err := arr.Render(ctx, o.channel, o.workers)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := wavio.WriteBuffer(o.output, out); err != nil {
		return err
	}
	fmt.Printf("Successfully wrote %s (%d frames, %.2fs) in %v\n", o.output, out.Frames(), out.Duration().Seconds(), time.Since(start).Round(time.Millisecond))
	if out.Clipped() > 0 {
		logger.Printf("warning: %d samples clipped", out.Clipped())
	}

	if o.stats {
		st := analysis.Measure(out)
		fmt.Printf("Format:   %s\n", st.Format)
		fmt.Printf("Peak:     %.2f dBFS\n", st.PeakDBFS)
		fmt.Printf("RMS:      %.2f dBFS\n", st.RMSDBFS)
		fmt.Printf("Crest:    %.2f dB\n", st.CrestDB)
		fmt.Printf("Clipped:  %d\n", st.Clipped)
	}

	if o.play {
		if !playback.Available() {
			logger.Printf("playback not compiled in (headless build)")
			return nil
		}
		logger.Printf("Playing %s", o.output)
		if err := playback.Play(ctx, out); err != nil {
			return fmt.Errorf("play: %w", err)
		}
	}
	return nil
}

func loadSong(path string) (*preset.Song, error) {
	if path == "" {
		return preset.Default()
	}
	return preset.Load(path)
}
