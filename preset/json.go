// Package preset loads song files: the voices, patterns and arrangement of a
// song, applied over the built-in voice defaults.
package preset

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/cwbudde/algo-dub/buffer"
	"github.com/cwbudde/algo-dub/osc"
	"github.com/cwbudde/algo-dub/reverb"
	"github.com/cwbudde/algo-dub/synth"
)

// CurrentVersion is written by this package and accepted by FormatConstraint.
const CurrentVersion = "1.0.0"

// FormatConstraint bounds the song file versions this package reads.
const FormatConstraint = "^1"

// ErrUnsupportedVersion reports a song file outside FormatConstraint.
var ErrUnsupportedVersion = errors.New("unsupported song file version")

//go:embed default.json
var defaultSong []byte

// File is the JSON schema for song files.
type File struct {
	FormatVersion   string                  `json:"format_version"`
	Name            string                  `json:"name"`
	SampleRate      *int                    `json:"sample_rate"`
	Channels        *int                    `json:"channels"`
	BitDepth        *int                    `json:"bit_depth"`
	Stereo          *bool                   `json:"stereo"`
	Seed            *int64                  `json:"seed"`
	BlockDurationMS *float64                `json:"block_duration_ms"`
	Voices          map[string]VoiceSetting `json:"voices"`
	Levels          map[string]float64      `json:"levels"`
	Blocks          map[string]Block        `json:"blocks"`
	Song            []SectionSetting        `json:"song"`
}

// VoiceSetting is a partial voice entry: unset fields keep the defaults of
// Kind.
type VoiceSetting struct {
	Kind           string           `json:"kind"`
	WavPath        string           `json:"wav_path"`
	DurationMS     *float64         `json:"duration_ms"`
	Frequency      *float64         `json:"frequency"`
	Waveform       *string          `json:"waveform"`
	StartFrequency *float64         `json:"start_frequency"`
	EndFrequency   *float64         `json:"end_frequency"`
	ClickFraction  *float64         `json:"click_fraction"`
	ClickGainDB    *float64         `json:"click_gain_db"`
	NoiseFraction  *float64         `json:"noise_fraction"`
	NoiseGainDB    *float64         `json:"noise_gain_db"`
	BodyFraction   *float64         `json:"body_fraction"`
	BodyGainDB     *float64         `json:"body_gain_db"`
	VibratoDepth   *float64         `json:"vibrato_depth"`
	VibratoRate    *float64         `json:"vibrato_rate"`
	PreGainDB      *float64         `json:"pre_gain_db"`
	Filter         *string          `json:"filter"`
	Cutoff         *float64         `json:"cutoff"`
	DriveDB        *float64         `json:"drive_db"`
	Echo           *EchoSetting     `json:"echo"`
	Reverb         *ReverbSetting   `json:"reverb"`
	Envelope       *EnvelopeSetting `json:"envelope"`
	Normalize      *bool            `json:"normalize"`
	HeadroomDB     *float64         `json:"headroom_db"`
	GainDB         *float64         `json:"gain_db"`
	Table          *TableSetting    `json:"table"`
}

// EchoSetting overrides the voice echo. Enabled=false removes it.
type EchoSetting struct {
	Enabled       *bool    `json:"enabled"`
	DelayMS       *float64 `json:"delay_ms"`
	Decay         *float64 `json:"decay"`
	AttenuationDB *float64 `json:"attenuation_db"`
}

// ReverbSetting adds a synthesized room to the voice. Unset fields keep
// reverb.DefaultConfig.
type ReverbSetting struct {
	Wet         *float64 `json:"wet"`
	DurationMS  *float64 `json:"duration_ms"`
	Seed        *int64   `json:"seed"`
	Brightness  *float64 `json:"brightness"`
	LowDecayMS  *float64 `json:"low_decay_ms"`
	HighDecayMS *float64 `json:"high_decay_ms"`
	EarlyCount  *int     `json:"early_count"`
	LateLevel   *float64 `json:"late_level"`
	StereoWidth *float64 `json:"stereo_width"`
}

// EnvelopeSetting is an ADSR over the voice duration.
type EnvelopeSetting struct {
	AttackMS     float64 `json:"attack_ms"`
	DecayMS      float64 `json:"decay_ms"`
	SustainLevel float64 `json:"sustain_level"`
	ReleaseMS    float64 `json:"release_ms"`
}

// TableSetting turns a voice into a wavetable. Chromatic builds notes 1..12;
// Offsets maps note indices (as strings) to semitones from Base.
type TableSetting struct {
	Base      *float64       `json:"base"`
	Chromatic bool           `json:"chromatic"`
	Offsets   map[string]int `json:"offsets"`
}

// Block is one pattern: channel name to step values.
type Block map[string][]int

// SectionSetting plays a named block Repeat times.
type SectionSetting struct {
	Block  string `json:"block"`
	Repeat *int   `json:"repeat"`
}

// Song is a parsed and validated song file.
type Song struct {
	Name          string
	Format        buffer.Format
	Stereo        bool
	Seed          int64
	BlockDuration time.Duration
	Voices        []synth.Spec
	// WavPaths holds sample voices, resolved against the song file directory.
	WavPaths map[string]string
	Levels   map[string]float64
	Blocks   map[string]Block
	Sections []SectionSetting
}

// NewDefaultSong returns the settings used when a song file leaves them out.
func NewDefaultSong() *Song {
	return &Song{
		Name:          "untitled",
		Format:        buffer.DefaultFormat(),
		Seed:          1,
		BlockDuration: 2 * time.Second,
		WavPaths:      map[string]string{},
		Levels:        map[string]float64{},
		Blocks:        map[string]Block{},
	}
}

// Default returns the built-in dub song.
func Default() (*Song, error) {
	return Parse(defaultSong)
}

// DefaultJSON returns the raw built-in song file.
func DefaultJSON() []byte {
	return append([]byte(nil), defaultSong...)
}

// Load reads a song file. Relative wav_path entries are resolved against the
// file's directory.
func Load(path string) (*Song, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for name, p := range s.WavPaths {
		if !filepath.IsAbs(p) {
			s.WavPaths[name] = filepath.Clean(filepath.Join(base, p))
		}
	}
	return s, nil
}

// Parse decodes and validates a song file.
func Parse(data []byte) (*Song, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	s := NewDefaultSong()
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}
	return s, nil
}

// CheckVersion accepts an empty version as CurrentVersion.
func CheckVersion(v string) error {
	if strings.TrimSpace(v) == "" {
		v = CurrentVersion
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, v, err)
	}
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return err
	}
	if !c.Check(sv) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, sv, FormatConstraint)
	}
	return nil
}

// ApplyFile applies a parsed song file onto dst.
func ApplyFile(dst *Song, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination song")
	}
	if f == nil {
		return nil
	}
	if err := CheckVersion(f.FormatVersion); err != nil {
		return err
	}

	if f.Name != "" {
		dst.Name = strings.TrimSpace(f.Name)
	}
	if f.SampleRate != nil {
		dst.Format.SampleRate = *f.SampleRate
	}
	if f.Channels != nil {
		dst.Format.Channels = *f.Channels
	}
	if f.BitDepth != nil {
		dst.Format.BitDepth = *f.BitDepth
	}
	if err := dst.Format.Validate(); err != nil {
		return err
	}
	if f.Stereo != nil {
		dst.Stereo = *f.Stereo
	}
	if f.Seed != nil {
		dst.Seed = *f.Seed
	}
	if f.BlockDurationMS != nil {
		if *f.BlockDurationMS <= 0 {
			return fmt.Errorf("block_duration_ms must be > 0")
		}
		dst.BlockDuration = ms(*f.BlockDurationMS)
	}

	names := make([]string, 0, len(f.Voices))
	for name := range f.Voices {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := f.Voices[name]
		if v.WavPath != "" {
			dst.WavPaths[name] = strings.TrimSpace(v.WavPath)
			continue
		}
		spec, err := voiceSpec(name, v)
		if err != nil {
			return err
		}
		dst.Voices = append(dst.Voices, spec)
	}

	for name, db := range f.Levels {
		dst.Levels[name] = db
	}
	for name, blk := range f.Blocks {
		if len(blk) == 0 {
			return fmt.Errorf("block %q has no channels", name)
		}
		dst.Blocks[name] = blk
	}

	if len(f.Song) > 0 {
		dst.Sections = make([]SectionSetting, 0, len(f.Song))
	}
	for i, sec := range f.Song {
		if _, ok := dst.Blocks[sec.Block]; !ok {
			return fmt.Errorf("song[%d]: unknown block %q", i, sec.Block)
		}
		if sec.Repeat == nil {
			one := 1
			sec.Repeat = &one
		}
		if *sec.Repeat < 0 {
			return fmt.Errorf("song[%d].repeat must be >= 0", i)
		}
		dst.Sections = append(dst.Sections, sec)
	}
	return nil
}

func voiceSpec(name string, v VoiceSetting) (synth.Spec, error) {
	if v.Kind == "" {
		return synth.Spec{}, fmt.Errorf("voices[%s].kind is required", name)
	}
	p := synth.DefaultParams(synth.Kind(v.Kind))
	if err := applyVoice(&p, v); err != nil {
		return synth.Spec{}, fmt.Errorf("voices[%s]: %w", name, err)
	}
	spec := synth.Spec{Name: name, Params: p}
	if t := v.Table; t != nil {
		spec.Base = p.Frequency
		if t.Base != nil {
			if *t.Base <= 0 {
				return synth.Spec{}, fmt.Errorf("voices[%s].table.base must be > 0", name)
			}
			spec.Base = *t.Base
		}
		spec.Offsets = make(map[int]int)
		if t.Chromatic {
			for n := 0; n < 12; n++ {
				spec.Offsets[n+1] = n
			}
		}
		for k, semis := range t.Offsets {
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 1 {
				return synth.Spec{}, fmt.Errorf("voices[%s].table: invalid note index %q (expected >= 1)", name, k)
			}
			spec.Offsets[idx] = semis
		}
		if len(spec.Offsets) == 0 {
			return synth.Spec{}, fmt.Errorf("voices[%s].table defines no notes", name)
		}
	}
	if err := p.Validate(); err != nil {
		return synth.Spec{}, fmt.Errorf("voices[%s]: %w", name, err)
	}
	return spec, nil
}

func applyVoice(p *synth.Params, v VoiceSetting) error {
	if v.DurationMS != nil {
		if *v.DurationMS <= 0 {
			return fmt.Errorf("duration_ms must be > 0")
		}
		p.Duration = ms(*v.DurationMS)
	}
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&p.Frequency, v.Frequency)
	setF(&p.StartFrequency, v.StartFrequency)
	setF(&p.EndFrequency, v.EndFrequency)
	setF(&p.ClickFraction, v.ClickFraction)
	setF(&p.ClickGainDB, v.ClickGainDB)
	setF(&p.NoiseFraction, v.NoiseFraction)
	setF(&p.NoiseGainDB, v.NoiseGainDB)
	setF(&p.BodyFraction, v.BodyFraction)
	setF(&p.BodyGainDB, v.BodyGainDB)
	setF(&p.VibratoDepth, v.VibratoDepth)
	setF(&p.VibratoRate, v.VibratoRate)
	setF(&p.PreGainDB, v.PreGainDB)
	setF(&p.Cutoff, v.Cutoff)
	setF(&p.DriveDB, v.DriveDB)
	setF(&p.HeadroomDB, v.HeadroomDB)
	setF(&p.GainDB, v.GainDB)
	if v.Waveform != nil {
		p.Waveform = synth.Waveform(*v.Waveform)
	}
	if v.Filter != nil {
		p.Filter = *v.Filter
	}
	if v.Normalize != nil {
		p.Normalize = *v.Normalize
	}

	if e := v.Echo; e != nil {
		if e.Enabled != nil && !*e.Enabled {
			p.Echo = nil
		} else {
			echo := synth.EchoParams{Decay: 1}
			if p.Echo != nil {
				echo = *p.Echo
			}
			if e.DelayMS != nil {
				echo.Delay = ms(*e.DelayMS)
			}
			setF(&echo.Decay, e.Decay)
			setF(&echo.AttenuationDB, e.AttenuationDB)
			p.Echo = &echo
		}
	}
	if r := v.Reverb; r != nil {
		cfg := reverb.DefaultConfig()
		setF(&cfg.Wet, r.Wet)
		setF(&cfg.Brightness, r.Brightness)
		setF(&cfg.LateLevel, r.LateLevel)
		setF(&cfg.StereoWidth, r.StereoWidth)
		if r.DurationMS != nil {
			cfg.Duration = ms(*r.DurationMS)
		}
		if r.LowDecayMS != nil {
			cfg.LowDecay = ms(*r.LowDecayMS)
		}
		if r.HighDecayMS != nil {
			cfg.HighDecay = ms(*r.HighDecayMS)
		}
		if r.Seed != nil {
			cfg.Seed = *r.Seed
		}
		if r.EarlyCount != nil {
			cfg.EarlyCount = *r.EarlyCount
		}
		p.Reverb = &cfg
	}
	if e := v.Envelope; e != nil {
		p.Envelope = &osc.EnvelopeSpec{
			Attack:       ms(e.AttackMS),
			Decay:        ms(e.DecayMS),
			SustainLevel: e.SustainLevel,
			Release:      ms(e.ReleaseMS),
		}
	}
	return nil
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}
