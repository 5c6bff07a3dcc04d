// Package audio plays collision effects and background music through beep.
package audio

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"

	"marbles/internal/config"
	"marbles/internal/logger"
)

const (
	bufferTime    = 100 * time.Millisecond
	resampleQual  = 4
	clickFreq     = 1200
	clickDuration = 40 * time.Millisecond
)

// Player owns the speaker mixer. Impacts and music can be triggered from the game loop while
// the speaker goroutine streams the mixer.
type Player struct {
	mu      sync.Mutex
	cfg     config.Audio
	log     *logger.Logger
	sr      beep.SampleRate
	mixer   *beep.Mixer
	effects []*beep.Buffer
	rng     *rand.Rand

	track   int
	music   *beep.Ctrl
	closer  beep.StreamSeekCloser
	playing bool

	initialized bool
}

func New(cfg config.Audio, log *logger.Logger) *Player {
	if log == nil {
		log = logger.Discard()
	}
	return &Player{
		cfg:   cfg,
		log:   log,
		sr:    beep.SampleRate(cfg.SampleRate),
		mixer: &beep.Mixer{},
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Init opens the speaker and loads the effect samples. Effects that fail to load are
// skipped; with none left a synthesized click is used.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(p.sr, p.sr.N(bufferTime)); err != nil {
		return fmt.Errorf("audio: speaker: %w", err)
	}
	p.loadEffects()
	speaker.Play(p.mixer)
	p.initialized = true
	p.log.Info("audio ready", "effects", len(p.effects), "tracks", len(p.cfg.Music))
	return nil
}

func (p *Player) loadEffects() {
	for _, path := range p.cfg.Effects {
		buf, err := p.loadBuffer(path)
		if err != nil {
			p.log.Warn("effect skipped", "path", path, "err", err)
			continue
		}
		p.effects = append(p.effects, buf)
	}
	if len(p.effects) == 0 {
		p.effects = append(p.effects, click(p.sr))
	}
}

func (p *Player) loadBuffer(path string) (*beep.Buffer, error) {
	s, format, err := decode(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	buf := beep.NewBuffer(beep.Format{SampleRate: p.sr, NumChannels: 2, Precision: 2})
	buf.Append(p.resample(format, s))
	return buf, nil
}

func (p *Player) resample(format beep.Format, s beep.Streamer) beep.Streamer {
	if format.SampleRate == p.sr {
		return s
	}
	return beep.Resample(resampleQual, format.SampleRate, p.sr, s)
}

// decode opens a wav or mp3 file by extension.
func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(f)
	default:
		err = fmt.Errorf("unsupported audio file %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

// click is a short sine blip with a linear fade out.
func click(sr beep.SampleRate) *beep.Buffer {
	buf := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	tone, err := generators.SineTone(sr, clickFreq)
	if err != nil {
		return buf
	}
	n := sr.N(clickDuration)
	i := 0
	fade := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		m, ok := tone.Stream(samples)
		for j := 0; j < m; j++ {
			g := 1 - float64(i)/float64(n)
			samples[j][0] *= g
			samples[j][1] *= g
			i++
		}
		return m, ok
	})
	buf.Append(beep.Take(n, fade))
	return buf
}

// Gain maps an impact volume to a linear gain in [0, 1].
func Gain(volume float64) float64 {
	return math.Max(0, math.Min(1, volume))
}

// withGain wraps s in a base-2 volume effect; zero gain is silent.
func withGain(s beep.Streamer, gain float64) beep.Streamer {
	if gain <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(gain)}
}

// PlayImpact plays one of the effects, picked at random, at the given volume.
func (p *Player) PlayImpact(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || len(p.effects) == 0 {
		return
	}
	buf := p.effects[p.rng.Intn(len(p.effects))]
	s := withGain(buf.Streamer(0, buf.Len()), Gain(volume))
	speaker.Lock()
	p.mixer.Add(s)
	speaker.Unlock()
}

// StartMusic plays the current track; when it ends the next one starts, wrapping around.
func (p *Player) StartMusic() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || p.playing || len(p.cfg.Music) == 0 {
		return
	}
	p.playing = true
	p.startTrack()
}

// startTrack is called with mu held.
func (p *Player) startTrack() {
	for tries := 0; tries < len(p.cfg.Music); tries++ {
		path := p.cfg.Music[p.track]
		s, format, err := decode(path)
		if err != nil {
			p.log.Warn("track skipped", "path", path, "err", err)
			p.track = nextTrack(p.track, len(p.cfg.Music))
			continue
		}
		p.closer = s
		done := beep.Callback(func() { go p.trackEnded(s) })
		p.music = &beep.Ctrl{Streamer: beep.Seq(p.resample(format, s), done)}
		speaker.Lock()
		p.mixer.Add(p.music)
		speaker.Unlock()
		return
	}
	p.playing = false
}

func (p *Player) trackEnded(s beep.StreamSeekCloser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// stopped or replaced in the meantime
	if !p.playing || p.closer != s {
		return
	}
	p.stopTrack()
	p.track = nextTrack(p.track, len(p.cfg.Music))
	p.startTrack()
}

func nextTrack(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i + 1) % n
}

// stopTrack is called with mu held.
func (p *Player) stopTrack() {
	if p.music != nil {
		speaker.Lock()
		p.music.Paused = true
		p.music.Streamer = nil
		speaker.Unlock()
		p.music = nil
	}
	if p.closer != nil {
		p.closer.Close()
		p.closer = nil
	}
}

func (p *Player) StopMusic() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = false
	p.stopTrack()
}

// SkipTrack jumps to the next track if music is playing.
func (p *Player) SkipTrack() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.stopTrack()
	p.track = nextTrack(p.track, len(p.cfg.Music))
	p.startTrack()
}

// Close stops everything and clears the mixer.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	p.playing = false
	p.stopTrack()
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}

// Mute is an Audio that plays nothing, used when audio is disabled or the device is missing.
type Mute struct{}

func (Mute) PlayImpact(float64) {}
func (Mute) StartMusic()        {}
func (Mute) StopMusic()         {}
