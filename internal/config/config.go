// Package config loads the game settings from config/marbles.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default settings file, relative to the process working directory.
const ConfigPath = "config/marbles.yaml"

const (
	StepFrame      = "frame"      // one fixed step per rendered frame
	StepAccumulate = "accumulate" // sub-step the measured frame time

	FrontendRaylib = "raylib"
	FrontendTUI    = "tui"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Window   Window  `yaml:"window"`
	Physics  Physics `yaml:"physics"`
	Game     Game    `yaml:"game"`
	Audio    Audio   `yaml:"audio"`
	Frontend string  `yaml:"frontend"`
	LogFile  string  `yaml:"log_file"`
	LogLevel string  `yaml:"log_level"`
}

type Window struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	Title      string `yaml:"title"`
	FPS        int    `yaml:"fps"`
}

type Physics struct {
	Gravity   [3]float64 `yaml:"gravity,flow"`
	FixedStep float64    `yaml:"fixed_step"`
	// SolverSubsteps splits each fixed step for the contact solver.
	SolverSubsteps int    `yaml:"solver_substeps"`
	StepMode       string `yaml:"step_mode"`
	// MaxSubsteps caps the fixed steps taken per frame in accumulate mode.
	MaxSubsteps int `yaml:"max_substeps"`
}

type Game struct {
	Marbles    int     `yaml:"marbles"`
	RingRadius float64 `yaml:"ring_radius"`
	// SettleTimeout forces the next turn after this many seconds of settling; 0 waits forever.
	SettleTimeout float64    `yaml:"settle_timeout"`
	AimSpeed      float64    `yaml:"aim_speed"`
	TolleyStart   [3]float64 `yaml:"tolley_start,flow"`
}

type Audio struct {
	Enabled    bool     `yaml:"enabled"`
	Effects    []string `yaml:"effects"`
	Music      []string `yaml:"music"`
	SampleRate int      `yaml:"sample_rate"`
}

// Default returns the settings the game ships with.
func Default() Config {
	return Config{
		Window: Window{Width: 1024, Height: 768, Title: "Marbles", FPS: 60},
		Physics: Physics{
			Gravity:        [3]float64{0, -9.8, 0},
			FixedStep:      0.05,
			SolverSubsteps: 10,
			StepMode:       StepFrame,
			MaxSubsteps:    5,
		},
		Game: Game{
			Marbles:     25,
			RingRadius:  20,
			AimSpeed:    5,
			TolleyStart: [3]float64{-20, 0, 50},
		},
		Audio: Audio{
			Enabled:    true,
			Effects:    []string{"music/ballHit1.wav", "music/ballHit2.wav", "music/ballHit3.wav"},
			Music:      []string{"music/marbles_music1.mp3", "music/marbles_music2.mp3"},
			SampleRate: 44100,
		},
		Frontend: FrontendRaylib,
		LogFile:  "logs/marbles.txt",
		LogLevel: "info",
	}
}

// Load reads settings from path over the defaults. A missing file yields Default() and no
// error; a malformed or invalid file yields Default() and the error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Default(), err
	}
	return c, nil
}

// Save writes c to path as YAML, creating the directory if needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting the game cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Physics.FixedStep <= 0:
		return fmt.Errorf("%w: physics.fixed_step %v", ErrInvalid, c.Physics.FixedStep)
	case c.Physics.SolverSubsteps < 1:
		return fmt.Errorf("%w: physics.solver_substeps %d", ErrInvalid, c.Physics.SolverSubsteps)
	case c.Physics.StepMode != StepFrame && c.Physics.StepMode != StepAccumulate:
		return fmt.Errorf("%w: physics.step_mode %q", ErrInvalid, c.Physics.StepMode)
	case c.Physics.StepMode == StepAccumulate && c.Physics.MaxSubsteps < 1:
		return fmt.Errorf("%w: physics.max_substeps %d", ErrInvalid, c.Physics.MaxSubsteps)
	case c.Game.Marbles < 0:
		return fmt.Errorf("%w: game.marbles %d", ErrInvalid, c.Game.Marbles)
	case c.Game.RingRadius <= 0:
		return fmt.Errorf("%w: game.ring_radius %v", ErrInvalid, c.Game.RingRadius)
	case c.Game.SettleTimeout < 0:
		return fmt.Errorf("%w: game.settle_timeout %v", ErrInvalid, c.Game.SettleTimeout)
	case c.Frontend != FrontendRaylib && c.Frontend != FrontendTUI:
		return fmt.Errorf("%w: frontend %q", ErrInvalid, c.Frontend)
	}
	return nil
}

// ApplyEnv overrides settings from MARBLES_* environment variables.
func ApplyEnv(c *Config) error {
	if v := os.Getenv("MARBLES_FRONTEND"); v != "" {
		c.Frontend = v
	}
	if v := os.Getenv("MARBLES_MARBLES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MARBLES_MARBLES: %w", err)
		}
		c.Game.Marbles = n
	}
	if v := os.Getenv("MARBLES_FULLSCREEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: MARBLES_FULLSCREEN: %w", err)
		}
		c.Window.Fullscreen = b
	}
	if v := os.Getenv("MARBLES_AUDIO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: MARBLES_AUDIO: %w", err)
		}
		c.Audio.Enabled = b
	}
	return c.Validate()
}
