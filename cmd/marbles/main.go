package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"gopkg.in/yaml.v3"

	"marbles/internal/audio"
	"marbles/internal/clock"
	"marbles/internal/commands"
	"marbles/internal/config"
	"marbles/internal/env"
	"marbles/internal/game"
	"marbles/internal/headless"
	"marbles/internal/logger"
	"marbles/internal/render"
	"marbles/internal/tui"
)

func main() {
	if _, err := env.Load(env.DefaultPath); err != nil {
		fmt.Fprintf(os.Stderr, "marbles: %v\n", err)
	}

	var configPath string
	common := func(fs *flag.FlagSet) {
		fs.StringVar(&configPath, "config", config.ConfigPath, "settings file")
	}

	r := commands.NewRegistry()

	play := flag.NewFlagSet("play", flag.ContinueOnError)
	common(play)
	frontend := play.String("frontend", "", "raylib or tui (overrides the settings file)")
	marbles := play.Int("marbles", -1, "marbles in the ring (overrides the settings file)")
	showFPS := play.Bool("fps", false, "show the FPS and memory overlay")
	r.Register("play", "play a game in a window or the terminal", play, func([]string) error {
		cfg, log := setup(configPath, *frontend, *marbles)
		defer log.Close()
		if err := runPlay(cfg, log, *showFPS); err != nil {
			log.Fatal("play", "err", err)
		}
		return nil
	})

	sim := flag.NewFlagSet("sim", flag.ContinueOnError)
	common(sim)
	frames := sim.Int("frames", 6000, "frames to run at 60 per simulated second")
	shots := sim.Int("shots", 10, "stop once this many shots have settled (0 for no limit)")
	seed := sim.Int64("seed", 1, "autopilot seed")
	simMarbles := sim.Int("marbles", -1, "marbles in the ring (overrides the settings file)")
	r.Register("sim", "play shots with the autopilot, without a window", sim, func([]string) error {
		cfg, log := setup(configPath, "", *simMarbles)
		defer log.Close()
		if err := runSim(cfg, log, *frames, *shots, *seed); err != nil {
			log.Fatal("sim", "err", err)
		}
		return nil
	})

	cfgCmd := flag.NewFlagSet("config", flag.ContinueOnError)
	common(cfgCmd)
	write := cfgCmd.Bool("write", false, "write the effective settings back to the file")
	r.Register("config", "print the effective settings", cfgCmd, func([]string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := config.ApplyEnv(&cfg); err != nil {
			return err
		}
		if *write {
			return config.Save(configPath, cfg)
		}
		return yaml.NewEncoder(os.Stdout).Encode(cfg)
	})

	r.SetDefault("play")
	if err := r.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			r.Usage(os.Stderr)
			return
		}
		if errors.Is(err, commands.ErrUnknown) {
			r.Usage(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "marbles: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the settings and opens the log. A bad settings file falls back to the
// defaults with a warning; bad overrides are fatal.
func setup(path, frontend string, marbles int) (config.Config, *logger.Logger) {
	cfg, loadErr := config.Load(path)
	envErr := config.ApplyEnv(&cfg)
	if frontend != "" {
		cfg.Frontend = frontend
	}
	if marbles >= 0 {
		cfg.Game.Marbles = marbles
	}

	// the terminal frontend owns stderr's screen, so it logs to the file only
	var out io.Writer = os.Stderr
	if cfg.Frontend == config.FrontendTUI {
		out = io.Discard
	}
	log := logger.New(cfg.LogFile, out)
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		log.Warn("log level", "err", err)
	}
	if loadErr != nil {
		log.Warn("settings file ignored", "path", path, "err", loadErr)
	}
	if envErr != nil {
		log.Fatal("environment overrides", "err", envErr)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("settings", "err", err)
	}
	return cfg, log
}

func newAudio(cfg config.Audio, log *logger.Logger) (game.Audio, func()) {
	if !cfg.Enabled {
		return audio.Mute{}, func() {}
	}
	p := audio.New(cfg, log)
	if err := p.Init(); err != nil {
		log.Warn("audio disabled", "err", err)
		return audio.Mute{}, func() {}
	}
	return p, p.Close
}

func runPlay(cfg config.Config, log *logger.Logger, showFPS bool) error {
	snd, closeAudio := newAudio(cfg.Audio, log)
	defer closeAudio()

	switch cfg.Frontend {
	case config.FrontendTUI:
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		fe := tui.New(screen, clock.System{})
		defer fe.Close()
		c, err := newController(cfg, log, fe, fe, snd)
		if err != nil {
			return err
		}
		defer c.Shutdown()
		return tui.Run(fe, cfg.Window.FPS, func() (bool, error) {
			err := c.Frame()
			return c.Done(), err
		})

	default:
		pres := render.NewPresentation()
		pres.Overlay.ShowFPS, pres.Overlay.ShowMem = showFPS, showFPS
		c, err := newController(cfg, log, pres, render.NewInput(), snd)
		if err != nil {
			return err
		}
		defer c.Shutdown()
		return render.Run(cfg.Window, func() (bool, error) {
			if err := c.Frame(); err != nil {
				return true, err
			}
			pres.Flush()
			if c.Done() {
				pres.Close()
				return true, nil
			}
			return false, nil
		})
	}
}

func newController(cfg config.Config, log *logger.Logger, p game.Presentation, in game.Input, a game.Audio) (*game.Controller, error) {
	return game.New(game.Deps{
		Presentation: p,
		Input:        in,
		Audio:        a,
		Clock:        clock.NewFrameClock(clock.System{}),
		Log:          log,
	}, cfg)
}

func runSim(cfg config.Config, log *logger.Logger, frames, shots int, seed int64) error {
	s, err := headless.NewSim(cfg, log, seed)
	if err != nil {
		return err
	}
	defer s.Controller.Shutdown()
	n, err := s.Run(frames, shots)
	if err != nil {
		return err
	}
	c := s.Controller
	log.Info("sim finished", "frames", n, "shots", c.Shots(), "score", c.Score(), "impacts", len(s.Audio.Impacts))
	return nil
}
