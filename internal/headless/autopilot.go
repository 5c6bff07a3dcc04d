package headless

import (
	"math/rand"
	"time"

	"marbles/internal/clock"
	"marbles/internal/config"
	"marbles/internal/game"
	"marbles/internal/logger"
	"marbles/internal/vmath"
)

// Autopilot plays a controller through Input: each turn it aims at a random marble still
// in play, presses the button, drags a little spin and releases.
type Autopilot struct {
	c     *game.Controller
	in    *Input
	rng   *rand.Rand
	Shots int
}

func NewAutopilot(c *game.Controller, in *Input, seed int64) *Autopilot {
	return &Autopilot{c: c, in: in, rng: rand.New(rand.NewSource(seed))}
}

// Prepare sets up input for the coming controller Frame.
func (a *Autopilot) Prepare() {
	switch a.c.State() {
	case game.AimShot:
		if a.in.ButtonDown(game.ButtonLeft) {
			return
		}
		if target, ok := a.pick(); ok {
			a.c.SetAimPos(target)
			a.in.PressButton(game.ButtonLeft)
		}
	case game.ShotDetect:
		a.in.Move(a.rng.Float64()*4-2, a.rng.Float64()*4-2)
		a.in.ReleaseButton(game.ButtonLeft)
		a.Shots++
	}
}

func (a *Autopilot) pick() (vmath.Vec3, bool) {
	var live []vmath.Vec3
	for _, m := range a.c.Marbles() {
		if m != a.c.Tolley() && m.InPlay() && !m.Destroyed() {
			live = append(live, m.Pos())
		}
	}
	if len(live) == 0 {
		return vmath.Zero, false
	}
	return live[a.rng.Intn(len(live))], true
}

// Sim runs a controller without a window on a manual clock.
type Sim struct {
	Controller   *game.Controller
	Pilot        *Autopilot
	Clock        *clock.Manual
	FrameTime    time.Duration
	Presentation *Presentation
	Input        *Input
	Audio        *Audio
}

// NewSim builds a controller on headless adapters running at 60 frames per second.
func NewSim(cfg config.Config, log *logger.Logger, seed int64) (*Sim, error) {
	s := &Sim{
		Clock:        clock.NewManual(time.Unix(0, 0)),
		FrameTime:    time.Second / 60,
		Presentation: NewPresentation(),
		Input:        NewInput(),
		Audio:        NewAudio(),
	}
	c, err := game.New(game.Deps{
		Presentation: s.Presentation,
		Input:        s.Input,
		Audio:        s.Audio,
		Clock:        clock.NewFrameClock(s.Clock),
		Log:          log,
	}, cfg)
	if err != nil {
		return nil, err
	}
	s.Controller = c
	s.Pilot = NewAutopilot(c, s.Input, seed)
	return s, nil
}

// Run advances up to frames frames, stopping early once shots shots have settled (0 means
// no shot limit) or the controller quits. It returns the number of frames run.
func (s *Sim) Run(frames, shots int) (int, error) {
	c := s.Controller
	for n := 0; n < frames; n++ {
		if c.Done() {
			return n, nil
		}
		if shots > 0 && s.Pilot.Shots >= shots && c.State() == game.AimShot {
			return n, nil
		}
		s.Clock.Advance(s.FrameTime)
		s.Pilot.Prepare()
		if err := c.Frame(); err != nil {
			return n, err
		}
	}
	return frames, nil
}
