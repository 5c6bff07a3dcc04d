package game_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"marbles/internal/config"
	"marbles/internal/game"
	"marbles/internal/headless"
	"marbles/internal/logger"
	"marbles/internal/object"
	"marbles/internal/vmath"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vec3AlmostEqual(a, b vmath.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if !almostEqual(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func finite(v vmath.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func newSim(t *testing.T, marbles int, tweak ...func(*config.Config)) (*headless.Sim, *logger.Logger) {
	t.Helper()
	cfg := config.Default()
	cfg.Game.Marbles = marbles
	for _, f := range tweak {
		f(&cfg)
	}
	log := logger.Discard()
	s, err := headless.NewSim(cfg, log, 1)
	if err != nil {
		t.Fatalf("NewSim: %v", err)
	}
	return s, log
}

func frames(t *testing.T, s *headless.Sim, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s.Clock.Advance(s.FrameTime)
		if err := s.Controller.Frame(); err != nil {
			t.Fatalf("Frame: %v", err)
		}
	}
}

// runUntil steps frames until the controller reaches want, failing after max frames.
func runUntil(t *testing.T, s *headless.Sim, want game.State, max int) {
	t.Helper()
	for i := 0; i < max; i++ {
		if s.Controller.State() == want {
			return
		}
		frames(t, s, 1)
	}
	if s.Controller.State() != want {
		t.Fatalf("state = %v after %d frames, want %v", s.Controller.State(), max, want)
	}
}

func TestLaunchVelocity(t *testing.T) {
	tests := []struct {
		name string
		aim  vmath.Vec3
		want vmath.Vec3
	}{
		{"3-4-5 aim", vmath.Vec3{3, 0, 4}, vmath.Vec3{3.9, 5.0 / 30, 5.2}},
		{"lift exactly at the limit", vmath.Vec3{150, 0, 0}, vmath.Vec3{195, 5, 0}},
		{"lift past the limit jumps to 10", vmath.Vec3{200, 0, 0}, vmath.Vec3{260, 10, 0}},
		{"zero aim", vmath.Zero, vmath.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := game.LaunchVelocity(tt.aim)
			if !vec3AlmostEqual(got, tt.want, 1e-9) {
				t.Errorf("LaunchVelocity(%v) = %v, want %v", tt.aim, got, tt.want)
			}
		})
	}
	if y := game.LaunchVelocity(vmath.Vec3{0, 0, 200})[1]; y != 10 {
		t.Errorf("clamped lift = %v, want exactly 10", y)
	}
}

func TestShootMarble(t *testing.T) {
	s, _ := newSim(t, 0)
	c := s.Controller
	w := c.World()
	w.SetGravity(0, 0, 0)

	forward := vmath.Vec3{1, 0, 0}
	side := vmath.Vec3{0, 0, 3}
	c.ShootMarble(forward, side, vmath.Vec3{3, 0, 4})

	tolley := c.Tolley()
	if got, want := tolley.LinearVel(), (vmath.Vec3{3.9, 5.0 / 30, 5.2}); !vec3AlmostEqual(got, want, 1e-9) {
		t.Errorf("tolley velocity = %v, want %v", got, want)
	}
	if got, want := w.Torque(tolley.Body()), (vmath.Vec3{0.1, 0, 1}); !vec3AlmostEqual(got, want, 1e-12) {
		t.Errorf("tolley torque = %v, want %v", got, want)
	}
	if c.State() != game.DynamicsSettle {
		t.Errorf("state after shot = %v, want DynamicsSettle", c.State())
	}
	if c.Shots() != 1 {
		t.Errorf("Shots() = %d, want 1", c.Shots())
	}
}

func TestCreateMarblesGrid(t *testing.T) {
	s, _ := newSim(t, 25)
	c := s.Controller
	if c.State() != game.LoadLevel {
		t.Fatalf("initial state = %v, want LoadLevel", c.State())
	}
	frames(t, s, 1)
	if c.State() != game.DynamicsSettle {
		t.Fatalf("state after load = %v, want DynamicsSettle", c.State())
	}

	all := c.Marbles()
	if len(all) != 26 {
		t.Fatalf("len(Marbles()) = %d, want tolley + 25", len(all))
	}
	seen := make(map[[2]int]bool)
	for _, m := range all[1:] {
		p := m.Pos()
		if !almostEqual(p[1], object.MarbleRadius, 1e-12) {
			t.Errorf("%v rests at y=%v", m, p[1])
		}
		// spacing is one diameter (1.0), centered on the origin
		x, z := math.Round(p[0]), math.Round(p[2])
		if !almostEqual(p[0], x, 1e-9) || !almostEqual(p[2], z, 1e-9) {
			t.Errorf("%v off the unit grid at %v", m, p)
		}
		if math.Abs(x) > 2 || math.Abs(z) > 2 {
			t.Errorf("%v outside the centered 5x5 grid at %v", m, p)
		}
		key := [2]int{int(x), int(z)}
		if seen[key] {
			t.Errorf("two marbles at %v", key)
		}
		seen[key] = true
	}
	if len(seen) != 25 {
		t.Errorf("%d distinct positions, want 25", len(seen))
	}
}

func TestTurnCycle(t *testing.T) {
	s, _ := newSim(t, 4)
	c, in := s.Controller, s.Input

	frames(t, s, 1)
	runUntil(t, s, game.AimShot, 600)

	in.PressButton(game.ButtonLeft)
	frames(t, s, 1)
	if c.State() != game.ShotDetect {
		t.Fatalf("state after press = %v, want ShotDetect", c.State())
	}
	if in.CursorVisible {
		t.Error("cursor still visible while dragging a shot")
	}

	in.Move(3, -2)
	frames(t, s, 1)
	if c.State() != game.ShotDetect {
		t.Fatalf("state while held = %v, want ShotDetect", c.State())
	}

	in.ReleaseButton(game.ButtonLeft)
	frames(t, s, 1)
	if c.State() != game.DynamicsSettle {
		t.Fatalf("state after release = %v, want DynamicsSettle", c.State())
	}
	if !in.CursorVisible {
		t.Error("cursor hidden after the shot")
	}
	if c.Shots() != 1 {
		t.Errorf("Shots() = %d, want 1", c.Shots())
	}
	if v := c.Tolley().LinearVel(); vmath.IsZero(v) {
		t.Error("tolley did not move after the shot")
	}
}

func TestAimKeys(t *testing.T) {
	s, _ := newSim(t, 1)
	c, in := s.Controller, s.Input
	frames(t, s, 1)
	runUntil(t, s, game.AimShot, 600)

	before := c.AimPos()
	tolley := c.TolleyPos()
	if !finite(tolley) || !finite(before) {
		t.Fatalf("tolley %v, aim %v after settling", tolley, before)
	}
	forward := tolley.Sub(before)
	forward[1] = 0
	forward = vmath.Normalize(forward)

	in.Press(game.KeyUp)
	frames(t, s, 1)
	in.Release(game.KeyUp)

	moved := c.AimPos().Sub(before)
	step := s.FrameTime.Seconds() * 5 * 1.5
	if !vec3AlmostEqual(moved, forward.Mul(-step), 1e-6) {
		t.Errorf("aim moved by %v, want %v", moved, forward.Mul(-step))
	}

	// space switches the arrows over to the tolley
	in.Press(game.KeySpace)
	frames(t, s, 1)
	if in.KeyDown(game.KeySpace) {
		t.Error("space not released after toggling")
	}
	aim := c.AimPos()
	start := c.TolleyPos()
	in.Press(game.KeyLeft)
	frames(t, s, 1)
	in.Release(game.KeyLeft)
	if c.AimPos() != aim {
		t.Errorf("aim moved in tolley mode: %v -> %v", aim, c.AimPos())
	}
	if d := c.TolleyPos().Sub(start); vmath.PlanarLenSq(d) == 0 {
		t.Error("tolley did not move in tolley mode")
	}
}

func TestThrobberStaysNearUnitRange(t *testing.T) {
	s, _ := newSim(t, 0)
	s.FrameTime = 100 * time.Millisecond
	frames(t, s, 1)

	rose, fell := false, false
	prev := s.Controller.Throbber()
	for i := 0; i < 40; i++ {
		frames(t, s, 1)
		v := s.Controller.Throbber()
		if v < -0.2 || v > 1.2 {
			t.Fatalf("throbber = %v, outside its range", v)
		}
		if v > prev {
			rose = true
		}
		if v < prev {
			fell = true
		}
		prev = v
	}
	if !rose || !fell {
		t.Errorf("throbber did not oscillate (rose=%v fell=%v)", rose, fell)
	}
}

func TestImpactSound(t *testing.T) {
	s, _ := newSim(t, 2)
	frames(t, s, 1)
	c := s.Controller

	// the two marbles sit side by side along z
	a := c.Marbles()[1]
	a.SetVel(vmath.Vec3{0, 0, 3})
	c.World().Step(0.05, false)

	if len(s.Audio.Impacts) == 0 {
		t.Fatal("no impact played")
	}
	if got := s.Audio.Impacts[0]; !almostEqual(got, 18, 1e-9) {
		t.Errorf("impact volume = %v, want 2*speed^2 = 18", got)
	}
}

func TestFrozenObjectsAreSilent(t *testing.T) {
	s, _ := newSim(t, 2)
	frames(t, s, 1)
	c := s.Controller

	a, b := c.Marbles()[1], c.Marbles()[2]
	b.DisableBody()
	a.SetVel(vmath.Vec3{0, 0, 3})
	b.SetVel(vmath.Vec3{0, 0, -3})
	c.World().Step(0.05, false)

	if len(s.Audio.Impacts) != 0 {
		t.Errorf("contact with a frozen marble played %v", s.Audio.Impacts)
	}
}

func TestTolleySettlesAfterLoadLevel(t *testing.T) {
	s, _ := newSim(t, 0)
	c := s.Controller
	frames(t, s, 1)
	runUntil(t, s, game.AimShot, 600)
	// the settle check may pass before the first fixed step lands; give it two seconds
	frames(t, s, 120)

	p, v := c.TolleyPos(), c.Tolley().LinearVel()
	if !finite(p) || !finite(v) {
		t.Fatalf("tolley pos = %v, vel = %v", p, v)
	}
	start := config.Default().Game.TolleyStart
	want := vmath.Vec3{start[0], object.TolleyRadius, start[2]}
	if !vec3AlmostEqual(p, want, 0.05) {
		t.Errorf("tolley rests at %v, want %v", p, want)
	}
	for i := 0; i < 3; i++ {
		if !(math.Abs(v[i]) < object.SettleThreshold) {
			t.Errorf("tolley still moving: %v", v)
		}
	}
}

func TestQuietContactsAreSilent(t *testing.T) {
	s, _ := newSim(t, 9)
	frames(t, s, 1)
	s.Controller.World().Step(0.05, false)
	if len(s.Audio.Impacts) != 0 {
		t.Errorf("resting marbles played %d impacts", len(s.Audio.Impacts))
	}
}

func TestGlobalKeys(t *testing.T) {
	s, _ := newSim(t, 0)
	c, in := s.Controller, s.Input
	frames(t, s, 1)

	in.Press(game.KeyF2)
	in.Press(game.KeyF1)
	frames(t, s, 1)
	if !s.Audio.MusicPlaying || !s.Presentation.Fullscreen {
		t.Errorf("F2/F1: music=%v fullscreen=%v", s.Audio.MusicPlaying, s.Presentation.Fullscreen)
	}
	frames(t, s, 1)
	if s.Audio.MusicStarts != 1 {
		t.Errorf("music started %d times for one press", s.Audio.MusicStarts)
	}

	in.Press(game.KeyF3)
	frames(t, s, 1)
	if s.Audio.MusicPlaying {
		t.Error("F3 did not stop the music")
	}

	in.Press(game.KeyPause)
	frames(t, s, 1)
	if !c.Paused() {
		t.Fatal("P did not pause")
	}
	y := c.Tolley().Pos()[1]
	frames(t, s, 5)
	if got := c.Tolley().Pos()[1]; got != y {
		t.Errorf("tolley moved while paused: %v -> %v", y, got)
	}

	in.Press(game.KeyEscape)
	frames(t, s, 1)
	if !c.Done() {
		t.Error("Escape did not request quit")
	}
}

func TestSettleTimeout(t *testing.T) {
	s, log := newSim(t, 1, func(c *config.Config) { c.Game.SettleTimeout = 0.5 })
	c := s.Controller
	frames(t, s, 1)

	drifter := c.Marbles()[1]
	drifter.DisableGravity()
	drifter.SetPos(vmath.Vec3{0, 5, 0})
	drifter.SetVel(vmath.Vec3{1, 0, 0})

	runUntil(t, s, game.AimShot, 120)
	if v := drifter.LinearVel(); !vmath.IsZero(v) {
		t.Errorf("drifter still moving after timeout: %v", v)
	}
	found := false
	for _, m := range log.Messages() {
		if strings.HasPrefix(m.Text, "settle timed out") {
			found = true
		}
	}
	if !found {
		t.Error("timeout not logged")
	}
}

func TestCameraReachesOverview(t *testing.T) {
	s, _ := newSim(t, 1)
	c := s.Controller
	frames(t, s, 1)

	drifter := c.Marbles()[1]
	drifter.DisableGravity()
	drifter.SetPos(vmath.Vec3{0, 5, 0})
	drifter.SetVel(vmath.Vec3{0.5, 0, 0})

	frames(t, s, 90)
	if c.State() != game.DynamicsSettle {
		t.Fatalf("state = %v, want DynamicsSettle", c.State())
	}
	eye, target := c.Camera()
	if !finite(target) || !finite(c.TolleyPos()) {
		t.Fatalf("target = %v, tolley = %v", target, c.TolleyPos())
	}
	if eye != (vmath.Vec3{3, 40, 3}) {
		t.Errorf("eye = %v, want the overview (3,40,3)", eye)
	}
	if !vec3AlmostEqual(target, c.TolleyPos(), 1e-3) {
		t.Errorf("target = %v, want the tolley at %v", target, c.TolleyPos())
	}
	if s.Presentation.Eye != eye {
		t.Errorf("presentation eye = %v, want %v", s.Presentation.Eye, eye)
	}
}

func TestScoringAndRingCleared(t *testing.T) {
	s, log := newSim(t, 1)
	c := s.Controller
	frames(t, s, 1)
	runUntil(t, s, game.AimShot, 600)

	c.SetAimPos(c.TolleyPos())
	c.ShootMarble(vmath.Zero, vmath.Zero, vmath.Zero)
	// the only marble ends up past the ring, still falling
	c.Marbles()[1].SetPos(vmath.Vec3{30, 3, 0})

	runUntil(t, s, game.AimShot, 600)
	if c.Score() != 1 {
		t.Errorf("Score() = %d, want 1", c.Score())
	}
	if c.Marbles()[1].InPlay() {
		t.Error("marble outside the ring still in play")
	}
	var cleared bool
	for _, m := range log.Messages() {
		if strings.HasPrefix(m.Text, "ring cleared") {
			cleared = true
		}
	}
	if !cleared {
		t.Error("ring cleared message missing")
	}
}

func TestFrameDrawsEveryObject(t *testing.T) {
	s, _ := newSim(t, 4)
	frames(t, s, 2)
	p := s.Presentation
	if len(p.Spheres) != 5 {
		t.Errorf("drew %d spheres, want 5", len(p.Spheres))
	}
	if p.RingRadius != 20 {
		t.Errorf("floor ring = %v, want 20", p.RingRadius)
	}
	if len(p.Texts) == 0 || !strings.HasPrefix(p.Texts[0], "DynamicsSettle") {
		t.Errorf("HUD = %q", p.Texts)
	}
}

func TestMenuIsInert(t *testing.T) {
	s, _ := newSim(t, 4)
	c := s.Controller
	c.SetState(game.Menu)
	frames(t, s, 10)
	if c.State() != game.Menu || len(c.Marbles()) != 1 || s.Presentation.Frames != 0 {
		t.Errorf("menu frame changed the game: state=%v marbles=%d frames=%d", c.State(), len(c.Marbles()), s.Presentation.Frames)
	}
}

func TestNewRejectsMissingAdapters(t *testing.T) {
	_, err := game.New(game.Deps{}, config.Default())
	if !errors.Is(err, game.ErrMissingDep) {
		t.Errorf("New(empty deps) = %v, want ErrMissingDep", err)
	}
}

func TestShutdownReleasesBodies(t *testing.T) {
	s, _ := newSim(t, 9)
	frames(t, s, 1)
	c := s.Controller
	c.Shutdown()
	if n := c.World().BodyCount(); n != 0 {
		t.Errorf("BodyCount() after Shutdown = %d", n)
	}
	if c.Objects().Len() != 0 {
		t.Errorf("manager still holds %d objects", c.Objects().Len())
	}
}
