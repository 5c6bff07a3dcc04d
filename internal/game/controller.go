// Package game drives a round of marbles: level load, aiming, the shot and waiting for the
// table to settle.
package game

import (
	"errors"
	"fmt"
	"math"

	"marbles/internal/config"
	"marbles/internal/logger"
	"marbles/internal/object"
	"marbles/internal/physics"
	"marbles/internal/vmath"
)

const (
	// ImpactThreshold is the squared speed above which a collision is heard.
	ImpactThreshold = 0.3

	// interpolated camera: from behind the tolley up to the overview
	overviewEye   = 40.0
	chaseDistance = 10.0
	chaseHeight   = 5.0
	spawnHeight   = 1.0
	aimBoost      = 1.5
)

var overview = vmath.Vec3{3, overviewEye, 3}

var ErrMissingDep = errors.New("game: missing dependency")

// Deps are the collaborators a Controller drives. World and Objects are created when nil;
// Log defaults to a discarding logger.
type Deps struct {
	World        *physics.World
	Objects      *object.Manager
	Presentation Presentation
	Input        Input
	Audio        Audio
	Clock        Clock
	Log          *logger.Logger
}

// Controller is the per-frame driver. It is single-threaded: call Frame from one goroutine.
type Controller struct {
	world   *physics.World
	objects *object.Manager
	pres    Presentation
	input   Input
	audio   Audio
	clock   Clock
	log     *logger.Logger
	cfg     config.Config

	state   State
	tolley  *object.Object
	marbles []*object.Object
	floor   physics.ShapeHandle

	tolleyPos  vmath.Vec3
	aimPos     vmath.Vec3
	forward    vmath.Vec3
	strafe     vmath.Vec3
	forwardAim vmath.Vec3
	sideAim    vmath.Vec3
	moveTolley bool

	eye, target vmath.Vec3

	dt         float64
	throbber   float64
	throbSign  float64
	viewInterp float64
	settleWait float64
	accum      float64
	paused     bool
	quit       bool

	score     int
	shots     int
	outAtShot int
	scoring   bool
	cleared   bool
}

// New sets up the world (gravity, solver settings, floor plane), registers the object
// kinds, spawns the tolley and starts in LoadLevel.
func New(d Deps, cfg config.Config) (*Controller, error) {
	if d.Presentation == nil || d.Input == nil || d.Audio == nil || d.Clock == nil {
		return nil, ErrMissingDep
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.World == nil {
		d.World = physics.NewWorld()
	}
	if d.Objects == nil {
		d.Objects = object.NewManager(d.World)
	}
	if d.Objects.World() != d.World {
		return nil, fmt.Errorf("%w: object manager is bound to another world", ErrMissingDep)
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}

	c := &Controller{
		world:     d.World,
		objects:   d.Objects,
		pres:      d.Presentation,
		input:     d.Input,
		audio:     d.Audio,
		clock:     d.Clock,
		log:       d.Log,
		cfg:       cfg,
		state:     LoadLevel,
		throbSign: 1,
		eye:       vmath.Vec3{40, 20, 40},
	}

	p := cfg.Physics
	c.world.SetGravity(p.Gravity[0], p.Gravity[1], p.Gravity[2])
	c.world.SetSubsteps(p.SolverSubsteps)
	c.world.SetCollisionHook(c.checkCollisions)

	floor, err := c.world.CreatePlane(0, 1, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("game: floor: %w", err)
	}
	c.floor = floor

	if err := object.RegisterDefaults(c.objects, cfg.Game.RingRadius); err != nil {
		return nil, err
	}
	tolley, err := c.objects.CreateObject(object.Tolley.String())
	if err != nil {
		return nil, fmt.Errorf("game: tolley: %w", err)
	}
	c.tolley = tolley
	c.marbles = append(c.marbles, tolley)

	start := cfg.Game.TolleyStart
	c.tolleyPos = vmath.Vec3{start[0], start[1], start[2]}
	tolley.SetPos(vmath.Vec3{start[0], spawnHeight, start[2]})

	c.log.Info("table ready", "marbles", cfg.Game.Marbles, "step", p.FixedStep, "mode", p.StepMode)
	return c, nil
}

// Frame runs one iteration of the game loop: global keys, the clock, the physics step,
// the current state's logic, then object update and drawing.
func (c *Controller) Frame() error {
	c.globalKeys()

	switch c.state {
	case Menu:
		return nil
	case LoadLevel:
		if err := c.CreateMarbles(c.cfg.Game.Marbles); err != nil {
			return err
		}
		c.enterSettle()
		return nil
	}

	c.forward = c.tolleyPos.Sub(c.aimPos)
	c.forward[1] = 0
	c.forward = vmath.Normalize(c.forward)
	c.strafe = vmath.Normalize(c.forward.Cross(vmath.Up))

	c.clock.Tick()
	c.dt = c.clock.Delta()
	c.throb()
	c.step()

	switch c.state {
	case DynamicsSettle:
		c.settle()
	case AimShot:
		c.aimShot()
	case ShotDetect:
		c.shotDetect()
	}

	c.pres.SetCamera(c.eye, c.target, vmath.Up)
	c.tolleyPos = c.tolley.Pos()
	c.objects.UpdateObjects()
	c.objects.DrawObjects(c.pres)
	c.pres.DrawFloor(c.cfg.Game.RingRadius)
	c.pres.DrawAim(c.aimPos[0], c.aimPos[2], c.throbber)
	c.drawHUD()
	return nil
}

// CreateMarbles spawns n marbles on a square grid centered at the origin, spaced one
// diameter apart and resting on the floor.
func (c *Controller) CreateMarbles(n int) error {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	half := float64(cols-1) / 2
	for i := 0; i < n; i++ {
		m, err := c.objects.CreateObject(object.Marble.String())
		if err != nil {
			return fmt.Errorf("game: marble %d of %d: %w", i+1, n, err)
		}
		d := 2 * m.Radius()
		row, col := i/cols, i%cols
		m.SetPos(vmath.Vec3{(float64(row) - half) * d, m.Radius(), (float64(col) - half) * d})
		c.marbles = append(c.marbles, m)
	}
	c.log.Debug("marbles placed", "count", n, "cols", cols)
	return nil
}

// LaunchVelocity is the tolley velocity for an aim vector (aim point minus tolley). The
// lift jumps from 5 straight to 10 once it passes 5.
func LaunchVelocity(aim vmath.Vec3) vmath.Vec3 {
	lift := aim.Len() / 30
	if lift > 5 {
		lift = 10
	}
	return vmath.Vec3{aim[0] * 1.3, lift, aim[2] * 1.3}
}

// ShootMarble launches the tolley along aim and spins it by the accumulated mouse aim.
func (c *Controller) ShootMarble(forward, side, aim vmath.Vec3) {
	v := LaunchVelocity(aim)
	c.tolley.SetVel(v)
	if !vmath.IsZero(forward) {
		c.tolley.AddTorque(forward.Mul(1.0 / 10))
	}
	if !vmath.IsZero(side) {
		c.tolley.AddTorque(side.Mul(1.0 / 3))
	}
	c.shots++
	c.outAtShot = c.outOfPlay()
	c.scoring = true
	c.log.Info("shot", "n", c.shots, "speed", fmt.Sprintf("%.2f", v.Len()))
	c.enterSettle()
}

func (c *Controller) globalKeys() {
	if c.pressed(KeyEscape) {
		c.quit = true
	}
	if c.pressed(KeyF1) {
		c.pres.ToggleFullscreen()
	}
	if c.pressed(KeyF2) {
		c.audio.StartMusic()
	}
	if c.pressed(KeyF3) {
		c.audio.StopMusic()
	}
	if c.pressed(KeyPause) {
		c.paused = !c.paused
		c.log.Info("pause", "on", c.paused)
	}
}

// pressed reports a key once per press.
func (c *Controller) pressed(k Key) bool {
	if !c.input.KeyDown(k) {
		return false
	}
	c.input.ReleaseKey(k)
	return true
}

func (c *Controller) throb() {
	if c.throbber < 0 || c.throbber > 1 {
		c.throbSign = -c.throbSign
	}
	c.throbber += c.dt * c.throbSign
}

// step advances physics: one fixed step per frame, or as many fixed steps as the measured
// frame time covers when accumulating.
func (c *Controller) step() {
	p := c.cfg.Physics
	if p.StepMode != config.StepAccumulate {
		c.world.Step(p.FixedStep, c.paused)
		return
	}
	if c.paused {
		return
	}
	c.accum += c.dt
	for n := 0; c.accum >= p.FixedStep; n++ {
		if n == p.MaxSubsteps {
			c.accum = 0
			break
		}
		c.world.Step(p.FixedStep, false)
		c.accum -= p.FixedStep
	}
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	c.log.Debug("state", "from", c.state, "to", s)
	c.state = s
}

func (c *Controller) enterSettle() {
	c.setState(DynamicsSettle)
	c.viewInterp = 0
	c.settleWait = 0
}

func (c *Controller) settle() {
	c.interpView()
	if c.objects.DynamicsDone() {
		c.endTurn()
		return
	}
	c.settleWait += c.dt
	if t := c.cfg.Game.SettleTimeout; t > 0 && c.settleWait >= t {
		c.log.Warn("settle timed out", "after", fmt.Sprintf("%.1fs", c.settleWait))
		for _, o := range c.objects.Objects() {
			if o.IsDynamic() {
				o.SetVel(vmath.Zero)
				_ = c.world.SetAngularVel(o.Body(), vmath.Zero)
			}
		}
		c.endTurn()
	}
}

// endTurn scores the shot that just settled and hands control back to the player.
func (c *Controller) endTurn() {
	c.setState(AimShot)
	if !c.scoring {
		return
	}
	c.scoring = false
	out := c.outOfPlay()
	if n := out - c.outAtShot; n > 0 {
		c.score += n
		c.log.Info("knocked out", "marbles", n, "score", c.score)
	}
	if !c.cleared && len(c.marbles) > 1 && out == len(c.marbles)-1 {
		c.cleared = true
		c.log.Info("ring cleared", "shots", c.shots, "score", c.score)
	}
}

func (c *Controller) outOfPlay() int {
	n := 0
	for _, m := range c.marbles {
		if m != c.tolley && !m.InPlay() {
			n++
		}
	}
	return n
}

// interpView swings the camera from behind the tolley to the overview over one second.
func (c *Controller) interpView() {
	if c.viewInterp < 1 {
		c.viewInterp += c.dt
		t := c.viewInterp
		c.eye = vmath.Lerp(c.chaseEye(), overview, t)
		c.target = vmath.Lerp(c.aimPos, c.tolleyPos, t)
		return
	}
	c.eye = overview
	c.target = c.tolleyPos
}

func (c *Controller) chaseEye() vmath.Vec3 {
	return vmath.Vec3{
		c.tolleyPos[0] + c.forward[0]*chaseDistance,
		chaseHeight,
		c.tolleyPos[2] + c.forward[2]*chaseDistance,
	}
}

func (c *Controller) aimShot() {
	speed := c.dt * c.cfg.Game.AimSpeed
	// the rest of the frame still runs after falling back to settling
	if !c.objects.DynamicsDone() {
		c.enterSettle()
	}
	if c.input.ButtonDown(ButtonLeft) {
		c.setState(ShotDetect)
		c.input.ShowCursor(false)
		c.input.CenterCursor()
		c.forwardAim, c.sideAim = vmath.Zero, vmath.Zero
	}
	if c.pressed(KeySpace) {
		c.moveTolley = !c.moveTolley
	}

	target, step := &c.aimPos, speed*aimBoost
	if c.moveTolley {
		target, step = &c.tolleyPos, speed
	}
	if c.input.KeyDown(KeyUp) {
		*target = target.Sub(c.forward.Mul(step))
	}
	if c.input.KeyDown(KeyDown) {
		*target = target.Add(c.forward.Mul(step))
	}
	if c.input.KeyDown(KeyLeft) {
		*target = target.Add(c.strafe.Mul(step))
	}
	if c.input.KeyDown(KeyRight) {
		*target = target.Sub(c.strafe.Mul(step))
	}

	c.tolley.SetPos(c.tolleyPos)
	c.eye, c.target = c.chaseEye(), c.aimPos
}

func (c *Controller) shotDetect() {
	if !c.input.ButtonDown(ButtonLeft) {
		c.ShootMarble(c.forwardAim, c.sideAim, c.aimPos.Sub(c.tolleyPos))
		c.input.ShowCursor(true)
	}
	dx, dy := c.input.MouseDelta()
	c.sideAim = c.sideAim.Add(c.forward.Mul(dx))
	c.forwardAim = c.forwardAim.Add(c.strafe.Mul(dy))
}

func (c *Controller) drawHUD() {
	status := fmt.Sprintf("%s  score %d  shots %d", c.state, c.score, c.shots)
	if c.paused {
		status += "  [paused]"
	}
	c.pres.DrawText(10, 10, status)
	for i, m := range c.log.Messages() {
		c.pres.DrawText(10, 30+16*i, m.Text)
	}
}

// checkCollisions is the world's body-body hook: fast impacts are sent to audio.
func (c *Controller) checkCollisions(a, b physics.BodyHandle) {
	oa, okA := c.objects.Lookup(a)
	ob, okB := c.objects.Lookup(b)
	if !okA || !okB {
		c.log.Warn("collision with unmanaged body")
		return
	}
	// a frozen object is scenery; touching it makes no sound
	if !oa.IsDynamic() || !ob.IsDynamic() {
		return
	}
	va, vb := oa.Vel(), ob.Vel()
	if va > ImpactThreshold || vb > ImpactThreshold {
		c.audio.PlayImpact(2 * math.Max(va, vb))
	}
}

// Shutdown releases every object and the floor.
func (c *Controller) Shutdown() {
	c.objects.DestroyObjects()
	_ = c.world.DestroyShape(c.floor)
	c.marbles = nil
	c.log.Info("table cleared", "score", c.score, "shots", c.shots)
}

func (c *Controller) State() State { return c.state }

// SetState forces a state; frontends use it to leave Menu.
func (c *Controller) SetState(s State) { c.setState(s) }

func (c *Controller) Score() int { return c.score }

func (c *Controller) Shots() int { return c.shots }

func (c *Controller) Tolley() *object.Object { return c.tolley }

// Marbles returns the tolley followed by every spawned marble.
func (c *Controller) Marbles() []*object.Object {
	out := make([]*object.Object, len(c.marbles))
	copy(out, c.marbles)
	return out
}

func (c *Controller) AimPos() vmath.Vec3 { return c.aimPos }

// SetAimPos moves the aim target on the floor.
func (c *Controller) SetAimPos(p vmath.Vec3) { c.aimPos = vmath.Vec3{p[0], 0, p[2]} }

func (c *Controller) TolleyPos() vmath.Vec3 { return c.tolleyPos }

// Camera returns the eye and target set by the last Frame.
func (c *Controller) Camera() (eye, target vmath.Vec3) { return c.eye, c.target }

func (c *Controller) Throbber() float64 { return c.throbber }

func (c *Controller) Paused() bool { return c.paused }

// Done reports whether the player asked to quit.
func (c *Controller) Done() bool { return c.quit }

// Quit asks the loop to stop after the current frame.
func (c *Controller) Quit() { c.quit = true }

func (c *Controller) World() *physics.World { return c.world }

func (c *Controller) Objects() *object.Manager { return c.objects }
