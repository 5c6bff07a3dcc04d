// Package object holds the game entities: marbles and the tolley, each wrapping one
// physics body and one sphere shape.
package object

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/physics"
	"marbles/internal/vmath"
)

// Color is an RGBA color with components in 0..1.
type Color struct {
	R, G, B, A float64
}

// Painter draws one lit sphere. The presentation adapter implements it.
type Painter interface {
	DrawSphere(pos vmath.Vec3, rot mgl64.Mat3, radius float64, c Color, shininess float64)
}

// Object is a marble or the tolley. All physics mutators are no-ops once the object
// has been destroyed.
type Object struct {
	id    int
	kind  Kind
	world *physics.World
	body  physics.BodyHandle
	shape physics.ShapeHandle

	radius  float64
	ring    float64
	pos     vmath.Vec3
	lastPos vmath.Vec3
	color   Color
	dynamic bool
	inPlay  bool
}

// Option customizes a new Object.
type Option func(*Object)

// WithRingRadius overrides the play area radius used by Update.
func WithRingRadius(r float64) Option {
	return func(o *Object) { o.ring = r }
}

// WithColor overrides the kind's default color.
func WithColor(c Color) Option {
	return func(o *Object) { o.color = c }
}

// New creates an object of kind k with its body and sphere in w, placed at the origin.
func New(w *physics.World, k Kind, opts ...Option) (*Object, error) {
	if !k.valid() {
		return nil, fmt.Errorf("object: kind %d: %w", int(k), ErrUnregistered)
	}
	t := kinds[k]

	body, err := w.CreateBody()
	if err != nil {
		return nil, fmt.Errorf("object: create %v body: %w", k, err)
	}
	shape, err := w.CreateSphere(t.radius)
	if err != nil {
		_ = w.DestroyBody(body)
		return nil, fmt.Errorf("object: create %v sphere: %w", k, err)
	}
	if err := w.Attach(shape, body); err != nil {
		_ = w.DestroyShape(shape)
		_ = w.DestroyBody(body)
		return nil, fmt.Errorf("object: attach %v sphere: %w", k, err)
	}
	_ = w.SetMass(body, physics.SphereMass(massDensity, t.radius/2))

	o := &Object{
		kind:    k,
		world:   w,
		body:    body,
		shape:   shape,
		radius:  t.radius,
		ring:    RingRadius,
		color:   t.color,
		dynamic: true,
		inPlay:  true,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.SetPos(vmath.Zero)
	return o, nil
}

// ID is the identifier assigned by the Manager, 0 until the object is added.
func (o *Object) ID() int { return o.id }

// Kind is the object's kind, fixed at construction.
func (o *Object) Kind() Kind { return o.kind }

// Body is the handle of the object's physics body.
func (o *Object) Body() physics.BodyHandle { return o.body }

// Radius is the current sphere radius.
func (o *Object) Radius() float64 { return o.radius }

// Color is the current draw color.
func (o *Object) Color() Color { return o.color }

// InPlay reports whether the object is still inside the ring.
func (o *Object) InPlay() bool { return o.inPlay }

// IsDynamic reports whether the object takes part in the settled check.
func (o *Object) IsDynamic() bool { return o.dynamic }

// Size is the bounding box extent.
func (o *Object) Size() vmath.Vec3 {
	d := 2 * o.radius
	return vmath.Vec3{d, d, d}
}

// Destroyed reports whether the physics body has been released.
func (o *Object) Destroyed() bool {
	return !o.world.BodyExists(o.body)
}

// Destroy releases the body and shape. Calling it again does nothing.
func (o *Object) Destroy() {
	if o.Destroyed() {
		return
	}
	_ = o.world.DestroyShape(o.shape)
	_ = o.world.DestroyBody(o.body)
}

// Update applies the ring rule and the floor damping. The ring test uses the position
// cached by the previous Update, so a marble pushed out is flagged one frame later.
func (o *Object) Update() {
	if o.Destroyed() {
		return
	}
	d := kinds[o.kind].damping
	accel, angAccel := d.accel, d.angAccel
	if vmath.PlanarLenSq(o.lastPos) > o.ring*o.ring {
		accel, angAccel = d.outAccel, d.outAngAccel
		if d.leavesPlay {
			o.inPlay = false
			o.color.G, o.color.B = 0, 0
		}
	}

	o.lastPos = o.pos
	o.pos = o.world.Position(o.body)

	if o.pos[1] > o.radius {
		return
	}
	_ = o.world.AddTorque(o.body, o.world.AngularVel(o.body).Mul(angAccel))
	if d.applyForce {
		v := o.world.LinearVel(o.body)
		_ = o.world.AddForce(o.body, vmath.Vec3{v[0] * accel, 0, v[2] * accel})
	}
}

// Draw hands the current pose to p.
func (o *Object) Draw(p Painter) {
	if o.Destroyed() {
		return
	}
	p.DrawSphere(o.world.Position(o.body), o.world.Rotation(o.body), o.radius, o.color, Shininess)
}

// SetPos teleports the object and resets the cached positions used by the ring test.
func (o *Object) SetPos(p vmath.Vec3) {
	o.pos, o.lastPos = p, p
	if o.Destroyed() {
		return
	}
	_ = o.world.SetPosition(o.body, p)
}

// Pos returns the body position, or the last cached one after destruction.
func (o *Object) Pos() vmath.Vec3 {
	if o.Destroyed() {
		return o.pos
	}
	return o.world.Position(o.body)
}

// SetVel sets the linear velocity directly.
func (o *Object) SetVel(v vmath.Vec3) {
	if o.Destroyed() {
		return
	}
	_ = o.world.SetLinearVel(o.body, v)
}

// LinearVel returns the body's linear velocity.
func (o *Object) LinearVel() vmath.Vec3 {
	return o.world.LinearVel(o.body)
}

// Vel returns the squared speed, which is what the impact volume is built from.
func (o *Object) Vel() float64 {
	v := o.world.LinearVel(o.body)
	return v.Dot(v)
}

// Rotation returns the body orientation.
func (o *Object) Rotation() mgl64.Mat3 {
	return o.world.Rotation(o.body)
}

// AddForce accumulates a force for the next physics step.
func (o *Object) AddForce(f vmath.Vec3) {
	if o.Destroyed() {
		return
	}
	_ = o.world.AddForce(o.body, f)
}

// AddTorque accumulates a torque for the next physics step.
func (o *Object) AddTorque(t vmath.Vec3) {
	if o.Destroyed() {
		return
	}
	_ = o.world.AddTorque(o.body, t)
}

// SetColor changes RGB and keeps alpha.
func (o *Object) SetColor(r, g, b float64) {
	o.color.R, o.color.G, o.color.B = r, g, b
}

// SetColorA replaces the color including alpha.
func (o *Object) SetColorA(r, g, b, a float64) {
	o.color = Color{r, g, b, a}
}

// SetRadius resizes the sphere and re-masses the body at the lighter resize density.
func (o *Object) SetRadius(r float64) error {
	if r <= 0 {
		return fmt.Errorf("object: radius %v: %w", r, physics.ErrInvalidShape)
	}
	o.radius = r
	if o.Destroyed() {
		return nil
	}
	if err := o.world.SetSphereRadius(o.shape, r); err != nil {
		return fmt.Errorf("object: resize: %w", err)
	}
	return o.world.SetMass(o.body, physics.SphereMass(resizeDensity, r))
}

// DisableBody freezes the object and drops it from the settled check.
func (o *Object) DisableBody() {
	o.dynamic = false
	if !o.Destroyed() {
		_ = o.world.DisableBody(o.body)
	}
}

// EnableBody unfreezes the object and returns it to the settled check.
func (o *Object) EnableBody() {
	o.dynamic = true
	if !o.Destroyed() {
		_ = o.world.EnableBody(o.body)
	}
}

// DisableGravity stops world gravity acting on the object.
func (o *Object) DisableGravity() {
	if !o.Destroyed() {
		_ = o.world.SetGravityMode(o.body, false)
	}
}

// EnableGravity lets world gravity act on the object again.
func (o *Object) EnableGravity() {
	if !o.Destroyed() {
		_ = o.world.SetGravityMode(o.body, true)
	}
}

// String names the object by kind and ID, e.g. "marble#3".
func (o *Object) String() string {
	return fmt.Sprintf("%v#%d", o.kind, o.id)
}
