// Package physics wraps a feather rigid-body world behind generation-checked handles and
// adds the table's contact policy: a body-body collision hook, welded pairs that never
// collide, a per-pair contact cap, a bounce threshold and no-slide friction.
package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/feather"
	"github.com/akmonengine/feather/actor"
	"github.com/akmonengine/feather/constraint"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/vmath"
)

const (
	// MaxContacts caps the contact points generated per shape pair.
	MaxContacts = 6
	// DefaultStep is the fixed simulation step in seconds.
	DefaultStep = 0.05
	// DefaultSubsteps is how many solver substeps one Step is split into.
	DefaultSubsteps = 10
	// MaxBodies bounds the body arena; so does MaxShapes for shapes.
	MaxBodies = 4096
	MaxShapes = 4096

	// broad phase grid: cells a little larger than a marble, hashed into a fixed table
	gridCell  = 1.0
	gridCells = 4096

	// a fast body gets extra substeps so it never moves further than its own thickness
	// in one; this bounds the extra work
	maxSubsteps = 100

	// feather's own sleep thresholds: seconds below the speed before a body sleeps
	sleepTime  = 0.1
	sleepSpeed = 0.05

	// friction coefficient standing in for an infinite one
	noSlide = 1e6
)

var (
	ErrStaleBody    = errors.New("physics: stale or unknown body handle")
	ErrStaleShape   = errors.New("physics: stale or unknown shape handle")
	ErrCapacity     = errors.New("physics: arena capacity exhausted")
	ErrInvalidShape = errors.New("physics: invalid shape dimensions")
)

// Surface holds the contact parameters applied to every generated contact.
type Surface struct {
	Bounce    float64 // restitution, 0..1
	BounceVel float64 // minimum approach speed before bouncing
	Mu        float64 // friction coefficient; math.Inf(1) means no sliding
}

// DefaultSurface is the marble-on-marble/floor material: lively bounce and no sliding.
func DefaultSurface() Surface {
	return Surface{Bounce: 0.75, BounceVel: 0.1, Mu: math.Inf(1)}
}

func (s Surface) friction() float64 {
	if math.IsInf(s.Mu, 1) {
		return noSlide
	}
	return s.Mu
}

// CollisionHook is called once per Step for each candidate pair where both shapes belong
// to bodies, before contacts are generated. It runs inside Step and must not create or
// destroy bodies or shapes.
type CollisionHook func(a, b BodyHandle)

// World owns every body, shape, weld and the transient contact group.
// Not safe for concurrent use.
type World struct {
	fw *feather.World

	bodies     []body
	freeBodies []uint32
	shapes     []shape
	freeShapes []uint32
	welds      []weld

	contacts []*constraint.ContactConstraint // emptied at the end of every Step

	surface Surface

	hook      CollisionHook
	hooked    map[pairKey]bool
	stepping  bool
	lastPairs int
	lastCount int
}

// NewWorld returns a world with gravity (0,-9.8,0), DefaultSubsteps and no bodies.
func NewWorld() *World {
	return &World{
		fw: &feather.World{
			Gravity:     vmath.Vec3{0, -9.8, 0},
			Substeps:    DefaultSubsteps,
			SpatialGrid: feather.NewSpatialGrid(gridCell, gridCells),
			Workers:     feather.DEFAULT_WORKERS,
		},
		surface: DefaultSurface(),
		hooked:  make(map[pairKey]bool),
	}
}

// SetGravity sets the world-wide acceleration.
func (w *World) SetGravity(x, y, z float64) {
	w.fw.Gravity = vmath.Vec3{x, y, z}
	w.wakeAll()
}

// Gravity returns the acceleration last set with SetGravity.
func (w *World) Gravity() vmath.Vec3 {
	return w.fw.Gravity
}

// SetSubsteps sets how many solver substeps each Step is split into.
func (w *World) SetSubsteps(n int) {
	w.fw.Substeps = max(n, 1)
}

// Substeps returns the configured substep count.
func (w *World) Substeps() int {
	return w.fw.Substeps
}

// SetSurface replaces the contact parameters.
func (w *World) SetSurface(s Surface) {
	w.surface = s
	for _, rb := range w.fw.Bodies {
		w.material(rb)
	}
}

// SetCollisionHook installs the callback for body-body candidate pairs.
func (w *World) SetCollisionHook(h CollisionHook) {
	w.hook = h
}

// Stepping reports whether Step is currently running (i.e. we are inside a hook).
func (w *World) Stepping() bool {
	return w.stepping
}

// CreateBody allocates a body with unit mass, identity orientation and zero velocity.
func (w *World) CreateBody() (BodyHandle, error) {
	var idx uint32
	if n := len(w.freeBodies); n > 0 {
		idx = w.freeBodies[n-1]
		w.freeBodies = w.freeBodies[:n-1]
	} else {
		if len(w.bodies) >= MaxBodies {
			return BodyHandle{}, ErrCapacity
		}
		w.bodies = append(w.bodies, body{})
		idx = uint32(len(w.bodies) - 1)
	}
	b := &w.bodies[idx]
	b.gen++
	b.alive = true
	b.reset()
	return BodyHandle{index: idx, gen: b.gen}, nil
}

// DestroyBody releases the body, leaves its shape behind as static geometry at the
// body's last pose and drops its welds. Further use of h reports ErrStaleBody.
func (w *World) DestroyBody(h BodyHandle) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	if b.rb != nil {
		w.fw.RemoveBody(b.rb)
		b.rb = nil
	}
	if sh, err := w.shape(b.shape); err == nil {
		sh.body = BodyHandle{}
		sh.pos, sh.rot = b.pos, b.rot
		w.makeStatic(b.shape, sh)
	}
	b.alive = false
	kept := w.welds[:0]
	for _, j := range w.welds {
		if j.a != h && j.b != h {
			kept = append(kept, j)
		}
	}
	w.welds = kept
	w.freeBodies = append(w.freeBodies, h.index)
	return nil
}

// BodyExists reports whether h refers to a live body.
func (w *World) BodyExists(h BodyHandle) bool {
	_, err := w.body(h)
	return err == nil
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	return len(w.bodies) - len(w.freeBodies)
}

func (w *World) body(h BodyHandle) (*body, error) {
	if !h.Valid() || int(h.index) >= len(w.bodies) {
		return nil, ErrStaleBody
	}
	b := &w.bodies[h.index]
	if !b.alive || b.gen != h.gen {
		return nil, ErrStaleBody
	}
	return b, nil
}

// SetMass sets the body's mass properties. A zero mass makes the body immovable.
func (w *World) SetMass(h BodyHandle, m Mass) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.mass = m
	w.rebuild(h, b)
	return nil
}

// Mass returns the body's mass, or zero for a stale handle.
func (w *World) Mass(h BodyHandle) float64 {
	if b, err := w.body(h); err == nil {
		return b.mass.Mass
	}
	return 0
}

// SetPosition teleports the body.
func (w *World) SetPosition(h BodyHandle, p vmath.Vec3) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.pos = p
	b.dirty = true
	return nil
}

// Position returns the body's center, or zero for a stale handle.
func (w *World) Position(h BodyHandle) vmath.Vec3 {
	if b, err := w.body(h); err == nil {
		return b.pos
	}
	return vmath.Zero
}

// SetRotation replaces the body's orientation.
func (w *World) SetRotation(h BodyHandle, q mgl64.Quat) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.rot = q.Normalize()
	b.dirty = true
	return nil
}

// Rotation returns the body's orientation as a 3x3 matrix, identity for a stale handle.
func (w *World) Rotation(h BodyHandle) mgl64.Mat3 {
	if b, err := w.body(h); err == nil {
		return rotationMatrix(b.rot)
	}
	return mgl64.Ident3()
}

// SetLinearVel sets the velocity directly, with no force accumulation.
func (w *World) SetLinearVel(h BodyHandle, v vmath.Vec3) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.vel = v
	b.dirty = true
	return nil
}

// LinearVel returns the body's linear velocity, or zero for a stale handle.
func (w *World) LinearVel(h BodyHandle) vmath.Vec3 {
	if b, err := w.body(h); err == nil {
		return b.vel
	}
	return vmath.Zero
}

// SetAngularVel sets the angular velocity in radians per second.
func (w *World) SetAngularVel(h BodyHandle, v vmath.Vec3) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.angVel = v
	b.dirty = true
	return nil
}

// AngularVel returns the body's angular velocity, or zero for a stale handle.
func (w *World) AngularVel(h BodyHandle) vmath.Vec3 {
	if b, err := w.body(h); err == nil {
		return b.angVel
	}
	return vmath.Zero
}

// AddForce accumulates a force applied at the center during the next Step.
func (w *World) AddForce(h BodyHandle, f vmath.Vec3) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.force = b.force.Add(f)
	b.dirty = true
	return nil
}

// AddTorque accumulates a torque applied during the next Step.
func (w *World) AddTorque(h BodyHandle, t vmath.Vec3) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.torque = b.torque.Add(t)
	b.dirty = true
	return nil
}

// Force returns the force accumulated since the last Step.
func (w *World) Force(h BodyHandle) vmath.Vec3 {
	if b, err := w.body(h); err == nil {
		return b.force
	}
	return vmath.Zero
}

// Torque returns the torque accumulated since the last Step.
func (w *World) Torque(h BodyHandle) vmath.Vec3 {
	if b, err := w.body(h); err == nil {
		return b.torque
	}
	return vmath.Zero
}

// EnableBody lets the solver integrate the body again.
func (w *World) EnableBody(h BodyHandle) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.enabled = true
	w.rebuild(h, b)
	return nil
}

// DisableBody freezes the body in place. Disabled bodies act as immovable obstacles.
func (w *World) DisableBody(h BodyHandle) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.enabled = false
	w.rebuild(h, b)
	return nil
}

// BodyEnabled reports whether the body is live and enabled.
func (w *World) BodyEnabled(h BodyHandle) bool {
	b, err := w.body(h)
	return err == nil && b.enabled
}

// SetGravityMode turns world gravity on or off for one body.
func (w *World) SetGravityMode(h BodyHandle, on bool) error {
	b, err := w.body(h)
	if err != nil {
		return err
	}
	b.gravity = on
	b.dirty = true
	return nil
}

// GravityMode reports whether gravity applies to the body.
func (w *World) GravityMode(h BodyHandle) bool {
	b, err := w.body(h)
	return err == nil && b.gravity
}

// rebuild replaces the body's rigid body after a change feather fixes at construction:
// its shape, its mass, or whether it moves at all.
func (w *World) rebuild(h BodyHandle, b *body) {
	if b.rb != nil {
		w.fw.RemoveBody(b.rb)
		b.rb = nil
	}
	sh, err := w.shape(b.shape)
	if err != nil {
		return
	}
	kind := actor.BodyTypeStatic
	density := 0.0
	if b.movable() {
		kind = actor.BodyTypeDynamic
		density = b.mass.Mass / sh.geom.ComputeMass(1)
	}
	rb := actor.NewRigidBody(transformOf(b.pos, b.rot), sh.geom, kind, density)
	rb.Id = h
	if kind == actor.BodyTypeDynamic {
		inv := b.invInertia()
		rb.InertiaLocal = mgl64.Ident3().Mul(b.mass.Inertia)
		rb.InverseInertiaLocal = mgl64.Ident3().Mul(inv)
	}
	w.material(rb)
	b.rb = rb
	b.dirty = false
	w.fw.AddBody(rb)
}

// material applies the surface to a rigid body. Every body carries the same values, so
// feather's pairwise averaging leaves them unchanged.
func (w *World) material(rb *actor.RigidBody) {
	rb.Material.Restitution = w.surface.Bounce
	rb.Material.StaticFriction = w.surface.friction()
	rb.Material.DynamicFriction = w.surface.friction()
}

func (w *World) wakeAll() {
	for i := range w.bodies {
		if w.bodies[i].alive {
			w.bodies[i].dirty = true
		}
	}
}

func (w *World) newShape(s shape) (ShapeHandle, error) {
	var idx uint32
	if n := len(w.freeShapes); n > 0 {
		idx = w.freeShapes[n-1]
		w.freeShapes = w.freeShapes[:n-1]
	} else {
		if len(w.shapes) >= MaxShapes {
			return ShapeHandle{}, ErrCapacity
		}
		w.shapes = append(w.shapes, shape{})
		idx = uint32(len(w.shapes) - 1)
	}
	s.gen = w.shapes[idx].gen + 1
	s.alive = true
	s.rot = mgl64.QuatIdent()
	w.shapes[idx] = s
	h := ShapeHandle{index: idx, gen: s.gen}
	w.makeStatic(h, &w.shapes[idx])
	return h, nil
}

// makeStatic puts unattached geometry into the solver as an immovable rigid body.
func (w *World) makeStatic(h ShapeHandle, s *shape) {
	rb := actor.NewRigidBody(transformOf(s.pos, s.rot), s.geom, actor.BodyTypeStatic, 0)
	rb.Id = h
	w.material(rb)
	s.static = rb
	w.fw.AddBody(rb)
}

func (w *World) dropStatic(s *shape) {
	if s.static != nil {
		w.fw.RemoveBody(s.static)
		s.static = nil
	}
}

// CreateSphere allocates an unattached sphere.
func (w *World) CreateSphere(radius float64) (ShapeHandle, error) {
	if radius <= 0 {
		return ShapeHandle{}, fmt.Errorf("sphere radius %v: %w", radius, ErrInvalidShape)
	}
	return w.newShape(shape{kind: ShapeSphere, geom: &actor.Sphere{Radius: radius}})
}

// CreatePlane allocates the static plane a*x + b*y + c*z = d. The normal is normalized.
func (w *World) CreatePlane(a, b, c, d float64) (ShapeHandle, error) {
	n := vmath.Vec3{a, b, c}
	l := n.Len()
	if l == 0 {
		return ShapeHandle{}, fmt.Errorf("plane normal is zero: %w", ErrInvalidShape)
	}
	// feather planes satisfy normal·p + Distance = 0
	return w.newShape(shape{kind: ShapePlane, geom: &actor.Plane{Normal: n.Mul(1 / l), Distance: -d / l}})
}

// CreateBox allocates an unattached box with the given side lengths.
func (w *World) CreateBox(lx, ly, lz float64) (ShapeHandle, error) {
	if lx <= 0 || ly <= 0 || lz <= 0 {
		return ShapeHandle{}, fmt.Errorf("box %vx%vx%v: %w", lx, ly, lz, ErrInvalidShape)
	}
	return w.newShape(shape{kind: ShapeBox, geom: &actor.Box{HalfExtents: vmath.Vec3{lx / 2, ly / 2, lz / 2}}})
}

func (w *World) shape(h ShapeHandle) (*shape, error) {
	if !h.Valid() || int(h.index) >= len(w.shapes) {
		return nil, ErrStaleShape
	}
	s := &w.shapes[h.index]
	if !s.alive || s.gen != h.gen {
		return nil, ErrStaleShape
	}
	return s, nil
}

// Attach binds shape s to body b; the shape then follows the body. A body carries one
// shape, and planes stay static and cannot be attached.
func (w *World) Attach(s ShapeHandle, b BodyHandle) error {
	sh, err := w.shape(s)
	if err != nil {
		return err
	}
	bd, err := w.body(b)
	if err != nil {
		return err
	}
	if sh.kind == ShapePlane {
		return fmt.Errorf("attach plane: %w", ErrInvalidShape)
	}
	if sh.body.Valid() || (bd.shape.Valid() && bd.shape != s) {
		return fmt.Errorf("attach %v: already attached: %w", sh.kind, ErrInvalidShape)
	}
	w.dropStatic(sh)
	sh.body = b
	bd.shape = s
	w.rebuild(b, bd)
	return nil
}

// ShapeBody returns the body a shape is attached to (zero handle for static geometry).
func (w *World) ShapeBody(s ShapeHandle) BodyHandle {
	if sh, err := w.shape(s); err == nil {
		return sh.body
	}
	return BodyHandle{}
}

// ShapeKindOf returns the geometry kind of s.
func (w *World) ShapeKindOf(s ShapeHandle) (ShapeKind, error) {
	sh, err := w.shape(s)
	if err != nil {
		return 0, err
	}
	return sh.kind, nil
}

// SetSphereRadius resizes a sphere shape. The body keeps its mass until SetMass.
func (w *World) SetSphereRadius(s ShapeHandle, radius float64) error {
	sh, err := w.shape(s)
	if err != nil {
		return err
	}
	g, ok := sh.geom.(*actor.Sphere)
	if !ok || radius <= 0 {
		return fmt.Errorf("resize %v to %v: %w", sh.kind, radius, ErrInvalidShape)
	}
	g.Radius = radius
	if b, err := w.body(sh.body); err == nil {
		w.rebuild(sh.body, b)
	} else if sh.static != nil {
		sh.static.Shape.ComputeAABB(sh.static.Transform)
	}
	return nil
}

// SetShapePosition places unattached geometry.
func (w *World) SetShapePosition(s ShapeHandle, p vmath.Vec3) error {
	sh, err := w.shape(s)
	if err != nil {
		return err
	}
	sh.pos = p
	if sh.static != nil {
		sh.static.Transform = transformOf(sh.pos, sh.rot)
		sh.static.PreviousTransform = sh.static.Transform
		sh.static.Shape.ComputeAABB(sh.static.Transform)
	}
	return nil
}

// DestroyShape releases a shape. A body it was attached to keeps moving without geometry.
func (w *World) DestroyShape(s ShapeHandle) error {
	sh, err := w.shape(s)
	if err != nil {
		return err
	}
	w.dropStatic(sh)
	if b, err := w.body(sh.body); err == nil {
		b.shape = ShapeHandle{}
		w.rebuild(sh.body, b)
	}
	sh.alive = false
	sh.body = BodyHandle{}
	sh.geom = nil
	w.freeShapes = append(w.freeShapes, s.index)
	return nil
}

// ShapeExists reports whether s refers to a live shape.
func (w *World) ShapeExists(s ShapeHandle) bool {
	_, err := w.shape(s)
	return err == nil
}

// Weld joins two bodies with a non-contact constraint that makes them move together.
func (w *World) Weld(a, b BodyHandle) error {
	if _, err := w.body(a); err != nil {
		return err
	}
	if _, err := w.body(b); err != nil {
		return err
	}
	w.welds = append(w.welds, weld{a: a, b: b})
	return nil
}

// Connected reports whether a and b are joined by any non-contact joint.
func (w *World) Connected(a, b BodyHandle) bool {
	for _, j := range w.welds {
		if (j.a == a && j.b == b) || (j.a == b && j.b == a) {
			return true
		}
	}
	return false
}

// LastStepStats reports the distinct candidate pairs tested and the contact constraints
// solved in the final substep of the most recent Step.
func (w *World) LastStepStats() (pairs, contacts int) {
	return w.lastPairs, w.lastCount
}
