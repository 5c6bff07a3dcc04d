package physics

import (
	"math"

	"github.com/akmonengine/feather/actor"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/vmath"
)

// BodyHandle identifies a body slot in a World. The generation detects use after
// DestroyBody: a handle whose generation no longer matches its slot is stale.
// The zero value is never valid.
type BodyHandle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever issued by a World. It does not check liveness;
// use World.BodyExists for that.
func (h BodyHandle) Valid() bool {
	return h.gen != 0
}

// Mass is the total mass plus a scalar moment of inertia.
// Bodies here are spheres or near-spherical, so one scalar covers all three axes.
type Mass struct {
	Mass    float64
	Inertia float64
}

// SphereMass is the mass of a solid sphere of the given density and radius.
func SphereMass(density, radius float64) Mass {
	m := density * 4.0 / 3.0 * math.Pi * radius * radius * radius
	return Mass{Mass: m, Inertia: 0.4 * m * radius * radius}
}

// BoxMass is the mass of a solid box; inertia is averaged over the three principal axes.
func BoxMass(density, lx, ly, lz float64) Mass {
	m := density * lx * ly * lz
	return Mass{Mass: m, Inertia: m * (lx*lx + ly*ly + lz*lz) / 18}
}

// body is the handle-side record. Its pose and velocities are authoritative between
// steps; Step copies them into the rigid body, runs the solver, and copies them back.
type body struct {
	gen   uint32
	alive bool

	mass Mass

	pos    vmath.Vec3
	rot    mgl64.Quat
	vel    vmath.Vec3
	angVel vmath.Vec3
	force  vmath.Vec3
	torque vmath.Vec3

	enabled bool
	gravity bool

	shape ShapeHandle       // zero until a shape is attached
	rb    *actor.RigidBody // nil until a shape is attached
	dirty bool             // changed outside Step; wakes a sleeping rigid body
}

func (b *body) invMass() float64 {
	if b.mass.Mass > 0 {
		return 1 / b.mass.Mass
	}
	return 0
}

func (b *body) invInertia() float64 {
	if b.mass.Inertia > 0 {
		return 1 / b.mass.Inertia
	}
	return 0
}

// movable reports whether the solver may change this body's velocity.
func (b *body) movable() bool {
	return b.alive && b.enabled && b.mass.Mass > 0
}

func (b *body) reset() {
	b.mass = Mass{Mass: 1, Inertia: 0.4}
	b.pos = vmath.Zero
	b.rot = mgl64.QuatIdent()
	b.vel, b.angVel = vmath.Zero, vmath.Zero
	b.force, b.torque = vmath.Zero, vmath.Zero
	b.enabled = true
	b.gravity = true
	b.shape = ShapeHandle{}
	b.rb = nil
	b.dirty = false
}

// integrate advances a body without geometry by dt: it has nothing to collide with, so
// the solver never sees it.
func (b *body) integrate(dt float64, g vmath.Vec3) {
	if b.gravity {
		b.vel = b.vel.Add(g.Mul(dt))
	}
	b.pos = b.pos.Add(b.vel.Mul(dt))
	w := mgl64.Quat{W: 0, V: b.angVel}
	b.rot = b.rot.Add(w.Mul(b.rot).Scale(0.5 * dt)).Normalize()
}

// load pushes the handle-side state into the rigid body before a step. A non-finite
// velocity set from outside is dropped rather than spread through the solver.
func (b *body) load() {
	if !finite(b.vel) || !finite(b.angVel) {
		b.vel, b.angVel = vmath.Zero, vmath.Zero
	}
	rb := b.rb
	rb.Transform = transformOf(b.pos, b.rot)
	rb.PreviousTransform = rb.Transform
	rb.Velocity = b.vel
	rb.AngularVelocity = b.angVel
	rb.PresolveVelocity, rb.PresolveAngularVelocity = b.vel, b.angVel
	rb.Shape.ComputeAABB(rb.Transform)
	if b.dirty {
		rb.WakeUp()
		b.dirty = false
	}
}

// store reads the solved state back. Frozen bodies keep their pose, and a body the solver
// returned non-finite is put back at rest where the step started.
func (b *body) store() {
	if !b.movable() {
		return
	}
	t := b.rb.Transform
	if !finite(t.Position) || !finite(b.rb.Velocity) || !finite(b.rb.AngularVelocity) || !finite(t.Rotation.V) || math.IsNaN(t.Rotation.W) {
		b.vel, b.angVel = vmath.Zero, vmath.Zero
		return
	}
	b.pos = b.rb.Transform.Position
	b.rot = b.rb.Transform.Rotation
	b.vel = b.rb.Velocity
	b.angVel = b.rb.AngularVelocity
}

func finite(v vmath.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func transformOf(p vmath.Vec3, q mgl64.Quat) actor.Transform {
	return actor.Transform{Position: p, Rotation: q, InverseRotation: q.Inverse()}
}

// rotationMatrix converts the orientation quaternion into a column-major 3x3 matrix.
func rotationMatrix(q mgl64.Quat) mgl64.Mat3 {
	c0 := q.Rotate(vmath.Vec3{1, 0, 0})
	c1 := q.Rotate(vmath.Vec3{0, 1, 0})
	c2 := q.Rotate(vmath.Vec3{0, 0, 1})
	return mgl64.Mat3{
		c0[0], c0[1], c0[2],
		c1[0], c1[1], c1[2],
		c2[0], c2[1], c2[2],
	}
}
