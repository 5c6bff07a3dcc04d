package physics

import (
	"math"

	"github.com/akmonengine/feather"
	"github.com/akmonengine/feather/actor"
	"github.com/akmonengine/feather/constraint"

	"marbles/internal/vmath"
)

// Contact is one touching point between two shapes. Normal points from the first shape
// towards the second; Depth is the penetration, positive when overlapping.
type Contact struct {
	Pos    vmath.Vec3
	Normal vmath.Vec3
	Depth  float64
}

// weld is a persistent non-contact joint: the two bodies share one linear and one
// angular velocity, and never collide with each other.
type weld struct {
	a, b BodyHandle
}

type pairKey struct {
	a, b *actor.RigidBody
}

func keyOf(a, b *actor.RigidBody) pairKey {
	if less(b, a) {
		a, b = b, a
	}
	return pairKey{a, b}
}

// less orders rigid bodies by handle so a pair maps to one key whichever way round the
// broad phase reports it.
func less(a, b *actor.RigidBody) bool {
	ha, aok := a.Id.(BodyHandle)
	hb, bok := b.Id.(BodyHandle)
	if aok != bok {
		return bok
	}
	if aok {
		return ha.index < hb.index
	}
	sa, _ := a.Id.(ShapeHandle)
	sb, _ := b.Id.(ShapeHandle)
	return sa.index < sb.index
}

// Step advances the simulation by dt unless paused. Accumulated forces become velocity
// first. The step is then split into substeps; each one integrates, finds candidate pairs
// (welds skipped, the hook told about body-body pairs), generates capped contacts,
// solves positions, derives velocities, solves bounce and friction, and shares welded
// velocities. The contact group is emptied at the end.
func (w *World) Step(dt float64, paused bool) {
	if paused || dt <= 0 {
		return
	}
	w.stepping = true
	defer func() { w.stepping = false }()

	clear(w.hooked)
	w.lastPairs, w.lastCount = 0, 0

	for i := range w.bodies {
		b := &w.bodies[i]
		if !b.alive {
			continue
		}
		if b.movable() {
			b.vel = b.vel.Add(b.force.Mul(b.invMass() * dt))
			b.angVel = b.angVel.Add(b.torque.Mul(b.invInertia() * dt))
			if b.rb == nil {
				b.integrate(dt, w.fw.Gravity)
			}
		}
		b.force, b.torque = vmath.Zero, vmath.Zero
		if b.rb != nil {
			b.load()
		}
	}

	n := w.substeps(dt)
	h := dt / float64(n)
	for range n {
		w.substep(h)
	}

	for i := range w.bodies {
		if b := &w.bodies[i]; b.rb != nil {
			b.store()
		}
	}
	w.lastPairs = len(w.hooked)
}

// substeps is the configured count, raised for fast bodies so none moves further than
// its own thickness in one substep.
func (w *World) substeps(dt float64) int {
	n := w.fw.Substeps
	for i := range w.bodies {
		b := &w.bodies[i]
		if b.rb == nil || !b.movable() {
			continue
		}
		sh, err := w.shape(b.shape)
		if err != nil {
			continue
		}
		if t := sh.thinnest(); t > 0 {
			need := int(math.Ceil(b.vel.Len() * dt / t))
			n = max(n, min(need, maxSubsteps))
		}
	}
	return n
}

func (w *World) substep(h float64) {
	for i := range w.bodies {
		b := &w.bodies[i]
		if b.rb == nil || !b.movable() {
			continue
		}
		g := vmath.Zero
		if b.gravity {
			g = w.fw.Gravity
		}
		b.rb.Integrate(h, g)
	}

	pairs := feather.BroadPhase(w.fw.SpatialGrid, w.fw.Bodies, w.fw.Workers)
	w.contacts = feather.NarrowPhase(w.nearCallback(pairs), w.fw.Workers)
	for _, c := range w.contacts {
		if len(c.Points) > MaxContacts {
			c.Points = c.Points[:MaxContacts]
		}
	}

	for _, c := range w.contacts {
		c.SolvePosition(h)
	}
	for _, rb := range w.fw.Bodies {
		rb.Update(h)
	}
	for _, c := range w.contacts {
		w.solveVelocity(c, h)
	}
	for _, j := range w.welds {
		j.solve(w)
	}
	for _, rb := range w.fw.Bodies {
		if rb.BodyType == actor.BodyTypeDynamic {
			rb.TrySleep(h, sleepTime, sleepSpeed)
		}
	}

	w.lastCount = len(w.contacts)
	w.contacts = w.contacts[:0]
}

// nearCallback filters the broad phase's candidate pairs before the narrow phase: welded
// bodies never collide, the hook hears about each body-body pair once per Step, and
// bounded shapes further apart than their bounding spheres are dropped.
func (w *World) nearCallback(in <-chan feather.Pair) <-chan feather.Pair {
	var kept []feather.Pair
	for p := range in {
		ha, aBody := p.BodyA.Id.(BodyHandle)
		hb, bBody := p.BodyB.Id.(BodyHandle)
		if aBody && bBody && w.Connected(ha, hb) {
			continue
		}
		k := keyOf(p.BodyA, p.BodyB)
		if !w.hooked[k] {
			w.hooked[k] = true
			if aBody && bBody && w.hook != nil {
				w.hook(ha, hb)
			}
		}
		if apart(p.BodyA, p.BodyB) {
			continue
		}
		kept = append(kept, p)
	}

	out := make(chan feather.Pair, len(kept))
	for _, p := range kept {
		out <- p
	}
	close(out)
	return out
}

// apart reports bounded shapes whose bounding spheres do not overlap. Touching spheres
// count as apart, which keeps a packed rack from being pushed open.
func apart(a, b *actor.RigidBody) bool {
	ra, ok := boundOf(a.Shape)
	if !ok {
		return false
	}
	rb, ok := boundOf(b.Shape)
	if !ok {
		return false
	}
	r := ra + rb
	return a.Transform.Position.Sub(b.Transform.Position).LenSqr() >= r*r
}

func boundOf(g actor.ShapeInterface) (float64, bool) {
	s := shape{geom: g}
	return s.bound()
}

// solveVelocity runs feather's bounce and friction solve for one contact. Contacts that
// approach slower than the bounce threshold are solved without restitution.
func (w *World) solveVelocity(c *constraint.ContactConstraint, h float64) {
	if len(c.Points) == 0 {
		return
	}
	a, b := c.BodyA, c.BodyB
	p := c.Points[0].Position
	ra := p.Sub(a.Transform.Position)
	rb := p.Sub(b.Transform.Position)
	va := a.PresolveVelocity.Add(a.PresolveAngularVelocity.Cross(ra))
	vb := b.PresolveVelocity.Add(b.PresolveAngularVelocity.Cross(rb))
	approach := -vb.Sub(va).Dot(c.Normal)

	if approach >= w.surface.BounceVel {
		c.SolveVelocity(h)
		return
	}
	ea, eb := a.Material.Restitution, b.Material.Restitution
	a.Material.Restitution, b.Material.Restitution = 0, 0
	c.SolveVelocity(h)
	a.Material.Restitution, b.Material.Restitution = ea, eb
}

// solve gives both bodies the mass-weighted mean velocity; an immovable side pins the
// other to its own.
func (j weld) solve(w *World) {
	A, errA := w.body(j.a)
	B, errB := w.body(j.b)
	if errA != nil || errB != nil || A.rb == nil || B.rb == nil {
		return
	}
	ma, mb := A.movable(), B.movable()
	var v, av vmath.Vec3
	switch {
	case !ma && !mb:
		return
	case !ma:
		v, av = A.rb.Velocity, A.rb.AngularVelocity
	case !mb:
		v, av = B.rb.Velocity, B.rb.AngularVelocity
	default:
		wa, wb := A.mass.Mass, B.mass.Mass
		v = A.rb.Velocity.Mul(wa).Add(B.rb.Velocity.Mul(wb)).Mul(1 / (wa + wb))
		av = A.rb.AngularVelocity.Add(B.rb.AngularVelocity).Mul(0.5)
	}
	if ma {
		A.rb.Velocity, A.rb.AngularVelocity = v, av
	}
	if mb {
		B.rb.Velocity, B.rb.AngularVelocity = v, av
	}
}

// rigid returns the rigid body standing for a shape: its body's when attached, its own
// when static. Attached bodies are loaded with their current pose.
func (w *World) rigid(s ShapeHandle) (*actor.RigidBody, error) {
	sh, err := w.shape(s)
	if err != nil {
		return nil, err
	}
	if sh.static != nil {
		return sh.static, nil
	}
	b, err := w.body(sh.body)
	if err != nil || b.rb == nil {
		return nil, ErrStaleShape
	}
	b.rb.Transform = transformOf(b.pos, b.rot)
	b.rb.Shape.ComputeAABB(b.rb.Transform)
	return b.rb, nil
}

// Collide runs the narrow phase for two shapes and returns up to limit touching contacts.
func (w *World) Collide(a, b ShapeHandle, limit int) ([]Contact, error) {
	ra, err := w.rigid(a)
	if err != nil {
		return nil, err
	}
	rb, err := w.rigid(b)
	if err != nil {
		return nil, err
	}
	// the narrow phase expects the plane first
	flip := false
	if _, ok := rb.Shape.(*actor.Plane); ok {
		ra, rb, flip = rb, ra, true
	}

	in := make(chan feather.Pair, 1)
	in <- feather.Pair{BodyA: ra, BodyB: rb}
	close(in)

	var out []Contact
	for _, c := range feather.NarrowPhase(in, 1) {
		n := c.Normal
		if flip {
			n = n.Mul(-1)
		}
		for _, p := range c.Points {
			if len(out) == limit {
				return out, nil
			}
			out = append(out, Contact{Pos: p.Position, Normal: n, Depth: p.Penetration})
		}
	}
	return out, nil
}
