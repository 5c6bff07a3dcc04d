package physics

import (
	"github.com/akmonengine/feather/actor"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/vmath"
)

// ShapeHandle identifies a collision shape slot in a World. See BodyHandle.
type ShapeHandle struct {
	index uint32
	gen   uint32
}

// Valid reports whether h was ever issued by a World.
func (h ShapeHandle) Valid() bool {
	return h.gen != 0
}

// ShapeKind enumerates the supported collision geometries.
type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
	ShapePlane
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapePlane:
		return "plane"
	case ShapeBox:
		return "box"
	}
	return "unknown"
}

type shape struct {
	gen   uint32
	alive bool
	kind  ShapeKind
	geom  actor.ShapeInterface

	body BodyHandle // zero when the shape is static geometry

	// static geometry is its own immovable rigid body; nil once attached to a body
	static *actor.RigidBody
	pos    vmath.Vec3
	rot    mgl64.Quat
}

// bound is the radius of a sphere around the shape's center that contains it, or false
// for unbounded planes.
func (s *shape) bound() (float64, bool) {
	switch g := s.geom.(type) {
	case *actor.Sphere:
		return g.Radius, true
	case *actor.Box:
		return g.HalfExtents.Len(), true
	}
	return 0, false
}

// thinnest is the smallest distance from the center to the surface, which bounds how far
// the shape may travel in one substep before it can pass through another.
func (s *shape) thinnest() float64 {
	switch g := s.geom.(type) {
	case *actor.Sphere:
		return g.Radius
	case *actor.Box:
		h := g.HalfExtents
		return min(h[0], h[1], h[2])
	}
	return 0
}
