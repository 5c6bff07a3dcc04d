package render

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	gridExtent    = 40
	gridMajorStep = 10
	ringSegments  = 96
	aimSegments   = 24
	aimRadius     = 0.6
	// the aim marker rings grow by up to this much with the throbber
	aimThrob = 0.4
	fovy     = 45
)

var (
	floorColor = rl.NewColor(34, 70, 40, 255)
	gridMinor  = rl.NewColor(128, 128, 128, 40)
	gridMajor  = rl.NewColor(160, 160, 160, 90)
	ringColor  = rl.NewColor(240, 240, 240, 255)
	aimColor   = rl.NewColor(230, 60, 60, 255)
)

func newCamera() rl.Camera3D {
	return rl.Camera3D{
		Position:   rl.NewVector3(40, 20, 40),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       fovy,
		Projection: rl.CameraPerspective,
	}
}

// circle returns segments points around (cx, y, cz) closing back on the first one.
func circle(cx, y, cz, radius float32, segments int) []rl.Vector3 {
	pts := make([]rl.Vector3, segments+1)
	for i := 0; i <= segments; i++ {
		a := 2 * math32.Pi * float32(i%segments) / float32(segments)
		pts[i] = rl.NewVector3(cx+radius*math32.Cos(a), y, cz+radius*math32.Sin(a))
	}
	return pts
}

func drawLoop(pts []rl.Vector3, c rl.Color) {
	for i := 1; i < len(pts); i++ {
		rl.DrawLine3D(pts[i-1], pts[i], c)
	}
}

// drawFloor draws the green cloth with a grid and the ring marked on it.
func drawFloor(ring float32) {
	size := float32(2 * gridExtent)
	rl.DrawPlane(rl.NewVector3(0, -0.01, 0), rl.NewVector2(size, size), floorColor)

	var start, end rl.Vector3
	for x := -gridExtent; x <= gridExtent; x++ {
		c := gridMinor
		if x%gridMajorStep == 0 {
			c = gridMajor
		}
		start.X, start.Y, start.Z = float32(x), 0, -gridExtent
		end.X, end.Y, end.Z = float32(x), 0, gridExtent
		rl.DrawLine3D(start, end, c)
		start.X, start.Z = -gridExtent, float32(x)
		end.X, end.Z = gridExtent, float32(x)
		rl.DrawLine3D(start, end, c)
	}
	drawLoop(circle(0, 0.01, 0, ring, ringSegments), ringColor)
}

// aimRadii are the two marker rings at the aim point for a throbber value.
func aimRadii(throb float32) (inner, outer float32) {
	t := math32.Max(0, math32.Min(1, throb))
	return aimRadius * 0.5, aimRadius + aimThrob*t
}

func drawAim(x, z, throb float32) {
	inner, outer := aimRadii(throb)
	drawLoop(circle(x, 0.02, z, inner, aimSegments), aimColor)
	drawLoop(circle(x, 0.02, z, outer, aimSegments), aimColor)
}
