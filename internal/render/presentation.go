package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/object"
	"marbles/internal/vmath"
)

const (
	hudFontSize = 16
	hudPadding  = 6
)

var hudBackground = rl.NewColor(0, 0, 0, 140)

type sphereCmd struct {
	transform rl.Matrix
	color     rl.Color
	shininess float32
}

type textCmd struct {
	x, y int32
	text string
}

// Presentation collects one frame of draw calls from the controller and renders them on
// Flush, between BeginDrawing and EndDrawing.
type Presentation struct {
	camera  rl.Camera3D
	spheres []sphereCmd
	texts   []textCmd
	ring    float32
	aimX    float32
	aimZ    float32
	throb   float32
	toggle  bool
	mesh    sphereMesh
	Overlay Overlay
}

func NewPresentation() *Presentation {
	return &Presentation{camera: newCamera()}
}

// SetCamera starts a new frame.
func (p *Presentation) SetCamera(eye, target, up vmath.Vec3) {
	p.camera.Position = vec3(eye)
	p.camera.Target = vec3(target)
	p.camera.Up = vec3(up)
	p.spheres = p.spheres[:0]
	p.texts = p.texts[:0]
}

func (p *Presentation) DrawSphere(pos vmath.Vec3, rot mgl64.Mat3, radius float64, c object.Color, shininess float64) {
	p.spheres = append(p.spheres, sphereCmd{
		transform: sphereTransform(pos, rot, radius),
		color:     rgba(c),
		shininess: float32(shininess),
	})
}

func (p *Presentation) DrawFloor(ringRadius float64) { p.ring = float32(ringRadius) }

func (p *Presentation) DrawAim(x, z, throb float64) {
	p.aimX, p.aimZ, p.throb = float32(x), float32(z), float32(throb)
}

func (p *Presentation) DrawText(x, y int, text string) {
	p.texts = append(p.texts, textCmd{int32(x), int32(y), text})
}

// ToggleFullscreen is applied at the end of the next Flush.
func (p *Presentation) ToggleFullscreen() { p.toggle = !p.toggle }

// Flush renders the collected frame.
func (p *Presentation) Flush() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	rl.BeginMode3D(p.camera)
	drawFloor(p.ring)
	drawAim(p.aimX, p.aimZ, p.throb)
	p.mesh.begin(p.camera.Position)
	for _, s := range p.spheres {
		p.mesh.draw(s)
	}
	rl.EndMode3D()

	if len(p.texts) > 0 {
		h := int32(len(p.texts))*hudFontSize + 2*hudPadding + 4
		rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth())/2, h, hudBackground)
	}
	for _, t := range p.texts {
		rl.DrawText(t.text, t.x, t.y, hudFontSize, rl.RayWhite)
	}
	p.Overlay.draw()
	rl.EndDrawing()

	if p.toggle {
		p.toggle = false
		rl.ToggleFullscreen()
	}
}

// Close releases the GPU resources. Call before the window closes.
func (p *Presentation) Close() { p.mesh.unload() }

func vec3(v vmath.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}
