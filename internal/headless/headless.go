// Package headless provides window-less adapters for the game controller: a recording
// presentation, scriptable input, silent audio and an autopilot that takes shots.
package headless

import (
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/game"
	"marbles/internal/object"
	"marbles/internal/vmath"
)

// Sphere is one recorded DrawSphere call.
type Sphere struct {
	Pos       vmath.Vec3
	Rot       mgl64.Mat3
	Radius    float64
	Color     object.Color
	Shininess float64
}

// Presentation records the latest frame instead of drawing it.
type Presentation struct {
	Frames      int
	Eye, Target vmath.Vec3
	Up          vmath.Vec3
	Spheres     []Sphere
	Texts       []string
	RingRadius  float64
	AimX, AimZ  float64
	Throb       float64
	Fullscreen  bool
}

func NewPresentation() *Presentation {
	return &Presentation{}
}

// SetCamera starts a new frame.
func (p *Presentation) SetCamera(eye, target, up vmath.Vec3) {
	p.Frames++
	p.Eye, p.Target, p.Up = eye, target, up
	p.Spheres = p.Spheres[:0]
	p.Texts = p.Texts[:0]
}

func (p *Presentation) DrawSphere(pos vmath.Vec3, rot mgl64.Mat3, radius float64, c object.Color, shininess float64) {
	p.Spheres = append(p.Spheres, Sphere{pos, rot, radius, c, shininess})
}

func (p *Presentation) DrawFloor(ringRadius float64) {
	p.RingRadius = ringRadius
}

func (p *Presentation) DrawAim(x, z, throb float64) {
	p.AimX, p.AimZ, p.Throb = x, z, throb
}

func (p *Presentation) DrawText(_, _ int, text string) {
	p.Texts = append(p.Texts, text)
}

func (p *Presentation) ToggleFullscreen() {
	p.Fullscreen = !p.Fullscreen
}

// Input is driven by test code or the Autopilot.
type Input struct {
	keys          map[game.Key]bool
	buttons       map[game.Button]bool
	dx, dy        float64
	CursorVisible bool
	Recentered    int
}

func NewInput() *Input {
	return &Input{
		keys:          make(map[game.Key]bool),
		buttons:       make(map[game.Button]bool),
		CursorVisible: true,
	}
}

func (in *Input) Press(k game.Key)   { in.keys[k] = true }
func (in *Input) Release(k game.Key) { in.keys[k] = false }

func (in *Input) PressButton(b game.Button)   { in.buttons[b] = true }
func (in *Input) ReleaseButton(b game.Button) { in.buttons[b] = false }

// Move queues a cursor displacement for the next MouseDelta.
func (in *Input) Move(dx, dy float64) {
	in.dx += dx
	in.dy += dy
}

func (in *Input) KeyDown(k game.Key) bool { return in.keys[k] }

func (in *Input) ReleaseKey(k game.Key) { in.keys[k] = false }

func (in *Input) ButtonDown(b game.Button) bool { return in.buttons[b] }

func (in *Input) MouseDelta() (float64, float64) {
	dx, dy := in.dx, in.dy
	in.dx, in.dy = 0, 0
	in.Recentered++
	return dx, dy
}

func (in *Input) CenterCursor() {
	in.dx, in.dy = 0, 0
	in.Recentered++
}

func (in *Input) ShowCursor(visible bool) { in.CursorVisible = visible }

// Audio counts what would have been played.
type Audio struct {
	Impacts      []float64
	MusicPlaying bool
	MusicStarts  int
}

func NewAudio() *Audio {
	return &Audio{}
}

func (a *Audio) PlayImpact(volume float64) {
	a.Impacts = append(a.Impacts, volume)
}

func (a *Audio) StartMusic() {
	a.MusicPlaying = true
	a.MusicStarts++
}

func (a *Audio) StopMusic() {
	a.MusicPlaying = false
}
