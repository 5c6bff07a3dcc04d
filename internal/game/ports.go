package game

import (
	"marbles/internal/object"
	"marbles/internal/vmath"
)

// Key names the keys the controller reads. Adapters map them to real key codes.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyPause
	KeyF1
	KeyF2
	KeyF3
	KeyEscape
	keyCount
)

// Button names a mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
)

// Presentation receives one frame of drawing. Calls are made in frame order and must not
// block; what an adapter does with them (and whether it fails) is up to the adapter.
type Presentation interface {
	object.Painter
	SetCamera(eye, target, up vmath.Vec3)
	DrawFloor(ringRadius float64)
	DrawAim(x, z, throb float64)
	DrawText(x, y int, text string)
	ToggleFullscreen()
}

// Input exposes the current device state.
type Input interface {
	KeyDown(k Key) bool
	// ReleaseKey forgets a held key until it is pressed again.
	ReleaseKey(k Key)
	ButtonDown(b Button) bool
	// MouseDelta returns the cursor offset from the screen center as (center - cursor)
	// and moves the cursor back to the center.
	MouseDelta() (dx, dy float64)
	CenterCursor()
	ShowCursor(visible bool)
}

// Audio plays impacts and background music.
type Audio interface {
	PlayImpact(volume float64)
	StartMusic()
	StopMusic()
}

// Clock yields the seconds elapsed between frames. *clock.FrameClock satisfies it.
type Clock interface {
	Tick()
	Delta() float64
}
