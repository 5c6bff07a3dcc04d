package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"marbles/internal/game"
)

var keyCodes = map[game.Key]int32{
	game.KeyUp:     rl.KeyUp,
	game.KeyDown:   rl.KeyDown,
	game.KeyLeft:   rl.KeyLeft,
	game.KeyRight:  rl.KeyRight,
	game.KeySpace:  rl.KeySpace,
	game.KeyPause:  rl.KeyP,
	game.KeyF1:     rl.KeyF1,
	game.KeyF2:     rl.KeyF2,
	game.KeyF3:     rl.KeyF3,
	game.KeyEscape: rl.KeyEscape,
}

var buttonCodes = map[game.Button]rl.MouseButton{
	game.ButtonLeft:  rl.MouseButtonLeft,
	game.ButtonRight: rl.MouseButtonRight,
}

// device is the slice of raylib that Input reads.
type device interface {
	keyDown(code int32) bool
	buttonDown(b rl.MouseButton) bool
	cursor() (x, y float32)
	center() (x, y float32)
	setCursor(x, y int)
	showCursor(visible bool)
}

type raylibDevice struct{}

func (raylibDevice) keyDown(code int32) bool          { return rl.IsKeyDown(code) }
func (raylibDevice) buttonDown(b rl.MouseButton) bool { return rl.IsMouseButtonDown(b) }

func (raylibDevice) cursor() (float32, float32) {
	p := rl.GetMousePosition()
	return p.X, p.Y
}

func (raylibDevice) center() (float32, float32) {
	return float32(rl.GetScreenWidth() / 2), float32(rl.GetScreenHeight() / 2)
}

func (raylibDevice) setCursor(x, y int) { rl.SetMousePosition(x, y) }

func (raylibDevice) showCursor(visible bool) {
	if visible {
		rl.ShowCursor()
		return
	}
	rl.HideCursor()
}

// Input reads the keyboard and mouse. A key released by the game reads as up until it is
// physically released and pressed again.
type Input struct {
	dev     device
	latched map[game.Key]bool
}

func NewInput() *Input {
	return newInput(raylibDevice{})
}

func newInput(dev device) *Input {
	return &Input{dev: dev, latched: make(map[game.Key]bool)}
}

func (in *Input) KeyDown(k game.Key) bool {
	code, ok := keyCodes[k]
	if !ok {
		return false
	}
	if !in.dev.keyDown(code) {
		in.latched[k] = false
		return false
	}
	return !in.latched[k]
}

func (in *Input) ReleaseKey(k game.Key) {
	if _, ok := keyCodes[k]; ok {
		in.latched[k] = true
	}
}

func (in *Input) ButtonDown(b game.Button) bool {
	code, ok := buttonCodes[b]
	return ok && in.dev.buttonDown(code)
}

// MouseDelta returns how far the cursor is from the window center, then recenters it.
func (in *Input) MouseDelta() (float64, float64) {
	cx, cy := in.dev.center()
	x, y := in.dev.cursor()
	in.CenterCursor()
	return float64(cx - x), float64(cy - y)
}

func (in *Input) CenterCursor() {
	cx, cy := in.dev.center()
	in.dev.setCursor(int(cx), int(cy))
}

func (in *Input) ShowCursor(visible bool) { in.dev.showCursor(visible) }
