// Package render is the raylib frontend: a window, a lit 3D presentation of the table and
// keyboard/mouse input.
package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"marbles/internal/config"
)

// Run opens the window and calls frame once per display frame until it reports done, fails,
// or the window is closed. Escape is left to the game; it does not close the window.
func Run(w config.Window, frame func() (done bool, err error)) error {
	var flags uint32 = rl.FlagMsaa4xHint | rl.FlagVsyncHint
	if w.Fullscreen {
		flags |= rl.FlagFullscreenMode
	}
	rl.SetConfigFlags(flags)
	rl.InitWindow(int32(w.Width), int32(w.Height), w.Title)
	defer rl.CloseWindow()

	rl.SetExitKey(rl.KeyNull)
	rl.SetTargetFPS(int32(w.FPS))

	for !rl.WindowShouldClose() {
		done, err := frame()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}
