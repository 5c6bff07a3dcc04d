package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/clock"
	"marbles/internal/game"
	"marbles/internal/object"
	"marbles/internal/vmath"
)

var (
	_ game.Presentation = (*Frontend)(nil)
	_ game.Input        = (*Frontend)(nil)
)

func newFrontend(t *testing.T) (*Frontend, tcell.SimulationScreen, *clock.Manual) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.SetSize(80, 40)
	c := clock.NewManual(time.Unix(0, 0))
	f := New(s, c)
	t.Cleanup(f.Close)
	return f, s, c
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want game.Key
		ok   bool
	}{
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), game.KeyUp, true},
		{tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone), game.KeyF2, true},
		{tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), game.KeySpace, true},
		{tcell.NewEventKey(tcell.KeyRune, 'p', tcell.ModNone), game.KeyPause, true},
		{tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone), game.KeyLeft, true},
		{tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), game.KeyEscape, true},
		{tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), 0, false},
	}
	for _, tt := range tests {
		got, ok := keyFor(tt.ev)
		if got != tt.want || ok != tt.ok {
			t.Errorf("keyFor(%v) = %v, %v, want %v, %v", tt.ev.Name(), got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyHoldExpires(t *testing.T) {
	f, _, c := newFrontend(t)
	f.handle(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone))
	if !f.KeyDown(game.KeyLeft) {
		t.Fatal("pressed key reads up")
	}
	c.Advance(keyHold / 2)
	if !f.KeyDown(game.KeyLeft) {
		t.Error("key released before the hold window")
	}
	c.Advance(keyHold)
	if f.KeyDown(game.KeyLeft) {
		t.Error("key still held after the hold window")
	}

	f.handle(tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone))
	f.ReleaseKey(game.KeyF2)
	if f.KeyDown(game.KeyF2) {
		t.Error("ReleaseKey did not clear the press")
	}
}

func TestMouseAndEnter(t *testing.T) {
	f, _, _ := newFrontend(t)
	f.handle(tcell.NewEventMouse(10, 5, tcell.Button1, tcell.ModNone))
	if !f.ButtonDown(game.ButtonLeft) {
		t.Fatal("button 1 not down")
	}
	f.CenterCursor()
	f.handle(tcell.NewEventMouse(12, 4, tcell.Button1, tcell.ModNone))
	dx, dy := f.MouseDelta()
	if dx != -2*cellW || dy != cellH {
		t.Errorf("MouseDelta() = %v, %v, want %v, %v", dx, dy, -2*cellW, cellH)
	}
	if dx, dy := f.MouseDelta(); dx != 0 || dy != 0 {
		t.Errorf("second MouseDelta() = %v, %v", dx, dy)
	}
	f.handle(tcell.NewEventMouse(12, 4, tcell.ButtonNone, tcell.ModNone))
	if f.ButtonDown(game.ButtonLeft) {
		t.Error("button still down after release")
	}

	f.handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if !f.ButtonDown(game.ButtonLeft) {
		t.Error("Enter did not hold the button")
	}
	f.handle(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if f.ButtonDown(game.ButtonLeft) {
		t.Error("second Enter did not let go")
	}

	f.handle(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if !f.Quit() {
		t.Error("Ctrl-C did not quit")
	}
}

func TestViewCell(t *testing.T) {
	v := newView(80, 40, 20)
	tests := []struct {
		x, z     float64
		col, row int
	}{
		{0, 0, 40, 20},
		{2, -3, 44, 17},
		{-22, 0, 0, 20},
	}
	for _, tt := range tests {
		col, row := v.cell(tt.x, tt.z)
		if col != tt.col || row != tt.row {
			t.Errorf("cell(%v, %v) = %d, %d, want %d, %d", tt.x, tt.z, col, row, tt.col, tt.row)
		}
	}
}

func contentAt(s tcell.SimulationScreen, x, y int) rune {
	cells, w, _ := s.GetContents()
	c := cells[y*w+x]
	if len(c.Runes) == 0 {
		return ' '
	}
	return c.Runes[0]
}

func TestFlushDrawsFrame(t *testing.T) {
	f, s, _ := newFrontend(t)
	f.SetCamera(vmath.Zero, vmath.Zero, vmath.Up)
	f.DrawFloor(20)
	f.DrawSphere(vmath.Vec3{0, 0.75, 0}, mgl64.Ident3(), object.TolleyRadius, object.Color{R: 1, G: 1, B: 1, A: 1}, 0.4)
	f.DrawSphere(vmath.Vec3{2, 0.5, -3}, mgl64.Ident3(), object.MarbleRadius, object.Color{R: 0.8, G: 0.8, B: 0.8, A: 1}, 0.4)
	f.DrawAim(-11, 0, 0.2)
	f.DrawText(8, 16, "AimShot  score 0  shots 0")
	f.Flush()

	if r := contentAt(s, 40, 20); r != '@' {
		t.Errorf("tolley cell = %q, want '@'", r)
	}
	if r := contentAt(s, 44, 17); r != 'o' {
		t.Errorf("marble cell = %q, want 'o'", r)
	}
	if r := contentAt(s, 20, 20); r != '+' {
		t.Errorf("aim cell = %q, want '+'", r)
	}
	if r := contentAt(s, 1, 1); r != 'A' {
		t.Errorf("HUD starts with %q, want 'A'", r)
	}
}
