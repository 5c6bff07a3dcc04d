// Package tui is a terminal frontend: a top-down view of the ring drawn with tcell, and
// keyboard/mouse input read from the same screen.
package tui

import (
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/clock"
	"marbles/internal/game"
	"marbles/internal/object"
	"marbles/internal/vmath"
)

const (
	// terminals send no key-up events, so a key counts as held for this long after its
	// last press or repeat
	keyHold = 150 * time.Millisecond

	// HUD text is positioned in pixels by the game; one cell is 8x16 pixels
	cellW = 8
	cellH = 16

	// world units of margin around the ring
	viewMargin = 1.1
)

var (
	styleRing   = tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	styleAim    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

type mark struct {
	x, z   float64
	radius float64
	color  object.Color
}

type text struct {
	x, y int
	s    string
}

// Frontend implements both game.Presentation and game.Input on a tcell screen.
type Frontend struct {
	screen tcell.Screen
	clock  clock.Source
	events chan tcell.Event

	// frame
	marks      []mark
	texts      []text
	ring       float64
	aimX, aimZ float64
	throb      float64

	// input
	keys       map[game.Key]time.Time
	button     bool
	toggled    bool
	mx, my     int
	lastX      int
	lastY      int
	cursorShow bool
	quit       bool
}

// New takes over screen. It must already be initialized; Close finalizes it.
func New(screen tcell.Screen, src clock.Source) *Frontend {
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.HideCursor()
	f := &Frontend{
		screen:     screen,
		clock:      src,
		events:     make(chan tcell.Event, 100),
		keys:       make(map[game.Key]time.Time),
		cursorShow: true,
	}
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				close(f.events)
				return
			}
			f.events <- ev
		}
	}()
	return f
}

// Pump applies every pending terminal event to the input state.
func (f *Frontend) Pump() {
	for {
		select {
		case ev, ok := <-f.events:
			if !ok {
				f.quit = true
				return
			}
			f.handle(ev)
		default:
			return
		}
	}
}

func (f *Frontend) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'c' && ev.Modifiers()&tcell.ModCtrl != 0) {
			f.quit = true
			return
		}
		if ev.Key() == tcell.KeyEnter {
			// keyboard stand-in for holding the mouse button
			f.toggled = !f.toggled
			return
		}
		if k, ok := keyFor(ev); ok {
			f.keys[k] = f.clock.Now()
		}
	case *tcell.EventMouse:
		f.mx, f.my = ev.Position()
		f.button = ev.Buttons()&tcell.Button1 != 0
	case *tcell.EventResize:
		f.screen.Sync()
	}
}

func keyFor(ev *tcell.EventKey) (game.Key, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return game.KeyUp, true
	case tcell.KeyDown:
		return game.KeyDown, true
	case tcell.KeyLeft:
		return game.KeyLeft, true
	case tcell.KeyRight:
		return game.KeyRight, true
	case tcell.KeyF1:
		return game.KeyF1, true
	case tcell.KeyF2:
		return game.KeyF2, true
	case tcell.KeyF3:
		return game.KeyF3, true
	case tcell.KeyEscape:
		return game.KeyEscape, true
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return game.KeySpace, true
		case 'p', 'P':
			return game.KeyPause, true
		case 'w':
			return game.KeyUp, true
		case 's':
			return game.KeyDown, true
		case 'a':
			return game.KeyLeft, true
		case 'd':
			return game.KeyRight, true
		case 'q':
			return game.KeyEscape, true
		}
	}
	return 0, false
}

// Quit reports that the terminal was interrupted or closed.
func (f *Frontend) Quit() bool { return f.quit }

func (f *Frontend) Close() { f.screen.Fini() }

func (f *Frontend) KeyDown(k game.Key) bool {
	t, ok := f.keys[k]
	if !ok {
		return false
	}
	if f.clock.Now().Sub(t) > keyHold {
		delete(f.keys, k)
		return false
	}
	return true
}

func (f *Frontend) ReleaseKey(k game.Key) { delete(f.keys, k) }

func (f *Frontend) ButtonDown(b game.Button) bool {
	return b == game.ButtonLeft && (f.button || f.toggled)
}

// MouseDelta is the cursor movement since the last call, in pixels, with the same sign as
// a cursor pulled away from the window center.
func (f *Frontend) MouseDelta() (float64, float64) {
	dx := float64((f.lastX - f.mx) * cellW)
	dy := float64((f.lastY - f.my) * cellH)
	f.CenterCursor()
	return dx, dy
}

// CenterCursor cannot move a terminal cursor; it rebases deltas on the current position.
func (f *Frontend) CenterCursor() { f.lastX, f.lastY = f.mx, f.my }

func (f *Frontend) ShowCursor(visible bool) { f.cursorShow = visible }

// SetCamera starts a new frame. The view is always top down.
func (f *Frontend) SetCamera(_, _, _ vmath.Vec3) {
	f.marks = f.marks[:0]
	f.texts = f.texts[:0]
}

func (f *Frontend) DrawSphere(pos vmath.Vec3, _ mgl64.Mat3, radius float64, c object.Color, _ float64) {
	f.marks = append(f.marks, mark{pos[0], pos[2], radius, c})
}

func (f *Frontend) DrawFloor(ringRadius float64) { f.ring = ringRadius }

func (f *Frontend) DrawAim(x, z, throb float64) { f.aimX, f.aimZ, f.throb = x, z, throb }

func (f *Frontend) DrawText(x, y int, s string) { f.texts = append(f.texts, text{x, y, s}) }

// ToggleFullscreen does nothing; the terminal is the screen.
func (f *Frontend) ToggleFullscreen() {}

// view maps table coordinates to cells so the ring fits the screen. Cells are twice as
// tall as they are wide.
type view struct {
	cx, cy int
	scale  float64 // rows per world unit
}

func newView(w, h int, ring float64) view {
	if ring <= 0 {
		ring = object.RingRadius
	}
	rows := float64(h) / (2 * ring * viewMargin)
	cols := float64(w) / (4 * ring * viewMargin)
	return view{cx: w / 2, cy: h / 2, scale: min(rows, cols)}
}

func (v view) cell(x, z float64) (int, int) {
	col := v.cx + int(x*v.scale*2+0.5*sign(x))
	row := v.cy + int(z*v.scale+0.5*sign(z))
	return col, row
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Flush draws the collected frame and shows it.
func (f *Frontend) Flush() {
	s := f.screen
	s.Clear()
	w, h := s.Size()
	v := newView(w, h, f.ring)

	for _, p := range ringPoints(f.ring, 2*int(f.ring*v.scale*4)+16) {
		col, row := v.cell(p[0], p[1])
		s.SetContent(col, row, '·', nil, styleRing)
	}

	ax, ay := v.cell(f.aimX, f.aimZ)
	aim := styleAim
	if f.throb > 0.5 {
		aim = aim.Bold(true)
	}
	s.SetContent(ax, ay, '+', nil, aim)

	for _, m := range f.marks {
		col, row := v.cell(m.x, m.z)
		s.SetContent(col, row, glyph(m.radius), nil, tcell.StyleDefault.Foreground(colorOf(m.color)))
	}

	for i, t := range f.texts {
		style := styleText
		if i == 0 {
			style = styleStatus
		}
		drawString(s, t.x/cellW, t.y/cellH, t.s, style)
	}
	s.Show()
}

func glyph(radius float64) rune {
	if radius > object.MarbleRadius {
		return '@'
	}
	return 'o'
}

func colorOf(c object.Color) tcell.Color {
	ch := func(v float64) int32 { return int32(vmath.Clamp(v, 0, 1)*255 + 0.5) }
	return tcell.NewRGBColor(ch(c.R), ch(c.G), ch(c.B))
}

func ringPoints(r float64, n int) [][2]float64 {
	pts := make([][2]float64, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = [2]float64{r * math.Cos(a), r * math.Sin(a)}
	}
	return pts
}

func drawString(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// Run drives frame at fps until it reports done, fails, or the terminal quits. Each tick
// pumps input first and flushes the drawn frame after.
func Run(f *Frontend, fps int, frame func() (done bool, err error)) error {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for range ticker.C {
		f.Pump()
		if f.Quit() {
			return nil
		}
		done, err := frame()
		if err != nil {
			return err
		}
		f.Flush()
		if done {
			return nil
		}
	}
	return nil
}
