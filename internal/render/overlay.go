package render

import (
	"fmt"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	fpsFontSize   = 20
	fpsPadding    = 12
	fpsLineHeight = fpsFontSize + 4
	// text is rebuilt every this many frames
	overlayInterval = 30
)

// Overlay draws the FPS and heap counters in the top right corner. Both are off by default.
type Overlay struct {
	ShowFPS bool
	ShowMem bool

	frames  uint32
	fpsText string
	memText string
	mem     runtime.MemStats
}

func (o *Overlay) Toggle() {
	on := !o.ShowFPS
	o.ShowFPS, o.ShowMem = on, on
}

func (o *Overlay) refresh() bool {
	o.frames++
	return o.frames%overlayInterval == 0 ||
		(o.ShowFPS && o.fpsText == "") ||
		(o.ShowMem && o.memText == "")
}

func (o *Overlay) draw() {
	if !o.ShowFPS && !o.ShowMem {
		return
	}
	update := o.refresh()
	screenW := int32(rl.GetScreenWidth())
	y := int32(fpsPadding)
	if o.ShowFPS {
		if update {
			o.fpsText = fmt.Sprintf("FPS: %d", rl.GetFPS())
		}
		rightText(o.fpsText, screenW, y)
		y += fpsLineHeight
	}
	if o.ShowMem {
		if update {
			runtime.ReadMemStats(&o.mem)
			o.memText = fmt.Sprintf("Mem: %.2f MiB", float64(o.mem.Alloc)/(1024*1024))
		}
		rightText(o.memText, screenW, y)
	}
}

func rightText(text string, screenW, y int32) {
	w := rl.MeasureText(text, fpsFontSize)
	rl.DrawText(text, screenW-w-fpsPadding, y, fpsFontSize, rl.Green)
}
