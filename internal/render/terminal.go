// Package render draws particle fields to a terminal with tcell.
package render

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/particles"
)

// Viewing frustum: camera on +Z looking at the origin.
const (
	CameraZ = 1.0
	FOV     = 75 * math.Pi / 180
	Near    = 0.1
	// CellAspect is the height-to-width ratio of a terminal cell.
	CellAspect = 2.0
	// ScaleStep is the manual scale change per +/- key press.
	ScaleStep = 0.1
)

// Controls is the parameter surface driven by key presses.
type Controls interface {
	SetTemplate(name string) error
	NudgeManualScale(delta float64) error
	ToggleGesture(ctx context.Context) (bool, error)
	Parameters() control.Parameters
}

// Terminal renders fields to a tcell screen and maps keys to controls.
type Terminal struct {
	screen   tcell.Screen
	controls Controls
	ctx      context.Context

	done chan struct{}
	once sync.Once
}

// NewTerminal creates a renderer on the default terminal.
func NewTerminal(ctx context.Context, controls Controls) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	return NewTerminalWithScreen(ctx, screen, controls)
}

// NewTerminalWithScreen initializes screen and starts reading key events.
func NewTerminalWithScreen(ctx context.Context, screen tcell.Screen, controls Controls) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	screen.HideCursor()
	screen.Clear()

	t := &Terminal{
		screen:   screen,
		controls: controls,
		ctx:      ctx,
		done:     make(chan struct{}),
	}
	go t.pollEvents()
	return t, nil
}

// Done is closed when the user asks to quit.
func (t *Terminal) Done() <-chan struct{} {
	return t.done
}

// Close restores the terminal.
func (t *Terminal) Close() {
	t.quit()
	t.screen.Fini()
}

func (t *Terminal) quit() {
	t.once.Do(func() { close(t.done) })
}

func (t *Terminal) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.HandleKey(ev)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// HandleKey applies a key press: 1-5 pick a template, +/- nudge the manual
// scale, g toggles gesture control, q or Esc quits.
func (t *Terminal) HandleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.quit()
		return
	case tcell.KeyRune:
	default:
		return
	}

	var err error
	switch r := ev.Rune(); {
	case r == 'q' || r == 'Q':
		t.quit()
	case r >= '1' && r <= '9':
		infos := particles.Templates()
		if i := int(r - '1'); i < len(infos) {
			err = t.controls.SetTemplate(string(infos[i].ID))
		}
	case r == '+' || r == '=':
		err = t.controls.NudgeManualScale(ScaleStep)
	case r == '-' || r == '_':
		err = t.controls.NudgeManualScale(-ScaleStep)
	case r == 'g' || r == 'G':
		// Enabling waits on the camera; keep reading keys meanwhile.
		go t.toggleGesture()
	}
	if err != nil {
		log.Warn("key action failed", "key", string(ev.Rune()), "error", err)
	}
}

func (t *Terminal) toggleGesture() {
	if _, err := t.controls.ToggleGesture(t.ctx); err != nil {
		log.Warn("gesture toggle failed", "error", err)
	}
}

// Projector maps world positions to terminal cells.
type Projector struct {
	width, height int
	focal         float64
}

// NewProjector returns a projector for a width x height cell grid.
func NewProjector(width, height int) Projector {
	return Projector{
		width:  width,
		height: height,
		focal:  1 / math.Tan(FOV/2),
	}
}

// Project returns the cell for p and its distance from the camera.
// ok is false when p is behind the near plane or off screen.
func (p Projector) Project(v r3.Vec) (x, y int, depth float64, ok bool) {
	depth = CameraZ - v.Z
	if depth < Near {
		return 0, 0, 0, false
	}

	half := float64(p.height) / 2
	ndcX := v.X * p.focal / depth
	ndcY := v.Y * p.focal / depth

	x = int(math.Round(float64(p.width)/2 + ndcX*half*CellAspect))
	y = int(math.Round(half - ndcY*half))
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0, 0, 0, false
	}
	return x, y, depth, true
}

// glyph picks a character by distance; nearer particles look heavier.
func glyph(depth float64) rune {
	switch {
	case depth < 0.6:
		return '●'
	case depth < 1.0:
		return '•'
	case depth < 1.8:
		return '·'
	default:
		return '.'
	}
}

// sizeWeight is particle i's size relative to the field's point size, so
// twinkling points read as nearer or farther.
func sizeWeight(f *particles.Field, i int) float64 {
	size := f.ParticleSize(i)
	if f.PointSize <= 0 || size <= 0 {
		return 1
	}
	return float64(size / f.PointSize)
}

func rgb(c particles.RGB) tcell.Color {
	to := func(v float64) int32 {
		return int32(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return tcell.NewRGBColor(to(c.R), to(c.G), to(c.B))
}

// Draw renders f with a status line built from p.
func (t *Terminal) Draw(f *particles.Field, p control.Parameters) {
	t.screen.Clear()
	w, h := t.screen.Size()
	if h < 2 {
		t.screen.Show()
		return
	}

	// Last row is the status line.
	proj := NewProjector(w, h-1)
	depth := make([]float64, w*(h-1))
	for i := range depth {
		depth[i] = math.Inf(1)
	}

	world := f.Transform.Func()
	base := tcell.StyleDefault.Background(tcell.ColorBlack)
	for i := range f.Count() {
		x, y, d, ok := proj.Project(world(f.Position(i)))
		if !ok || d >= depth[y*w+x] {
			continue
		}
		depth[y*w+x] = d
		t.screen.SetContent(x, y, glyph(d/sizeWeight(f, i)), nil, base.Foreground(rgb(f.ParticleColor(i))))
	}

	drawText(t.screen, 0, h-1, base.Foreground(tcell.ColorSilver), StatusLine(p))
	t.screen.Show()
}

// StatusLine summarizes the parameters for the bottom row.
func StatusLine(p control.Parameters) string {
	mode := "manual"
	if p.Source == control.SourceGesture {
		mode = "gesture"
	} else if p.GestureEnabled {
		mode = "gesture (waiting)"
	}
	line := fmt.Sprintf(" %s  %s  n=%d  scale=%.2f  %s  [1-5] template [+/-] scale [g] gesture [q] quit",
		p.Template, p.Color, p.ParticleCount, p.Scale, mode)
	if p.LastError != "" {
		line += "  error: " + p.LastError
	}
	return line
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
