package render

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/particles"
)

type fakeControls struct {
	mu        sync.Mutex
	templates []string
	nudges    []float64
	toggles   int
	hold      chan struct{} // when set, ToggleGesture waits for it to close
}

func (f *fakeControls) SetTemplate(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates = append(f.templates, name)
	return nil
}

func (f *fakeControls) NudgeManualScale(delta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nudges = append(f.nudges, delta)
	return nil
}

func (f *fakeControls) ToggleGesture(context.Context) (bool, error) {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggles%2 == 1, nil
}

func (f *fakeControls) Parameters() control.Parameters {
	return control.Parameters{}
}

func newTestTerminal(t *testing.T) (*Terminal, tcell.SimulationScreen, *fakeControls) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	controls := &fakeControls{}

	term, err := NewTerminalWithScreen(context.Background(), screen, controls)
	if err != nil {
		t.Fatalf("NewTerminalWithScreen() error = %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(term.Close)
	return term, screen, controls
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestTerminal_HandleKey(t *testing.T) {
	term, _, controls := newTestTerminal(t)

	keys := []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, '3', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, '5', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, '9', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, 'g', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone),
	}
	for _, ev := range keys {
		term.HandleKey(ev)
	}

	waitFor(t, time.Second, func() bool {
		controls.mu.Lock()
		defer controls.mu.Unlock()
		return controls.toggles == 1
	})

	controls.mu.Lock()
	defer controls.mu.Unlock()

	if got := strings.Join(controls.templates, ","); got != "galaxy,constellation" {
		t.Errorf("templates = %s, want galaxy,constellation", got)
	}
	if len(controls.nudges) != 2 || controls.nudges[0] != ScaleStep || controls.nudges[1] != -ScaleStep {
		t.Errorf("nudges = %v", controls.nudges)
	}
	select {
	case <-term.Done():
		t.Error("Done closed without a quit key")
	default:
	}
}

func TestTerminal_Quit(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
	}{
		{"q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, _, _ := newTestTerminal(t)
			term.HandleKey(tt.ev)

			select {
			case <-term.Done():
			case <-time.After(time.Second):
				t.Fatal("Done not closed")
			}
		})
	}
}

func TestTerminal_InjectedKey(t *testing.T) {
	_, screen, controls := newTestTerminal(t)

	screen.InjectKey(tcell.KeyRune, '2', tcell.ModNone)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		controls.mu.Lock()
		n := len(controls.templates)
		controls.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	controls.mu.Lock()
	defer controls.mu.Unlock()
	if len(controls.templates) != 1 || controls.templates[0] != "meteors" {
		t.Errorf("templates = %v, want [meteors]", controls.templates)
	}
}

func TestTerminal_QuitWhileToggling(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	controls := &fakeControls{hold: make(chan struct{})}
	defer close(controls.hold)

	term, err := NewTerminalWithScreen(context.Background(), screen, controls)
	if err != nil {
		t.Fatalf("NewTerminalWithScreen() error = %v", err)
	}
	defer term.Close()

	screen.InjectKey(tcell.KeyRune, 'g', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case <-term.Done():
	case <-time.After(time.Second):
		t.Fatal("q ignored while gesture toggle was pending")
	}
}

func TestTerminal_DrawSizeWeight(t *testing.T) {
	tests := []struct {
		name  string
		sizes []float32
		want  rune
	}{
		{"point size", nil, '·'},
		{"shrunk", []float32{0.8}, '·'},
		{"swollen", []float32{1.2}, '•'},
		{"large", []float32{2}, '●'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, screen, _ := newTestTerminal(t)

			f := &particles.Field{
				Template:  particles.Stars,
				Positions: []float32{0, 0, 0},
				Sizes:     tt.sizes,
				PointSize: 1,
				Color:     particles.MustParseHex("#ffffff"),
				Transform: particles.Transform{Scale: 1},
			}
			term.Draw(f, control.Parameters{Template: particles.Stars})

			if r, _, _, _ := screen.GetContent(40, 12); r != tt.want {
				t.Errorf("center rune = %q, want %q", r, tt.want)
			}
		})
	}
}

func TestTerminal_Draw(t *testing.T) {
	term, screen, _ := newTestTerminal(t)

	f := &particles.Field{
		Template:  particles.Stars,
		Positions: []float32{0, 0, 0},
		Color:     particles.MustParseHex("#ff0000"),
		Transform: particles.Transform{Scale: 1},
	}
	p := control.Parameters{Template: particles.Stars, Color: "#ff0000", Scale: 1, ParticleCount: 1}

	term.Draw(f, p)

	// 23 field rows: origin lands on the middle cell.
	r, _, style, _ := screen.GetContent(40, 12)
	if r != '·' {
		t.Errorf("center rune = %q, want '·'", r)
	}
	if fg, _, _ := style.Decompose(); fg != tcell.NewRGBColor(255, 0, 0) {
		t.Errorf("center color = %v, want red", fg)
	}

	var status strings.Builder
	for x := 0; x < 20; x++ {
		r, _, _, _ := screen.GetContent(x, 23)
		status.WriteRune(r)
	}
	if !strings.Contains(status.String(), "stars") {
		t.Errorf("status row = %q, want template name", status.String())
	}
}

func TestProjector(t *testing.T) {
	proj := NewProjector(80, 24)

	tests := []struct {
		name   string
		v      r3.Vec
		wantOK bool
		wantX  int
		wantY  int
	}{
		{"origin", r3.Vec{}, true, 40, 12},
		{"behind near plane", r3.Vec{Z: 0.95}, false, 0, 0},
		{"behind camera", r3.Vec{Z: 2}, false, 0, 0},
		{"off screen", r3.Vec{X: 50}, false, 0, 0},
		{"above center", r3.Vec{Y: 0.2}, true, 40, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, _, ok := proj.Project(tt.v)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (x != tt.wantX || y != tt.wantY) {
				t.Errorf("cell = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name string
		p    control.Parameters
		want string
	}{
		{"manual", control.Parameters{Template: particles.Galaxy, Source: control.SourceManual}, "manual"},
		{"waiting", control.Parameters{GestureEnabled: true, Source: control.SourceManual}, "gesture (waiting)"},
		{"tracking", control.Parameters{GestureEnabled: true, Source: control.SourceGesture}, "gesture"},
		{"error", control.Parameters{LastError: "camera busy"}, "error: camera busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLine(tt.p); !strings.Contains(got, tt.want) {
				t.Errorf("StatusLine() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
