package tray

import (
	"testing"

	"github.com/ayusman/gesturefield/internal/particles"
)

func TestLabels(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"gesture on", gestureLabel(true), "● Gesture control"},
		{"gesture off", gestureLabel(false), "○ Gesture control"},
		{"neutral scale", scaleLabel(1), "Scale: 1.00"},
		{"rounded scale", scaleLabel(1.456), "Scale: 1.46"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

// Before Run the menu items do not exist; setters only update state.
func TestTray_StateBeforeRun(t *testing.T) {
	tr := New(particles.Stars)

	tr.SetGesture(true)
	tr.SetScale(1.7)
	tr.SetTemplate(particles.Nebula)

	gesture, scale, template := tr.State()
	if !gesture || scale != 1.7 || template != particles.Nebula {
		t.Errorf("State() = %v, %v, %v", gesture, scale, template)
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New(particles.Stars)

	var toggled, opened int
	var picked particles.TemplateID
	tr.OnToggle(func() { toggled++ })
	tr.OnOpen(func() { opened++ })
	tr.OnTemplate(func(id particles.TemplateID) { picked = id })

	tr.handleToggle()
	tr.handleToggle()
	tr.handleOpen()
	tr.handleTemplate(particles.Galaxy)

	if toggled != 2 {
		t.Errorf("toggled = %d, want 2", toggled)
	}
	if opened != 1 {
		t.Errorf("opened = %d, want 1", opened)
	}
	if picked != particles.Galaxy {
		t.Errorf("picked = %s, want galaxy", picked)
	}
}

func TestTray_NilCallbacks(t *testing.T) {
	tr := New(particles.Stars)
	tr.handleToggle()
	tr.handleOpen()
	tr.handleTemplate(particles.Meteors)
}
