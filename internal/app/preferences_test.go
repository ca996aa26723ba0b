package app

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/particles"
	"github.com/ayusman/gesturefield/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferences_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := control.Preferences{
		Template:          particles.Nebula,
		Color:             "#bf61ff",
		ManualScale:       1.35,
		ParticleCountBase: 7500,
	}
	if err := SavePreferences(s.Settings(), want); err != nil {
		t.Fatalf("SavePreferences() error = %v", err)
	}

	got := LoadPreferences(s.Settings(), control.DefaultPreferences())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadPreferences() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPreferences_Empty(t *testing.T) {
	s := newTestStore(t)
	def := control.DefaultPreferences()

	if diff := cmp.Diff(def, LoadPreferences(s.Settings(), def)); diff != "" {
		t.Errorf("LoadPreferences() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPreferences_SkipsBadValues(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	err := repo.SetMany(map[string]string{
		store.KeyTemplate:      "fireworks",
		store.KeyColor:         "pink",
		store.KeyManualScale:   "big",
		store.KeyParticleCount: "1200",
	})
	if err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	def := control.DefaultPreferences()
	got := LoadPreferences(repo, def)

	want := def
	want.ParticleCountBase = 1200
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadPreferences() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineSettings(t *testing.T) {
	tests := []struct {
		name  string
		prefs control.Preferences
		want  particles.Settings
	}{
		{
			name:  "valid",
			prefs: control.Preferences{Template: particles.Galaxy, Color: "#00ff00", ParticleCountBase: 800},
			want:  particles.Settings{Template: particles.Galaxy, Color: particles.RGB{G: 1}, ParticleCountBase: 800},
		},
		{
			name:  "fallbacks",
			prefs: control.Preferences{Template: "unknown", Color: "green", ParticleCountBase: 0},
			want:  particles.DefaultSettings(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, engineSettings(tt.prefs)); diff != "" {
				t.Errorf("engineSettings() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
