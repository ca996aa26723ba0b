package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "gesturefield.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"settings",
	).Scan(&name)
	if err != nil {
		t.Fatalf("settings table missing: %v", err)
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != len(migrations) {
		t.Errorf("SchemaVersion() = %d, want %d", version, len(migrations))
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().Set(KeyTemplate, "galaxy"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Settings().Get(KeyTemplate)
	if err != nil || got != "galaxy" {
		t.Errorf("Get() after reopen = %q, %v", got, err)
	}
}

func TestNewStore_Memory(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create in-memory store: %v", err)
	}
	defer s.Close()

	if err := s.Settings().Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}

func TestSettingsRepository_GetSet(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get(KeyColor); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing key error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(KeyColor, "#915eff"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(KeyColor, "#ffffff"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := repo.Get(KeyColor)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "#ffffff" {
		t.Errorf("Get() = %q, want #ffffff", got)
	}
}

func TestSettingsRepository_Typed(t *testing.T) {
	repo := newTestStore(t).Settings()

	if err := repo.SetMany(map[string]string{
		KeyManualScale:   "1.25",
		KeyParticleCount: "4000",
		"broken":         "abc",
	}); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	if f, err := repo.GetFloat(KeyManualScale); err != nil || f != 1.25 {
		t.Errorf("GetFloat() = %v, %v", f, err)
	}
	if n, err := repo.GetInt(KeyParticleCount); err != nil || n != 4000 {
		t.Errorf("GetInt() = %v, %v", n, err)
	}
	if _, err := repo.GetInt("broken"); err == nil {
		t.Error("GetInt() on non-numeric value should fail")
	}
	if _, err := repo.GetFloat("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFloat() missing error = %v", err)
	}
}

func TestSettingsRepository_AllAndDelete(t *testing.T) {
	repo := newTestStore(t).Settings()

	want := map[string]string{
		KeyTemplate:      "nebula",
		KeyColor:         "#bf61ff",
		KeyManualScale:   "1",
		KeyParticleCount: "5000",
	}
	if err := repo.SetMany(want); err != nil {
		t.Fatalf("SetMany() error = %v", err)
	}

	got, err := repo.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	if err := repo.Delete(KeyTemplate); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(KeyTemplate); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(KeyTemplate); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}
