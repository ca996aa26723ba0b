// Package control arbitrates the particle scale between gesture tracking and
// manual input, and forwards template, color and count changes to the engine.
package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/ayusman/gesturefield/internal/gesture"
	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/particles"
)

// Particle count bounds accepted from manual input.
const (
	MinParticleCount = 1
	MaxParticleCount = 20000
)

// ErrInvalidCount is returned for particle counts outside the accepted range.
var ErrInvalidCount = fmt.Errorf("particle count must be in [%d, %d]", MinParticleCount, MaxParticleCount)

// Source names the writer of the current scale.
type Source string

const (
	SourceManual  Source = "manual"
	SourceGesture Source = "gesture"
)

// Tracker is the gesture session the bridge reads scale from.
type Tracker interface {
	Start(ctx context.Context) error
	Stop()
	// Sample returns the latest sample and true while the session is tracking.
	Sample() (gesture.Sample, bool)
}

// Sink receives field settings changes.
type Sink interface {
	Apply(particles.Settings)
}

// Preferences are the persisted manual control values.
type Preferences struct {
	Template          particles.TemplateID `json:"template"`
	Color             string               `json:"color"`
	ManualScale       float64              `json:"manual_scale"`
	ParticleCountBase int                  `json:"particle_count"`
}

// DefaultPreferences returns stars in the stars color at neutral scale.
func DefaultPreferences() Preferences {
	return Preferences{
		Template:          particles.Stars,
		Color:             particles.DefaultColor(particles.Stars).Hex(),
		ManualScale:       gesture.NeutralScale,
		ParticleCountBase: particles.DefaultCount,
	}
}

// Parameters is the current control state.
type Parameters struct {
	Template          particles.TemplateID `json:"template"`
	Color             string               `json:"color"`
	Scale             float64              `json:"scale"`
	ParticleCountBase int                  `json:"particle_count"`
	ParticleCount     int                  `json:"resolved_count"`
	ManualScale       float64              `json:"manual_scale"`
	GestureEnabled    bool                 `json:"gesture_enabled"`
	Source            Source               `json:"source"`
	LastError         string               `json:"last_error,omitempty"`
}

// Update is a partial change to the manual parameters. Nil fields are kept.
type Update struct {
	Template      *string  `json:"template,omitempty"`
	Color         *string  `json:"color,omitempty"`
	Scale         *float64 `json:"scale,omitempty"`
	ParticleCount *int     `json:"particle_count,omitempty"`
}

// Bridge owns the control parameters. It is safe for concurrent use.
type Bridge struct {
	tracker Tracker
	sink    Sink

	mu       sync.Mutex
	template particles.TemplateID
	color    particles.RGB
	count    int
	manual   float64
	scale    float64
	source   Source
	enabled  bool
	lastErr  error
	onChange []func(Preferences)
}

// NewBridge creates a Bridge in manual mode. Invalid initial values fall back
// to DefaultPreferences. The sink receives the initial settings.
func NewBridge(tracker Tracker, sink Sink, initial Preferences) *Bridge {
	def := DefaultPreferences()

	b := &Bridge{
		tracker:  tracker,
		sink:     sink,
		template: particles.Stars,
		color:    particles.MustParseHex(def.Color),
		count:    def.ParticleCountBase,
		manual:   def.ManualScale,
		source:   SourceManual,
	}

	if particles.Known(initial.Template) {
		b.template = initial.Template
	}
	if c, err := particles.ParseHex(initial.Color); err == nil {
		b.color = c
	}
	if validCount(initial.ParticleCountBase) {
		b.count = initial.ParticleCountBase
	}
	if initial.ManualScale > 0 {
		b.manual = gesture.Clamp(initial.ManualScale)
	}
	b.scale = b.manual

	b.sink.Apply(b.settingsLocked())
	return b
}

func validCount(n int) bool {
	return n >= MinParticleCount && n <= MaxParticleCount
}

// OnChange registers fn to receive preferences after every manual change.
func (b *Bridge) OnChange(fn func(Preferences)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

func (b *Bridge) settingsLocked() particles.Settings {
	return particles.Settings{
		Template:          b.template,
		Color:             b.color,
		ParticleCountBase: b.count,
	}
}

func (b *Bridge) preferencesLocked() Preferences {
	return Preferences{
		Template:          b.template,
		Color:             b.color.Hex(),
		ManualScale:       b.manual,
		ParticleCountBase: b.count,
	}
}

// Tick selects the scale for this frame and returns it. While gesture mode is
// enabled and the session is tracking, the gesture sample is the only writer;
// otherwise the manual value is.
func (b *Bridge) Tick() float64 {
	sample, tracking := b.tracker.Sample()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enabled && tracking {
		b.scale = gesture.Clamp(sample.Scale)
		b.source = SourceGesture
	} else {
		b.scale = b.manual
		b.source = SourceManual
	}
	return b.scale
}

// Scale returns the scale chosen by the last Tick.
func (b *Bridge) Scale() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scale
}

// EnableGesture starts tracking and hands the scale to the gesture sample.
// On failure the bridge stays in manual mode and the error is returned.
func (b *Bridge) EnableGesture(ctx context.Context) error {
	b.mu.Lock()
	if b.enabled {
		b.mu.Unlock()
		return nil
	}
	b.lastErr = nil
	b.mu.Unlock()

	err := b.tracker.Start(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.enabled = false
		b.lastErr = err
		log.Warn("gesture control unavailable, using manual scale", "error", err)
		return err
	}
	b.enabled = true
	log.Info("gesture control enabled")
	return nil
}

// DisableGesture stops tracking and returns the scale to the manual value.
func (b *Bridge) DisableGesture() {
	b.mu.Lock()
	wasEnabled := b.enabled
	b.enabled = false
	b.mu.Unlock()

	b.tracker.Stop()

	if wasEnabled {
		log.Info("gesture control disabled")
	}
}

// ToggleGesture flips gesture mode and reports whether it is now enabled.
func (b *Bridge) ToggleGesture(ctx context.Context) (bool, error) {
	if b.GestureEnabled() {
		b.DisableGesture()
		return false, nil
	}
	if err := b.EnableGesture(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GestureEnabled reports whether gesture mode is on.
func (b *Bridge) GestureEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// LastError returns the error from the last failed EnableGesture.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// SetTemplate selects a template by name.
func (b *Bridge) SetTemplate(name string) error {
	return b.Apply(Update{Template: &name})
}

// SetColor sets the particle color from "#rrggbb".
func (b *Bridge) SetColor(hex string) error {
	return b.Apply(Update{Color: &hex})
}

// SetManualScale sets the manual scale, clamped to the valid range.
func (b *Bridge) SetManualScale(v float64) error {
	return b.Apply(Update{Scale: &v})
}

// NudgeManualScale adds delta to the manual scale.
func (b *Bridge) NudgeManualScale(delta float64) error {
	b.mu.Lock()
	v := b.manual + delta
	b.mu.Unlock()
	return b.SetManualScale(v)
}

// SetParticleCount sets the base particle count.
func (b *Bridge) SetParticleCount(n int) error {
	return b.Apply(Update{ParticleCount: &n})
}

// Apply validates u and applies it as one change. Nothing is applied if any
// field is invalid.
func (b *Bridge) Apply(u Update) error {
	var (
		template particles.TemplateID
		color    particles.RGB
		err      error
	)

	if u.Template != nil {
		if template, err = particles.ParseTemplate(*u.Template); err != nil {
			return err
		}
	}
	if u.Color != nil {
		if color, err = particles.ParseHex(*u.Color); err != nil {
			return err
		}
	}
	if u.ParticleCount != nil && !validCount(*u.ParticleCount) {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, *u.ParticleCount)
	}
	if u.Scale != nil && math.IsNaN(*u.Scale) {
		return errors.New("scale is not a number")
	}

	b.mu.Lock()
	if u.Template != nil {
		b.template = template
	}
	if u.Color != nil {
		b.color = color
	}
	if u.ParticleCount != nil {
		b.count = *u.ParticleCount
	}
	if u.Scale != nil {
		b.manual = gesture.Clamp(*u.Scale)
	}
	if u.Template != nil || u.Color != nil || u.ParticleCount != nil {
		b.sink.Apply(b.settingsLocked())
	}
	prefs := b.preferencesLocked()
	hooks := slices.Clone(b.onChange)
	b.mu.Unlock()

	for _, fn := range hooks {
		fn(prefs)
	}
	return nil
}

// Preferences returns the current persisted values.
func (b *Bridge) Preferences() Preferences {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preferencesLocked()
}

// Parameters returns the current control state.
func (b *Bridge) Parameters() Parameters {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := Parameters{
		Template:          b.template,
		Color:             b.color.Hex(),
		Scale:             b.scale,
		ParticleCountBase: b.count,
		ParticleCount:     particles.ResolveCount(b.template, b.count),
		ManualScale:       b.manual,
		GestureEnabled:    b.enabled,
		Source:            b.source,
	}
	if b.lastErr != nil {
		p.LastError = b.lastErr.Error()
	}
	return p
}
