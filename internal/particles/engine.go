package particles

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Settings are the engine inputs that require regeneration or recoloring.
type Settings struct {
	Template          TemplateID
	Color             RGB
	ParticleCountBase int
}

// DefaultSettings returns the stars template at the default count and color.
func DefaultSettings() Settings {
	return Settings{
		Template:          Stars,
		Color:             DefaultColor(Stars),
		ParticleCountBase: DefaultCount,
	}
}

// Engine owns the active field. Apply may be called from any goroutine;
// the new settings take effect at the next Step or Snapshot.
type Engine struct {
	mu       sync.Mutex
	rng      *rand.Rand
	gens     map[TemplateID]Generator
	current  Settings
	pending  *Settings
	field    *Field
	frames   uint64
	onChange func(Settings)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithGenerator overrides the generator for one template.
func WithGenerator(id TemplateID, g Generator) EngineOption {
	return func(e *Engine) {
		e.gens[id] = g
	}
}

// WithChangeHook registers fn to run after a regeneration or recolor.
// It is called with the engine lock held and must not call back into the engine.
func WithChangeHook(fn func(Settings)) EngineOption {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// NewEngine creates an engine and generates the initial field.
// A zero seed picks one from the clock.
func NewEngine(initial Settings, seed uint64, opts ...EngineOption) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	e := &Engine{
		rng:  rand.New(rand.NewPCG(seed, seed>>1|1)),
		gens: make(map[TemplateID]Generator, len(registry)),
	}
	for id, g := range registry {
		e.gens[id] = g
	}
	for _, opt := range opts {
		opt(e)
	}

	e.current = normalize(initial)
	e.field = e.generate(e.current)
	return e
}

func normalize(s Settings) Settings {
	if !Known(s.Template) {
		s.Template = Stars
	}
	if s.ParticleCountBase < 0 {
		s.ParticleCountBase = 0
	}
	return s
}

func (e *Engine) generate(s Settings) *Field {
	g := e.gens[s.Template]
	return g.Generate(ResolveCount(s.Template, s.ParticleCountBase), s.Color, e.rng)
}

// Apply schedules new settings.
func (e *Engine) Apply(s Settings) {
	s = normalize(s)
	e.mu.Lock()
	e.pending = &s
	e.mu.Unlock()
}

// reconcile applies pending settings. Callers hold e.mu.
func (e *Engine) reconcile() {
	if e.pending == nil {
		return
	}
	next := *e.pending
	e.pending = nil

	switch {
	case next.Template != e.current.Template || next.ParticleCountBase != e.current.ParticleCountBase:
		scale := e.field.Transform.Scale
		e.field = e.generate(next)
		e.field.Transform.Scale = scale
	case next.Color != e.current.Color:
		if g := e.gens[next.Template]; g.Recolor != nil {
			g.Recolor(e.field, next.Color)
		} else {
			e.field.Color = next.Color
		}
	default:
		return
	}

	e.current = next
	if e.onChange != nil {
		e.onChange(next)
	}
}

// Step advances the active field by dt seconds at the given scale and returns
// it. The returned field is owned by the engine and valid until the next Step.
func (e *Engine) Step(dt, scale float64) *Field {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reconcile()
	e.gens[e.current.Template].Update(e.field, dt, scale)
	e.frames++
	return e.field
}

// Snapshot returns a copy of the active field safe to read concurrently.
func (e *Engine) Snapshot() *Field {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reconcile()
	return e.field.Clone()
}

// Settings returns the settings of the active field, including pending ones.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending != nil {
		return *e.pending
	}
	return e.current
}

// Frames returns the number of Step calls so far.
func (e *Engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}
