// Package particles implements the procedural particle templates and the engine
// that owns the active field.
package particles

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// TemplateID names one of the particle generators.
type TemplateID string

const (
	Stars         TemplateID = "stars"
	Meteors       TemplateID = "meteors"
	Galaxy        TemplateID = "galaxy"
	Nebula        TemplateID = "nebula"
	Constellation TemplateID = "constellation"
)

// DefaultCount is the default base particle count.
const DefaultCount = 5000

// GenerateFunc builds a fresh field of n particles.
type GenerateFunc func(n int, color RGB, rng *rand.Rand) *Field

// UpdateFunc advances a field by dt seconds and applies the current scale.
type UpdateFunc func(f *Field, dt, scale float64)

// RecolorFunc rewrites the field colors in place for a new base color.
type RecolorFunc func(f *Field, color RGB)

// Generator is the generate/update pair of one template.
type Generator struct {
	Generate GenerateFunc
	Update   UpdateFunc
	Recolor  RecolorFunc
}

// Info describes a template for listing surfaces.
type Info struct {
	ID           TemplateID `json:"id"`
	Name         string     `json:"name"`
	DefaultColor string     `json:"default_color"`
}

var catalog = []Info{
	{ID: Stars, Name: "Stars", DefaultColor: "#f272c8"},
	{ID: Meteors, Name: "Meteors", DefaultColor: "#ffffff"},
	{ID: Galaxy, Name: "Galaxy", DefaultColor: "#915eff"},
	{ID: Nebula, Name: "Nebula", DefaultColor: "#bf61ff"},
	{ID: Constellation, Name: "Constellation", DefaultColor: "#ffffff"},
}

var registry = map[TemplateID]Generator{
	Stars:         {Generate: generateStars, Update: updateStars},
	Meteors:       {Generate: generateMeteors, Update: updateMeteors},
	Galaxy:        {Generate: GalaxyGenerator(DefaultGalaxyShape), Update: updateGalaxy, Recolor: recolorGalaxy},
	Nebula:        {Generate: generateNebula, Update: updateNebula, Recolor: recolorNebula},
	Constellation: {Generate: generateConstellation, Update: updateConstellation},
}

// Templates returns the known templates in menu order.
func Templates() []Info {
	return append([]Info(nil), catalog...)
}

// Lookup returns the generator for id, falling back to stars.
func Lookup(id TemplateID) Generator {
	if g, ok := registry[id]; ok {
		return g
	}
	return registry[Stars]
}

// Known reports whether id names a registered template.
func Known(id TemplateID) bool {
	_, ok := registry[id]
	return ok
}

// ParseTemplate converts a case-insensitive name to a TemplateID.
func ParseTemplate(s string) (TemplateID, error) {
	id := TemplateID(strings.ToLower(strings.TrimSpace(s)))
	if !Known(id) {
		return "", fmt.Errorf("unknown template %q", s)
	}
	return id, nil
}

// DefaultColor returns the template's default color, or the stars color for
// unknown ids.
func DefaultColor(id TemplateID) RGB {
	for _, info := range catalog {
		if info.ID == id {
			return MustParseHex(info.DefaultColor)
		}
	}
	return MustParseHex(catalog[0].DefaultColor)
}

// ResolveCount returns the particle count a template uses for base count b.
// Unknown templates resolve like stars.
func ResolveCount(id TemplateID, b int) int {
	if b < 0 {
		b = 0
	}
	switch id {
	case Meteors:
		return min(300, b/10)
	case Galaxy:
		return min(10000, 2*b)
	case Nebula:
		return min(8000, b*8/5)
	case Constellation:
		return min(3000, b*3/5)
	default:
		return b
	}
}

// Generate builds a field for id with the resolved particle count.
func Generate(id TemplateID, base int, color RGB, rng *rand.Rand) *Field {
	if !Known(id) {
		id = Stars
	}
	return Lookup(id).Generate(ResolveCount(id, base), color, rng)
}
