package particles

import (
	"math"
	"math/rand/v2"
)

// GalaxyShape parameterizes the logarithmic spiral r = A·e^(B·θ).
type GalaxyShape struct {
	A, B           float64
	Turns          float64 // total sweep of θ in radians
	RadialJitter   float64
	VerticalJitter float64
}

// DefaultGalaxyShape is the two-turn spiral used by the galaxy template.
var DefaultGalaxyShape = GalaxyShape{
	A:              0.5,
	B:              0.2,
	Turns:          4 * math.Pi,
	RadialJitter:   0.3,
	VerticalJitter: 0.1,
}

const (
	galaxySize          = 0.005
	galaxyMinBrightness = 0.3
	galaxyFalloff       = 2.0
	galaxySpin          = 0.1
)

type galaxyState struct {
	brightness []float64
}

// GalaxyGenerator returns a generator for the given spiral shape.
func GalaxyGenerator(shape GalaxyShape) GenerateFunc {
	return func(n int, color RGB, rng *rand.Rand) *Field {
		f := newField(Galaxy, n, color, rng)
		f.PointSize = galaxySize
		f.Colors = make([]float32, 3*n)

		st := &galaxyState{brightness: make([]float64, n)}
		for i := 0; i < n; i++ {
			theta := float64(i) / float64(n) * shape.Turns
			r := shape.A * math.Exp(shape.B*theta)
			x := math.Cos(theta)*r + centered(rng, shape.RadialJitter)
			z := math.Sin(theta)*r + centered(rng, shape.RadialJitter)
			y := centered(rng, shape.VerticalJitter)

			f.Positions[3*i] = float32(x)
			f.Positions[3*i+1] = float32(y)
			f.Positions[3*i+2] = float32(z)

			st.brightness[i] = math.Max(galaxyMinBrightness, 1-math.Hypot(x, z)/galaxyFalloff)
		}
		f.state = st
		recolorGalaxy(f, color)
		return f
	}
}

func updateGalaxy(f *Field, dt, scale float64) {
	f.Transform.Scale = scale
	f.Transform.Rotation.Y += dt * galaxySpin
}

func recolorGalaxy(f *Field, color RGB) {
	f.Color = color
	st := f.state.(*galaxyState)
	for i, b := range st.brightness {
		f.setColor(i, color.Scale(b))
	}
}
