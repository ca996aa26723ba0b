package particles

import (
	"math"
	"math/rand/v2"
)

const (
	starsRadius = 1.2
	starsSize   = 0.002
)

type starsState struct {
	phases []float64
}

func generateStars(n int, color RGB, rng *rand.Rand) *Field {
	f := newField(Stars, n, color, rng)
	f.PointSize = starsSize
	f.Sizes = make([]float32, n)
	f.Transform.Tilt = math.Pi / 4

	st := &starsState{phases: make([]float64, n)}
	for i := 0; i < n; i++ {
		f.setPosition(i, randomInSphere(rng, starsRadius))
		st.phases[i] = rng.Float64() * 2 * math.Pi
		f.Sizes[i] = twinkleSize(starsSize, st.phases[i])
	}
	f.state = st
	return f
}

func updateStars(f *Field, dt, scale float64) {
	f.Transform.Scale = scale
	f.Transform.Rotation.X -= dt / 20
	f.Transform.Rotation.Y -= dt / 25

	st := f.state.(*starsState)
	twinkle(f.rng, st.phases, f.Sizes, starsSize, dt)
}
