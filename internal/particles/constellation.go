package particles

import (
	"math"
	"math/rand/v2"
)

const (
	constellationClusters  = 8
	constellationExtent    = 2.0
	constellationMinRadius = 0.1
	constellationRadiusVar = 0.2
	constellationDepth     = 0.1
	constellationSize      = 0.003
	constellationSpin      = 0.05
)

type constellationState struct {
	phases []float64
}

// generateConstellation places n points on rings around 8 random centers.
// Cluster sizes differ by at most one so every particle is placed.
func generateConstellation(n int, color RGB, rng *rand.Rand) *Field {
	f := newField(Constellation, n, color, rng)
	f.PointSize = constellationSize
	f.Sizes = make([]float32, n)
	f.Transform.Tilt = math.Pi / 4

	st := &constellationState{phases: make([]float64, n)}
	per, rem := n/constellationClusters, n%constellationClusters

	i := 0
	for c := 0; c < constellationClusters; c++ {
		size := per
		if c < rem {
			size++
		}
		cx := centered(rng, constellationExtent)
		cy := centered(rng, constellationExtent)
		cz := centered(rng, constellationExtent)

		for j := 0; j < size; j++ {
			angle := float64(j) / float64(size) * 2 * math.Pi
			radius := constellationMinRadius + rng.Float64()*constellationRadiusVar

			f.Positions[3*i] = float32(cx + math.Cos(angle)*radius)
			f.Positions[3*i+1] = float32(cy + math.Sin(angle)*radius)
			f.Positions[3*i+2] = float32(cz + centered(rng, constellationDepth))

			st.phases[i] = rng.Float64() * 2 * math.Pi
			f.Sizes[i] = twinkleSize(constellationSize, st.phases[i])
			i++
		}
	}
	f.state = st
	return f
}

func updateConstellation(f *Field, dt, scale float64) {
	f.Transform.Scale = scale
	f.Transform.Rotation.Y += dt * constellationSpin

	st := f.state.(*constellationState)
	twinkle(f.rng, st.phases, f.Sizes, constellationSize, dt)
}
