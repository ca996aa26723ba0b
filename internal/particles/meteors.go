package particles

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	meteorsSpawnExtent = 4.0
	meteorsMaxSpeed    = 0.02
	meteorsBound       = 3.0
	meteorsSize        = 0.01
)

type meteorsState struct {
	pos []r3.Vec
	vel []r3.Vec
}

func generateMeteors(n int, color RGB, rng *rand.Rand) *Field {
	f := newField(Meteors, n, color, rng)
	f.PointSize = meteorsSize

	st := &meteorsState{pos: make([]r3.Vec, n), vel: make([]r3.Vec, n)}
	for i := 0; i < n; i++ {
		st.pos[i] = randomInBox(rng, meteorsSpawnExtent)
		st.vel[i] = randomInBox(rng, meteorsMaxSpeed)
		f.setPosition(i, st.pos[i])
	}
	f.state = st
	return f
}

// updateMeteors moves every meteor by its velocity once per frame and
// respawns the ones that left the bounding sphere.
func updateMeteors(f *Field, _, scale float64) {
	f.Transform.Scale = scale

	st := f.state.(*meteorsState)
	for i := range st.pos {
		st.pos[i] = r3.Add(st.pos[i], st.vel[i])
		if r3.Norm(st.pos[i]) > meteorsBound {
			st.pos[i] = randomInBox(f.rng, meteorsSpawnExtent)
			st.vel[i] = randomInBox(f.rng, meteorsMaxSpeed)
		}
		f.setPosition(i, st.pos[i])
	}
}
