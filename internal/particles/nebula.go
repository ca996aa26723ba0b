package particles

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	nebulaExtent    = 3.0
	nebulaSize      = 0.015
	nebulaSeedFreq  = 0.5
	nebulaSeedAmp   = 0.5
	nebulaDriftFreq = 0.3
	nebulaDriftAmp  = 0.2
	nebulaTimeRate  = 0.1
	nebulaHighlight = 0.35
)

type nebulaState struct {
	anchors []r3.Vec
	tones   []bool // true selects the highlight tone
	time    float64
}

func generateNebula(n int, color RGB, rng *rand.Rand) *Field {
	f := newField(Nebula, n, color, rng)
	f.PointSize = nebulaSize
	f.Colors = make([]float32, 3*n)

	st := &nebulaState{anchors: make([]r3.Vec, n), tones: make([]bool, n)}
	for i := 0; i < n; i++ {
		a := randomInBox(rng, nebulaExtent)
		st.anchors[i] = a
		st.tones[i] = rng.Float64() < 0.5

		s := r3.Scale(nebulaSeedFreq, a)
		off := (noise3(s.X, s.Y, s.Z) - 0.5) * nebulaSeedAmp
		f.setPosition(i, r3.Add(a, r3.Vec{X: off, Y: off, Z: off}))
	}
	f.state = st
	recolorNebula(f, color)
	return f
}

// updateNebula recomputes every position from its anchor so drift never
// accumulates.
func updateNebula(f *Field, dt, scale float64) {
	f.Transform.Scale = scale

	st := f.state.(*nebulaState)
	st.time += dt * nebulaTimeRate
	for i, a := range st.anchors {
		f.setPosition(i, nebulaDrift(a, st.time))
	}
}

func nebulaDrift(anchor r3.Vec, t float64) r3.Vec {
	s := r3.Scale(nebulaDriftFreq, anchor)
	off := (noise3(s.X+t, s.Y, s.Z) - 0.5) * nebulaDriftAmp
	return r3.Add(anchor, r3.Vec{X: off, Y: off, Z: off})
}

// nebulaPalette derives the base and highlight tones from one color.
func nebulaPalette(color RGB) (RGB, RGB) {
	return color, color.Mix(White, nebulaHighlight)
}

func recolorNebula(f *Field, color RGB) {
	f.Color = color
	base, highlight := nebulaPalette(color)
	st := f.state.(*nebulaState)
	for i, hi := range st.tones {
		if hi {
			f.setColor(i, highlight)
		} else {
			f.setColor(i, base)
		}
	}
}
