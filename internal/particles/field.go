package particles

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is the rigid transform a renderer applies to a whole field.
// Positions are scaled, rotated by the Euler angles in Z, Y, X order,
// then tilted about Z.
type Transform struct {
	Rotation r3.Vec  `json:"rotation"`
	Tilt     float64 `json:"tilt"`
	Scale    float64 `json:"scale"`
}

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// Func returns a function mapping a local position to world space.
// Rotations are built once so the result can be applied per particle.
func (t Transform) Func() func(r3.Vec) r3.Vec {
	rz := r3.NewRotation(t.Rotation.Z, axisZ)
	ry := r3.NewRotation(t.Rotation.Y, axisY)
	rx := r3.NewRotation(t.Rotation.X, axisX)
	tilt := r3.NewRotation(t.Tilt, axisZ)
	scale := t.Scale

	return func(p r3.Vec) r3.Vec {
		v := r3.Scale(scale, p)
		v = rz.Rotate(v)
		v = ry.Rotate(v)
		v = rx.Rotate(v)
		return tilt.Rotate(v)
	}
}

// Field is the particle buffer set of the active template.
type Field struct {
	Template  TemplateID
	Positions []float32 // 3 per particle
	Colors    []float32 // 3 per particle, nil when the field is a single Color
	Sizes     []float32 // 1 per particle, nil when every point is PointSize
	Color     RGB
	PointSize float32
	Transform Transform

	rng   *rand.Rand
	state any
}

func newField(id TemplateID, n int, color RGB, rng *rand.Rand) *Field {
	return &Field{
		Template:  id,
		Positions: make([]float32, 3*n),
		Color:     color,
		Transform: Transform{Scale: 1},
		rng:       rng,
	}
}

// Count returns the number of particles.
func (f *Field) Count() int {
	return len(f.Positions) / 3
}

// Position returns particle i in local space.
func (f *Field) Position(i int) r3.Vec {
	return r3.Vec{
		X: float64(f.Positions[3*i]),
		Y: float64(f.Positions[3*i+1]),
		Z: float64(f.Positions[3*i+2]),
	}
}

// ParticleColor returns the color of particle i.
func (f *Field) ParticleColor(i int) RGB {
	if f.Colors == nil {
		return f.Color
	}
	return RGB{
		R: float64(f.Colors[3*i]),
		G: float64(f.Colors[3*i+1]),
		B: float64(f.Colors[3*i+2]),
	}
}

// ParticleSize returns the point size of particle i.
func (f *Field) ParticleSize(i int) float32 {
	if f.Sizes == nil {
		return f.PointSize
	}
	return f.Sizes[i]
}

// Clone returns a copy of the buffers and transform. Per-particle
// simulation state is not copied; the clone is for drawing only.
func (f *Field) Clone() *Field {
	c := *f
	c.Positions = append([]float32(nil), f.Positions...)
	if f.Colors != nil {
		c.Colors = append([]float32(nil), f.Colors...)
	}
	if f.Sizes != nil {
		c.Sizes = append([]float32(nil), f.Sizes...)
	}
	c.rng = nil
	c.state = nil
	return &c
}

func (f *Field) setPosition(i int, p r3.Vec) {
	f.Positions[3*i] = float32(p.X)
	f.Positions[3*i+1] = float32(p.Y)
	f.Positions[3*i+2] = float32(p.Z)
}

func (f *Field) setColor(i int, c RGB) {
	f.Colors[3*i] = float32(c.R)
	f.Colors[3*i+1] = float32(c.G)
	f.Colors[3*i+2] = float32(c.B)
}

// centered returns a uniform value in [-extent/2, extent/2).
func centered(rng *rand.Rand, extent float64) float64 {
	return (rng.Float64() - 0.5) * extent
}

// randomInBox returns a point uniform in an axis-aligned cube of side extent.
func randomInBox(rng *rand.Rand, extent float64) r3.Vec {
	return r3.Vec{X: centered(rng, extent), Y: centered(rng, extent), Z: centered(rng, extent)}
}

// randomInSphere returns a point uniform in a ball of the given radius.
func randomInSphere(rng *rand.Rand, radius float64) r3.Vec {
	for {
		dir := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		n := r3.Norm(dir)
		if n == 0 {
			continue
		}
		r := radius * math.Cbrt(rng.Float64())
		return r3.Scale(r/n, dir)
	}
}

// twinkle advances each phase by a randomly jittered rate and rewrites sizes
// to oscillate between 0.8 and 1.2 times base.
func twinkle(rng *rand.Rand, phases []float64, sizes []float32, base float32, dt float64) {
	for i := range phases {
		phases[i] += dt * (0.5 + rng.Float64()*0.5)
		if phases[i] > 2*math.Pi {
			phases[i] -= 2 * math.Pi
		}
		sizes[i] = twinkleSize(base, phases[i])
	}
}

func twinkleSize(base float32, phase float64) float32 {
	return base * float32(0.8+math.Sin(phase)*0.2)
}
