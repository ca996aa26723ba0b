package particles

import (
	"math"
	"math/rand/v2"
)

const noiseSeed = 0x6e6562756c61

// valueNoise is 3D lattice value noise in [0,1]. Lattice values come from a
// seeded permutation; samples are smoothstep-interpolated between corners.
type valueNoise struct {
	perm   [512]uint8
	values [256]float64
}

func newValueNoise(seed uint64) *valueNoise {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := &valueNoise{}
	for i, p := range rng.Perm(256) {
		n.perm[i] = uint8(p)
		n.perm[i+256] = uint8(p)
	}
	for i := range n.values {
		n.values[i] = rng.Float64()
	}
	return n
}

var defaultNoise = newValueNoise(noiseSeed)

// noise3 samples the package noise at (x, y, z).
func noise3(x, y, z float64) float64 {
	return defaultNoise.At(x, y, z)
}

// At returns the noise value at (x, y, z).
func (n *valueNoise) At(x, y, z float64) float64 {
	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	ix, iy, iz := int(fx)&255, int(fy)&255, int(fz)&255
	u, v, w := smoothstep(x-fx), smoothstep(y-fy), smoothstep(z-fz)

	c000 := n.lattice(ix, iy, iz)
	c100 := n.lattice(ix+1, iy, iz)
	c010 := n.lattice(ix, iy+1, iz)
	c110 := n.lattice(ix+1, iy+1, iz)
	c001 := n.lattice(ix, iy, iz+1)
	c101 := n.lattice(ix+1, iy, iz+1)
	c011 := n.lattice(ix, iy+1, iz+1)
	c111 := n.lattice(ix+1, iy+1, iz+1)

	x00 := lerp(c000, c100, u)
	x10 := lerp(c010, c110, u)
	x01 := lerp(c001, c101, u)
	x11 := lerp(c011, c111, u)

	return lerp(lerp(x00, x10, v), lerp(x01, x11, v), w)
}

func (n *valueNoise) lattice(i, j, k int) float64 {
	h := n.perm[int(n.perm[int(n.perm[i&255])+(j&255)])+(k&255)]
	return n.values[h]
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
