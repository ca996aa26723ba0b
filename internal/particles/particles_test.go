package particles

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestResolveCount(t *testing.T) {
	tests := []struct {
		id   TemplateID
		base int
		want int
	}{
		{Stars, 5000, 5000},
		{Meteors, 5000, 300},
		{Meteors, 1000, 100},
		{Galaxy, 5000, 10000},
		{Galaxy, 1000, 2000},
		{Nebula, 5000, 8000},
		{Nebula, 1000, 1600},
		{Constellation, 5000, 3000},
		{Constellation, 1000, 600},
		{TemplateID("comet"), 1234, 1234},
		{Stars, -5, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			if got := ResolveCount(tt.id, tt.base); got != tt.want {
				t.Errorf("ResolveCount(%s, %d) = %d, want %d", tt.id, tt.base, got, tt.want)
			}
		})
	}
}

func TestGenerate_BufferLengths(t *testing.T) {
	for _, info := range Templates() {
		for _, base := range []int{0, 7, 1000, 5000} {
			f := Generate(info.ID, base, DefaultColor(info.ID), testRNG())
			n := ResolveCount(info.ID, base)

			if len(f.Positions) != 3*n {
				t.Errorf("%s/%d: len(Positions) = %d, want %d", info.ID, base, len(f.Positions), 3*n)
			}
			if f.Colors != nil && len(f.Colors) != 3*n {
				t.Errorf("%s/%d: len(Colors) = %d, want %d", info.ID, base, len(f.Colors), 3*n)
			}
			if f.Sizes != nil && len(f.Sizes) != n {
				t.Errorf("%s/%d: len(Sizes) = %d, want %d", info.ID, base, len(f.Sizes), n)
			}
			if f.Template != info.ID {
				t.Errorf("Template = %s, want %s", f.Template, info.ID)
			}
		}
	}
}

func TestGenerate_UnknownFallsBackToStars(t *testing.T) {
	f := Generate("comet", 100, White, testRNG())
	if f.Template != Stars {
		t.Errorf("Template = %s, want stars", f.Template)
	}
	if f.Count() != 100 {
		t.Errorf("Count() = %d, want 100", f.Count())
	}
}

func TestStars_InsideSphere(t *testing.T) {
	f := generateStars(2000, White, testRNG())
	for i := 0; i < f.Count(); i++ {
		if r := r3.Norm(f.Position(i)); r > starsRadius+1e-6 {
			t.Fatalf("particle %d at radius %v, outside %v", i, r, starsRadius)
		}
	}
	if f.Transform.Tilt != math.Pi/4 {
		t.Errorf("Tilt = %v, want pi/4", f.Transform.Tilt)
	}
}

func TestStars_UpdateRotatesAndTwinkles(t *testing.T) {
	f := generateStars(100, White, testRNG())
	updateStars(f, 1, 1.3)

	if want := -1.0 / 20; math.Abs(f.Transform.Rotation.X-want) > 1e-12 {
		t.Errorf("Rotation.X = %v, want %v", f.Transform.Rotation.X, want)
	}
	if want := -1.0 / 25; math.Abs(f.Transform.Rotation.Y-want) > 1e-12 {
		t.Errorf("Rotation.Y = %v, want %v", f.Transform.Rotation.Y, want)
	}
	if f.Transform.Scale != 1.3 {
		t.Errorf("Scale = %v, want 1.3", f.Transform.Scale)
	}

	lo, hi := float32(starsSize*0.8-1e-6), float32(starsSize*1.2+1e-6)
	st := f.state.(*starsState)
	for i, s := range f.Sizes {
		if s < lo || s > hi {
			t.Fatalf("size %d = %v, outside [%v, %v]", i, s, lo, hi)
		}
		if st.phases[i] < 0 || st.phases[i] > 2*math.Pi {
			t.Fatalf("phase %d = %v, not wrapped", i, st.phases[i])
		}
	}
}

func TestMeteors_Respawn(t *testing.T) {
	f := generateMeteors(50, White, testRNG())
	st := f.state.(*meteorsState)

	st.pos[0] = r3.Vec{X: 2.995}
	st.vel[0] = r3.Vec{X: 0.01}

	updateMeteors(f, 0.016, 1)

	p := st.pos[0]
	if r := r3.Norm(p); r > 2*math.Sqrt(3)+1e-9 {
		t.Errorf("respawned at radius %v, want <= 2*sqrt(3)", r)
	}
	for _, c := range []float64{st.vel[0].X, st.vel[0].Y, st.vel[0].Z} {
		if math.Abs(c) > meteorsMaxSpeed {
			t.Errorf("respawned velocity component %v outside [-0.02, 0.02]", c)
		}
	}
	if got := f.Position(0); r3.Norm(r3.Sub(got, p)) > 1e-6 {
		t.Errorf("buffer position %v does not match state %v", got, p)
	}
}

func TestMeteors_StayBounded(t *testing.T) {
	f := generateMeteors(300, White, testRNG())
	for frame := 0; frame < 2000; frame++ {
		updateMeteors(f, 0.016, 1)
	}
	for i := 0; i < f.Count(); i++ {
		if r := r3.Norm(f.Position(i)); r > 2*math.Sqrt(3)+1e-6 {
			t.Fatalf("meteor %d at radius %v after update", i, r)
		}
	}
}

func TestGalaxy_RadiusIncreasesWithoutJitter(t *testing.T) {
	shape := DefaultGalaxyShape
	shape.RadialJitter = 0
	shape.VerticalJitter = 0

	f := GalaxyGenerator(shape)(2000, MustParseHex("#915eff"), testRNG())

	prev := -1.0
	for i := 0; i < f.Count(); i++ {
		p := f.Position(i)
		r := math.Hypot(p.X, p.Z)
		if r <= prev {
			t.Fatalf("radius at %d = %v, not greater than %v", i, r, prev)
		}
		if p.Y != 0 {
			t.Fatalf("y at %d = %v, want 0", i, p.Y)
		}
		prev = r
	}
}

func TestGalaxy_BrightnessFloor(t *testing.T) {
	base := RGB{R: 1, G: 1, B: 1}
	f := GalaxyGenerator(DefaultGalaxyShape)(2000, base, testRNG())

	for i := 0; i < f.Count(); i++ {
		c := f.ParticleColor(i)
		if c.R < galaxyMinBrightness-1e-6 || c.R > 1+1e-6 {
			t.Fatalf("brightness %d = %v outside [0.3, 1]", i, c.R)
		}
	}
}

func TestGalaxy_Recolor(t *testing.T) {
	f := GalaxyGenerator(DefaultGalaxyShape)(100, White, testRNG())
	st := f.state.(*galaxyState)
	red := RGB{R: 1}

	recolorGalaxy(f, red)

	for i, b := range st.brightness {
		c := f.ParticleColor(i)
		if math.Abs(c.R-b) > 1e-6 || c.G != 0 || c.B != 0 {
			t.Fatalf("color %d = %+v, want R=%v", i, c, b)
		}
	}
}

func TestNebula_DriftDeterministic(t *testing.T) {
	a := generateNebula(500, MustParseHex("#bf61ff"), rand.New(rand.NewPCG(5, 5)))
	b := generateNebula(500, MustParseHex("#bf61ff"), rand.New(rand.NewPCG(5, 5)))

	for i := 0; i < 30; i++ {
		updateNebula(a, 0.016, 1)
		updateNebula(b, 0.016, 1)
	}

	if diff := cmp.Diff(a.Positions, b.Positions); diff != "" {
		t.Errorf("positions differ for same seed and time (-a +b):\n%s", diff)
	}
}

func TestNebula_OffsetBounded(t *testing.T) {
	f := generateNebula(500, White, testRNG())
	st := f.state.(*nebulaState)

	for i := 0; i < 100; i++ {
		updateNebula(f, 0.05, 1)
	}

	for i, a := range st.anchors {
		d := r3.Sub(f.Position(i), a)
		if math.Abs(d.X) > nebulaDriftAmp/2+1e-5 {
			t.Fatalf("particle %d drifted %v from anchor", i, d.X)
		}
		if math.Abs(d.X-d.Y) > 1e-5 || math.Abs(d.Y-d.Z) > 1e-5 {
			t.Fatalf("particle %d offset not uniform: %+v", i, d)
		}
	}
}

func TestNebula_Palette(t *testing.T) {
	c := MustParseHex("#bf61ff")
	base, hi := nebulaPalette(c)
	if base != c {
		t.Errorf("base tone = %v, want %v", base, c)
	}
	if hi.R < c.R || hi.G < c.G || hi.B < c.B {
		t.Errorf("highlight %v darker than base %v", hi, c)
	}
}

func TestNoise_RangeAndContinuity(t *testing.T) {
	rng := testRNG()
	for i := 0; i < 1000; i++ {
		x, y, z := rng.Float64()*20-10, rng.Float64()*20-10, rng.Float64()*20-10
		v := noise3(x, y, z)
		if v < 0 || v > 1 {
			t.Fatalf("noise(%v,%v,%v) = %v outside [0,1]", x, y, z, v)
		}
		if w := noise3(x+1e-6, y, z); math.Abs(w-v) > 1e-3 {
			t.Fatalf("noise jumps %v -> %v at %v", v, w, x)
		}
	}
	if noise3(1.25, 2.5, 3.75) != noise3(1.25, 2.5, 3.75) {
		t.Error("noise is not deterministic")
	}
}

func TestConstellation_Clusters(t *testing.T) {
	for _, n := range []int{0, 3, 8, 601, 3000} {
		f := generateConstellation(n, White, testRNG())
		if len(f.Positions) != 3*n {
			t.Errorf("n=%d: len(Positions) = %d", n, len(f.Positions))
		}
		for i := 0; i < f.Count(); i++ {
			p := f.Position(i)
			limit := constellationExtent/2 + constellationMinRadius + constellationRadiusVar + 1e-6
			if math.Abs(p.X) > limit || math.Abs(p.Y) > limit {
				t.Fatalf("n=%d: particle %d at %+v beyond cluster extent", n, i, p)
			}
		}
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    RGB
		wantErr bool
	}{
		{"#ffffff", RGB{R: 1, G: 1, B: 1}, false},
		{"#000000", RGB{}, false},
		{"#ff0000", RGB{R: 1}, false},
		{" #00ff00 ", RGB{G: 1}, false},
		{"ffffff", RGB{}, true},
		{"#fff", RGB{}, true},
		{"#gggggg", RGB{}, true},
		{"", RGB{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColor) {
					t.Errorf("ParseHex(%q) error = %v, want ErrInvalidColor", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHex(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, info := range Templates() {
		c := MustParseHex(info.DefaultColor)
		if got := c.Hex(); got != info.DefaultColor {
			t.Errorf("Hex() = %s, want %s", got, info.DefaultColor)
		}
	}
}

func TestParseTemplate(t *testing.T) {
	if id, err := ParseTemplate(" Galaxy "); err != nil || id != Galaxy {
		t.Errorf("ParseTemplate(Galaxy) = %s, %v", id, err)
	}
	if _, err := ParseTemplate("comet"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTransform_Func(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		fn := Transform{Scale: 1}.Func()
		p := r3.Vec{X: 0.3, Y: -0.2, Z: 0.7}
		if got := fn(p); r3.Norm(r3.Sub(got, p)) > 1e-12 {
			t.Errorf("identity moved %v to %v", p, got)
		}
	})

	t.Run("scale", func(t *testing.T) {
		fn := Transform{Scale: 2}.Func()
		if got := fn(r3.Vec{X: 1}); math.Abs(got.X-2) > 1e-12 {
			t.Errorf("got %v, want X=2", got)
		}
	})

	t.Run("tilt quarter turn", func(t *testing.T) {
		fn := Transform{Scale: 1, Tilt: math.Pi / 2}.Func()
		got := fn(r3.Vec{X: 1})
		if math.Abs(got.X) > 1e-9 || math.Abs(got.Y-1) > 1e-9 {
			t.Errorf("got %v, want (0,1,0)", got)
		}
	})
}
