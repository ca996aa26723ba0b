package particles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned for strings that are not #rrggbb.
var ErrInvalidColor = errors.New("color must be #rrggbb")

// RGB is a color with channels in [0,1].
type RGB struct {
	R, G, B float64
}

// ParseHex parses a "#rrggbb" string.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	return RGB{
		R: float64((v>>16)&0xff) / 255,
		G: float64((v>>8)&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// MustParseHex is ParseHex for compile-time constants. It panics on bad input.
func MustParseHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

// Scale multiplies every channel by f.
func (c RGB) Scale(f float64) RGB {
	return RGB{R: c.R * f, G: c.G * f, B: c.B * f}
}

// Mix blends c toward o by t in [0,1].
func (c RGB) Mix(o RGB, t float64) RGB {
	return RGB{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}

// White is the neutral highlight color.
var White = RGB{R: 1, G: 1, B: 1}
