package texture

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Blocks fills space with boxes of Size separated by gaps of colour
// GapColour. Axes with a zero size are not divided.
type Blocks struct {
	Field     Field
	Placement Placement

	Size      types.Vec3
	Gap       float64
	Colour    types.Color
	GapColour types.Color
}

// InGap reports whether the texture space point p lies in a gap.
func (b *Blocks) InGap(p types.Vec3) bool {
	g := 1 - b.Gap/2
	for ax := 0; ax < 3; ax++ {
		if math.Abs(b.Size[ax]) <= 1e-6 {
			continue
		}
		if math.Abs(triwave(2*p[ax]/b.Size[ax]-1)) > g {
			return true
		}
	}
	return false
}

func (b *Blocks) Apply(s *geometry.Sample) {
	col := b.Colour
	if b.InGap(b.Placement.Point(s.Local)) {
		col = b.GapColour
	}
	modulate(s, b.Field, col, 1)
}

// PatternKind selects a noise pattern.
type PatternKind uint8

const (
	Marble PatternKind = iota
	Granite
	Wood
)

func (k PatternKind) String() string {
	switch k {
	case Marble:
		return "marble"
	case Granite:
		return "granite"
	case Wood:
		return "wood"
	}
	return "unknown"
}

// A Pattern blends BlendColour into the current colour by a noise driven
// weight.
type Pattern struct {
	Kind      PatternKind
	Field     Field
	Placement Placement

	Scale      float64
	Turbulence float64
	Squeeze    float64
	Octaves    int

	Blend       float64
	BlendColour types.Color
}

// NewPattern returns a pattern with unit scale, turbulence and squeeze,
// six octaves and full blending.
func NewPattern(kind PatternKind, blend types.Color) *Pattern {
	return &Pattern{
		Kind:        kind,
		Placement:   Identity(),
		Scale:       1,
		Turbulence:  1,
		Squeeze:     1,
		Octaves:     6,
		Blend:       1,
		BlendColour: blend,
	}
}

// Value returns the pattern weight at texture space point p.
func (pt *Pattern) Value(p types.Vec3) float64 {
	var x float64
	switch pt.Kind {
	case Marble:
		x = pt.Scale*p[0] + pt.Turbulence*Turbulence(p, pt.Octaves)
		x = math.Pow(0.5*(1+math.Sin(x)), math.Max(1, math.Floor(pt.Squeeze)))
	case Granite:
		x = pt.Scale * Turbulence(p, pt.Octaves)
	case Wood:
		r := pt.Scale*math.Hypot(p[0], p[1]) + pt.Turbulence*Noise(p)
		x = 0.5 * (1 + pt.Squeeze*math.Sin(r*2*math.Pi))
	}
	return x
}

func (pt *Pattern) Apply(s *geometry.Sample) {
	x := math.Max(0, math.Min(1, pt.Value(pt.Placement.Point(s.Local))))
	col := mix(s.Surface.Colour, pt.BlendColour, x*pt.Blend)
	modulate(s, pt.Field, col, x)
}
