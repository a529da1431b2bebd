// Package texture implements the surface textures applied while shading:
// image tiles mapped through a primitive's surface parameterisation, block
// patterns, noise driven colour patterns and normal perturbation.
//
// A texture works on a geometry.Sample. Colour textures write the field
// they modulate on the sample's surface copy; normal textures add to the
// sample's object space perturbation.
package texture

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

var logger = log.New("texture")

// Field selects the surface property a colour texture writes.
type Field uint8

const (
	Colour Field = iota
	Ambient
	Transparency
	Reflectance
	RefractiveIndex
)

func (f Field) String() string {
	switch f {
	case Colour:
		return "colour"
	case Ambient:
		return "ambient"
	case Transparency:
		return "transparency"
	case Reflectance:
		return "reflectance"
	case RefractiveIndex:
		return "ri"
	}
	return "unknown"
}

// Placement maps object space points into texture space.
type Placement struct {
	toTexture types.Mat4
	ident     bool
}

// Identity returns a placement that leaves points in object space.
func Identity() Placement {
	return Placement{toTexture: types.Ident4(), ident: true}
}

// NewPlacement creates a placement for a texture positioned in object space
// by the texture to object transform m.
func NewPlacement(m types.Mat4) (Placement, error) {
	inv, err := m.Inverse()
	if err != nil {
		return Placement{}, err
	}
	return Placement{toTexture: inv, ident: m.IsIdent()}, nil
}

// Point maps an object space point into texture space.
func (pl Placement) Point(p types.Vec3) types.Vec3 {
	if pl.ident {
		return p
	}
	return pl.toTexture.MulPoint(p)
}

// modulate stores col in field f of the sample surface. Refractive index
// textures use the scalar val instead.
func modulate(s *geometry.Sample, f Field, col types.Color, val float64) {
	switch f {
	case Colour:
		s.Surface.Colour = col
	case Ambient:
		s.Surface.Ambient = col
	case Transparency:
		s.Surface.Trans = col
	case Reflectance:
		s.Surface.Refl = col
	case RefractiveIndex:
		s.Surface.RI = 1 + val
	}
}

// mix blends c1 into c0 by t.
func mix(c0, c1 types.Color, t float64) types.Color {
	return c0.Scale(1 - t).Add(c1.Scale(t))
}

func luminance(c types.Color) float64 {
	return c[0]*0.3 + c[1]*0.59 + c[2]*0.11
}

// triwave is a triangle wave of period 4 with slopes of 1 and -1.
func triwave(x float64) float64 {
	a := 1.0
	if x < 0 {
		a, x = -1, -x
	}

	x -= float64(int(x/4)) * 4

	switch {
	case x < 1:
		return a * x
	case x < 3:
		return a * (2 - x)
	}
	return a * (x - 4)
}
