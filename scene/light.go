package scene

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// LightKind selects how a light's direction and attenuation are computed.
type LightKind uint8

const (
	Point LightKind = iota
	// Spot light: a point light restricted to a cone around Dir.
	Directional
	// Light at infinity arriving along Dir.
	Distant
)

func (k LightKind) String() string {
	switch k {
	case Point:
		return "point"
	case Directional:
		return "directional"
	case Distant:
		return "distant"
	}
	return "unknown"
}

// A Light illuminates the scene. Dir always points from the scene towards
// the light: for distant lights it is the direction the light is found in,
// for directional lights the reversed beam axis.
type Light struct {
	Kind   LightKind
	Org    types.Vec3
	Dir    types.Vec3
	Colour types.Color

	// Area lights sample a disc of this radius with Rays shadow rays.
	Radius float64
	Rays   int

	// Cone of a directional light. Points outside CosEdge are dark, points
	// inside CosIn are fully lit; CosIn == 2 disables the soft edge.
	// BeamDist concentrates the beam as pow(cos, BeamDist).
	CosEdge  float64
	CosIn    float64
	BeamDist float64

	// Lights with shadows disabled are never occluded.
	Shadows bool
}

// NewPointLight creates a shadow casting point light.
func NewPointLight(org types.Vec3, col types.Color) *Light {
	return &Light{Kind: Point, Org: org, Colour: col, Rays: 1, Shadows: true}
}

// NewDistantLight creates a light infinitely far away in direction dir.
func NewDistantLight(dir types.Vec3, col types.Color) *Light {
	return &Light{Kind: Distant, Dir: dir.Normalize(), Colour: col, Rays: 1, Shadows: true}
}

// NewSpotLight creates a directional light at org aimed at the point at.
// Angles are half angles in degrees; an inner angle of zero gives a hard
// edge.
func NewSpotLight(org, at types.Vec3, col types.Color, angle, inner float64) *Light {
	l := &Light{
		Kind:    Directional,
		Org:     org,
		Dir:     org.Sub(at).Normalize(),
		Colour:  col,
		Rays:    1,
		CosEdge: math.Cos(angle * math.Pi / 180),
		CosIn:   2,
		Shadows: true,
	}
	if inner > 0 {
		l.CosIn = math.Cos(inner * math.Pi / 180)
	}
	return l
}

// SetArea turns the light into a disc of the given radius sampled by rays
// shadow rays per shading point.
func (l *Light) SetArea(radius float64, rays int) {
	l.Radius = radius
	l.Rays = max(rays, 1)
}
