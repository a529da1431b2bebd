package geometry

import "github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"

// Surface holds the material properties of an object. Surfaces are shared
// between objects and never modified after the scene is built; textures
// work on a copy.
type Surface struct {
	Colour  types.Color
	Ambient types.Color
	Trans   types.Color
	Refl    types.Color

	Alpha   float64
	Kd      float64
	Ks      float64
	KsExp   float64
	RI      float64
	Falloff float64

	// Whether the surface blocks shadow rays.
	Shadows bool
}

// DefaultSurface returns a white diffuse surface.
func DefaultSurface() Surface {
	return Surface{
		Colour:  types.Grey(1),
		Ambient: types.Grey(0.1),
		Alpha:   1,
		Kd:      1,
		RI:      1,
		Shadows: true,
	}
}

// Transparent reports whether any colour channel lets light through.
func (s *Surface) Transparent() bool {
	return !s.Trans.IsBlack()
}

// Reflective reports whether the surface spawns reflection rays.
func (s *Surface) Reflective() bool {
	return !s.Refl.IsBlack()
}
