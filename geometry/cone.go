package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Cone is the cone x^2 + y^2 = z^2 truncated to z in [TipVal, 1] and closed
// by caps at both ends. TipVal is the ratio of the tip and base radii.
type Cone struct {
	TipVal float64
}

// NewCone creates a cone whose tip radius is tipval times its base radius.
func NewCone(tipval float64) (*Cone, error) {
	if tipval < 0 || tipval >= 1 {
		return nil, ErrDegenerate
	}
	return &Cone{TipVal: tipval}, nil
}

func (c *Cone) Kind() Kind { return ConeKind }

func (c *Cone) Flags() Flags { return Flags{CheckBBox: true} }

func (c *Cone) Bounds() types.BBox {
	return types.BBox{Min: types.XYZ(-1, -1, c.TipVal), Max: types.XYZ(1, 1, 1)}
}

func (c *Cone) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	var cands crossings

	o, d := r.Org, r.Dir
	a := d[0]*d[0] + d[1]*d[1] - d[2]*d[2]
	b := o[0]*d[0] + o[1]*d[1] - o[2]*d[2]
	cc := o[0]*o[0] + o[1]*o[1] - o[2]*o[2]

	side := func(t float64) {
		if z := o[2] + t*d[2]; z >= c.TipVal && z <= 1 {
			cands.add(t, Side)
		}
	}

	switch {
	case a != 0:
		disc := b*b - a*cc
		if disc < 0 {
			break
		}
		disc = math.Sqrt(disc)
		side((-b - disc) / a)
		side((-b + disc) / a)
	case b != 0:
		// Ray parallel to the surface crosses it once.
		side(-cc / (2 * b))
	}

	cands.cap(r, c.TipVal, c.TipVal, NZFace)
	cands.cap(r, 1, 1, PZFace)

	return cands.emit(ctx, self)
}

func (c *Cone) Normal(p types.Vec3, h *tracer.Hit) types.Vec3 {
	switch h.Type {
	case PZFace:
		return types.XYZ(0, 0, 1)
	case NZFace:
		return types.XYZ(0, 0, -1)
	}
	return types.XYZ(p[0], p[1], -p[2])
}

func (c *Cone) SurfaceColor(p types.Vec3, h *tracer.Hit, tile Tile) (types.Color, bool) {
	if h.Type != Side {
		return types.Color{}, false
	}
	u, v := cylmap(p, c.TipVal, 1)
	return lookup(tile, u, v)
}
