package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Ring is an annulus in the z = 0 plane facing +z. An inner radius of zero
// gives a disk.
type Ring struct {
	Inner float64
	Outer float64
}

// NewRing creates an annulus between the two radii.
func NewRing(inner, outer float64) (*Ring, error) {
	if inner < 0 || outer <= inner {
		return nil, ErrDegenerate
	}
	return &Ring{Inner: inner, Outer: outer}, nil
}

func (rg *Ring) Kind() Kind { return RingKind }

func (rg *Ring) Flags() Flags { return Flags{} }

func (rg *Ring) Bounds() types.BBox {
	return types.BBox{Min: types.XYZ(-rg.Outer, -rg.Outer, 0), Max: types.XYZ(rg.Outer, rg.Outer, 0)}
}

func (rg *Ring) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	if r.Dir[2] == 0 {
		return tracer.Nil
	}

	t := -r.Org[2] / r.Dir[2]
	if t <= ctx.Tolerance {
		return tracer.Nil
	}

	x, y := r.Org[0]+t*r.Dir[0], r.Org[1]+t*r.Dir[1]
	if d := x*x + y*y; d > rg.Outer*rg.Outer || d < rg.Inner*rg.Inner {
		return tracer.Nil
	}
	return planeHits(ctx, self, t, Side)
}

func (rg *Ring) Normal(_ types.Vec3, _ *tracer.Hit) types.Vec3 {
	return types.XYZ(0, 0, 1)
}

func (rg *Ring) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	u := math.Atan2(p[1], p[0])/(2*math.Pi) + 0.5
	v := (math.Hypot(p[0], p[1]) - rg.Inner) / (rg.Outer - rg.Inner)
	return lookup(tile, u, v)
}
