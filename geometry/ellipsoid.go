package geometry

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Ellipsoid is an axis aligned ellipsoid centred at the origin.
type Ellipsoid struct {
	Radii types.Vec3

	inv types.Vec3
}

// NewEllipsoid creates an ellipsoid with the given semi axes.
func NewEllipsoid(radii types.Vec3) (*Ellipsoid, error) {
	if radii[0] <= 0 || radii[1] <= 0 || radii[2] <= 0 {
		return nil, ErrDegenerate
	}
	return &Ellipsoid{
		Radii: radii,
		inv:   types.XYZ(1/radii[0], 1/radii[1], 1/radii[2]),
	}, nil
}

func (e *Ellipsoid) Kind() Kind { return EllipsoidKind }

func (e *Ellipsoid) Flags() Flags { return Flags{} }

func (e *Ellipsoid) Bounds() types.BBox {
	return types.BBox{Min: e.Radii.Neg(), Max: e.Radii}
}

// Intersect scales the ray into the unit sphere; distances are unchanged.
func (e *Ellipsoid) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	t1, t2, ok := sphereInterval(r.Org.MulVec(e.inv), r.Dir.MulVec(e.inv), 1)
	if !ok {
		return tracer.Nil
	}
	return pairHits(ctx, self, t1, Side, t2, Side)
}

func (e *Ellipsoid) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	return p.MulVec(e.inv).MulVec(e.inv)
}

func (e *Ellipsoid) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	u, v := spheremap(p.MulVec(e.inv))
	return lookup(tile, u, v)
}
