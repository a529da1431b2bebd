package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/solver"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Torus is a ring of unit major radius around the z axis:
//
//	(x^2 + y^2 + z^2 + c)^2 - 4(x^2 + y^2) = 0, c = 1 - r^2
//
// where r is the tube radius as a fraction of the major radius.
type Torus struct {
	Ratio float64
	cnst  float64
}

// NewTorus creates a torus whose tube radius is ratio times its major
// radius.
func NewTorus(ratio float64) (*Torus, error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, ErrDegenerate
	}
	return &Torus{Ratio: ratio, cnst: 1 - ratio*ratio}, nil
}

func (to *Torus) Kind() Kind { return TorusKind }

func (to *Torus) Flags() Flags { return Flags{CheckBBox: true, SelfShadowing: true} }

func (to *Torus) Bounds() types.BBox {
	rad := 1 + to.Ratio
	return types.BBox{Min: types.XYZ(-rad, -rad, -to.Ratio), Max: types.XYZ(rad, rad, to.Ratio)}
}

func (to *Torus) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	tmin, _, ok := to.Bounds().Pad(ctx.Tolerance).Clip(r.Org, r.Dir)
	if !ok {
		return tracer.Nil
	}

	// Start far rays at the box to keep the quartic well conditioned.
	org := r.Org
	var baset float64
	if tmin > 2*ctx.Tolerance {
		baset = tmin - ctx.Tolerance
		org = org.AddScaled(r.Dir, baset)
	}

	seq := solver.BuildSturm(to.quartic(org, r.Dir))

	min := ctx.Tolerance
	if baset > 0 {
		min = 0
	}
	atmin := seq.Changes(min)
	total := atmin - seq.ChangesAtInf()
	if total <= 0 {
		return tracer.Nil
	}

	a := ctx.Arena
	if !self.InCSG {
		max, atmax := seq.UpperBound(min, atmin, func(n int) bool { return n > 0 })
		if atmin-atmax <= 0 {
			return tracer.Nil
		}
		return a.Alloc(seq.Bisect(min, max, atmin, atmax)+baset, self.ID, Side)
	}

	max, atmax := seq.UpperBound(min, atmin, func(n int) bool { return n == total })
	if atmin-atmax <= 0 {
		return tracer.Nil
	}

	list := tracer.Nil
	for _, root := range seq.AllRoots(min, max) {
		for i := 0; i < root.Count; i++ {
			list = a.Append(list, a.Alloc(root.T+baset, self.ID, Side))
		}
	}
	return list
}

// quartic returns the torus equation along org + t*dir.
func (to *Torus) quartic(org, dir types.Vec3) solver.Poly {
	sq := solver.Poly{org.Dot(org) + to.cnst, 2 * org.Dot(dir), dir.Dot(dir)}
	xy := solver.Poly{
		org[0]*org[0] + org[1]*org[1],
		2 * (org[0]*dir[0] + org[1]*dir[1]),
		dir[0]*dir[0] + dir[1]*dir[1],
	}
	return solver.Mul(sq, sq).Add(xy.Scale(-4))
}

func (to *Torus) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	f := p.Dot(p) + to.cnst
	return types.XYZ(p[0]*(f-2), p[1]*(f-2), p[2]*f)
}

func (to *Torus) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	u := math.Atan2(p[1], p[0])/(2*math.Pi) + 0.5
	v := math.Atan2(p[2], math.Hypot(p[0], p[1])-1)/(2*math.Pi) + 0.5
	return lookup(tile, u, v)
}
