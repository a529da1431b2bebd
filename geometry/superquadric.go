package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/solver"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Largest secant step, in object space units, before the iteration is
// considered to have left the surface.
const superMaxDiff = 2.0

var unitBox = types.BBox{Min: types.XYZ(-1, -1, -1), Max: types.XYZ(1, 1, 1)}

// Superquadric is the surface |x|^n + |y|^n + |z|^n = 1 inside the unit
// box.
type Superquadric struct {
	Order int
}

// NewSuperquadric creates a superquadric of the given order.
func NewSuperquadric(order int) (*Superquadric, error) {
	if order < 2 {
		return nil, ErrDegenerate
	}
	return &Superquadric{Order: order}, nil
}

func (sq *Superquadric) Kind() Kind { return SuperquadricKind }

func (sq *Superquadric) Flags() Flags { return Flags{CheckBBox: true} }

func (sq *Superquadric) Bounds() types.BBox { return unitBox }

func (sq *Superquadric) eval(p types.Vec3) float64 {
	return solver.Power(math.Abs(p[0]), sq.Order) +
		solver.Power(math.Abs(p[1]), sq.Order) +
		solver.Power(math.Abs(p[2]), sq.Order) - 1
}

// converge runs the secant iteration from the pair (oldt, t) until the
// surface value drops below tol. It fails if the value stops decreasing or
// a step exceeds maxStep.
func (sq *Superquadric) converge(r *tracer.Ray, oldt, t, maxStep, tol float64) (float64, bool) {
	val := sq.eval(r.At(oldt))
	for its := 0; val > tol; its++ {
		if its == solver.MaxIterations {
			return 0, false
		}

		oldval := val
		val = sq.eval(r.At(t))
		if val >= oldval {
			return 0, false
		}

		diff := val * (t - oldt) / (val - oldval)
		if math.Abs(diff) > maxStep {
			return 0, false
		}
		oldt = t
		t -= diff
	}
	return t, true
}

func (sq *Superquadric) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	t1, t2, ok := unitBox.Clip(r.Org, r.Dir)
	if !ok {
		return tracer.Nil
	}

	// The direction length gives the object scale.
	maxStep := superMaxDiff / r.Dir.Len()

	oldt := t1 - ctx.Tolerance
	if math.Abs(t1) < maxStep && sq.eval(r.Org) <= ctx.Tolerance {
		oldt = t1 + ctx.Tolerance
	}

	tol := math.Max(t1*tracer.DefaultTolerance/50, tracer.DefaultTolerance)

	a := ctx.Arena
	list := tracer.Nil
	if self.InCSG && t2 > ctx.Tolerance {
		if t, ok := sq.converge(r, t2+ctx.Tolerance, t2, maxStep, tol); ok && t > ctx.Tolerance {
			list = a.Alloc(t, self.ID, Side)
		}
	}

	if t, ok := sq.converge(r, oldt, t1, maxStep, tol); ok && t > ctx.Tolerance {
		h := a.Alloc(t, self.ID, Side)
		a.SetNext(h, list)
		list = h
	}
	return list
}

func (sq *Superquadric) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	var n types.Vec3
	for i := range p {
		n[i] = math.Copysign(solver.Power(math.Abs(p[i]), sq.Order-1), p[i])
	}
	return n
}

func (sq *Superquadric) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	u, v := spheremap(p)
	return lookup(tile, u, v)
}
