package geometry

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/solver"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Term is one monomial Coef * x^X * y^Y * z^Z of an algebraic surface.
type Term struct {
	Coef    float64
	X, Y, Z int
}

func (t Term) eval(xs, ys, zs []float64) float64 {
	return t.Coef * xs[t.X] * ys[t.Y] * zs[t.Z]
}

// Algebraic is the zero set of a polynomial in x, y and z. An optional clip
// object, expressed in the surface's object space, restricts the search to
// the interval the ray spends inside it.
type Algebraic struct {
	Terms []Term
	Clip  *Object

	order            int
	maxX, maxY, maxZ int
	dx, dy, dz       []Term
}

// NewAlgebraic collects like terms and prepares the gradient. It fails if
// nothing is left or the order exceeds solver.MaxOrder.
func NewAlgebraic(terms []Term, clip *Object) (*Algebraic, error) {
	merged := make([]Term, 0, len(terms))
	index := make(map[[3]int]int)
	for _, t := range terms {
		key := [3]int{t.X, t.Y, t.Z}
		if i, ok := index[key]; ok {
			merged[i].Coef += t.Coef
			continue
		}
		index[key] = len(merged)
		merged = append(merged, t)
	}

	alg := &Algebraic{Clip: clip}
	for _, t := range merged {
		if t.Coef == 0 {
			continue
		}
		if t.X < 0 || t.Y < 0 || t.Z < 0 {
			return nil, ErrDegenerate
		}
		alg.Terms = append(alg.Terms, t)

		if ord := t.X + t.Y + t.Z; ord > alg.order {
			alg.order = ord
		}
		alg.maxX = maxInt(alg.maxX, t.X)
		alg.maxY = maxInt(alg.maxY, t.Y)
		alg.maxZ = maxInt(alg.maxZ, t.Z)

		if t.X != 0 {
			alg.dx = append(alg.dx, Term{Coef: t.Coef * float64(t.X), X: t.X - 1, Y: t.Y, Z: t.Z})
		}
		if t.Y != 0 {
			alg.dy = append(alg.dy, Term{Coef: t.Coef * float64(t.Y), X: t.X, Y: t.Y - 1, Z: t.Z})
		}
		if t.Z != 0 {
			alg.dz = append(alg.dz, Term{Coef: t.Coef * float64(t.Z), X: t.X, Y: t.Y, Z: t.Z - 1})
		}
	}

	if alg.order == 0 || alg.order > solver.MaxOrder {
		return nil, ErrDegenerate
	}
	if clip != nil {
		clip.InCSG = true
	}
	return alg, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (alg *Algebraic) Kind() Kind { return AlgebraicKind }

func (alg *Algebraic) Flags() Flags { return Flags{SelfShadowing: true} }

func (alg *Algebraic) Bounds() types.BBox { return types.InfiniteBBox() }

// Order returns the total degree of the surface polynomial.
func (alg *Algebraic) Order() int { return alg.order }

// Poly substitutes the ray into the surface equation.
func (alg *Algebraic) Poly(org, dir types.Vec3) solver.Poly {
	xs := make([]solver.Poly, alg.maxX+1)
	ys := make([]solver.Poly, alg.maxY+1)
	zs := make([]solver.Poly, alg.maxZ+1)
	for k := range xs {
		xs[k] = solver.Linear(org[0], dir[0], k)
	}
	for k := range ys {
		ys[k] = solver.Linear(org[1], dir[1], k)
	}
	for k := range zs {
		zs[k] = solver.Linear(org[2], dir[2], k)
	}

	out := make(solver.Poly, alg.order+1)
	for _, t := range alg.Terms {
		out = out.Add(solver.Mul(solver.Mul(xs[t.X], ys[t.Y]), zs[t.Z]).Scale(t.Coef))
	}
	return out
}

func (alg *Algebraic) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	a := ctx.Arena

	var min, max float64
	if alg.Clip != nil {
		hits := alg.Clip.Intersect(ctx, r)
		if hits == tracer.Nil {
			return tracer.Nil
		}
		last := a.Last(hits)
		if last == hits {
			min, max = ctx.Tolerance, a.Get(hits).T
		} else {
			min, max = a.Get(hits).T, a.Get(last).T
		}
		a.Free(hits)
	}

	seq := solver.BuildSturm(alg.Poly(r.Org, r.Dir))

	var atmin, atmax int
	if alg.Clip != nil {
		if min < ctx.Tolerance {
			min = ctx.Tolerance
		}
		atmin, atmax = seq.Changes(min), seq.Changes(max)
	} else {
		min = ctx.Tolerance
		atmin = seq.Changes(min)
		total := atmin - seq.ChangesAtInf()
		if total <= 0 {
			return tracer.Nil
		}
		done := func(n int) bool { return n > 0 }
		if self.InCSG {
			done = func(n int) bool { return n == total }
		}
		max, atmax = seq.UpperBound(min, atmin, done)
	}

	if atmin-atmax <= 0 {
		return tracer.Nil
	}

	if !self.InCSG {
		return a.Alloc(seq.Bisect(min, max, atmin, atmax), self.ID, Side)
	}

	list := tracer.Nil
	for _, root := range seq.AllRoots(min, max) {
		for i := 0; i < root.Count; i++ {
			list = a.Append(list, a.Alloc(root.T, self.ID, Side))
		}
	}
	return list
}

func (alg *Algebraic) powers(p types.Vec3) (xs, ys, zs []float64) {
	fill := func(v float64, n int) []float64 {
		out := make([]float64, n+1)
		out[0] = 1
		for i := 1; i <= n; i++ {
			out[i] = out[i-1] * v
		}
		return out
	}
	return fill(p[0], alg.maxX), fill(p[1], alg.maxY), fill(p[2], alg.maxZ)
}

// Eval returns the surface polynomial at p.
func (alg *Algebraic) Eval(p types.Vec3) float64 {
	xs, ys, zs := alg.powers(p)
	var val float64
	for _, t := range alg.Terms {
		val += t.eval(xs, ys, zs)
	}
	return val
}

func (alg *Algebraic) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	xs, ys, zs := alg.powers(p)

	var n types.Vec3
	for i, terms := range [3][]Term{alg.dx, alg.dy, alg.dz} {
		for _, t := range terms {
			n[i] += t.eval(xs, ys, zs)
		}
	}
	if n == (types.Vec3{}) {
		n[2] = -1
	}
	return n
}

func (alg *Algebraic) SurfaceColor(types.Vec3, *tracer.Hit, Tile) (types.Color, bool) {
	return types.Color{}, false
}
