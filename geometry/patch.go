package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Basis is a cubic spline basis matrix for the parameter vector
// [t^3, t^2, t, 1].
type Basis [4][4]float64

var (
	BezierBasis = Basis{
		{-1, 3, -3, 1},
		{3, -6, 3, 0},
		{-3, 3, 0, 0},
		{1, 0, 0, 0},
	}

	// Catmull-Rom.
	CardinalBasis = Basis{
		{-0.5, 1.5, -1.5, 0.5},
		{1, -2.5, 2, -0.5},
		{-0.5, 0, 0.5, 0},
		{0, 1, 0, 0},
	}

	BSplineBasis = Basis{
		{-1.0 / 6, 3.0 / 6, -3.0 / 6, 1.0 / 6},
		{3.0 / 6, -6.0 / 6, 3.0 / 6, 0},
		{-3.0 / 6, 0, 3.0 / 6, 0},
		{1.0 / 6, 4.0 / 6, 1.0 / 6, 0},
	}
)

// bezierInv maps power basis coefficients to bezier control points.
var bezierInv = [4][4]float64{
	{0, 0, 0, 1},
	{0, 0, 1.0 / 3, 1},
	{0, 1.0 / 3, 2.0 / 3, 1},
	{1, 1, 1, 1},
}

const (
	// DefaultSubdivision is the depth of the bounding tree of a patch.
	DefaultSubdivision = 6

	patchIterations = 50
)

type patchNode struct {
	bbox                   types.BBox
	minu, maxu, minv, maxv float64
	left, right            *patchNode
}

// Patch is a bicubic patch over 4x4 control points. Geom[i][j] is the
// control point at the i'th u and j'th v knot. Hits carry the surface
// parameters in U and V.
type Patch struct {
	Geom  [4][4]types.Vec3
	Basis Basis

	// power basis coefficients per coordinate
	coef [3][4][4]float64
	tree *patchNode
}

// NewPatch builds the bounding tree of a patch, subdividing it depth
// times. A depth below one selects DefaultSubdivision.
func NewPatch(geom [4][4]types.Vec3, basis Basis, depth int) (*Patch, error) {
	if depth < 1 {
		depth = DefaultSubdivision
	}

	pt := &Patch{Geom: geom, Basis: basis}

	m := [4][4]float64(basis)
	mt := transpose4(m)
	var ctrl [4][4]types.Vec3
	for k := 0; k < 3; k++ {
		var g [4][4]float64
		for i := range g {
			for j := range g[i] {
				g[i][j] = geom[i][j][k]
			}
		}
		pt.coef[k] = mul4(mul4(m, g), mt)

		b := mul4(mul4(bezierInv, pt.coef[k]), transpose4(bezierInv))
		for i := range b {
			for j := range b[i] {
				ctrl[i][j][k] = b[i][j]
			}
		}
	}

	pt.tree = subdividePatch(ctrl, 0, 1, 0, 1, 0, depth)
	if pt.tree.bbox.Diagonal() == 0 {
		return nil, ErrDegenerate
	}
	return pt, nil
}

func mul4(a, b [4][4]float64) [4][4]float64 {
	var out [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

func transpose4(a [4][4]float64) [4][4]float64 {
	var out [4][4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = a[j][i]
		}
	}
	return out
}

// casteljau splits a cubic bezier segment at its midpoint.
func casteljau(p [4]types.Vec3) (l, r [4]types.Vec3) {
	mid := func(a, b types.Vec3) types.Vec3 { return a.Add(b).Mul(0.5) }

	l[0], r[3] = p[0], p[3]
	l[1] = mid(p[0], p[1])
	m := mid(p[1], p[2])
	r[2] = mid(p[2], p[3])
	l[2] = mid(l[1], m)
	r[1] = mid(m, r[2])
	l[3] = mid(l[2], r[1])
	r[0] = l[3]
	return l, r
}

func subdividePatch(ctrl [4][4]types.Vec3, minu, maxu, minv, maxv float64, level, depth int) *patchNode {
	n := &patchNode{minu: minu, maxu: maxu, minv: minv, maxv: maxv, bbox: types.EmptyBBox()}
	if level == depth {
		for i := range ctrl {
			for j := range ctrl[i] {
				n.bbox = n.bbox.Extend(ctrl[i][j])
			}
		}
		return n
	}

	var lc, rc [4][4]types.Vec3
	if level&1 != 0 {
		// split in v
		for i := 0; i < 4; i++ {
			lc[i], rc[i] = casteljau(ctrl[i])
		}
		midv := (minv + maxv) / 2
		n.left = subdividePatch(lc, minu, maxu, minv, midv, level+1, depth)
		n.right = subdividePatch(rc, minu, maxu, midv, maxv, level+1, depth)
	} else {
		for j := 0; j < 4; j++ {
			l, r := casteljau([4]types.Vec3{ctrl[0][j], ctrl[1][j], ctrl[2][j], ctrl[3][j]})
			for i := 0; i < 4; i++ {
				lc[i][j], rc[i][j] = l[i], r[i]
			}
		}
		midu := (minu + maxu) / 2
		n.left = subdividePatch(lc, minu, midu, minv, maxv, level+1, depth)
		n.right = subdividePatch(rc, midu, maxu, minv, maxv, level+1, depth)
	}
	n.bbox = n.left.bbox.Union(n.right.bbox)
	return n
}

func powers(t float64) [4]float64 {
	return [4]float64{t * t * t, t * t, t, 1}
}

func dpowers(t float64) [4]float64 {
	return [4]float64{3 * t * t, 2 * t, 1, 0}
}

// evalCoef computes U * c * V' for the given parameter vectors.
func evalCoef(c *[4][4]float64, u, v [4]float64) float64 {
	var f float64
	for i := 0; i < 4; i++ {
		var row float64
		for j := 0; j < 4; j++ {
			row += c[i][j] * v[j]
		}
		f += u[i] * row
	}
	return f
}

func (pt *Patch) point(u, v float64) types.Vec3 {
	pu, pv := powers(u), powers(v)
	return types.XYZ(evalCoef(&pt.coef[0], pu, pv), evalCoef(&pt.coef[1], pu, pv), evalCoef(&pt.coef[2], pu, pv))
}

func (pt *Patch) Kind() Kind { return PatchKind }

func (pt *Patch) Flags() Flags { return Flags{CheckBBox: true} }

func (pt *Patch) Bounds() types.BBox { return pt.tree.bbox }

// patchRay holds the two planes whose intersection is the ray.
type patchRay struct {
	r      *tracer.Ray
	h1, h2 [4][4]float64
	d1, d2 float64
	tol    float64
}

func (pt *Patch) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	axis := types.XYZ(1, 0, 0)
	if math.Abs(r.Dir[0]) > math.Abs(r.Dir[1]) {
		axis = types.XYZ(0, 1, 0)
	}
	p1 := r.Dir.Cross(axis).Normalize()
	p2 := p1.Cross(r.Dir).Normalize()

	pr := patchRay{r: r, d1: p1.Dot(r.Org), d2: p2.Dot(r.Org)}
	for k := 0; k < 3; k++ {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				pr.h1[i][j] += p1[k] * pt.coef[k][i][j]
				pr.h2[i][j] += p2[k] * pt.coef[k][i][j]
			}
		}
	}
	pr.tol = pt.tree.bbox.Diagonal() * 1e-7

	best := struct{ t, u, v float64 }{t: math.Inf(1)}
	var search func(n *patchNode)
	search = func(n *patchNode) {
		if n.left == nil {
			if t, u, v, ok := pt.newton(ctx, &pr, (n.minu+n.maxu)/2, (n.minv+n.maxv)/2); ok && t < best.t {
				best.t, best.u, best.v = t, u, v
			}
			return
		}

		lmin, lmax, lok := n.left.bbox.Clip(r.Org, r.Dir)
		rmin, rmax, rok := n.right.bbox.Clip(r.Org, r.Dir)
		lok = lok && lmax > ctx.Tolerance
		rok = rok && rmax > ctx.Tolerance

		first, second := n.left, n.right
		fmin, smin, fok, sok := lmin, rmin, lok, rok
		if rok && (!lok || rmin < lmin) {
			first, second = second, first
			fmin, smin, fok, sok = smin, fmin, sok, fok
		}
		if fok && fmin < best.t {
			search(first)
		}
		if sok && smin < best.t {
			search(second)
		}
	}
	search(pt.tree)

	if math.IsInf(best.t, 1) {
		return tracer.Nil
	}

	a := ctx.Arena
	h := planeHits(ctx, self, best.t, Side)
	for id := h; id != tracer.Nil; id = a.Next(id) {
		hit := a.Get(id)
		hit.U, hit.V = best.u, best.v
	}
	return h
}

// newton solves for the (u, v) where the patch meets both ray planes,
// starting from the given estimate.
func (pt *Patch) newton(ctx *tracer.Context, pr *patchRay, u, v float64) (t, uu, vv float64, ok bool) {
	var err, lasterr float64
	for i := 0; i < patchIterations; i++ {
		pu, pv := powers(u), powers(v)
		e1 := evalCoef(&pr.h1, pu, pv) - pr.d1
		e2 := evalCoef(&pr.h2, pu, pv) - pr.d2

		if err = math.Abs(e1) + math.Abs(e2); err < pr.tol {
			break
		}
		if i > 5 && err > lasterr {
			return 0, 0, 0, false
		}

		du, dv := dpowers(u), dpowers(v)
		e1u, e1v := evalCoef(&pr.h1, du, pv), evalCoef(&pr.h1, pu, dv)
		e2u, e2v := evalCoef(&pr.h2, du, pv), evalCoef(&pr.h2, pu, dv)

		det := e1u*e2v - e1v*e2u
		if det == 0 {
			return 0, 0, 0, false
		}
		u += (e2*e1v - e1*e2v) / det
		v += (e1*e2u - e2*e1u) / det
		lasterr = err
	}

	if err >= pr.tol || u < 0 || u > 1 || v < 0 || v > 1 {
		return 0, 0, 0, false
	}

	p := pt.point(u, v)
	k := pr.r.Dir.MajorAxis()
	t = (p[k] - pr.r.Org[k]) / pr.r.Dir[k]
	if t <= ctx.Tolerance {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

func (pt *Patch) Normal(_ types.Vec3, h *tracer.Hit) types.Vec3 {
	pu, pv := powers(h.U), powers(h.V)
	du, dv := dpowers(h.U), dpowers(h.V)

	var su, sv types.Vec3
	for k := 0; k < 3; k++ {
		su[k] = evalCoef(&pt.coef[k], du, pv)
		sv[k] = evalCoef(&pt.coef[k], pu, dv)
	}
	return su.Cross(sv)
}

func (pt *Patch) SurfaceColor(_ types.Vec3, h *tracer.Hit, tile Tile) (types.Color, bool) {
	return lookup(tile, h.U, h.V)
}
