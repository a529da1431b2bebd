package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Vertex normals and colours are only interpolated up to this many sides.
const maxInterpolatedVerts = 4

// Polygon is a planar polygon. Three sided polygons use a barycentric test
// and report the weights of the second and third vertex in the hit U and V;
// larger ones use a crossing count in the projection that drops the
// dominant normal axis.
type Polygon struct {
	Verts   []types.Vec3
	Normals []types.Vec3
	Colours []types.Color

	// Reject rays that reach the polygon from behind.
	Backfacing bool

	n    types.Vec3
	on   types.Vec3
	cnst float64

	// projection axes
	pu, pv int
	proj   []types.Vec2

	// barycentric setup for triangles
	e1, e2 types.Vec2
	invDet float64

	// planar tile frame
	xv, yv types.Vec3
	umin   float64
	vmin   float64
	usize  float64
	vsize  float64

	bbox types.BBox
}

// NewPolygon creates a polygon from at least three coplanar vertices.
// normals and colours are optional per vertex values; if given they must
// have one entry per vertex.
func NewPolygon(verts []types.Vec3, normals []types.Vec3, colours []types.Color, backfacing bool) (*Polygon, error) {
	if len(verts) < 3 {
		return nil, ErrDegenerate
	}

	p := &Polygon{
		Verts:      verts,
		Backfacing: backfacing,
	}

	p.n = verts[1].Sub(verts[0]).Cross(verts[2].Sub(verts[1]))
	if p.n.LenSq() == 0 {
		return nil, ErrDegenerate
	}
	p.on = p.n.Normalize()
	p.cnst = -p.n.Dot(verts[0])

	if len(normals) != 0 || len(colours) != 0 {
		if len(verts) > maxInterpolatedVerts {
			logger.Warningf("can't interpolate across a polygon with %d vertices", len(verts))
		}
	}
	if len(normals) == len(verts) && len(verts) <= maxInterpolatedVerts {
		p.Normals = make([]types.Vec3, len(normals))
		for i, n := range normals {
			p.Normals[i] = n.Normalize()
		}
	}
	if len(colours) == len(verts) {
		p.Colours = colours
	} else if len(colours) > 0 {
		p.Colours = colours[:1]
	}

	switch p.n.MajorAxis() {
	case 0:
		p.pu, p.pv = 1, 2
	case 1:
		p.pu, p.pv = 0, 2
	default:
		p.pu, p.pv = 0, 1
	}
	p.proj = make([]types.Vec2, len(verts))
	for i, v := range verts {
		p.proj[i] = types.XY(v[p.pu], v[p.pv])
	}

	if len(verts) == 3 {
		p.e1 = p.proj[1].Sub(p.proj[0])
		p.e2 = p.proj[2].Sub(p.proj[0])
		p.invDet = 1 / cross2(p.e1, p.e2)
	}

	p.xv = verts[1].Sub(verts[0]).Normalize()
	p.yv = p.xv.Cross(p.on)
	p.umin, p.vmin = math.Inf(1), math.Inf(1)
	umax, vmax := math.Inf(-1), math.Inf(-1)
	bbox := types.EmptyBBox()
	for _, v := range verts {
		d := v.Sub(verts[0])
		u, w := d.Dot(p.xv), d.Dot(p.yv)
		p.umin, umax = math.Min(p.umin, u), math.Max(umax, u)
		p.vmin, vmax = math.Min(p.vmin, w), math.Max(vmax, w)
		bbox = bbox.Extend(v)
	}
	p.usize, p.vsize = umax-p.umin, vmax-p.vmin
	p.bbox = bbox.Pad(bbox.Diagonal() * tracer.DefaultTolerance / 2)

	return p, nil
}

func cross2(a, b types.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

func (p *Polygon) Kind() Kind {
	if len(p.Verts) == 3 {
		return TriangleKind
	}
	return PolygonKind
}

func (p *Polygon) Flags() Flags { return Flags{} }

func (p *Polygon) Bounds() types.BBox { return p.bbox }

func (p *Polygon) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	dn := p.n.Dot(r.Dir)
	if dn == 0 || (dn > 0 && p.Backfacing) {
		return tracer.Nil
	}

	t := -(p.n.Dot(r.Org) + p.cnst) / dn
	if t <= ctx.Tolerance {
		return tracer.Nil
	}

	pt := r.At(t)
	if pt[p.pu] < p.bbox.Min[p.pu] || pt[p.pu] > p.bbox.Max[p.pu] ||
		pt[p.pv] < p.bbox.Min[p.pv] || pt[p.pv] > p.bbox.Max[p.pv] {
		return tracer.Nil
	}
	q := types.XY(pt[p.pu], pt[p.pv])

	var u, v float64
	if len(p.Verts) == 3 {
		var ok bool
		if u, v, ok = p.barycentric(q); !ok {
			return tracer.Nil
		}
	} else if !p.inside(q) {
		return tracer.Nil
	}

	h := planeHits(ctx, self, t, Side)
	a := ctx.Arena
	for id := h; id != tracer.Nil; id = a.Next(id) {
		hit := a.Get(id)
		hit.U, hit.V = u, v
	}
	return h
}

// barycentric returns the weights of the second and third vertex at q.
func (p *Polygon) barycentric(q types.Vec2) (float64, float64, bool) {
	d := q.Sub(p.proj[0])
	b1 := cross2(d, p.e2) * p.invDet
	if b1 < 0 || b1 > 1 {
		return 0, 0, false
	}
	b2 := cross2(p.e1, d) * p.invDet
	if b2 < 0 || b1+b2 > 1 {
		return 0, 0, false
	}
	return b1, b2, true
}

// inside runs the even-odd crossing test on a half line in +u.
func (p *Polygon) inside(q types.Vec2) bool {
	in := false
	n := len(p.proj)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.proj[i], p.proj[j]
		if (a[1] > q[1]) == (b[1] > q[1]) {
			continue
		}
		if q[0] < (b[0]-a[0])*(q[1]-a[1])/(b[1]-a[1])+a[0] {
			in = !in
		}
	}
	return in
}

// weights returns the vertex indices and interpolation weights of pt. Quads
// are split along the 0-2 diagonal.
func (p *Polygon) weights(pt types.Vec3, h *tracer.Hit) ([3]int, [3]float64) {
	if len(p.Verts) == 3 {
		return [3]int{0, 1, 2}, [3]float64{1 - h.U - h.V, h.U, h.V}
	}

	q := types.XY(pt[p.pu], pt[p.pv])
	for _, tri := range [2][3]int{{0, 1, 2}, {0, 2, 3}} {
		e1 := p.proj[tri[1]].Sub(p.proj[tri[0]])
		e2 := p.proj[tri[2]].Sub(p.proj[tri[0]])
		det := cross2(e1, e2)
		if det == 0 {
			continue
		}
		d := q.Sub(p.proj[tri[0]])
		b1, b2 := cross2(d, e2)/det, cross2(e1, d)/det
		if b1 >= 0 && b2 >= 0 && b1+b2 <= 1 {
			return tri, [3]float64{1 - b1 - b2, b1, b2}
		}
	}
	return [3]int{0, 1, 2}, [3]float64{1, 0, 0}
}

func (p *Polygon) Normal(pt types.Vec3, h *tracer.Hit) types.Vec3 {
	if p.Normals == nil {
		return p.on
	}
	idx, w := p.weights(pt, h)
	var n types.Vec3
	for i := range idx {
		n = n.AddScaled(p.Normals[idx[i]], w[i])
	}
	return n
}

// VertexColour interpolates the vertex colours. Polygons with more sides
// than can be interpolated take the colour of the first vertex.
func (p *Polygon) VertexColour(pt types.Vec3, h *tracer.Hit) (types.Color, bool) {
	switch {
	case len(p.Colours) == 0:
		return types.Color{}, false
	case len(p.Colours) == 1 || len(p.Verts) > maxInterpolatedVerts:
		return p.Colours[0], true
	}

	idx, w := p.weights(pt, h)
	var c types.Color
	for i := range idx {
		c = c.Add(p.Colours[idx[i]].Scale(w[i]))
	}
	return c, true
}

func (p *Polygon) SurfaceColor(pt types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	d := pt.Sub(p.Verts[0])
	u := (d.Dot(p.xv) - p.umin) / p.usize
	v := (d.Dot(p.yv) - p.vmin) / p.vsize
	return lookup(tile, u, v)
}
