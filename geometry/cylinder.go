package geometry

import (
	"math"
	"sort"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Cylinder is the capped unit cylinder x^2 + y^2 = 1 with z in [0, 1].
type Cylinder struct{}

// NewCylinder creates the canonical cylinder.
func NewCylinder() *Cylinder {
	return &Cylinder{}
}

func (c *Cylinder) Kind() Kind { return CylinderKind }

func (c *Cylinder) Flags() Flags { return Flags{CheckBBox: true} }

func (c *Cylinder) Bounds() types.BBox {
	return types.BBox{Min: types.XYZ(-1, -1, 0), Max: types.XYZ(1, 1, 1)}
}

func (c *Cylinder) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	var cands crossings

	a := r.Dir[0]*r.Dir[0] + r.Dir[1]*r.Dir[1]
	b := r.Org[0]*r.Dir[0] + r.Org[1]*r.Dir[1]
	cc := r.Org[0]*r.Org[0] + r.Org[1]*r.Org[1] - 1
	if a != 0 {
		if d := b*b - a*cc; d >= 0 {
			d = math.Sqrt(d)
			for _, t := range [2]float64{(-b - d) / a, (-b + d) / a} {
				if z := r.Org[2] + t*r.Dir[2]; z >= 0 && z <= 1 {
					cands.add(t, Side)
				}
			}
		}
	}

	cands.cap(r, 0, 1, NZFace)
	cands.cap(r, 1, 1, PZFace)

	return cands.emit(ctx, self)
}

func (c *Cylinder) Normal(p types.Vec3, h *tracer.Hit) types.Vec3 {
	switch h.Type {
	case PZFace:
		return types.XYZ(0, 0, 1)
	case NZFace:
		return types.XYZ(0, 0, -1)
	}
	return types.XYZ(p[0], p[1], 0)
}

func (c *Cylinder) SurfaceColor(p types.Vec3, h *tracer.Hit, tile Tile) (types.Color, bool) {
	if h.Type != Side {
		return types.Color{}, false
	}
	u, v := cylmap(p, 0, 1)
	return lookup(tile, u, v)
}

// crossings collects the candidate crossings of a convex solid bounded by
// a quadric side and planar caps.
type crossings struct {
	n   int
	t   [4]float64
	typ [4]int
}

func (c *crossings) add(t float64, typ int) {
	if c.n < len(c.t) {
		c.t[c.n], c.typ[c.n] = t, typ
		c.n++
	}
}

// cap adds the crossing of the plane z = z0 if it lies within radius of
// the z axis.
func (c *crossings) cap(r *tracer.Ray, z0, radius float64, typ int) {
	if r.Dir[2] == 0 || radius <= 0 {
		return
	}
	t := (z0 - r.Org[2]) / r.Dir[2]
	x, y := r.Org[0]+t*r.Dir[0], r.Org[1]+t*r.Dir[1]
	if x*x+y*y <= radius*radius {
		c.add(t, typ)
	}
}

func (c *crossings) Len() int           { return c.n }
func (c *crossings) Less(i, j int) bool { return c.t[i] < c.t[j] }
func (c *crossings) Swap(i, j int) {
	c.t[i], c.t[j] = c.t[j], c.t[i]
	c.typ[i], c.typ[j] = c.typ[j], c.typ[i]
}

// emit reports the outermost pair of candidates as the entry and exit.
// Fewer than two candidates means the ray only grazed the solid.
func (c *crossings) emit(ctx *tracer.Context, self *Object) tracer.HitID {
	if c.n < 2 {
		return tracer.Nil
	}
	sort.Sort(c)
	return pairHits(ctx, self, c.t[0], c.typ[0], c.t[c.n-1], c.typ[c.n-1])
}
