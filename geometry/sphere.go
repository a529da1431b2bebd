package geometry

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Sphere is a sphere centred at the object space origin.
type Sphere struct {
	Radius float64
}

// NewSphere creates a sphere with the given radius.
func NewSphere(radius float64) (*Sphere, error) {
	if radius <= 0 {
		return nil, ErrDegenerate
	}
	return &Sphere{Radius: radius}, nil
}

func (s *Sphere) Kind() Kind { return SphereKind }

func (s *Sphere) Flags() Flags { return Flags{} }

func (s *Sphere) Bounds() types.BBox {
	r := s.Radius
	return types.BBox{Min: types.XYZ(-r, -r, -r), Max: types.XYZ(r, r, r)}
}

func (s *Sphere) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	t1, t2, ok := sphereInterval(r.Org, r.Dir, s.Radius*s.Radius)
	if !ok {
		return tracer.Nil
	}
	return pairHits(ctx, self, t1, Side, t2, Side)
}

// sphereInterval solves |org + dir*t|^2 = rsq.
func sphereInterval(org, dir types.Vec3, rsq float64) (t1, t2 float64, ok bool) {
	a := dir.Dot(dir)
	b := org.Dot(dir)
	c := org.Dot(org) - rsq

	disc := b*b - a*c
	if disc < 0 || a == 0 {
		return 0, 0, false
	}

	disc = math.Sqrt(disc)
	return (-b - disc) / a, (-b + disc) / a, true
}

func (s *Sphere) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	return p
}

func (s *Sphere) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile Tile) (types.Color, bool) {
	u, v := spheremap(p)
	return lookup(tile, u, v)
}
