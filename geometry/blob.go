package geometry

import (
	"math"
	"sort"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/solver"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// DefaultThreshold is the iso value of a blob unless one is given.
const DefaultThreshold = 0.5

// Ball is a metaball. Its density Strength * (1 - d^2/Radius^2)^2 falls to
// zero at Radius.
type Ball struct {
	Center   types.Vec3
	Radius   float64
	Strength float64
}

// Blob is the iso surface where the summed metaball density equals
// Threshold.
type Blob struct {
	Balls     []Ball
	Threshold float64

	bbox types.BBox
}

// NewBlob creates a blob from at least one ball.
func NewBlob(balls []Ball, threshold float64) (*Blob, error) {
	if len(balls) == 0 {
		return nil, ErrDegenerate
	}

	bbox := types.EmptyBBox()
	for _, b := range balls {
		if b.Radius <= 0 {
			return nil, ErrDegenerate
		}
		r := types.XYZ(b.Radius, b.Radius, b.Radius)
		bbox = bbox.Union(types.BBox{Min: b.Center.Sub(r), Max: b.Center.Add(r)})
	}
	return &Blob{Balls: balls, Threshold: threshold, bbox: bbox}, nil
}

func (bl *Blob) Kind() Kind { return BlobKind }

func (bl *Blob) Flags() Flags { return Flags{SelfShadowing: true} }

func (bl *Blob) Bounds() types.BBox { return bl.bbox }

// blobEvent is a ray entering or leaving the sphere of influence of a ball.
type blobEvent struct {
	t     float64
	enter bool
	coef  [5]float64
}

// density returns the quartic density of ball b along the ray.
func (b *Ball) density(r *tracer.Ray) [5]float64 {
	v := r.Org.Sub(b.Center)
	rsq := b.Radius * b.Radius

	a := r.Dir.Dot(r.Dir) / rsq
	bb := 2 * v.Dot(r.Dir) / rsq
	c := v.Dot(v)/rsq - 1

	return [5]float64{
		b.Strength * c * c,
		b.Strength * 2 * bb * c,
		b.Strength * (bb*bb + 2*a*c),
		b.Strength * 2 * a * bb,
		b.Strength * a * a,
	}
}

func (bl *Blob) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	poly := make(solver.Poly, 5)
	poly[0] = -bl.Threshold

	var events []blobEvent
	active := 0
	dd := r.Dir.Dot(r.Dir)
	for i := range bl.Balls {
		ball := &bl.Balls[i]
		v := r.Org.Sub(ball.Center)
		b := v.Dot(r.Dir)
		c := v.Dot(v) - ball.Radius*ball.Radius

		d := b*b - dd*c
		if d < 0 {
			continue
		}
		d = math.Sqrt(d)
		t0, t1 := (-b-d)/dd, (-b+d)/dd
		if t1 <= ctx.Tolerance {
			continue
		}

		coef := ball.density(r)
		if t0 > ctx.Tolerance {
			events = append(events, blobEvent{t: t0, enter: true, coef: coef})
		} else {
			for k := range coef {
				poly[k] += coef[k]
			}
			active++
		}
		events = append(events, blobEvent{t: t1, coef: coef})
	}
	if len(events) == 0 {
		return tracer.Nil
	}
	sort.Slice(events, func(i, j int) bool { return events[i].t < events[j].t })

	a := ctx.Arena
	list := tracer.Nil
	start := ctx.Tolerance
	for _, ev := range events {
		if active > 0 && ev.t > start {
			seq := solver.BuildSturm(poly)
			atmin, atmax := seq.Changes(start), seq.Changes(ev.t)
			if atmin-atmax > 0 {
				if !self.InCSG {
					return a.Alloc(seq.Bisect(start, ev.t, atmin, atmax), self.ID, Side)
				}
				for _, root := range seq.AllRoots(start, ev.t) {
					for i := 0; i < root.Count; i++ {
						list = a.Append(list, a.Alloc(root.T, self.ID, Side))
					}
				}
			}
		}

		sign := 1.0
		if !ev.enter {
			sign = -1
			active--
		} else {
			active++
		}
		for k := range ev.coef {
			poly[k] += sign * ev.coef[k]
		}
		start = math.Max(start, ev.t)
	}
	return list
}

// Normal returns the negated density gradient of the balls that reach p.
func (bl *Blob) Normal(p types.Vec3, _ *tracer.Hit) types.Vec3 {
	var n types.Vec3
	for i := range bl.Balls {
		b := &bl.Balls[i]
		v := p.Sub(b.Center)
		rsq := b.Radius * b.Radius
		q := v.Dot(v) / rsq
		if q >= 1 {
			continue
		}
		n = n.AddScaled(v, 4*b.Strength*(1-q)/rsq)
	}
	return n
}

func (bl *Blob) SurfaceColor(types.Vec3, *tracer.Hit, Tile) (types.Color, bool) {
	return types.Color{}, false
}
