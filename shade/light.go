package shade

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// checkLight reports whether light l (the li-th scene light) is visible
// from point p with normal n on obj. It returns the light intensity
// arriving at p, the direction towards the light and its cosine with n.
func (s *Shader) checkLight(obj *geometry.Object, li int, l *scene.Light, p, n types.Vec3, level int) (types.Color, types.Vec3, float64, bool) {
	lr := tracer.NewRay(p, l.Dir, tracer.Shadow)
	lr.OrgObj = obj.ID

	var cosang float64
	dist := types.Huge
	if l.Kind != scene.Distant {
		d := l.Org.Sub(p)
		dist = d.Len()
		if dist == 0 {
			return types.Color{}, n, 0, false
		}
		lr.Dir = d.Mul(1 / dist)
	}

	prod := n.Dot(lr.Dir)
	if prod < 0 {
		return types.Color{}, lr.Dir, prod, false
	}
	if l.Kind == scene.Directional {
		if cosang = lr.Dir.Dot(l.Dir); cosang < l.CosEdge {
			return types.Color{}, lr.Dir, prod, false
		}
	}
	lr.MaxT = dist

	var col types.Color
	if l.Rays <= 1 || l.Radius == 0 || l.Kind == scene.Distant {
		ok := s.traceLight(obj, li, l, &lr, &col, cosang, level, 1)
		return col, lr.Dir, prod, ok
	}

	// Area light: spread the shadow rays over the disc the light presents
	// to p.
	theta := math.Asin(math.Min(l.Radius/dist, 1))
	discRadius := l.Radius * math.Cos(theta)
	discDist := dist - l.Radius*(l.Radius/dist)
	fact := discRadius / discDist
	lr.MaxT = discDist

	mask := s.mask(l.Rays)
	weight := 1 / float64(len(mask.points))
	reached := false
	for _, pt := range mask.points {
		tmp := lr
		du := mask.magnitude * (1 - 2*s.ctx.Rand.Float64())
		dv := mask.magnitude * (1 - 2*s.ctx.Rand.Float64())
		off := perturbation(tmp.Dir, fact*(pt[0]+du), fact*(pt[1]+dv))
		tmp.Dir = tmp.Dir.Add(off).Normalize()
		if s.traceLight(obj, li, l, &tmp, &col, cosang, level, weight) {
			reached = true
		}
	}
	return col, lr.Dir, prod, reached
}

// traceLight follows the shadow ray lr towards l. Transparent surfaces on
// the way filter the light; an opaque one stops it. When the light is
// reached its attenuated colour, scaled by weight, is added to col.
func (s *Shader) traceLight(obj *geometry.Object, li int, l *scene.Light, lr *tracer.Ray, col *types.Color, cosang float64, level int, weight float64) bool {
	a := s.ctx.Arena

	hit := tracer.Nil
	if l.Shadows {
		s.ctx.Spawn(lr)
		if !obj.Flags().SelfShadowing {
			obj.Ignore(s.ctx, lr.Gen)
		}

		if o := s.occluders[li][level]; o != nil {
			o.Ignore(s.ctx, lr.Gen)
			hit = o.Intersect(s.ctx, lr)
			if hit != tracer.Nil && a.Get(hit).T >= lr.MaxT {
				a.Free(hit)
				hit = tracer.Nil
			}
		}
		if hit == tracer.Nil {
			hit = s.Trace(lr)
		}
	}

	base := l.Colour
	var prev *geometry.Object
	prevT := 0.0
	for hit != tracer.Nil {
		h := *a.Get(hit)
		if h.T >= lr.MaxT {
			a.Free(hit)
			hit = tracer.Nil
			break
		}

		o := s.sc.Objects[h.Obj]
		surf := o.Surface
		if len(o.Textures) != 0 {
			smp := geometry.Sample{
				Obj:     o,
				Hit:     &h,
				Point:   lr.At(h.T),
				Surface: *o.Surface,
			}
			smp.Local = o.LocalPoint(smp.Point)
			for _, tx := range o.Textures {
				tx.Apply(&smp)
			}
			surf = &smp.Surface
		}
		if !surf.Transparent() {
			break
		}

		// Consecutive crossings of one object bound its interior.
		fact := 1.0
		if o == prev {
			fact = 1 / (1 + surf.Falloff*(h.T-prevT))
		}
		base = base.Mul(surf.Trans).Scale(fact)
		prev, prevT = o, h.T

		next := a.Next(hit)
		a.SetNext(hit, tracer.Nil)
		a.Free(hit)
		if next != tracer.Nil {
			hit = next
			continue
		}

		// Carry on from the crossing with a fresh generation.
		lr.Org = lr.At(h.T)
		lr.MaxT -= h.T
		prevT -= h.T
		lr.Gen = s.ctx.NextGen()
		if thin(o) {
			o.Ignore(s.ctx, lr.Gen)
		}
		hit = s.Trace(lr)
	}

	t := lr.MaxT
	var occluder *geometry.Object
	if hit != tracer.Nil {
		h := a.Get(hit)
		t = h.T
		if o := s.sc.Objects[h.Obj]; !o.InCSG {
			occluder = o
		}
		a.Free(hit)
	}
	s.occluders[li][level] = occluder

	if t < lr.MaxT {
		return false
	}

	var fact float64
	falloff := s.sc.Options.Falloff
	switch l.Kind {
	case scene.Distant:
		fact = 1
	case scene.Directional:
		fact = 1
		if l.BeamDist != 0 {
			fact = math.Pow(cosang, l.BeamDist)
		}
		if l.CosIn != 2 {
			fact *= linsmooth(l.CosEdge, l.CosIn, cosang)
		}
		fact /= 1 + falloff*t
	default:
		fact = 1 / (1 + falloff*t)
	}
	*col = col.Add(base.Scale(fact * weight))
	return true
}

// linsmooth ramps linearly from 0 at lo to 1 at hi.
func linsmooth(lo, hi, x float64) float64 {
	switch {
	case x <= lo:
		return 0
	case x >= hi:
		return 1
	}
	return (x - lo) / (hi - lo)
}

// perturbation returns the offset (u, v) expressed in a frame
// perpendicular to axis.
func perturbation(axis types.Vec3, u, v float64) types.Vec3 {
	var helper types.Vec3
	helper[(axis.MajorAxis()+1)%3] = 1
	e1 := axis.Cross(helper).Normalize()
	e2 := axis.Cross(e1).Normalize()
	return e1.Mul(u).Add(e2.Mul(v))
}
