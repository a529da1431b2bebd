// Package shade turns ray crossings into colours: local illumination with
// shadow rays, reflection, refraction and the atmospheric terms.
package shade

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// DefaultMaxLevel bounds the depth of reflection and refraction trees.
const DefaultMaxLevel = 6

// The medium a ray travels through.
type medium struct {
	ri      float64
	falloff float64
}

// A Shader computes colours for a single worker. Shaders are not safe for
// concurrent use; every worker creates its own over a shared scene.
type Shader struct {
	sc       *scene.Scene
	ctx      *tracer.Context
	maxLevel int

	// Media the current ray is nested in. The first entry is the space
	// the camera sits in.
	media []medium

	// The last opaque object found between a shading point and each light,
	// per light and ray level. Neighbouring points are usually shadowed by
	// the same object.
	occluders [][]*geometry.Object

	masks map[int]*sampleMask
}

// New creates a shader for sc that traces through ctx. The context
// tolerance is set to the scene tolerance.
func New(sc *scene.Scene, ctx *tracer.Context, maxLevel int) *Shader {
	if maxLevel < 0 {
		maxLevel = DefaultMaxLevel
	}
	ctx.Tolerance = sc.Tolerance

	occ := make([][]*geometry.Object, len(sc.Lights))
	for i := range occ {
		occ[i] = make([]*geometry.Object, maxLevel+1)
	}
	return &Shader{
		sc:        sc,
		ctx:       ctx,
		maxLevel:  maxLevel,
		media:     []medium{{ri: sc.Options.RI, falloff: sc.Options.Falloff}},
		occluders: occ,
		masks:     make(map[int]*sampleMask),
	}
}

// Context returns the tracing context of the shader.
func (s *Shader) Context() *tracer.Context {
	return s.ctx
}

// Reset drops the medium stack and the occluder cache. Call it before
// reusing a shader whose last trace was aborted.
func (s *Shader) Reset() {
	s.media = s.media[:1]
	for _, occ := range s.occluders {
		clear(occ)
	}
}

// Trace returns the crossings of r with the scene, nearest first. The ray
// must have been given a generation by the context. The caller owns the
// returned list.
func (s *Shader) Trace(r *tracer.Ray) tracer.HitID {
	a := s.ctx.Arena
	best := tracer.Nil
	if s.sc.Index != nil {
		best = s.sc.Index.Trace(s.ctx, r)
	}
	if s.sc.Others == nil || s.sc.Others.Len() == 0 {
		return best
	}

	other := s.sc.Others.Trace(s.ctx, r)
	switch {
	case other == tracer.Nil:
	case best == tracer.Nil || a.Get(other).T < a.Get(best).T:
		a.Free(best)
		best = other
	default:
		a.Free(other)
	}
	return best
}

// Pixel shades the primary ray through screen point (x, y).
func (s *Shader) Pixel(x, y float64) types.Pixel {
	r := s.sc.Camera.Ray(x, y)
	return s.Sample(&r)
}

// Sample shades r as a primary ray. Rays that miss everything return the
// background with zero alpha.
func (s *Shader) Sample(r *tracer.Ray) types.Pixel {
	s.ctx.Spawn(r)
	hit := s.Trace(r)
	if hit == tracer.Nil {
		return s.sc.Options.Background.Pixel(0)
	}
	c := s.shade(r, hit, 0, s.sc.Options.RI)
	s.ctx.Arena.Free(hit)
	return c.Pixel(1)
}

// thin primitives have no inside, so rays leaving them can never hit them
// again.
func thin(o *geometry.Object) bool {
	switch o.Kind() {
	case geometry.PolygonKind, geometry.TriangleKind, geometry.RingKind:
		return true
	}
	return false
}

// follow spawns a secondary ray and shades whatever it hits at the given
// level. A miss yields the background.
func (s *Shader) follow(from *geometry.Object, hit *tracer.Hit, org, dir types.Vec3, kind tracer.RayKind, level int, ri float64, ignore bool) (types.Color, float64, bool) {
	ir := tracer.NewRay(org, dir, kind)
	ir.OrgObj, ir.OrgType = from.ID, hit.Type
	s.ctx.Spawn(&ir)
	if ignore {
		from.Ignore(s.ctx, ir.Gen)
	}

	next := s.Trace(&ir)
	if next == tracer.Nil {
		return s.sc.Options.Background, 0, false
	}
	t := s.ctx.Arena.Get(next).T
	c := s.shade(&ir, next, level, ri)
	s.ctx.Arena.Free(next)
	return c, t, true
}

// shade computes the colour of the nearest crossing of i. ri is the
// refractive index of the medium i travels through.
func (s *Shader) shade(i *tracer.Ray, hitID tracer.HitID, level int, ri float64) types.Color {
	hit := *s.ctx.Arena.Get(hitID)
	o := s.sc.Objects[hit.Obj]
	p := i.At(hit.T)

	smp := geometry.Sample{
		Obj:     o,
		Hit:     &hit,
		Point:   p,
		Local:   o.LocalPoint(p),
		Surface: *o.Surface,
	}
	if vc, ok := o.Prim.(geometry.VertexColoured); ok {
		if c, ok := vc.VertexColour(smp.Local, &hit); ok {
			smp.Surface.Colour = c
		}
	}

	objn := o.LocalNormal(smp.Local, &hit)
	for _, tx := range o.Textures {
		tx.Apply(&smp)
	}
	if smp.Perturb != (types.Vec3{}) {
		objn = objn.Add(smp.Perturb.Mul(objn.Len()))
	}
	surf := &smp.Surface

	n := o.WorldNormal(objn)
	leaving := false
	ndoti := n.Dot(i.Dir)
	if ndoti > 0 {
		n = n.Neg()
		ndoti = -ndoti
		leaving = true
	}

	var dif, spec types.Color
	for li, l := range s.sc.Lights {
		lc, ldir, prod, ok := s.checkLight(o, li, l, p, n, level)
		if !ok {
			continue
		}
		dif = dif.Add(lc.Scale(prod * surf.Kd))
		if surf.Ks != 0 {
			mid := ldir.Sub(n.Mul(2 * prod)).Normalize()
			if f := i.Dir.Dot(mid); f > 0 {
				spec = spec.Add(lc.Scale(math.Pow(f, surf.KsExp) * surf.Ks))
			}
		}
	}

	pix := surf.Ambient.Add(dif).Mul(surf.Colour).Add(spec)
	transparent := surf.Transparent()
	if transparent {
		for k := range pix {
			pix[k] *= 1 - surf.Trans[k]
		}
	}

	// Refraction by Hall's method. Total internal reflection spawns
	// nothing.
	if surf.RI != 0 && surf.RI != 1 && level < s.maxLevel && transparent {
		cv := n.Mul(ndoti)

		next := medium{ri: surf.RI, falloff: surf.Falloff}
		if leaving {
			next = s.outer()
		}

		sv := i.Dir.Sub(cv).Mul(ri / next.ri)
		if l2 := sv.LenSq(); l2 < 1 {
			dir := sv.Sub(n.Mul(math.Sqrt(1 - l2)))

			// Entering pushes the object's medium; leaving pops the
			// current one for as long as the child ray lives.
			depth := len(s.media)
			top := s.media[depth-1]
			switch {
			case !leaving:
				s.media = append(s.media, next)
			case depth > 1:
				s.media = s.media[:depth-1]
			}
			c, _, _ := s.follow(o, &hit, p, dir, tracer.Transparency, level+1, next.ri, thin(o))
			s.media = append(s.media[:depth-1], top)

			pix = pix.Add(surf.Trans.Mul(c))
		}
	}

	if level < s.maxLevel && surf.Reflective() {
		dir := i.Dir.Sub(n.Mul(2 * ndoti))
		c, _, _ := s.follow(o, &hit, p, dir, tracer.Reflection, level+1, ri, !o.Flags().SelfShadowing)
		pix = pix.Add(surf.Refl.Mul(c))
	}

	if surf.RI == 1 && level < s.maxLevel && transparent {
		c, _, _ := s.follow(o, &hit, p, i.Dir, tracer.Transparency, level+1, surf.RI, thin(o))
		pix = pix.Add(surf.Trans.Mul(c))
	}

	falloff := s.media[len(s.media)-1].falloff
	if surf.Alpha != 1 {
		pix = pix.Scale(surf.Alpha / (1 + falloff*hit.T))

		// The rest of the ray continues at the same level.
		c, t, ok := s.follow(o, &hit, p, i.Dir, tracer.Transparency, level, surf.RI, thin(o))
		fact := 1 - surf.Alpha
		if ok {
			fact *= (1 + falloff*t) / (1 + falloff*(hit.T+t))
		}
		pix = pix.Add(c.Scale(fact))
	} else {
		opts := &s.sc.Options
		if opts.Fog != 0 {
			f := 1 - (1-opts.RFactor)*math.Exp(-opts.Fog*hit.T)
			pix = pix.Scale(1 - f).Add(opts.Haze.Scale(f))
		}
		pix = pix.Scale(1 / (1 + falloff*hit.T))
	}

	return pix.Clamp()
}

// outer returns the medium surrounding the current one.
func (s *Shader) outer() medium {
	if len(s.media) > 1 {
		return s.media[len(s.media)-2]
	}
	return s.media[0]
}
