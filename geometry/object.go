package geometry

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// An Object is a primitive placed in the world. Objects are built once and
// shared read-only between workers; per ray state lives in tracer.Context.
type Object struct {
	// Dense index into the scene object table; hits refer to objects by it.
	ID   int32
	Name string

	Prim     Primitive
	Surface  *Surface
	Textures []Texture

	ToWorld  types.Mat4
	ToObject types.Mat4

	// World space bounds, padded by the scene tolerance.
	BBox types.BBox

	// Set for operands of a CSG tree. Such objects report both entry and
	// exit crossings and are never cached as shadow occluders.
	InCSG bool

	flags Flags
	ident bool
}

// NewObject binds prim to the object to world transform toWorld. It fails
// if the transform cannot be inverted.
func NewObject(prim Primitive, toWorld types.Mat4, surf *Surface) (*Object, error) {
	o := &Object{
		Prim:    prim,
		Surface: surf,
		flags:   prim.Flags(),
	}
	if err := o.SetTransform(toWorld); err != nil {
		return nil, err
	}
	return o, nil
}

// SetTransform rebinds the object to a new object to world transform and
// recomputes its bounds.
func (o *Object) SetTransform(toWorld types.Mat4) error {
	toObject, err := toWorld.Inverse()
	if err != nil {
		return err
	}
	o.ToWorld, o.ToObject = toWorld, toObject
	o.ident = toWorld.IsIdent()
	o.BBox = o.Prim.Bounds().Transform(toWorld)
	return nil
}

// Kind returns the primitive kind.
func (o *Object) Kind() Kind {
	return o.Prim.Kind()
}

// Flags returns the primitive flags.
func (o *Object) Flags() Flags {
	return o.flags
}

// Intersect returns the world space crossings of r with the object. The ray
// is moved into object space once; its direction is not renormalized so
// distances are valid in both spaces.
func (o *Object) Intersect(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	ctx.Stats.Tests++

	if o.flags.CheckBBox && !o.BBox.Hit(r.Org, r.Dir) {
		return tracer.Nil
	}

	if o.ident {
		return o.Prim.Intersect(ctx, r, o)
	}

	local := *r
	local.Org = o.ToObject.MulPoint(r.Org)
	local.Dir = o.ToObject.MulDir(r.Dir)
	return o.Prim.Intersect(ctx, &local, o)
}

// Trace is Intersect behind the per worker mailbox: an object is tested at
// most once per ray generation. A cached result yields a single node list
// holding the nearest crossing.
func (o *Object) Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	if cached, ok := ctx.Mailbox(o.ID, r.Gen); ok {
		if cached.T == 0 {
			return tracer.Nil
		}
		id := ctx.Arena.Alloc(cached.T, cached.Obj, cached.Type)
		h := ctx.Arena.Get(id)
		h.Flipped, h.U, h.V = cached.Flipped, cached.U, cached.V
		return id
	}

	if r.Kind == tracer.Shadow && !o.Surface.Shadows {
		ctx.Remember(o.ID, r.Gen, tracer.Hit{})
		return tracer.Nil
	}

	hits := o.Intersect(ctx, r)
	if hits == tracer.Nil {
		ctx.Remember(o.ID, r.Gen, tracer.Hit{})
		return tracer.Nil
	}
	ctx.Remember(o.ID, r.Gen, *ctx.Arena.Get(hits))
	return hits
}

// Ignore marks the object as missed for generation gen. The shader uses it
// to keep rays leaving a surface that cannot shadow itself from hitting it
// again.
func (o *Object) Ignore(ctx *tracer.Context, gen uint64) {
	ctx.Remember(o.ID, gen, tracer.Hit{})
}

// LocalPoint maps a world space point into object space.
func (o *Object) LocalPoint(p types.Vec3) types.Vec3 {
	if o.ident {
		return p
	}
	return o.ToObject.MulPoint(p)
}

// LocalNormal returns the object space normal at the object space point p,
// reversed for crossings of a subtracted CSG operand.
func (o *Object) LocalNormal(p types.Vec3, h *tracer.Hit) types.Vec3 {
	n := o.Prim.Normal(p, h)
	if h.Flipped {
		n = n.Neg()
	}
	return n
}

// WorldNormal maps an object space normal to world space.
func (o *Object) WorldNormal(n types.Vec3) types.Vec3 {
	if o.ident {
		return n.Normalize()
	}
	return o.ToObject.MulDirTranspose(n).Normalize()
}

// Normal returns the normalized world space normal at the world space
// point p.
func (o *Object) Normal(p types.Vec3, h *tracer.Hit) types.Vec3 {
	return o.WorldNormal(o.LocalNormal(o.LocalPoint(p), h))
}

// A Sample is the shading state handed to textures.
type Sample struct {
	Obj *Object
	Hit *tracer.Hit

	// World and object space hit point.
	Point types.Vec3
	Local types.Vec3

	// Object space normal perturbation accumulated by the textures.
	Perturb types.Vec3

	// Surface copy the textures modify.
	Surface Surface
}

// Texture modifies the surface properties of a shading sample.
type Texture interface {
	Apply(s *Sample)
}
