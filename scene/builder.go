package scene

import (
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/accel"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var (
	ErrSingularTransform = errors.New("scene: transform cannot be inverted")
	ErrBadOperand        = errors.New("scene: csg operand is unknown or already used")
	ErrAlreadyBuilt      = errors.New("scene: builder was already built")
)

// ObjectID identifies an object added to a Builder. It is also the object's
// index in Scene.Objects.
type ObjectID int32

// A Builder collects objects, lights and the camera and turns them into a
// Scene. CSG operands are ordinary objects that are later consumed by
// AddCSG.
type Builder struct {
	objects []*geometry.Object
	roots   []bool
	lights  []*Light
	camera  *Camera
	built   bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add places prim with the transform, surface and textures of ctx.
func (b *Builder) Add(ctx *Context, prim geometry.Primitive) (ObjectID, error) {
	return b.AddNamed(ctx, "", prim)
}

// AddNamed is Add with a name reported in diagnostics.
func (b *Builder) AddNamed(ctx *Context, name string, prim geometry.Primitive) (ObjectID, error) {
	o, err := geometry.NewObject(prim, ctx.ToWorld(), ctx.Surface())
	if err != nil {
		return -1, errors.Wrapf(ErrSingularTransform, "object %d (%s): %s", len(b.objects), prim.Kind(), err)
	}
	o.Name = name
	if tx := ctx.Textures(); len(tx) != 0 {
		o.Textures = append([]geometry.Texture(nil), tx...)
	}
	return b.insert(o), nil
}

func (b *Builder) insert(o *geometry.Object) ObjectID {
	o.ID = int32(len(b.objects))
	b.objects = append(b.objects, o)
	b.roots = append(b.roots, true)
	return ObjectID(o.ID)
}

// Object returns the object with the given id.
func (b *Builder) Object(id ObjectID) *geometry.Object {
	if id < 0 || int(id) >= len(b.objects) {
		return nil
	}
	return b.objects[id]
}

// AddCSG combines two previously added objects. The operands stop being
// scene objects of their own. The transform of ctx is applied on top of the
// operands' transforms and its textures are added to every operand leaf.
func (b *Builder) AddCSG(ctx *Context, op csg.Op, left, right ObjectID) (ObjectID, error) {
	if left == right || !b.isRoot(left) || !b.isRoot(right) {
		return -1, errors.Wrapf(ErrBadOperand, "operands %d and %d", left, right)
	}

	l, r := b.objects[left], b.objects[right]
	if m := ctx.ToWorld(); !m.IsIdent() {
		for _, o := range [2]*geometry.Object{l, r} {
			if err := retransform(o, m); err != nil {
				return -1, errors.Wrapf(ErrSingularTransform, "csg operand %d: %s", o.ID, err)
			}
		}
	}

	prim, err := geometry.NewCSG(op, l, r)
	if err != nil {
		return -1, err
	}
	o, err := geometry.NewObject(prim, types.Ident4(), ctx.Surface())
	if err != nil {
		return -1, err
	}

	if tx := ctx.Textures(); len(tx) != 0 {
		prim.Leaves(func(leaf *geometry.Object) {
			leaf.Textures = append(leaf.Textures[:len(leaf.Textures):len(leaf.Textures)], tx...)
		})
	}

	b.roots[left], b.roots[right] = false, false
	return b.insert(o), nil
}

func (b *Builder) isRoot(id ObjectID) bool {
	return id >= 0 && int(id) < len(b.objects) && b.roots[id]
}

// retransform applies m after the current transform of o. CSG objects stay
// at the identity and pass m down to their operands.
func retransform(o *geometry.Object, m types.Mat4) error {
	if c, ok := o.Prim.(*geometry.CSG); ok {
		if err := retransform(c.Left, m); err != nil {
			return err
		}
		if err := retransform(c.Right, m); err != nil {
			return err
		}
		return o.SetTransform(types.Ident4())
	}
	return o.SetTransform(o.ToWorld.Mul4(m))
}

// AddLight adds a light source.
func (b *Builder) AddLight(l *Light) {
	b.lights = append(b.lights, l)
}

// SetCamera sets the viewpoint.
func (b *Builder) SetCamera(c *Camera) {
	b.camera = c
}

// Camera returns the camera set so far, or nil.
func (b *Builder) Camera() *Camera {
	return b.camera
}

// Len returns the number of objects added, operands included.
func (b *Builder) Len() int {
	return len(b.objects)
}

// Build separates the objects that can be indexed from the unbounded ones,
// derives the tolerance from the world size, pads the indexed bounding
// boxes by it and builds the spatial index. A builder can only be built
// once.
func (b *Builder) Build(opts Options) (*Scene, error) {
	if b.built {
		return nil, ErrAlreadyBuilt
	}
	b.built = true
	start := time.Now()

	sc := &Scene{
		Objects:   b.objects,
		Lights:    b.lights,
		Camera:    b.camera,
		Options:   opts,
		BBox:      types.EmptyBBox(),
		Tolerance: tracer.DefaultTolerance,
	}
	if sc.Camera == nil {
		logger.Info("no camera defined; looking down -z from the origin")
		sc.Camera = NewCamera(types.Vec3{}, types.XYZ(0, 0, -1), types.XYZ(0, 1, 0))
	}

	var indexed, others []*geometry.Object
	for id, o := range b.objects {
		if !b.roots[id] {
			continue
		}
		switch {
		case o.BBox.IsEmpty():
			logger.Warningf("dropping %s object %d: it encloses no space", o.Kind(), o.ID)
		case o.Kind() == geometry.AlgebraicKind || o.BBox.IsInfinite():
			others = append(others, o)
		default:
			indexed = append(indexed, o)
		}
	}
	sc.Others = accel.NewList(others)

	if len(indexed) == 0 && len(others) == 0 {
		logger.Warning("scene holds no visible objects")
	}

	if len(indexed) != 0 {
		world := types.EmptyBBox()
		for _, o := range indexed {
			world = world.Union(o.BBox)
		}
		sc.Tolerance = world.Diagonal() / 2 * tracer.DefaultTolerance
		for _, o := range indexed {
			o.BBox = o.BBox.Pad(sc.Tolerance)
		}

		idx, err := accel.New(opts.Index, indexed, opts.IndexOptions)
		if err != nil {
			return nil, errors.Wrap(err, "scene: could not build spatial index")
		}
		sc.Index = idx
		sc.BBox = idx.BBox().Pad(sc.Tolerance)

		logger.Infof(
			"world bounding box: %+11.4f %+11.4f %+11.4f / %+11.4f %+11.4f %+11.4f",
			sc.BBox.Min[0], sc.BBox.Min[1], sc.BBox.Min[2],
			sc.BBox.Max[0], sc.BBox.Max[1], sc.BBox.Max[2],
		)
	}

	logger.Debugf(
		"built scene (%d indexed, %d unbounded, %d lights, tolerance %g) in %d ms",
		len(indexed), len(others), len(sc.Lights), sc.Tolerance, time.Since(start).Nanoseconds()/1000000,
	)
	return sc, nil
}
