package geometry

import (
	"errors"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

var (
	// ErrMalformedCSG is returned for composites with a missing operand.
	ErrMalformedCSG = errors.New("geometry: malformed csg tree")
)

// CSG combines two operand objects. The operands are placed in world
// space, so the object wrapping a CSG must use the identity transform.
// Crossings keep referring to the operand leaf that produced them.
type CSG struct {
	Op          csg.Op
	Left, Right *Object
}

// NewCSG marks both operands as CSG members.
func NewCSG(op csg.Op, left, right *Object) (*CSG, error) {
	if left == nil || right == nil || op > csg.Subtract {
		return nil, ErrMalformedCSG
	}
	left.InCSG = true
	right.InCSG = true
	return &CSG{Op: op, Left: left, Right: right}, nil
}

func (c *CSG) Kind() Kind { return CSGKind }

func (c *CSG) Flags() Flags { return Flags{CheckBBox: true, SelfShadowing: true} }

func (c *CSG) Bounds() types.BBox {
	return csg.Bounds(c.Op, c.Left.BBox, c.Right.BBox)
}

func (c *CSG) Intersect(ctx *tracer.Context, r *tracer.Ray, _ *Object) tracer.HitID {
	left := c.Left.Intersect(ctx, r)
	if left == tracer.Nil && c.Op != csg.Union {
		return tracer.Nil
	}
	right := c.Right.Intersect(ctx, r)
	return csg.Merge(ctx.Arena, left, right, c.Op)
}

// Leaves calls fn for every primitive operand below c.
func (c *CSG) Leaves(fn func(o *Object)) {
	for _, o := range [2]*Object{c.Left, c.Right} {
		if sub, ok := o.Prim.(*CSG); ok {
			sub.Leaves(fn)
			continue
		}
		fn(o)
	}
}

// Normal is never consulted; crossings name the operand leaf.
func (c *CSG) Normal(types.Vec3, *tracer.Hit) types.Vec3 {
	return types.Vec3{}
}

func (c *CSG) SurfaceColor(types.Vec3, *tracer.Hit, Tile) (types.Color, bool) {
	return types.Color{}, false
}
