package accel

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// List tests every object for every ray. It holds the objects no other
// index can take (unbounded and algebraic surfaces) and serves as the
// reference the other indices are checked against.
type List struct {
	objs []*geometry.Object
	ids  []int32
	bbox types.BBox
}

// NewList creates a list index. An empty list never reports a hit.
func NewList(objs []*geometry.Object) *List {
	l := &List{
		objs: objs,
		ids:  make([]int32, len(objs)),
		bbox: types.EmptyBBox(),
	}
	for i, o := range objs {
		l.ids[i] = int32(i)
		l.bbox = l.bbox.Union(o.BBox)
	}
	return l
}

func (l *List) Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	hit, _ := scan(ctx, r, l.objs, l.ids, nil)
	return hit
}

func (l *List) BBox() types.BBox { return l.bbox }

func (l *List) Len() int { return len(l.objs) }

func (l *List) Stats() Stats {
	return Stats{Kind: ListKind, Objects: len(l.objs)}
}
