// Package accel implements the spatial indices used to find the nearest
// object along a ray: a lazily split k-d tree, a uniform grid, a bounding
// volume hierarchy and a plain list. Indices are built once and shared read-only between workers.
package accel

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var logger = log.New("accel")

var (
	ErrNoObjects = errors.New("accel: no objects to index")
	ErrUnbounded = errors.New("accel: cannot index an object with an infinite bounding box")
)

// Kind selects an index implementation.
type Kind string

const (
	KDTreeKind Kind = "kdtree"
	GridKind   Kind = "grid"
	BVHKind    Kind = "bvh"
	ListKind   Kind = "none"
)

// An Index returns the nearest crossing of a ray with the objects it holds.
type Index interface {
	// Trace returns a list whose head is the nearest crossing, or
	// tracer.Nil. For shadow rays any opaque crossing short of MaxT may be
	// returned instead of the nearest one.
	Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID

	BBox() types.BBox

	Stats() Stats
}

// Index statistics. Fields that do not apply to an index are zero.
type Stats struct {
	Kind    Kind
	Objects int

	// k-d tree and BVH
	Nodes    int
	Leaves   int
	MaxDepth int

	// grid
	Voxels   int
	Occupied int
	Refs     int
}

// New builds an index of the given kind.
func New(kind Kind, objs []*geometry.Object, opts Options) (Index, error) {
	switch kind {
	case KDTreeKind:
		return NewKDTree(objs, opts.MaxDepth)
	case GridKind:
		return NewGrid(objs, opts.GridSize[0], opts.GridSize[1], opts.GridSize[2])
	case BVHKind:
		return NewBVH(objs, opts.LeafSize)
	case ListKind:
		return NewList(objs), nil
	}
	return nil, errors.Errorf("accel: unknown index kind %q", kind)
}

// Options carries the build parameters of every index kind.
type Options struct {
	MaxDepth int
	GridSize [3]int
	LeafSize int
}

// DefaultOptions returns the classic index parameters.
func DefaultOptions() Options {
	return Options{
		MaxDepth: DefaultMaxDepth,
		GridSize: [3]int{DefaultGridSize, DefaultGridSize, DefaultGridSize},
		LeafSize: DefaultLeafSize,
	}
}

// opaque reports whether a crossing of o certainly blocks a shadow ray.
// Textures may change transparency so textured objects never qualify.
func opaque(o *geometry.Object) bool {
	return len(o.Textures) == 0 && !o.Surface.Transparent()
}

// scan traces objs[ids] and keeps the nearest crossing. The second result
// is set when a shadow ray met an opaque occluder; that hit needs no
// further validation.
func scan(ctx *tracer.Context, r *tracer.Ray, objs []*geometry.Object, ids []int32, skip func(o *geometry.Object) bool) (tracer.HitID, bool) {
	a := ctx.Arena
	best := tracer.Nil
	for _, id := range ids {
		o := objs[id]
		if skip != nil && skip(o) {
			continue
		}

		hit := o.Trace(ctx, r)
		if hit == tracer.Nil {
			continue
		}

		if r.Kind == tracer.Shadow && a.Get(hit).T < r.MaxT && opaque(o) {
			a.Free(best)
			return hit, true
		}

		if best == tracer.Nil || a.Get(hit).T < a.Get(best).T {
			a.Free(best)
			best = hit
		} else {
			a.Free(hit)
		}
	}
	return best, false
}

// beyond reports whether the crossing at t lies past the side of box the
// ray leaves through. The entry side needs no test: anything before it
// was already found in an earlier cell.
func beyond(r *tracer.Ray, t float64, box types.BBox) bool {
	for i := 0; i < 3; i++ {
		v := r.Org[i] + r.Dir[i]*t
		if r.Dir[i] < 0 {
			if v < box.Min[i] {
				return true
			}
		} else if v > box.Max[i] {
			return true
		}
	}
	return false
}

func boundsOf(objs []*geometry.Object) (types.BBox, error) {
	if len(objs) == 0 {
		return types.BBox{}, ErrNoObjects
	}
	box := types.EmptyBBox()
	for _, o := range objs {
		if o.BBox.IsInfinite() {
			return types.BBox{}, errors.Wrapf(ErrUnbounded, "object %q", o.Name)
		}
		box = box.Union(o.BBox)
	}
	return box, nil
}
