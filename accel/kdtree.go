package accel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

const (
	DefaultMaxDepth = 35

	// Above SplitCutoff1 objects a split may double the number of object
	// references; between the two cutoffs it may add a third. At or below
	// SplitCutoff2 a split must not duplicate anything.
	SplitCutoff1 = 40
	SplitCutoff2 = 3
)

type kdNode struct {
	once sync.Once

	bbox  types.BBox
	depth int
	objs  []int32

	// Set once the node has been split.
	axis        int
	split       float64
	left, right *kdNode
}

// KDTree is a k-d tree whose leaves are split the first time a ray
// reaches them. Splitting is synchronised per node so the tree can be
// shared between workers.
type KDTree struct {
	objs     []*geometry.Object
	root     *kdNode
	maxDepth int

	splits  atomic.Int64
	leaves  atomic.Int64
	deepest atomic.Int64
}

// NewKDTree creates a tree over objs. Only the root is built; the rest of
// the tree grows as rays pass through it.
func NewKDTree(objs []*geometry.Object, maxDepth int) (*KDTree, error) {
	bbox, err := boundsOf(objs)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	root := &kdNode{bbox: bbox, objs: make([]int32, len(objs))}
	for i := range objs {
		root.objs[i] = int32(i)
	}

	logger.Debugf("k-d tree root: %d objects, bbox %v - %v", len(objs), bbox.Min, bbox.Max)
	return &KDTree{objs: objs, root: root, maxDepth: maxDepth}, nil
}

func (t *KDTree) BBox() types.BBox { return t.root.bbox }

// Stats reports the part of the tree built so far.
func (t *KDTree) Stats() Stats {
	return Stats{
		Kind:     KDTreeKind,
		Objects:  len(t.objs),
		Nodes:    1 + 2*int(t.splits.Load()),
		Leaves:   int(t.leaves.Load()),
		MaxDepth: int(t.deepest.Load()),
	}
}

// Expand splits every node of the tree.
func (t *KDTree) Expand() {
	start := time.Now()
	var walk func(n *kdNode)
	walk = func(n *kdNode) {
		n.once.Do(func() { t.splitNode(n) })
		if n.left != nil {
			walk(n.left)
			walk(n.right)
		}
	}
	walk(t.root)

	s := t.Stats()
	logger.Debugf(
		"k-d tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		s.MaxDepth, s.Nodes, s.Leaves,
	)
}

func (t *KDTree) Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	if !t.root.bbox.Hit(r.Org, r.Dir) {
		return tracer.Nil
	}
	return t.trace(ctx, r, t.root)
}

func (t *KDTree) trace(ctx *tracer.Context, r *tracer.Ray, n *kdNode) tracer.HitID {
	n.once.Do(func() { t.splitNode(n) })

	if n.left == nil {
		return t.checkLeaf(ctx, r, n)
	}

	// Visit the child holding the origin first; the other one can only
	// hold farther crossings.
	near, far := n.left, n.right
	toFar := r.Dir[n.axis] > 0
	if r.Org[n.axis] >= n.split {
		near, far = far, near
		toFar = r.Dir[n.axis] < 0
	}

	if near.bbox.Hit(r.Org, r.Dir) {
		if hit := t.trace(ctx, r, near); hit != tracer.Nil {
			return hit
		}
	}

	if !toFar || !far.bbox.Hit(r.Org, r.Dir) {
		return tracer.Nil
	}
	return t.trace(ctx, r, far)
}

func (t *KDTree) checkLeaf(ctx *tracer.Context, r *tracer.Ray, n *kdNode) tracer.HitID {
	hit, occluded := scan(ctx, r, t.objs, n.objs, nil)
	if hit == tracer.Nil || occluded {
		return hit
	}

	// The object may reach past the leaf; a crossing beyond it belongs to
	// a later leaf.
	if beyond(r, ctx.Arena.Get(hit).T, n.bbox) {
		ctx.Arena.Free(hit)
		return tracer.Nil
	}
	return hit
}

// splitNode decides whether n stays a leaf and, if not, partitions its
// objects around the middle of the axis that duplicates the fewest object
// references.
func (t *KDTree) splitNode(n *kdNode) {
	if len(n.objs) <= 1 || n.depth >= t.maxDepth {
		t.leaves.Add(1)
		return
	}

	vals := n.bbox.Center()
	var left, right, extras, tot [3]int
	for _, id := range n.objs {
		b := t.objs[id].BBox
		for ax := 0; ax < 3; ax++ {
			switch {
			case b.Max[ax] < vals[ax]:
				left[ax]++
			case b.Min[ax] > vals[ax]:
				right[ax]++
			default:
				extras[ax]++
			}
		}
	}

	total := len(n.objs)
	if total > SplitCutoff2 {
		if total < SplitCutoff1 {
			total += total / 3
		} else {
			total = (total - 1) * 2
		}
	}

	best := 0
	for ax := 0; ax < 3; ax++ {
		tot[ax] = left[ax] + right[ax] + 2*extras[ax]
		if ax > 0 && (tot[ax] < tot[best] || (tot[ax] == tot[best] && extras[ax] <= extras[best])) {
			best = ax
		}
	}

	if tot[best] > total || !t.splitAt(n, best, vals[best]) {
		t.leaves.Add(1)
	}
}

// splitAt moves the objects of n into two children separated by the plane
// axis = val. Objects crossing the plane go to both sides unless one side
// would be empty; then the plane is moved to the edge of the other side's
// objects and only the crossers that reach past it are duplicated.
func (t *KDTree) splitAt(n *kdNode, axis int, val float64) bool {
	var left, right, both []int32
	for _, id := range n.objs {
		b := t.objs[id].BBox
		switch {
		case b.Max[axis] < val:
			left = append(left, id)
		case b.Min[axis] > val:
			right = append(right, id)
		default:
			both = append(both, id)
		}
	}

	switch {
	case len(both) == 0:
	case len(left) == 0 && len(right) == 0:
		return false
	case len(right) == 0:
		val = t.objs[left[0]].BBox.Max[axis]
		for _, id := range left[1:] {
			val = max(val, t.objs[id].BBox.Max[axis])
		}
		for _, id := range both {
			if t.objs[id].BBox.Min[axis] < val {
				left = append(left, id)
			}
			right = append(right, id)
		}
	case len(left) == 0:
		val = t.objs[right[0]].BBox.Min[axis]
		for _, id := range right[1:] {
			val = min(val, t.objs[id].BBox.Min[axis])
		}
		for _, id := range both {
			if t.objs[id].BBox.Max[axis] > val {
				right = append(right, id)
			}
			left = append(left, id)
		}
	default:
		left = append(left, both...)
		right = append(right, both...)
	}

	l := &kdNode{bbox: n.bbox, depth: n.depth + 1, objs: left}
	r := &kdNode{bbox: n.bbox, depth: n.depth + 1, objs: right}
	l.bbox.Max[axis] = val
	r.bbox.Min[axis] = val
	t.shrink(l)
	t.shrink(r)

	n.axis, n.split = axis, val
	n.left, n.right = l, r
	n.objs = nil

	t.splits.Add(1)
	for d := int64(n.depth + 1); ; {
		cur := t.deepest.Load()
		if d <= cur || t.deepest.CompareAndSwap(cur, d) {
			break
		}
	}
	return true
}

// shrink clips the node box to the bounds of its objects.
func (t *KDTree) shrink(n *kdNode) {
	if len(n.objs) == 0 {
		return
	}
	b := types.EmptyBBox()
	for _, id := range n.objs {
		b = b.Union(t.objs[id].BBox)
	}
	n.bbox = n.bbox.Overlap(b)
}
