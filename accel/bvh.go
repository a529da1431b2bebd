package accel

import (
	"math"
	"time"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

const (
	DefaultLeafSize = 2

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength = 1e-3

	// If the split step (calculated as side length / (1024 / (depth+1)))
	// is less than this threshold the BVH builder will not evaluate
	// split candidates.
	minSplitStep = 1e-5
)

// A BVH node. Leaves reference refs[first:first+count]; inner nodes the
// two child nodes.
type bvhNode struct {
	bbox types.BBox

	left, right uint32
	first       uint32
	count       uint32
	axis        int
}

func (n *bvhNode) isLeaf() bool {
	return n.count != 0
}

// Set the child node indices of an inner node.
func (n *bvhNode) setChildNodes(left, right uint32) {
	n.left, n.right = left, right
}

type splitScore struct {
	axis       int
	splitPoint float64

	leftCount, rightCount int
	score                 float64
}

// BVH is a bounding volume hierarchy built eagerly with the surface area
// heuristic. Every object is referenced by exactly one leaf.
type BVH struct {
	objs []*geometry.Object

	// Nodes stored as a contiguous list; the root is node 0.
	nodes []bvhNode
	refs  []int32

	// The maximum number of objects a leaf is created for without trying
	// to split it.
	minLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	leaves   int
	maxDepth int
}

// Construct a BVH over objs.
//
// The builder uses SAH for scoring splits:
// score = num_objects * node bbox face area.
//
// Work lists with at most leafSize objects always become leaves.
func NewBVH(objs []*geometry.Object, leafSize int) (*BVH, error) {
	if _, err := boundsOf(objs); err != nil {
		return nil, err
	}
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}

	b := &BVH{
		objs:         objs,
		nodes:        make([]bvhNode, 0, 2*len(objs)),
		refs:         make([]int32, 0, len(objs)),
		minLeafItems: leafSize,
		scoreChan:    make(chan splitScore),
	}

	workList := make([]int32, len(objs))
	for i := range objs {
		workList[i] = int32(i)
	}

	start := time.Now()
	b.partition(workList, 0)
	b.scoreChan = nil
	logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.maxDepth, len(b.nodes), b.leaves,
	)
	return b, nil
}

// Partition worklist and return node index.
func (b *BVH) partition(workList []int32, depth int) uint32 {
	b.maxDepth = max(b.maxDepth, depth)

	node := bvhNode{bbox: types.EmptyBBox()}
	for _, id := range workList {
		node.bbox = node.bbox.Union(b.objs[id].BBox)
	}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, workList)
	}

	bestScore := b.scorePartition(workList)
	var bestSplit *splitScore

	// Run axis split tests in parallel
	pendingScores := 0
	side := node.bbox.Max.Sub(node.bbox.Min)
	for axis := 0; axis < 3; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		// We want the split steps to become more granular the deeper we go
		splitStep := side[axis] / (1024.0 / float64(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.bbox.Min[axis] + splitStep; splitPoint < node.bbox.Max[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis int, splitPoint float64) {
				lCount, rCount, score := b.scoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split. Ties go to the lowest
	// axis and split point so that builds are reproducible.
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score < bestScore || (bestSplit != nil && candidate.score == bestScore && candidate.before(bestSplit)) {
			bestScore = candidate.score
			bestSplit = &candidate
		}
	}

	// If we can't find a split that improves the current node score create a leaf
	if bestSplit == nil {
		return b.createLeaf(&node, workList)
	}

	// split work list into two sets
	leftWorkList := make([]int32, 0, bestSplit.leftCount)
	rightWorkList := make([]int32, 0, bestSplit.rightCount)
	for _, id := range workList {
		if b.objs[id].BBox.Center()[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, id)
		} else {
			rightWorkList = append(rightWorkList, id)
		}
	}

	// Add node to list
	node.axis = bestSplit.axis
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)

	// Partition children and update node indices
	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].setChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

func (s *splitScore) before(other *splitScore) bool {
	if s.axis != other.axis {
		return s.axis < other.axis
	}
	return s.splitPoint < other.splitPoint
}

// Setup the given node as a leaf containing all items in the work list.
// Returns the index to the node in the bvh node array.
func (b *BVH) createLeaf(node *bvhNode, workList []int32) uint32 {
	node.first = uint32(len(b.refs))
	node.count = uint32(len(workList))
	b.refs = append(b.refs, workList...)

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)
	b.leaves++
	return uint32(nodeIndex)
}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat64) when it enounters such cases.
func (b *BVH) scoreSplit(workList []int32, axis int, splitPoint float64) (leftCount, rightCount int, score float64) {
	lbox, rbox := types.EmptyBBox(), types.EmptyBBox()
	for _, id := range workList {
		box := b.objs[id].BBox
		if box.Center()[axis] < splitPoint {
			leftCount++
			lbox = lbox.Union(box)
		} else {
			rightCount++
			rbox = rbox.Union(box)
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat64
	}
	return leftCount, rightCount, float64(leftCount)*faceArea(lbox) + float64(rightCount)*faceArea(rbox)
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
func (b *BVH) scorePartition(workList []int32) float64 {
	if len(workList) == 0 {
		return math.MaxFloat64
	}
	box := types.EmptyBBox()
	for _, id := range workList {
		box = box.Union(b.objs[id].BBox)
	}
	return float64(len(workList)) * faceArea(box)
}

// Half the surface area of a box.
func faceArea(box types.BBox) float64 {
	side := box.Max.Sub(box.Min)
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}

func (b *BVH) BBox() types.BBox { return b.nodes[0].bbox }

func (b *BVH) Stats() Stats {
	return Stats{
		Kind:     BVHKind,
		Objects:  len(b.objs),
		Nodes:    len(b.nodes),
		Leaves:   b.leaves,
		MaxDepth: b.maxDepth,
	}
}

func (b *BVH) Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	best := tracer.Nil
	b.trace(ctx, r, 0, &best)
	return best
}

// trace keeps the nearest crossing below node idx in best. It returns true
// once a shadow ray met an opaque occluder, which ends the traversal.
func (b *BVH) trace(ctx *tracer.Context, r *tracer.Ray, idx uint32, best *tracer.HitID) bool {
	a := ctx.Arena
	n := &b.nodes[idx]

	// Nothing in a box entered beyond the best crossing can be nearer.
	tmin, _, ok := n.bbox.Clip(r.Org, r.Dir)
	if !ok || (*best != tracer.Nil && tmin > a.Get(*best).T) {
		return false
	}

	if !n.isLeaf() {
		near, far := n.left, n.right
		if r.Dir[n.axis] < 0 {
			near, far = far, near
		}
		if b.trace(ctx, r, near, best) {
			return true
		}
		return b.trace(ctx, r, far, best)
	}

	hit, occluded := scan(ctx, r, b.objs, b.refs[n.first:n.first+n.count], nil)
	switch {
	case hit == tracer.Nil:
	case occluded:
		a.Free(*best)
		*best = hit
		return true
	case *best == tracer.Nil || a.Get(hit).T < a.Get(*best).T:
		a.Free(*best)
		*best = hit
	default:
		a.Free(hit)
	}
	return false
}
