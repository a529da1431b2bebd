package hfield

import (
	"fmt"
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

// ErrPoolExhausted is matched by every *PoolExhaustedError.
var ErrPoolExhausted = errors.New("hfield: pool exhausted")

// PoolExhaustedError is raised (as a panic) when a single trace needs more
// quad-tree nodes than the cache can hold. It is fatal for the frame.
type PoolExhaustedError struct {
	Pool     string
	Capacity int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("hfield: %s pool exhausted (capacity %d)", e.Pool, e.Capacity)
}

// Is lets errors.Is match the sentinel.
func (e *PoolExhaustedError) Is(target error) bool {
	return target == ErrPoolExhausted
}

// Config sizes a Cache.
type Config struct {
	// Number of node pairs the quad-tree can hold.
	Capacity int

	// When the free pair count drops to ResetCutoff the used bits of all
	// nodes are cleared before the next trace. When it drops further to
	// CollectCutoff every subtree that was not visited since the reset is
	// returned to the free list.
	ResetCutoff   int
	CollectCutoff int

	// Number of cells whose triangles are kept. Older cells are evicted in
	// ring order.
	MaxTris int
}

// DefaultConfig matches the pool sizes of the classic renderer.
var DefaultConfig = Config{
	Capacity:      5000,
	ResetCutoff:   500,
	CollectCutoff: 300,
	MaxTris:       2500,
}

// Stats reports the pool occupancy of a cache.
type Stats struct {
	Pairs       int
	FreePairs   int
	Cells       int
	Resets      int
	Collections int
	Evictions   int
}

// A Crossing is a ray / field intersection in object space.
type Crossing struct {
	T float64

	// Lowest sample of the cell and the triangle inside it.
	Cell int
	Tri  int

	// Barycentric weights of the second vertex and of the cell centre.
	W1, W2 float64
}

const none int32 = -1

type node struct {
	minz, maxz float64
	used       bool

	// Index of the child pair, or none.
	sub int32

	// Ring slot holding the triangles of a leaf, or none.
	tris int32
}

type triangle struct {
	a      types.Vec3
	n      types.Vec3
	cnst   float64
	e1, e2 types.Vec2
	invDet float64
}

type cell struct {
	owner int32
	ind   int
	tri   [4]triangle
}

// A Cache is the lazily built quad-tree over a Field together with the
// triangles of recently visited cells. Node storage never grows: nodes are
// allocated in pairs out of a fixed pool and reclaimed by Reset / Collect.
// A Cache belongs to a single worker.
type Cache struct {
	field *Field
	cfg   Config

	// nodes[0] is the root; pair p holds nodes 1+2p and 2+2p.
	nodes []node
	owner []int32
	free  []int32

	cells    []cell
	nextCell int
	numCells int

	resetPending bool
	stats        Stats
}

// NewCache allocates the pools for f.
func NewCache(f *Field, cfg Config) *Cache {
	c := &Cache{
		field: f,
		cfg:   cfg,
		nodes: make([]node, 1+2*cfg.Capacity),
		owner: make([]int32, cfg.Capacity),
		free:  make([]int32, 0, cfg.Capacity),
		cells: make([]cell, cfg.MaxTris),
	}

	c.nodes[0] = node{minz: f.minz, maxz: f.maxz, sub: none, tris: none}
	for p := cfg.Capacity - 1; p >= 0; p-- {
		c.owner[p] = none
		c.free = append(c.free, int32(p))
	}
	for i := range c.cells {
		c.cells[i].owner = none
	}
	return c
}

// Stats returns the current pool occupancy.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.FreePairs = len(c.free)
	s.Pairs = c.cfg.Capacity - len(c.free)
	s.Cells = c.numCells
	return s
}

// Reset clears the used bit of every node so the next Collect can reclaim
// subtrees that are not visited again.
func (c *Cache) Reset() {
	for i := range c.nodes {
		c.nodes[i].used = false
	}
	c.resetPending = false
	c.stats.Resets++
}

// Collect returns every pair whose parent node has not been used since the
// last Reset to the free list. It returns the number of reclaimed pairs.
func (c *Cache) Collect() int {
	var n int
	for p, parent := range c.owner {
		if parent == none || c.nodes[parent].used {
			continue
		}
		if c.nodes[parent].sub == int32(p) {
			c.nodes[parent].sub = none
		}
		c.owner[p] = none
		c.free = append(c.free, int32(p))
		n++
	}
	c.stats.Collections++
	logger.Debugf("collected %d node pairs; %d free", n, len(c.free))
	return n
}

// Intersect returns the nearest crossing of the object space ray beyond tol.
func (c *Cache) Intersect(org, dir types.Vec3, tol float64) (Crossing, bool) {
	if c.resetPending {
		c.Reset()
	}

	f := c.field
	return c.trace(0, 0, f.XSize-1, 0, f.YSize-1, org, dir, tol)
}

func (c *Cache) trace(nd int32, sx, ex, sy, ey int, org, dir types.Vec3, tol float64) (Crossing, bool) {
	n := &c.nodes[nd]
	n.used = true

	f := c.field
	box := types.BBox{
		Min: types.XYZ(float64(sx)/f.size, float64(sy)/f.size, n.minz),
		Max: types.XYZ(float64(ex)/f.size, float64(ey)/f.size, n.maxz),
	}.Pad(tol)
	if !box.Hit(org, dir) {
		return Crossing{}, false
	}

	if ex-sx == 1 && ey-sy == 1 {
		return c.leaf(nd, sy*f.XSize+sx, org, dir, tol)
	}

	if n.sub == none {
		c.split(nd, sx, ex, sy, ey)
	}
	sub := c.nodes[nd].sub
	lo, hi := 1+2*sub, 2+2*sub

	// Children of a pair cover [s, mid] and [mid, e] along the split axis.
	axis, mid := types.Y, sy+(ey-sy)/2
	if ex-sx > ey-sy {
		axis, mid = types.X, sx+(ex-sx)/2
	}
	lox, hix, loy, hiy := sx, ex, sy, ey
	if axis == types.X {
		lox, hix = mid, mid
	} else {
		loy, hiy = mid, mid
	}

	traceLo := func() (Crossing, bool) {
		if axis == types.X {
			return c.trace(lo, sx, lox, sy, ey, org, dir, tol)
		}
		return c.trace(lo, sx, ex, sy, loy, org, dir, tol)
	}
	traceHi := func() (Crossing, bool) {
		if axis == types.X {
			return c.trace(hi, hix, ex, sy, ey, org, dir, tol)
		}
		return c.trace(hi, sx, ex, hiy, ey, org, dir, tol)
	}

	if org[axis] < float64(mid)/f.size {
		if x, ok := traceLo(); ok || dir[axis] <= 0 {
			return x, ok
		}
		return traceHi()
	}
	if x, ok := traceHi(); ok || dir[axis] >= 0 {
		return x, ok
	}
	return traceLo()
}

// split hands a fresh pair of children to node nd.
func (c *Cache) split(nd int32, sx, ex, sy, ey int) {
	if len(c.free) == 0 {
		logger.Criticalf("node pool exhausted (capacity %d)", c.cfg.Capacity)
		panic(&PoolExhaustedError{Pool: "node", Capacity: c.cfg.Capacity})
	}

	p := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.owner[p] = nd
	c.nodes[nd].sub = p

	f := c.field
	var lo, hi node
	if ex-sx > ey-sy {
		mid := sx + (ex-sx)/2
		lo.minz, lo.maxz = f.zrange(sx, mid, sy, ey)
		hi.minz, hi.maxz = f.zrange(mid, ex, sy, ey)
	} else {
		mid := sy + (ey-sy)/2
		lo.minz, lo.maxz = f.zrange(sx, ex, sy, mid)
		hi.minz, hi.maxz = f.zrange(sx, ex, mid, ey)
	}
	lo.sub, lo.tris = none, none
	hi.sub, hi.tris = none, none
	c.nodes[1+2*p], c.nodes[2+2*p] = lo, hi

	switch len(c.free) {
	case c.cfg.ResetCutoff:
		c.resetPending = true
	case c.cfg.CollectCutoff:
		c.Collect()
	}
}

// leaf tests the four triangles of the cell with lowest sample ind.
func (c *Cache) leaf(nd int32, ind int, org, dir types.Vec3, tol float64) (Crossing, bool) {
	slot := c.nodes[nd].tris
	if slot == none {
		slot = c.materialise(nd, ind)
	}

	best := Crossing{T: math.Inf(1)}
	for k := range c.cells[slot].tri {
		tri := &c.cells[slot].tri[k]
		dn := tri.n.Dot(dir)
		if dn == 0 {
			continue
		}
		t := -(tri.n.Dot(org) + tri.cnst) / dn
		if t <= tol || t >= best.T {
			continue
		}

		pt := org.AddScaled(dir, t)
		d := types.XY(pt[0]-tri.a[0], pt[1]-tri.a[1])
		w1 := cross2(d, tri.e2) * tri.invDet
		if w1 < 0 || w1 > 1 {
			continue
		}
		w2 := cross2(tri.e1, d) * tri.invDet
		if w2 < 0 || w1+w2 > 1 {
			continue
		}
		best = Crossing{T: t, Cell: ind, Tri: k, W1: w1, W2: w2}
	}
	return best, !math.IsInf(best.T, 1)
}

// materialise builds the triangles of cell ind in the next ring slot,
// evicting whichever leaf held it before.
func (c *Cache) materialise(nd int32, ind int) int32 {
	slot := int32(c.nextCell)
	c.nextCell = (c.nextCell + 1) % len(c.cells)

	ce := &c.cells[slot]
	if prev := ce.owner; prev != none {
		if c.nodes[prev].tris == slot {
			c.nodes[prev].tris = none
		}
		c.stats.Evictions++
	} else {
		c.numCells++
	}
	ce.owner, ce.ind = nd, ind
	c.nodes[nd].tris = slot

	f := c.field
	e := f.centre(ind)
	for k := range ce.tri {
		c0, c1 := f.corners(ind, k)
		a, b := f.Vertex(c0), f.Vertex(c1)

		tri := &ce.tri[k]
		tri.a = a
		tri.n = b.Sub(a).Cross(e.Sub(a))
		tri.cnst = -tri.n.Dot(a)
		tri.e1 = types.XY(b[0]-a[0], b[1]-a[1])
		tri.e2 = types.XY(e[0]-a[0], e[1]-a[1])
		tri.invDet = 1 / cross2(tri.e1, tri.e2)
	}
	return slot
}

func cross2(a, b types.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}
