package accel

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

const (
	DefaultGridSize = 20

	// Direction components smaller than this never leave their slab.
	gridSmall = 1e-5
)

// Grid is a uniform voxel grid walked with a 3D DDA. Objects are listed in
// every voxel their box overlaps; the per object mailbox makes sure each
// is intersected at most once per ray.
type Grid struct {
	objs   []*geometry.Object
	bbox   types.BBox
	n      [3]int
	delta  types.Vec3
	voxels [][]int32
	refs   int
}

// NewGrid creates an nx x ny x nz grid over the bounds of objs.
func NewGrid(objs []*geometry.Object, nx, ny, nz int) (*Grid, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, errors.Errorf("accel: invalid grid size %dx%dx%d", nx, ny, nz)
	}
	bbox, err := boundsOf(objs)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		objs:   objs,
		n:      [3]int{nx, ny, nz},
		voxels: make([][]int32, nx*ny*nz),
	}

	// Flat scenes still need voxels with some depth.
	for ax := 0; ax < 3; ax++ {
		if bbox.Max[ax]-bbox.Min[ax] <= 0 {
			bbox.Min[ax] -= tracer.DefaultTolerance
			bbox.Max[ax] += tracer.DefaultTolerance
		}
		g.delta[ax] = (bbox.Max[ax] - bbox.Min[ax]) / float64(g.n[ax])
	}
	g.bbox = bbox

	for id, o := range objs {
		lo := g.cell(o.BBox.Min)
		hi := g.cell(o.BBox.Max)
		for i := lo[0]; i <= hi[0]; i++ {
			for j := lo[1]; j <= hi[1]; j++ {
				for k := lo[2]; k <= hi[2]; k++ {
					v := g.index(i, j, k)
					g.voxels[v] = append(g.voxels[v], int32(id))
					g.refs++
				}
			}
		}
	}

	s := g.Stats()
	logger.Debugf("grid %dx%dx%d: %d objects, %d occupied voxels, %d references", nx, ny, nz, s.Objects, s.Occupied, s.Refs)
	return g, nil
}

func (g *Grid) index(i, j, k int) int {
	return (i*g.n[1]+j)*g.n[2] + k
}

// cell returns the voxel holding p, clamped to the grid.
func (g *Grid) cell(p types.Vec3) [3]int {
	var c [3]int
	for ax := 0; ax < 3; ax++ {
		c[ax] = int((p[ax] - g.bbox.Min[ax]) / g.delta[ax])
		if c[ax] < 0 {
			c[ax] = 0
		} else if c[ax] >= g.n[ax] {
			c[ax] = g.n[ax] - 1
		}
	}
	return c
}

func (g *Grid) voxelBox(c [3]int) types.BBox {
	var b types.BBox
	for ax := 0; ax < 3; ax++ {
		b.Min[ax] = g.bbox.Min[ax] + float64(c[ax])*g.delta[ax]
		b.Max[ax] = b.Min[ax] + g.delta[ax]
	}
	return b
}

func (g *Grid) BBox() types.BBox { return g.bbox }

func (g *Grid) Stats() Stats {
	s := Stats{
		Kind:    GridKind,
		Objects: len(g.objs),
		Voxels:  len(g.voxels),
		Refs:    g.refs,
	}
	for _, v := range g.voxels {
		if len(v) != 0 {
			s.Occupied++
		}
	}
	return s
}

func (g *Grid) Trace(ctx *tracer.Context, r *tracer.Ray) tracer.HitID {
	t1, _, ok := g.bbox.Clip(r.Org, r.Dir)
	if !ok {
		return tracer.Nil
	}
	t1 = math.Max(t1, 0)

	c := g.cell(r.At(t1))

	var step, end [3]int
	var next, gap [3]float64
	for ax := 0; ax < 3; ax++ {
		d := r.Dir[ax]
		switch {
		case d > gridSmall:
			step[ax], end[ax] = 1, g.n[ax]
			gap[ax] = g.delta[ax] / d
			next[ax] = (g.bbox.Min[ax] + float64(c[ax]+1)*g.delta[ax] - r.Org[ax]) / d
		case d < -gridSmall:
			step[ax], end[ax] = -1, -1
			gap[ax] = -g.delta[ax] / d
			next[ax] = (g.bbox.Min[ax] + float64(c[ax])*g.delta[ax] - r.Org[ax]) / d
		default:
			end[ax] = c[ax]
			gap[ax], next[ax] = types.Huge, types.Huge
		}
	}

	// Shadow rays stop at the voxel holding the light.
	if r.Kind == tracer.Shadow && r.MaxT < types.Huge {
		if r.MaxT < t1 {
			return tracer.Nil
		}
		lc := r.At(r.MaxT)
		for ax := 0; ax < 3; ax++ {
			if step[ax] == 0 {
				continue
			}
			l := int(math.Floor((lc[ax] - g.bbox.Min[ax]) / g.delta[ax]))
			if l >= 0 && l < g.n[ax] && (l-c[ax])*step[ax] >= 0 {
				end[ax] = l + step[ax]
			}
		}
	}

	tcur := t1
	for {
		ax := 2
		if next[0] < next[1] {
			if next[0] < next[2] {
				ax = 0
			}
		} else if next[1] < next[2] {
			ax = 1
		}

		if ids := g.voxels[g.index(c[0], c[1], c[2])]; len(ids) != 0 {
			if hit := g.checkVoxel(ctx, r, c, ids, tcur, next[ax]); hit != tracer.Nil {
				return hit
			}
		}

		c[ax] += step[ax]
		if c[ax] == end[ax] {
			return tracer.Nil
		}
		tcur = next[ax]
		next[ax] += gap[ax]
	}
}

// checkVoxel tests the objects of voxel c whose boxes overlap the part of
// the ray between t0 and t1 and keeps a crossing only if it lies inside
// the voxel.
func (g *Grid) checkVoxel(ctx *tracer.Context, r *tracer.Ray, c [3]int, ids []int32, t0, t1 float64) tracer.HitID {
	p0, p1 := r.At(t0), r.At(t1)
	seg := types.BBox{Min: types.MinVec3(p0, p1), Max: types.MaxVec3(p0, p1)}

	skip := func(o *geometry.Object) bool {
		return !o.BBox.Overlaps(seg)
	}

	hit, occluded := scan(ctx, r, g.objs, ids, skip)
	if hit == tracer.Nil || occluded {
		return hit
	}
	if beyond(r, ctx.Arena.Get(hit).T, g.voxelBox(c)) {
		ctx.Arena.Free(hit)
		return tracer.Nil
	}
	return hit
}
