package accel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

func addObject(t *testing.T, objs []*geometry.Object, prim geometry.Primitive, toWorld types.Mat4, surf *geometry.Surface) []*geometry.Object {
	o, err := geometry.NewObject(prim, toWorld, surf)
	if err != nil {
		t.Fatal(err)
	}
	o.ID = int32(len(objs))
	o.BBox = o.BBox.Pad(1e-6)
	return append(objs, o)
}

func randomScene(t *testing.T, rng *rand.Rand, n int) []*geometry.Object {
	surf := geometry.DefaultSurface()
	sphere, _ := geometry.NewSphere(1)
	box, _ := geometry.NewBox(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))

	var objs []*geometry.Object
	for i := 0; i < n; i++ {
		pos := types.XYZ(rng.Float64()*20-10, rng.Float64()*20-10, rng.Float64()*20-10)
		size := 0.2 + rng.Float64()*0.8
		m := types.Scale4(types.XYZ(size, size, size)).Mul4(types.Translate4(pos))
		if i%3 == 0 {
			m = types.Scale4(types.XYZ(size, size*2, size/2)).
				Mul4(types.RotateY4(rng.Float64() * math.Pi)).
				Mul4(types.Translate4(pos))
			objs = addObject(t, objs, box, m, &surf)
			continue
		}
		objs = addObject(t, objs, sphere, m, &surf)
	}
	return objs
}

func randomRay(rng *rand.Rand, i int) tracer.Ray {
	target := types.XYZ(rng.Float64()*16-8, rng.Float64()*16-8, rng.Float64()*16-8)
	var org types.Vec3
	if i%4 == 0 {
		org = types.XYZ(rng.Float64()*20-10, rng.Float64()*20-10, rng.Float64()*20-10)
	} else {
		org = types.XYZ(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()).Normalize().Mul(30)
	}
	return tracer.NewRay(org, target.Sub(org).Normalize(), tracer.Primary)
}

type traced struct {
	hit bool
	t   float64
	obj int32
}

func traceWith(ctx *tracer.Context, idx Index, r tracer.Ray) traced {
	ctx.Spawn(&r)
	id := idx.Trace(ctx, &r)
	if id == tracer.Nil {
		return traced{}
	}
	h := ctx.Arena.Get(id)
	out := traced{hit: true, t: h.T, obj: h.Obj}
	ctx.Arena.Free(id)
	return out
}

func TestIndicesMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	objs := randomScene(t, rng, 120)

	kd, err := NewKDTree(objs, DefaultMaxDepth)
	if err != nil {
		t.Fatal(err)
	}
	grid, err := NewGrid(objs, DefaultGridSize, DefaultGridSize, DefaultGridSize)
	if err != nil {
		t.Fatal(err)
	}
	coarse, err := NewGrid(objs, 3, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	bvh, err := NewBVH(objs, DefaultLeafSize)
	if err != nil {
		t.Fatal(err)
	}
	fat, err := NewBVH(objs, 16)
	if err != nil {
		t.Fatal(err)
	}
	list := NewList(objs)

	indices := map[string]Index{"kdtree": kd, "grid": grid, "coarse grid": coarse, "bvh": bvh, "fat bvh": fat}
	ctx := tracer.NewContext(len(objs), 1)

	var hits int
	for i := 0; i < 2000; i++ {
		r := randomRay(rng, i)
		exp := traceWith(ctx, list, r)
		if exp.hit {
			hits++
		}

		for name, idx := range indices {
			got := traceWith(ctx, idx, r)
			if got.hit != exp.hit {
				t.Fatalf("[ray %d] %s: expected hit = %t; got %t", i, name, exp.hit, got.hit)
			}
			if got.hit && (math.Abs(got.t-exp.t) > 1e-9 || got.obj != exp.obj) {
				t.Fatalf("[ray %d] %s: expected t = %f on object %d; got t = %f on object %d", i, name, exp.t, exp.obj, got.t, got.obj)
			}
		}
	}

	if hits == 0 {
		t.Fatal("expected some rays to hit the scene")
	}
	if live := ctx.Arena.Live(); live != 0 {
		t.Fatalf("expected all hit nodes to be released; %d still live", live)
	}
}

func TestShadowRayEarlyExit(t *testing.T) {
	sphere, _ := geometry.NewSphere(1)
	glass := geometry.DefaultSurface()
	glass.Trans = types.Grey(0.5)
	solid := geometry.DefaultSurface()

	var objs []*geometry.Object
	objs = addObject(t, objs, sphere, types.Translate4(types.XYZ(0, 0, -4)), &glass)
	objs = addObject(t, objs, sphere, types.Translate4(types.XYZ(0, 0, -10)), &solid)

	kd, _ := NewKDTree(objs, DefaultMaxDepth)
	grid, _ := NewGrid(objs, 4, 4, 4)
	bvh, _ := NewBVH(objs, 1)

	type spec struct {
		idx  Index
		maxT float64
		obj  int32
		t    float64
	}

	specs := []spec{
		// The list sees both spheres; the opaque one short of the light
		// blocks it outright.
		{NewList(objs), 100, 1, 9},
		// The indices reach the transparent sphere first and stop there.
		{kd, 100, 0, 3},
		{grid, 100, 0, 3},
		{bvh, 100, 0, 3},
		// Light between the spheres: only the transparent one is in the way.
		{NewList(objs), 6, 0, 3},
		{kd, 6, 0, 3},
		{grid, 6, 0, 3},
		{bvh, 6, 0, 3},
	}

	for index, s := range specs {
		ctx := tracer.NewContext(len(objs), 1)
		r := tracer.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), tracer.Shadow)
		r.MaxT = s.maxT
		got := traceWith(ctx, s.idx, r)
		if !got.hit || got.obj != s.obj || math.Abs(got.t-s.t) > 1e-9 {
			t.Fatalf("[spec %d] %s: expected object %d at t = %f; got %+v", index, s.idx.Stats().Kind, s.obj, s.t, got)
		}
	}

	// A light in front of both spheres is never blocked.
	ctx := tracer.NewContext(len(objs), 1)
	for _, idx := range []Index{NewList(objs), kd, grid, bvh} {
		r := tracer.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), tracer.Shadow)
		r.MaxT = 2
		if got := traceWith(ctx, idx, r); got.hit && got.t < r.MaxT {
			t.Fatalf("%s: expected no occluder before the light; got %+v", idx.Stats().Kind, got)
		}
	}
}

func TestShadowlessSurfacesAreSkipped(t *testing.T) {
	sphere, _ := geometry.NewSphere(1)
	ghost := geometry.DefaultSurface()
	ghost.Shadows = false

	var objs []*geometry.Object
	objs = addObject(t, objs, sphere, types.Translate4(types.XYZ(0, 0, -4)), &ghost)

	ctx := tracer.NewContext(len(objs), 1)
	r := tracer.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), tracer.Shadow)
	if got := traceWith(ctx, NewList(objs), r); got.hit {
		t.Fatalf("expected shadow rays to ignore shadowless surfaces; got %+v", got)
	}

	r.Kind = tracer.Primary
	if got := traceWith(ctx, NewList(objs), r); !got.hit {
		t.Fatal("expected primary rays to hit shadowless surfaces")
	}
}

func TestKDTreeStats(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	objs := randomScene(t, rng, 200)

	kd, err := NewKDTree(objs, 8)
	if err != nil {
		t.Fatal(err)
	}
	if s := kd.Stats(); s.Nodes != 1 || s.Leaves != 0 {
		t.Fatalf("expected an unsplit tree; got %+v", s)
	}

	kd.Expand()
	s := kd.Stats()
	if s.Leaves < 2 || s.Nodes != 2*s.Leaves-1 {
		t.Fatalf("expected a full binary tree; got %+v", s)
	}
	if s.MaxDepth > 8 {
		t.Fatalf("expected depth to be capped at 8; got %d", s.MaxDepth)
	}
}

func TestGridStats(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	objs := randomScene(t, rng, 50)

	grid, err := NewGrid(objs, 10, 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	s := grid.Stats()
	if s.Voxels != 1000 || s.Refs < len(objs) || s.Occupied == 0 || s.Occupied > s.Refs {
		t.Fatalf("unexpected grid stats %+v", s)
	}
}

func TestBVHStats(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	objs := randomScene(t, rng, 100)

	type spec struct {
		leafSize  int
		minLeaves int
	}
	specs := []spec{
		{1, 2},
		{DefaultLeafSize, 2},
		{len(objs), 1},
	}

	for index, s := range specs {
		bvh, err := NewBVH(objs, s.leafSize)
		if err != nil {
			t.Fatalf("[spec %d] %v", index, err)
		}
		st := bvh.Stats()
		if st.Kind != BVHKind || st.Objects != len(objs) {
			t.Fatalf("[spec %d] unexpected stats %+v", index, st)
		}
		if st.Leaves < s.minLeaves || st.Nodes != 2*st.Leaves-1 {
			t.Fatalf("[spec %d] expected a full binary tree with at least %d leaves; got %+v", index, s.minLeaves, st)
		}

		// Every object lands in exactly one leaf.
		seen := make(map[int32]bool, len(objs))
		for _, id := range bvh.refs {
			if seen[id] {
				t.Fatalf("[spec %d] object %d referenced twice", index, id)
			}
			seen[id] = true
		}
		if len(seen) != len(objs) {
			t.Fatalf("[spec %d] expected %d referenced objects; got %d", index, len(objs), len(seen))
		}

		box := bvh.BBox()
		for _, o := range objs {
			if !box.Contains(o.BBox.Min) || !box.Contains(o.BBox.Max) {
				t.Fatalf("[spec %d] expected the root box to enclose object %d", index, o.ID)
			}
		}
	}
}

func TestIndexErrors(t *testing.T) {
	if _, err := NewKDTree(nil, DefaultMaxDepth); err != ErrNoObjects {
		t.Fatalf("expected ErrNoObjects; got %v", err)
	}

	plane, _ := geometry.NewAlgebraic([]geometry.Term{{Coef: 1, Z: 1}}, nil)
	surf := geometry.DefaultSurface()
	objs := addObject(t, nil, plane, types.Ident4(), &surf)
	if _, err := NewGrid(objs, 2, 2, 2); errors.Cause(err) != ErrUnbounded {
		t.Fatalf("expected ErrUnbounded; got %v", err)
	}
	if _, err := NewBVH(objs, 1); errors.Cause(err) != ErrUnbounded {
		t.Fatalf("expected ErrUnbounded; got %v", err)
	}
	if _, err := NewGrid(objs, 0, 2, 2); err == nil {
		t.Fatal("expected an error for an empty grid")
	}
	if _, err := New(Kind("octree"), objs, DefaultOptions()); err == nil {
		t.Fatal("expected an error for an unknown index kind")
	}
	if idx, err := New(ListKind, objs, DefaultOptions()); err != nil || idx.Stats().Objects != 1 {
		t.Fatalf("expected a list index; got %v, %v", idx, err)
	}
}
