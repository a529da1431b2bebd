package geometry

import (
	"math"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

func mustObject(t *testing.T, id int32, prim Primitive, toWorld types.Mat4) *Object {
	surf := DefaultSurface()
	o, err := NewObject(prim, toWorld, &surf)
	if err != nil {
		t.Fatal(err)
	}
	o.ID = id
	return o
}

func hitTimes(ctx *tracer.Context, list tracer.HitID) []float64 {
	var out []float64
	ctx.Arena.Each(list, func(_ tracer.HitID, h *tracer.Hit) {
		out = append(out, h.T)
	})
	return out
}

func sameTimes(got, exp []float64, tol float64) bool {
	if len(got) != len(exp) {
		return false
	}
	for i := range got {
		if math.Abs(got[i]-exp[i]) > tol {
			return false
		}
	}
	return true
}

func TestQuadricEntryExit(t *testing.T) {
	sphere, _ := NewSphere(1)
	ellipsoid, _ := NewEllipsoid(types.XYZ(2, 1, 1))
	box, _ := NewBox(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))
	cone, _ := NewCone(0)
	torus, _ := NewTorus(0.25)
	ring, _ := NewRing(0.5, 1)
	super, _ := NewSuperquadric(2)

	type spec struct {
		prim     Primitive
		org, dir types.Vec3
		exp      []float64
		tol      float64
	}

	specs := []spec{
		{sphere, types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), []float64{4, 6}, 1e-9},
		{sphere, types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), []float64{1}, 1e-9},
		{sphere, types.XYZ(0, 3, 5), types.XYZ(0, 0, -1), nil, 0},
		{ellipsoid, types.XYZ(-5, 0, 0), types.XYZ(1, 0, 0), []float64{3, 7}, 1e-9},
		{box, types.XYZ(0.5, 0.5, 5), types.XYZ(0, 0, -1), []float64{4, 6}, 1e-9},
		{NewCylinder(), types.XYZ(-5, 0, 0.5), types.XYZ(1, 0, 0), []float64{4, 6}, 1e-9},
		{NewCylinder(), types.XYZ(0.5, 0, 5), types.XYZ(0, 0, -1), []float64{4, 5}, 1e-9},
		{cone, types.XYZ(0.5, 0, -5), types.XYZ(0, 0, 1), []float64{5.5, 6}, 1e-9},
		{torus, types.XYZ(-5, 0, 0), types.XYZ(1, 0, 0), []float64{3.75, 4.25, 5.75, 6.25}, 1e-6},
		{torus, types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), nil, 0},
		{ring, types.XYZ(0.75, 0, 5), types.XYZ(0, 0, -1), []float64{5, 5}, 1e-9},
		{ring, types.XYZ(0.25, 0, 5), types.XYZ(0, 0, -1), nil, 0},
		{super, types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), []float64{4, 6}, 1e-3},
	}

	for index, s := range specs {
		ctx := tracer.NewContext(1, 1)
		o := mustObject(t, 0, s.prim, types.Ident4())
		o.InCSG = true

		r := tracer.NewRay(s.org, s.dir, tracer.Primary)
		got := hitTimes(ctx, o.Intersect(ctx, &r))
		if !sameTimes(got, s.exp, s.tol) {
			t.Fatalf("[spec %d] expected %s crossings %v; got %v", index, s.prim.Kind(), s.exp, got)
		}
	}
}

func TestNearestOnlyOutsideCSG(t *testing.T) {
	sphere, _ := NewSphere(1)
	o := mustObject(t, 0, sphere, types.Ident4())
	ctx := tracer.NewContext(1, 1)

	r := tracer.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), tracer.Primary)
	if got := hitTimes(ctx, o.Intersect(ctx, &r)); !sameTimes(got, []float64{4}, 1e-9) {
		t.Fatalf("expected a single crossing at 4; got %v", got)
	}
}

func TestTransformedObject(t *testing.T) {
	sphere, _ := NewSphere(1)
	toWorld := types.Scale4(types.XYZ(2, 2, 2)).Mul4(types.Translate4(types.XYZ(0, 0, -10)))
	o := mustObject(t, 0, sphere, toWorld)
	ctx := tracer.NewContext(1, 1)

	r := tracer.NewRay(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), tracer.Primary)
	id := o.Intersect(ctx, &r)
	if id == tracer.Nil {
		t.Fatal("expected a hit")
	}
	h := ctx.Arena.Get(id)
	if math.Abs(h.T-8) > 1e-9 {
		t.Fatalf("expected t = 8; got %f", h.T)
	}

	n := o.Normal(r.At(h.T), h)
	if !n.ApproxEqual(types.XYZ(0, 0, 1), 1e-9) {
		t.Fatalf("expected normal (0, 0, 1); got %v", n)
	}
	if !o.BBox.Contains(types.XYZ(0, 0, -11.5)) || o.BBox.Contains(types.XYZ(0, 0, -13)) {
		t.Fatalf("unexpected world bounds %v", o.BBox)
	}
}

func TestSingularTransform(t *testing.T) {
	sphere, _ := NewSphere(1)
	surf := DefaultSurface()
	if _, err := NewObject(sphere, types.Scale4(types.XYZ(1, 0, 1)), &surf); err == nil {
		t.Fatal("expected an error for a singular transform")
	}
}

func TestTraceMemoisesPerGeneration(t *testing.T) {
	sphere, _ := NewSphere(1)
	o := mustObject(t, 0, sphere, types.Ident4())
	ctx := tracer.NewContext(1, 1)

	r := tracer.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), tracer.Primary)
	ctx.Spawn(&r)

	first := o.Trace(ctx, &r)
	second := o.Trace(ctx, &r)
	if ctx.Stats.Tests != 1 {
		t.Fatalf("expected 1 intersection test; got %d", ctx.Stats.Tests)
	}
	if ctx.Stats.MailboxHits != 1 {
		t.Fatalf("expected 1 mailbox hit; got %d", ctx.Stats.MailboxHits)
	}
	if ctx.Arena.Get(first).T != ctx.Arena.Get(second).T {
		t.Fatalf("expected cached t %f; got %f", ctx.Arena.Get(first).T, ctx.Arena.Get(second).T)
	}

	ctx.Spawn(&r)
	o.Trace(ctx, &r)
	if ctx.Stats.Tests != 2 {
		t.Fatalf("expected a new generation to retest; got %d tests", ctx.Stats.Tests)
	}

	ctx.Spawn(&r)
	o.Ignore(ctx, r.Gen)
	if o.Trace(ctx, &r) != tracer.Nil {
		t.Fatal("expected an ignored object to miss")
	}
}

func TestShadowRaysSkipShadowlessSurfaces(t *testing.T) {
	sphere, _ := NewSphere(1)
	o := mustObject(t, 0, sphere, types.Ident4())
	o.Surface.Shadows = false
	ctx := tracer.NewContext(1, 1)

	r := tracer.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), tracer.Shadow)
	ctx.Spawn(&r)
	if o.Trace(ctx, &r) != tracer.Nil {
		t.Fatal("expected shadow ray to pass through")
	}
}

func TestPolygon(t *testing.T) {
	tri, err := NewPolygon([]types.Vec3{
		types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0),
	}, nil, []types.Color{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if tri.Kind() != TriangleKind {
		t.Fatalf("expected triangle kind; got %s", tri.Kind())
	}

	quad, _ := NewPolygon([]types.Vec3{
		types.XYZ(0, 0, 0), types.XYZ(2, 0, 0), types.XYZ(2, 2, 0), types.XYZ(0, 2, 0),
	}, nil, nil, true)
	lshape, _ := NewPolygon([]types.Vec3{
		types.XYZ(0, 0, 0), types.XYZ(2, 0, 0), types.XYZ(2, 1, 0),
		types.XYZ(1, 1, 0), types.XYZ(1, 2, 0), types.XYZ(0, 2, 0),
	}, nil, nil, false)

	type spec struct {
		prim *Polygon
		org  types.Vec3
		dir  types.Vec3
		hit  bool
	}

	down, up := types.XYZ(0, 0, -1), types.XYZ(0, 0, 1)
	specs := []spec{
		{tri, types.XYZ(0.25, 0.25, 1), down, true},
		{tri, types.XYZ(0.75, 0.75, 1), down, false},
		{tri, types.XYZ(0.25, 0.25, -1), up, true},
		{quad, types.XYZ(1, 1, 1), down, true},
		{quad, types.XYZ(1, 1, -1), up, false},
		{lshape, types.XYZ(0.5, 1.5, 1), down, true},
		{lshape, types.XYZ(1.5, 1.5, 1), down, false},
		{lshape, types.XYZ(1.5, 0.5, 1), down, true},
	}

	for index, s := range specs {
		ctx := tracer.NewContext(1, 1)
		o := mustObject(t, 0, s.prim, types.Ident4())
		r := tracer.NewRay(s.org, s.dir, tracer.Primary)
		if got := o.Intersect(ctx, &r) != tracer.Nil; got != s.hit {
			t.Fatalf("[spec %d] expected hit = %t; got %t", index, s.hit, got)
		}
	}

	ctx := tracer.NewContext(1, 1)
	o := mustObject(t, 0, tri, types.Ident4())
	r := tracer.NewRay(types.XYZ(0, 0.5, 1), down, tracer.Primary)
	h := ctx.Arena.Get(o.Intersect(ctx, &r))
	c, ok := tri.VertexColour(r.At(h.T), h)
	if !ok || !types.Vec3(c).ApproxEqual(types.XYZ(0.5, 0, 0.5), 1e-9) {
		t.Fatalf("expected interpolated colour (0.5, 0, 0.5); got %v", c)
	}
}

func TestDegeneratePrimitives(t *testing.T) {
	type spec struct {
		build func() error
	}

	specs := []spec{
		{func() error {
			_, err := NewPolygon([]types.Vec3{types.XYZ(0, 0, 0), types.XYZ(1, 1, 1), types.XYZ(2, 2, 2)}, nil, nil, false)
			return err
		}},
		{func() error { _, err := NewSphere(0); return err }},
		{func() error { _, err := NewBlob(nil, DefaultThreshold); return err }},
		{func() error { _, err := NewTorus(1.5); return err }},
		{func() error { _, err := NewAlgebraic([]Term{{Coef: 0, X: 2}}, nil); return err }},
		{func() error { _, err := NewCSG(csg.Union, nil, nil); return err }},
	}

	for index, s := range specs {
		if s.build() == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
	}
}

func TestAlgebraicMatchesSphere(t *testing.T) {
	alg, err := NewAlgebraic([]Term{
		{Coef: 1, X: 2}, {Coef: 1, Y: 2}, {Coef: 1, Z: 2}, {Coef: -1},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if alg.Order() != 2 {
		t.Fatalf("expected order 2; got %d", alg.Order())
	}

	ctx := tracer.NewContext(1, 1)
	o := mustObject(t, 0, alg, types.Ident4())
	o.InCSG = true
	r := tracer.NewRay(types.XYZ(0.6, 0, 5), types.XYZ(0, 0, -1), tracer.Primary)
	got := hitTimes(ctx, o.Intersect(ctx, &r))
	if !sameTimes(got, []float64{4.2, 5.8}, 1e-6) {
		t.Fatalf("expected crossings [4.2 5.8]; got %v", got)
	}

	n := alg.Normal(types.XYZ(0.6, 0, 0.8), nil).Normalize()
	if !n.ApproxEqual(types.XYZ(0.6, 0, 0.8), 1e-9) {
		t.Fatalf("expected normal (0.6, 0, 0.8); got %v", n)
	}
}

func TestBlobSingleBall(t *testing.T) {
	blob, err := NewBlob([]Ball{{Radius: 1, Strength: 1}}, 0.25)
	if err != nil {
		t.Fatal(err)
	}

	ctx := tracer.NewContext(1, 1)
	o := mustObject(t, 0, blob, types.Ident4())
	o.InCSG = true
	r := tracer.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), tracer.Primary)

	// (1 - d^2)^2 = 0.25 at d = sqrt(0.5)
	d := math.Sqrt(0.5)
	got := hitTimes(ctx, o.Intersect(ctx, &r))
	if !sameTimes(got, []float64{5 - d, 5 + d}, 1e-6) {
		t.Fatalf("expected crossings [%f %f]; got %v", 5-d, 5+d, got)
	}

	n := blob.Normal(types.XYZ(0, 0, d), nil)
	if n[2] <= 0 {
		t.Fatalf("expected outward normal; got %v", n)
	}
}

func TestFlatPatch(t *testing.T) {
	var geom [4][4]types.Vec3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			geom[i][j] = types.XYZ(float64(i)/3, float64(j)/3, 0)
		}
	}
	pt, err := NewPatch(geom, BezierBasis, 4)
	if err != nil {
		t.Fatal(err)
	}

	ctx := tracer.NewContext(1, 1)
	o := mustObject(t, 0, pt, types.Ident4())
	r := tracer.NewRay(types.XYZ(0.3, 0.6, 5), types.XYZ(0, 0, -1), tracer.Primary)
	id := o.Intersect(ctx, &r)
	if id == tracer.Nil {
		t.Fatal("expected a hit")
	}

	h := ctx.Arena.Get(id)
	if math.Abs(h.T-5) > 1e-6 || math.Abs(h.U-0.3) > 1e-6 || math.Abs(h.V-0.6) > 1e-6 {
		t.Fatalf("expected t = 5 at (0.3, 0.6); got t = %f at (%f, %f)", h.T, h.U, h.V)
	}
	if n := pt.Normal(r.At(h.T), h).Normalize(); math.Abs(math.Abs(n[2])-1) > 1e-9 {
		t.Fatalf("expected normal along z; got %v", n)
	}

	r = tracer.NewRay(types.XYZ(1.5, 0.5, 5), types.XYZ(0, 0, -1), tracer.Primary)
	if o.Intersect(ctx, &r) != tracer.Nil {
		t.Fatal("expected a miss outside the patch")
	}
}

func TestCSGSubtraction(t *testing.T) {
	outer, _ := NewSphere(2)
	inner, _ := NewSphere(1)
	left := mustObject(t, 1, outer, types.Ident4())
	right := mustObject(t, 2, inner, types.Ident4())

	prim, err := NewCSG(csg.Subtract, left, right)
	if err != nil {
		t.Fatal(err)
	}
	o := mustObject(t, 0, prim, types.Ident4())
	ctx := tracer.NewContext(3, 1)

	r := tracer.NewRay(types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), tracer.Primary)
	list := o.Intersect(ctx, &r)

	type crossing struct {
		t       float64
		obj     int32
		flipped bool
	}
	exp := []crossing{{3, 1, false}, {4, 2, true}, {6, 2, true}, {7, 1, false}}

	var got []crossing
	ctx.Arena.Each(list, func(_ tracer.HitID, h *tracer.Hit) {
		got = append(got, crossing{h.T, h.Obj, h.Flipped})
	})
	if len(got) != len(exp) {
		t.Fatalf("expected %d crossings; got %v", len(exp), got)
	}
	for i := range exp {
		if math.Abs(got[i].t-exp[i].t) > 1e-9 || got[i].obj != exp[i].obj || got[i].flipped != exp[i].flipped {
			t.Fatalf("expected crossing %d to be %+v; got %+v", i, exp[i], got[i])
		}
	}

	// The inner wall normal faces into the cavity.
	h := ctx.Arena.Get(ctx.Arena.Next(list))
	if n := right.Normal(r.At(h.T), h); !n.ApproxEqual(types.XYZ(0, 0, -1), 1e-9) {
		t.Fatalf("expected flipped normal (0, 0, -1); got %v", n)
	}

	var leaves []int32
	prim.Leaves(func(o *Object) { leaves = append(leaves, o.ID) })
	if len(leaves) != 2 || leaves[0] != 1 || leaves[1] != 2 {
		t.Fatalf("expected leaves [1 2]; got %v", leaves)
	}
}
