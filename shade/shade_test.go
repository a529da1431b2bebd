package shade

import (
	"math"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/scene"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

func newShader(sc *scene.Scene) *Shader {
	return New(sc, tracer.NewContext(len(sc.Objects), 1), DefaultMaxLevel)
}

func approxPixel(p, exp types.Pixel) bool {
	for i := range p {
		if math.Abs(p[i]-exp[i]) > 1e-6 {
			return false
		}
	}
	return true
}

func TestLitSphere(t *testing.T) {
	b, err := scene.LoadDemo("sphere")
	if err != nil {
		t.Fatal(err)
	}
	opts := scene.DefaultOptions()
	opts.Background = types.Color{0, 0, 1}
	sc, err := b.Build(opts)
	if err != nil {
		t.Fatal(err)
	}
	sh := newShader(sc)

	r := sc.Camera.Ray(0, 0)
	sh.Context().Spawn(&r)
	hit := sh.Trace(&r)
	if hit == tracer.Nil {
		t.Fatal("expected the center ray to hit the sphere")
	}
	if ht := sh.Context().Arena.Get(hit).T; math.Abs(ht-4) > 1e-6 {
		t.Fatalf("expected hit at distance 4; got %f", ht)
	}
	sh.Context().Arena.Free(hit)

	if got := sh.Pixel(0, 0); !approxPixel(got, types.Pixel{1, 0.2, 0.2, 1}) {
		t.Fatalf("expected fully lit surface colour; got %v", got)
	}
	if got := sh.Pixel(10, 10); got != (types.Pixel{0, 0, 1, 0}) {
		t.Fatalf("expected background with zero alpha on a miss; got %v", got)
	}
	if live := sh.Context().Arena.Live(); live != 0 {
		t.Fatalf("expected every hit to be released; %d still live", live)
	}
}

// floorScene builds a floor at z = 0 with a unit sphere hovering at
// (0, 0, 2) under a light straight above.
func floorScene(t *testing.T, sphere geometry.Surface) *scene.Scene {
	b := scene.NewBuilder()
	ctx := scene.NewContext()

	floorSurf := geometry.DefaultSurface()
	floorSurf.Kd = 0.5
	floor, err := geometry.NewPolygon([]types.Vec3{
		types.XYZ(-10, -10, 0), types.XYZ(10, -10, 0), types.XYZ(10, 10, 0), types.XYZ(-10, 10, 0),
	}, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	ctx.Push()
	ctx.WithSurface(floorSurf)
	if _, err = b.Add(ctx, floor); err != nil {
		t.Fatal(err)
	}
	ctx.Pop()

	ball, _ := geometry.NewSphere(1)
	ctx.Push()
	ctx.WithSurface(sphere).Translate(types.XYZ(0, 0, 2))
	if _, err = b.Add(ctx, ball); err != nil {
		t.Fatal(err)
	}
	ctx.Pop()

	b.AddLight(scene.NewDistantLight(types.XYZ(0, 0, 1), types.Grey(1)))
	sc, err := b.Build(scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func TestShadows(t *testing.T) {
	type spec struct {
		eye   types.Vec3
		look  types.Vec3
		trans float64
		exp   float64
	}

	specs := []spec{
		// Clear view of the light.
		{types.XYZ(8, 0, 1), types.XYZ(3, 0, 0), 0, 0.6},
		// Under an opaque sphere only the ambient term is left.
		{types.XYZ(5, 0, 1), types.Vec3{}, 0, 0.1},
		// Both crossings of a half transparent sphere filter the light.
		{types.XYZ(5, 0, 1), types.Vec3{}, 0.5, 0.1 + 0.5*0.25},
	}

	for index, s := range specs {
		surf := geometry.DefaultSurface()
		surf.Trans = types.Grey(s.trans)
		sc := floorScene(t, surf)
		sc.Camera = scene.NewCamera(s.eye, s.look, types.XYZ(0, 0, 1))
		sh := newShader(sc)

		exp := types.Pixel{s.exp, s.exp, s.exp, 1}
		// The second pass runs through the occluder cache.
		for pass := 0; pass < 2; pass++ {
			if got := sh.Pixel(0, 0); !approxPixel(got, exp) {
				t.Errorf("[spec %d] pass %d: expected %v; got %v", index, pass, exp, got)
			}
		}
		if live := sh.Context().Arena.Live(); live != 0 {
			t.Errorf("[spec %d] expected every hit to be released; %d still live", index, live)
		}
	}
}

func TestSpotLight(t *testing.T) {
	type spec struct {
		at  types.Vec3
		exp float64
	}

	b := scene.NewBuilder()
	ctx := scene.NewContext()
	surf := geometry.DefaultSurface()
	surf.Kd = 0.5
	ctx.WithSurface(surf)
	floor, _ := geometry.NewPolygon([]types.Vec3{
		types.XYZ(-10, -10, 0), types.XYZ(10, -10, 0), types.XYZ(10, 10, 0), types.XYZ(-10, 10, 0),
	}, nil, nil, false)
	if _, err := b.Add(ctx, floor); err != nil {
		t.Fatal(err)
	}
	b.AddLight(scene.NewSpotLight(types.XYZ(0, 0, 5), types.Vec3{}, types.Grey(1), 30, 0))
	sc, err := b.Build(scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	specs := []spec{
		{types.Vec3{}, 0.6},
		{types.XYZ(2, 0, 0), 0.1 + 0.5*5/math.Sqrt(29)},
		{types.XYZ(4, 0, 0), 0.1},
	}
	for index, s := range specs {
		sc.Camera = scene.NewCamera(s.at.Add(types.XYZ(0, 0, 10)), s.at, types.XYZ(0, 1, 0))
		sh := newShader(sc)
		if got := sh.Pixel(0, 0); !approxPixel(got, types.Pixel{s.exp, s.exp, s.exp, 1}) {
			t.Errorf("[spec %d] expected %f; got %v", index, s.exp, got)
		}
	}
}

func TestTransparentSphereShowsBackground(t *testing.T) {
	for _, ri := range []float64{1, 1.5} {
		b := scene.NewBuilder()
		ctx := scene.NewContext()
		surf := geometry.DefaultSurface()
		surf.Ambient = types.Color{}
		surf.Trans = types.Grey(1)
		surf.RI = ri
		ctx.WithSurface(surf)
		ball, _ := geometry.NewSphere(1)
		if _, err := b.Add(ctx, ball); err != nil {
			t.Fatal(err)
		}
		b.SetCamera(scene.NewCamera(types.XYZ(0, 0, 5), types.Vec3{}, types.XYZ(0, 1, 0)))

		opts := scene.DefaultOptions()
		opts.Background = types.Color{0, 0, 1}
		sc, err := b.Build(opts)
		if err != nil {
			t.Fatal(err)
		}
		sh := newShader(sc)
		if got := sh.Pixel(0, 0); !approxPixel(got, types.Pixel{0, 0, 1, 1}) {
			t.Errorf("ri %g: expected the background through the sphere; got %v", ri, got)
		}
		if n := sh.Context().Stats.Rays[tracer.Transparency]; n != 2 {
			t.Errorf("ri %g: expected 2 transparency rays; got %d", ri, n)
		}
	}
}

func TestCSGCrossings(t *testing.T) {
	b := scene.NewBuilder()
	ctx := scene.NewContext()

	outerPrim, _ := geometry.NewSphere(2)
	innerPrim, _ := geometry.NewSphere(1)
	boxPrim, _ := geometry.NewBox(types.XYZ(-3, -3, 0.5), types.XYZ(3, 3, 3))

	outer, _ := b.Add(ctx, outerPrim)
	inner, _ := b.Add(ctx, innerPrim)
	shell, err := b.AddCSG(ctx, csg.Subtract, outer, inner)
	if err != nil {
		t.Fatal(err)
	}
	box, _ := b.Add(ctx, boxPrim)
	if _, err = b.AddCSG(ctx, csg.Subtract, shell, box); err != nil {
		t.Fatal(err)
	}
	sc, err := b.Build(scene.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	sh := newShader(sc)

	// The cut removes the upper half of the shell so the first crossing is
	// the underside of the hollow.
	r := tracer.NewRay(types.XYZ(0, 0, 10), types.XYZ(0, 0, -1), tracer.Primary)
	sh.Context().Spawn(&r)
	hit := sh.Trace(&r)
	if hit == tracer.Nil {
		t.Fatal("expected a hit")
	}
	h := sh.Context().Arena.Get(hit)
	if math.Abs(h.T-11) > 1e-6 || h.Obj != int32(inner) || !h.Flipped {
		t.Fatalf("expected flipped crossing of the inner sphere at 11; got t %f obj %d flipped %t", h.T, h.Obj, h.Flipped)
	}
	n := sc.Objects[h.Obj].Normal(r.At(h.T), h)
	if !n.ApproxEqual(types.XYZ(0, 0, 1), 1e-9) {
		t.Fatalf("expected normal facing into the hollow; got %v", n)
	}
	sh.Context().Arena.Free(hit)
}

func TestLinsmooth(t *testing.T) {
	type spec struct {
		x, exp float64
	}
	specs := []spec{{0.1, 0}, {0.5, 0}, {0.75, 0.5}, {1, 1}, {1.5, 1}}
	for index, s := range specs {
		if got := linsmooth(0.5, 1, s.x); math.Abs(got-s.exp) > 1e-12 {
			t.Errorf("[spec %d] expected %f; got %f", index, s.exp, got)
		}
	}
}

func TestSampleMask(t *testing.T) {
	for _, n := range []int{1, 4, 16, 33} {
		m := newSampleMask(n)
		if len(m.points) != n {
			t.Fatalf("expected %d points; got %d", n, len(m.points))
		}
		for _, p := range m.points {
			if p[0]*p[0]+p[1]*p[1] > 1 {
				t.Fatalf("expected mask point %v inside the unit disc", p)
			}
		}
	}

	axis := types.XYZ(0.3, -0.4, 0.866).Normalize()
	off := perturbation(axis, 0.2, -0.1)
	if math.Abs(off.Dot(axis)) > 1e-12 || math.Abs(off.Len()-math.Hypot(0.2, 0.1)) > 1e-12 {
		t.Fatalf("expected an in-plane offset of the same length; got %v", off)
	}
}

func TestDemosRender(t *testing.T) {
	const size = 6
	for _, d := range scene.Demos() {
		b, err := scene.LoadDemo(d.Name)
		if err != nil {
			t.Fatal(err)
		}
		sc, err := b.Build(scene.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		sc.Camera.Setup(size, size)
		sh := newShader(sc)

		hits := 0
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sx := (float64(x) - size/2 + 0.5) / (size / 2)
				sy := (float64(y) - size/2 + 0.5) / (size / 2)
				p := sh.Pixel(sx, sy)
				for _, v := range p {
					if v < 0 || v > 1 || math.IsNaN(v) {
						t.Fatalf("demo %q: pixel component out of range: %v", d.Name, p)
					}
				}
				if p.Alpha() == 1 {
					hits++
				}
			}
		}
		if hits == 0 {
			t.Errorf("demo %q: expected at least one pixel to hit something", d.Name)
		}
		if live := sh.Context().Arena.Live(); live != 0 {
			t.Errorf("demo %q: expected every hit to be released; %d still live", d.Name, live)
		}
	}
}

// place adds prim to b with surf, moved to at.
func place(t *testing.T, b *scene.Builder, prim geometry.Primitive, surf geometry.Surface, at types.Vec3) {
	ctx := scene.NewContext()
	ctx.WithSurface(surf).Translate(at)
	if _, err := b.Add(ctx, prim); err != nil {
		t.Fatal(err)
	}
}

// square returns a horizontal square at height z.
func square(t *testing.T, z, half float64) *geometry.Polygon {
	p, err := geometry.NewPolygon([]types.Vec3{
		types.XYZ(-half, -half, z), types.XYZ(half, -half, z), types.XYZ(half, half, z), types.XYZ(-half, half, z),
	}, nil, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// glow is a surface that shows col regardless of lighting.
func glow(col types.Color) geometry.Surface {
	surf := geometry.DefaultSurface()
	surf.Colour = col
	surf.Ambient = types.Grey(1)
	surf.Kd = 0
	return surf
}

// glass is a clear surface with refractive index ri.
func glass(ri float64) geometry.Surface {
	surf := geometry.DefaultSurface()
	surf.Ambient = types.Color{}
	surf.Kd = 0
	surf.Trans = types.Grey(1)
	surf.RI = ri
	return surf
}

func buildScene(t *testing.T, b *scene.Builder, opts scene.Options) *Shader {
	sc, err := b.Build(opts)
	if err != nil {
		t.Fatal(err)
	}
	return newShader(sc)
}

// refract bends the unit direction d at a surface with normal n facing
// against it, going from index eta1 into eta2.
func refract(d, n types.Vec3, eta1, eta2 float64) types.Vec3 {
	eta := eta1 / eta2
	cosi := -d.Dot(n)
	k := 1 - eta*eta*(1-cosi*cosi)
	return d.Mul(eta).Add(n.Mul(eta*cosi - math.Sqrt(k)))
}

// concentricExit follows a ray through nested spheres centred on the
// origin and returns where and in which direction it leaves the outermost
// one. radii run from the outside in; ris holds the index inside each.
func concentricExit(org, dir types.Vec3, radii, ris []float64) (types.Vec3, types.Vec3) {
	index := func(level int) float64 {
		if level < 0 {
			return 1
		}
		return ris[level]
	}

	level := -1
	for {
		b, c := org.Dot(dir), org.LenSq()
		t, to := math.Inf(1), 0
		if level >= 0 {
			r := radii[level]
			t, to = -b+math.Sqrt(b*b-c+r*r), level-1
		}
		if level+1 < len(radii) {
			r := radii[level+1]
			if disc := b*b - c + r*r; disc > 0 {
				if tin := -b - math.Sqrt(disc); tin > 1e-9 && tin < t {
					t, to = tin, level+1
				}
			}
		}
		if math.IsInf(t, 1) {
			return org, dir
		}

		org = org.AddScaled(dir, t)
		n := org.Normalize()
		if n.Dot(dir) > 0 {
			n = n.Neg()
		}
		dir = refract(dir, n, index(level), index(to))
		if level = to; level < 0 {
			return org, dir
		}
	}
}

func TestNestedDielectrics(t *testing.T) {
	type spec struct {
		radii []float64
		ris   []float64
	}

	specs := []spec{
		{[]float64{2}, []float64{1.5}},
		// A core matching the shell is invisible.
		{[]float64{2, 1}, []float64{1.5, 1.5}},
		{[]float64{2, 1}, []float64{1.5, 1.8}},
		{[]float64{2, 1}, []float64{1.5, 1.2}},
	}

	org, dir := types.XYZ(0.8, 0, 10), types.XYZ(0, 0, -1)
	red := types.Color{1, 0, 0}
	for index, s := range specs {
		exit, out := concentricExit(org, dir, s.radii, s.ris)

		b := scene.NewBuilder()
		for i, r := range s.radii {
			ball, _ := geometry.NewSphere(r)
			place(t, b, ball, glass(s.ris[i]), types.Vec3{})
		}
		target, _ := geometry.NewSphere(0.25)
		place(t, b, target, glow(red), exit.AddScaled(out, 3))

		opts := scene.DefaultOptions()
		opts.Background = types.Color{0, 0, 1}
		sh := buildScene(t, b, opts)

		r := tracer.NewRay(org, dir, tracer.Primary)
		if got := sh.Sample(&r); !approxPixel(got, red.Pixel(1)) {
			t.Errorf("[spec %d] expected the target on the refracted path; got %v", index, got)
		}
		if len(sh.media) != 1 {
			t.Errorf("[spec %d] expected the medium stack to unwind; got depth %d", index, len(sh.media))
		}
		if live := sh.Context().Arena.Live(); live != 0 {
			t.Errorf("[spec %d] expected every hit to be released; %d still live", index, live)
		}
	}
}

func TestTotalInternalReflection(t *testing.T) {
	type spec struct {
		angle  float64
		exp    types.Pixel
		transp uint64
	}

	specs := []spec{
		// Steep entry: leaves through the bottom face.
		{10, types.Pixel{0, 0, 1, 1}, 2},
		// Shallow entry: the side face is past the critical angle and
		// nothing gets through.
		{60, types.Pixel{0, 0, 0, 1}, 1},
	}

	for index, s := range specs {
		b := scene.NewBuilder()
		box, _ := geometry.NewBox(types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1))
		place(t, b, box, glass(1.5), types.Vec3{})

		opts := scene.DefaultOptions()
		opts.Background = types.Color{0, 0, 1}
		sh := buildScene(t, b, opts)

		a := s.angle * math.Pi / 180
		dir := types.XYZ(math.Sin(a), 0, -math.Cos(a))
		r := tracer.NewRay(types.XYZ(0, 0, 1).AddScaled(dir, -5), dir, tracer.Primary)
		if got := sh.Sample(&r); !approxPixel(got, s.exp) {
			t.Errorf("[spec %d] expected %v; got %v", index, s.exp, got)
		}
		if n := sh.Context().Stats.Rays[tracer.Transparency]; n != s.transp {
			t.Errorf("[spec %d] expected %d transparency rays; got %d", index, s.transp, n)
		}
	}
}

func TestReflection(t *testing.T) {
	type spec struct {
		dir  types.Vec3
		refl float64
		exp  types.Pixel
	}

	specs := []spec{
		// Bounces off the mirror at (-1, 0, 0) into the target.
		{types.XYZ(1, 0, -1), 1, types.Pixel{1, 0, 0, 1}},
		{types.XYZ(1, 0, -1), 0.5, types.Pixel{0.5, 0, 0, 1}},
		// A steeper ray bounces over the target.
		{types.XYZ(1, 0, -2), 1, types.Pixel{0, 0, 1, 1}},
	}

	for index, s := range specs {
		b := scene.NewBuilder()
		mirror := geometry.DefaultSurface()
		mirror.Ambient = types.Color{}
		mirror.Kd = 0
		mirror.Refl = types.Grey(s.refl)
		place(t, b, square(t, 0, 5), mirror, types.Vec3{})
		target, _ := geometry.NewSphere(0.3)
		place(t, b, target, glow(types.Color{1, 0, 0}), types.XYZ(1, 0, 2))

		opts := scene.DefaultOptions()
		opts.Background = types.Color{0, 0, 1}
		sh := buildScene(t, b, opts)

		r := tracer.NewRay(types.XYZ(-2, 0, 1), s.dir.Normalize(), tracer.Primary)
		if got := sh.Sample(&r); !approxPixel(got, s.exp) {
			t.Errorf("[spec %d] expected %v; got %v", index, s.exp, got)
		}
		if n := sh.Context().Stats.Rays[tracer.Reflection]; n != 1 {
			t.Errorf("[spec %d] expected 1 reflection ray; got %d", index, n)
		}
	}
}

func TestFog(t *testing.T) {
	type spec struct {
		fog     float64
		falloff float64
		dist    float64
	}

	specs := []spec{
		{0, 0, 5},
		{0.2, 0, 5},
		{0.5, 0, 2},
		{0.2, 0.1, 5},
	}

	red, haze := types.Color{1, 0, 0}, types.Color{0, 1, 0}
	for index, s := range specs {
		b := scene.NewBuilder()
		place(t, b, square(t, 0, 5), glow(red), types.Vec3{})

		opts := scene.DefaultOptions()
		opts.Fog = s.fog
		opts.Haze = haze
		opts.Falloff = s.falloff
		sh := buildScene(t, b, opts)

		exp := red
		if s.fog != 0 {
			f := 1 - (1-opts.RFactor)*math.Exp(-s.fog*s.dist)
			exp = red.Scale(1 - f).Add(haze.Scale(f))
		}
		exp = exp.Scale(1 / (1 + s.falloff*s.dist))

		r := tracer.NewRay(types.XYZ(0, 0, s.dist), types.XYZ(0, 0, -1), tracer.Primary)
		if got := sh.Sample(&r); !approxPixel(got, exp.Pixel(1)) {
			t.Errorf("[spec %d] expected %v; got %v", index, exp.Pixel(1), got)
		}
	}
}

func TestAreaLight(t *testing.T) {
	type spec struct {
		rays int
		// Transmission of each sheet stacked between floor and light;
		// zero is opaque.
		sheets []float64
		exp    float64
	}

	specs := []spec{
		{1, nil, 0.5},
		// The samples share the light between them.
		{16, nil, 0.5},
		{16, []float64{0}, 0},
		{16, []float64{0.5}, 0.25},
		// Each sheet filters every sample exactly once.
		{16, []float64{0.5, 0.5}, 0.125},
		{9, []float64{0.5, 0.4}, 0.1},
	}

	for index, s := range specs {
		b := scene.NewBuilder()
		floor := geometry.DefaultSurface()
		floor.Ambient = types.Color{}
		floor.Kd = 0.5
		place(t, b, square(t, 0, 10), floor, types.Vec3{})
		for i, trans := range s.sheets {
			sheet := geometry.DefaultSurface()
			sheet.Trans = types.Grey(trans)
			place(t, b, square(t, 2+float64(i), 5), sheet, types.Vec3{})
		}

		l := scene.NewPointLight(types.XYZ(0, 0, 5), types.Grey(1))
		l.SetArea(1, s.rays)
		b.AddLight(l)
		sh := buildScene(t, b, scene.DefaultOptions())

		exp := types.Pixel{s.exp, s.exp, s.exp, 1}
		r := tracer.NewRay(types.XYZ(0, 0, 1), types.XYZ(0, 0, -1), tracer.Primary)
		if got := sh.Sample(&r); !approxPixel(got, exp) {
			t.Errorf("[spec %d] expected %v; got %v", index, exp, got)
		}
		if live := sh.Context().Arena.Live(); live != 0 {
			t.Errorf("[spec %d] expected every hit to be released; %d still live", index, live)
		}
	}
}
