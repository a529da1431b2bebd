package scene

import (
	"math"
	"testing"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/accel"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

func TestContextTransformOrder(t *testing.T) {
	ctx := NewContext()
	ctx.Scale(types.XYZ(2, 2, 2)).Translate(types.XYZ(1, 0, 0))

	p := ctx.ToWorld().MulPoint(types.XYZ(1, 0, 0))
	if !p.ApproxEqual(types.XYZ(3, 0, 0), 1e-9) {
		t.Fatalf("expected scale before translate to map to (3, 0, 0); got %v", p)
	}

	ctx.Push()
	ctx.Translate(types.XYZ(0, 1, 0))
	p = ctx.ToWorld().MulPoint(types.XYZ(1, 0, 0))
	if !p.ApproxEqual(types.XYZ(3, 2, 0), 1e-9) {
		t.Fatalf("expected nested transform to apply before the parent's; got %v", p)
	}

	ctx.Rotate(types.XYZ(0, 0, 1), 90)
	p = ctx.ToWorld().MulPoint(types.XYZ(1, 0, 0))
	if !p.ApproxEqual(types.XYZ(-1, 2, 0), 1e-9) {
		t.Fatalf("expected rotation to follow the translation; got %v", p)
	}

	if err := ctx.Pop(); err != nil {
		t.Fatal(err)
	}
	p = ctx.ToWorld().MulPoint(types.XYZ(1, 0, 0))
	if !p.ApproxEqual(types.XYZ(3, 0, 0), 1e-9) {
		t.Fatalf("expected pop to restore the outer transform; got %v", p)
	}

	if err := ctx.Pop(); err != ErrEmptyStack {
		t.Fatalf("expected to get ErrEmptyStack; got %v", err)
	}
	if ctx.Depth() != 1 {
		t.Fatalf("expected depth 1; got %d", ctx.Depth())
	}
}

type fixedColour types.Color

func (f fixedColour) Apply(s *geometry.Sample) {
	s.Surface.Colour = types.Color(f)
}

func TestContextAttributes(t *testing.T) {
	ctx := NewContext()
	if ctx.Surface().Colour != types.Grey(1) {
		t.Fatalf("expected default surface to be white; got %v", ctx.Surface().Colour)
	}

	red := geometry.DefaultSurface()
	red.Colour = types.Color{1, 0, 0}
	ctx.WithSurface(red).WithTexture(fixedColour{0, 1, 0})

	ctx.Push()
	if ctx.Surface().Colour != red.Colour {
		t.Fatalf("expected nested frame to inherit the surface; got %v", ctx.Surface().Colour)
	}
	ctx.WithSurface(geometry.DefaultSurface()).WithTexture(fixedColour{0, 0, 1})
	if got := len(ctx.Textures()); got != 2 {
		t.Fatalf("expected 2 textures in the nested frame; got %d", got)
	}
	ctx.Pop()

	if ctx.Surface().Colour != red.Colour {
		t.Fatalf("expected pop to restore the surface; got %v", ctx.Surface().Colour)
	}
	if got := len(ctx.Textures()); got != 1 {
		t.Fatalf("expected nested texture not to leak into the outer frame; got %d textures", got)
	}

	// A second nested texture must not overwrite the first one's slot.
	ctx.Push()
	ctx.WithTexture(fixedColour{1, 1, 1})
	inner := ctx.Textures()
	ctx.Pop()
	ctx.Push()
	ctx.WithTexture(fixedColour{0, 0, 0})
	if inner[1] != (fixedColour{1, 1, 1}) {
		t.Fatalf("expected sibling frames to keep separate texture lists; got %v", inner[1])
	}
}

func TestBuilderCSG(t *testing.T) {
	b := NewBuilder()
	ctx := NewContext()

	outer, _ := geometry.NewSphere(2)
	inner, _ := geometry.NewSphere(1)

	o, err := b.Add(ctx, outer)
	if err != nil {
		t.Fatal(err)
	}
	i, err := b.Add(ctx, inner)
	if err != nil {
		t.Fatal(err)
	}
	if o != 0 || i != 1 {
		t.Fatalf("expected ids 0 and 1; got %d and %d", o, i)
	}

	if _, err = b.AddCSG(ctx, csg.Subtract, o, o); errors.Cause(err) != ErrBadOperand {
		t.Fatalf("expected same operand twice to fail with ErrBadOperand; got %v", err)
	}
	if _, err = b.AddCSG(ctx, csg.Subtract, o, 7); errors.Cause(err) != ErrBadOperand {
		t.Fatalf("expected unknown operand to fail with ErrBadOperand; got %v", err)
	}

	ctx.Push()
	ctx.Translate(types.XYZ(0, 0, 5))
	shell, err := b.AddCSG(ctx, csg.Subtract, o, i)
	if err != nil {
		t.Fatal(err)
	}
	ctx.Pop()

	if _, err = b.AddCSG(ctx, csg.Union, o, shell); errors.Cause(err) != ErrBadOperand {
		t.Fatalf("expected consumed operand to fail with ErrBadOperand; got %v", err)
	}

	so := b.Object(shell)
	if !so.ToWorld.IsIdent() {
		t.Fatalf("expected csg object to keep the identity transform")
	}
	for _, id := range []ObjectID{o, i} {
		leaf := b.Object(id)
		if !leaf.InCSG {
			t.Fatalf("expected operand %d to be marked as a csg operand", id)
		}
		c := leaf.ToWorld.MulPoint(types.Vec3{})
		if !c.ApproxEqual(types.XYZ(0, 0, 5), 1e-9) {
			t.Fatalf("expected operand %d to be moved to (0, 0, 5); got %v", id, c)
		}
	}
	if !so.BBox.Contains(types.XYZ(0, 0, 6.5)) || so.BBox.Contains(types.XYZ(0, 0, 1)) {
		t.Fatalf("expected csg bounds to follow its operands; got %v", so.BBox)
	}

	sc, err := b.Build(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Objects) != 3 {
		t.Fatalf("expected 3 objects; got %d", len(sc.Objects))
	}
	st := sc.Stats()
	if st.Operands != 2 || st.PerKind[geometry.CSGKind] != 1 || st.PerKind[geometry.SphereKind] != 2 {
		t.Fatalf("unexpected scene stats %+v", st)
	}
	if st.Index.Objects != 1 {
		t.Fatalf("expected only the csg root to be indexed; got %d objects", st.Index.Objects)
	}

	if _, err = b.Build(DefaultOptions()); err != ErrAlreadyBuilt {
		t.Fatalf("expected second build to fail with ErrAlreadyBuilt; got %v", err)
	}
}

func TestBuildPartitionsObjects(t *testing.T) {
	b := NewBuilder()
	ctx := NewContext()

	sphere, _ := geometry.NewSphere(1)
	plane, err := geometry.NewAlgebraic([]geometry.Term{{Coef: 1, Z: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = b.Add(ctx, sphere); err != nil {
		t.Fatal(err)
	}
	if _, err = b.Add(ctx, plane); err != nil {
		t.Fatal(err)
	}

	// Two disjoint spheres intersected enclose nothing.
	l, _ := b.Add(ctx.Push().Translate(types.XYZ(10, 0, 0)), sphere)
	ctx.Pop()
	r, _ := b.Add(ctx.Push().Translate(types.XYZ(20, 0, 0)), sphere)
	ctx.Pop()
	if _, err = b.AddCSG(ctx, csg.Intersect, l, r); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.Index = accel.GridKind
	sc, err := b.Build(opts)
	if err != nil {
		t.Fatal(err)
	}

	if sc.Others.Len() != 1 {
		t.Fatalf("expected the algebraic plane to be traced separately; got %d others", sc.Others.Len())
	}
	if sc.Index == nil || sc.Index.Stats().Kind != accel.GridKind || sc.Index.Stats().Objects != 1 {
		t.Fatalf("expected a grid holding the sphere only")
	}

	expTol := math.Sqrt(12) / 2 * tracer.DefaultTolerance
	if math.Abs(sc.Tolerance-expTol) > 1e-12 {
		t.Fatalf("expected tolerance %g; got %g", expTol, sc.Tolerance)
	}
	if sc.Objects[0].BBox.Max[0] <= 1 {
		t.Fatalf("expected indexed bounds to be padded; got %v", sc.Objects[0].BBox)
	}
	if sc.Camera == nil {
		t.Fatalf("expected a default camera")
	}
}

func TestBuildEmptyScene(t *testing.T) {
	sc, err := NewBuilder().Build(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sc.Index != nil || sc.Others.Len() != 0 {
		t.Fatalf("expected an empty scene to have nothing to trace")
	}
	if sc.Tolerance != tracer.DefaultTolerance {
		t.Fatalf("expected default tolerance; got %g", sc.Tolerance)
	}
}

func TestCamera(t *testing.T) {
	type spec struct {
		w, h int
		x, y float64
		exp  types.Vec3
	}

	// The eye looks down -y with z up so screen x maps to -x.
	cam := NewCamera(types.XYZ(0, 5, 0), types.Vec3{}, types.XYZ(0, 0, 1))

	specs := []spec{
		{100, 100, 0, 0, types.XYZ(0, -1, 0)},
		{100, 100, 1, 0, types.XYZ(-1, -1, 0).Normalize()},
		{100, 100, 0, 1, types.XYZ(0, -1, 1).Normalize()},
		// Wider image: the short side spans [-1, 1], focal length doubles.
		{200, 100, 0, 1, types.XYZ(0, -2, 1).Normalize()},
		{200, 100, 2, 0, types.XYZ(-1, -1, 0).Normalize()},
	}

	for index, s := range specs {
		cam.Setup(s.w, s.h)
		r := cam.Ray(s.x, s.y)
		if !r.Dir.ApproxEqual(s.exp, 1e-9) {
			t.Errorf("[spec %d] expected ray direction %v; got %v", index, s.exp, r.Dir)
		}
		if r.Org != cam.Eye || r.Kind != tracer.Primary {
			t.Errorf("[spec %d] expected a primary ray from the eye", index)
		}
	}
}

func TestLights(t *testing.T) {
	l := NewSpotLight(types.XYZ(0, 0, 10), types.Vec3{}, types.Grey(1), 60, 0)
	if l.Kind != Directional || !l.Dir.ApproxEqual(types.XYZ(0, 0, 1), 1e-12) {
		t.Fatalf("expected spot light pointing back up its axis; got %v %v", l.Kind, l.Dir)
	}
	if math.Abs(l.CosEdge-0.5) > 1e-12 || l.CosIn != 2 {
		t.Fatalf("expected hard edged cone at cos 0.5; got %g / %g", l.CosEdge, l.CosIn)
	}

	l = NewSpotLight(types.XYZ(0, 0, 10), types.Vec3{}, types.Grey(1), 60, 30)
	if math.Abs(l.CosIn-math.Sqrt(3)/2) > 1e-12 {
		t.Fatalf("expected soft edge at cos 30; got %g", l.CosIn)
	}

	d := NewDistantLight(types.XYZ(0, 3, 4), types.Grey(1))
	if !d.Dir.ApproxEqual(types.XYZ(0, 0.6, 0.8), 1e-12) {
		t.Fatalf("expected normalized direction; got %v", d.Dir)
	}

	p := NewPointLight(types.Vec3{}, types.Grey(1))
	p.SetArea(1, 0)
	if p.Rays != 1 || p.Radius != 1 {
		t.Fatalf("expected at least one shadow ray; got %d", p.Rays)
	}
}

func TestDemos(t *testing.T) {
	for _, d := range Demos() {
		b, err := LoadDemo(d.Name)
		if err != nil {
			t.Errorf("demo %q: %v", d.Name, err)
			continue
		}
		sc, err := b.Build(DefaultOptions())
		if err != nil {
			t.Errorf("demo %q: build: %v", d.Name, err)
			continue
		}
		if len(sc.Lights) == 0 || sc.Camera == nil {
			t.Errorf("demo %q: expected lights and a camera", d.Name)
		}
		if sc.Index == nil && sc.Others.Len() == 0 {
			t.Errorf("demo %q: expected something to trace", d.Name)
		}
	}

	if _, err := LoadDemo("nope"); errors.Cause(err) != ErrUnknownDemo {
		t.Fatalf("expected ErrUnknownDemo; got %v", err)
	}
}
