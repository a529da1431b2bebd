package scene

import (
	"math"
	"sort"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/csg"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/hfield"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/texture"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
	"github.com/pkg/errors"
)

var ErrUnknownDemo = errors.New("scene: unknown demo scene")

// A Demo is a built-in scene.
type Demo struct {
	Name        string
	Description string

	build func(b *Builder, ctx *Context) error
}

var demos = map[string]Demo{
	"sphere": {
		Name:        "sphere",
		Description: "unit sphere lit by a distant light behind the camera",
		build:       buildSphere,
	},
	"csg": {
		Name:        "csg",
		Description: "sphere with a smaller sphere subtracted, cut by a box",
		build:       buildCSG,
	},
	"quadrics": {
		Name:        "quadrics",
		Description: "box, cylinder, cone, ellipsoid, superquadric and disc on a floor",
		build:       buildQuadrics,
	},
	"torus": {
		Name:        "torus",
		Description: "reflective torus with a marble ring",
		build:       buildTorus,
	},
	"blob": {
		Name:        "blob",
		Description: "three merging metaballs",
		build:       buildBlob,
	},
	"heightfield": {
		Name:        "heightfield",
		Description: "phong shaded rippled height field with vertex colours",
		build:       buildHeightField,
	},
	"patch": {
		Name:        "patch",
		Description: "bicubic bezier patch under a spot light",
		build:       buildPatch,
	},
	"algebraic": {
		Name:        "algebraic",
		Description: "clipped quartic surface and an unbounded floor plane",
		build:       buildAlgebraic,
	},
	"glass": {
		Name:        "glass",
		Description: "refracting sphere on a tiled floor under an area light",
		build:       buildGlass,
	},
}

// Demos returns the built-in scenes sorted by name.
func Demos() []Demo {
	out := make([]Demo, 0, len(demos))
	for _, d := range demos {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadDemo assembles the named built-in scene.
func LoadDemo(name string) (*Builder, error) {
	d, ok := demos[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDemo, "%q", name)
	}
	b := NewBuilder()
	if err := d.build(b, NewContext()); err != nil {
		return nil, errors.Wrapf(err, "scene: demo %q", name)
	}
	return b, nil
}

func surface(c types.Color) geometry.Surface {
	s := geometry.DefaultSurface()
	s.Colour = c
	return s
}

func shiny(c types.Color) geometry.Surface {
	s := surface(c)
	s.Kd = 0.7
	s.Ks = 0.4
	s.KsExp = 30
	return s
}

func addFloor(b *Builder, ctx *Context, z, size float64) error {
	ctx.Push()
	defer ctx.Pop()

	ctx.WithSurface(surface(types.Color{0.8, 0.8, 0.7}))
	floor, err := geometry.NewPolygon([]types.Vec3{
		types.XYZ(-size, -size, z),
		types.XYZ(size, -size, z),
		types.XYZ(size, size, z),
		types.XYZ(-size, size, z),
	}, nil, nil, false)
	if err != nil {
		return err
	}
	_, err = b.AddNamed(ctx, "floor", floor)
	return err
}

func buildSphere(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, 0, 5), types.Vec3{}, types.XYZ(0, 1, 0)))
	b.AddLight(NewDistantLight(types.XYZ(0, 0, 1), types.Grey(1)))

	s := surface(types.Color{1, 0.2, 0.2})
	s.Ambient = types.Color{}
	ctx.WithSurface(s)

	sphere, err := geometry.NewSphere(1)
	if err != nil {
		return err
	}
	_, err = b.AddNamed(ctx, "sphere", sphere)
	return err
}

func buildCSG(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(3, -4, 3), types.Vec3{}, types.XYZ(0, 0, 1)))
	b.AddLight(NewPointLight(types.XYZ(10, -10, 20), types.Grey(1)))
	b.AddLight(NewPointLight(types.XYZ(-10, -5, 5), types.Grey(0.4)))

	if err := addFloor(b, ctx, -1.5, 10); err != nil {
		return err
	}

	outer, _ := geometry.NewSphere(1.2)
	inner, _ := geometry.NewSphere(1)
	cut, _ := geometry.NewBox(types.XYZ(-2, -2, 0.2), types.XYZ(2, 2, 2))

	ctx.Push()
	ctx.WithSurface(shiny(types.Color{0.9, 0.6, 0.1}))
	o, err := b.Add(ctx, outer)
	if err != nil {
		return err
	}
	ctx.WithSurface(surface(types.Color{0.2, 0.4, 0.9}))
	i, err := b.Add(ctx, inner)
	if err != nil {
		return err
	}
	shell, err := b.AddCSG(ctx, csg.Subtract, o, i)
	if err != nil {
		return err
	}
	c, err := b.Add(ctx, cut)
	if err != nil {
		return err
	}
	ctx.Pop()

	ctx.Push()
	defer ctx.Pop()
	ctx.Rotate(types.XYZ(0, 0, 1), 30)
	_, err = b.AddCSG(ctx, csg.Subtract, shell, c)
	return err
}

func buildQuadrics(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, -9, 4), types.XYZ(0, 0, 0.5), types.XYZ(0, 0, 1)))
	b.AddLight(NewPointLight(types.XYZ(5, -8, 12), types.Grey(1)))

	if err := addFloor(b, ctx, 0, 20); err != nil {
		return err
	}

	box, _ := geometry.NewBox(types.XYZ(-0.6, -0.6, 0), types.XYZ(0.6, 0.6, 1.2))
	cyl := geometry.NewCylinder()
	cone, err := geometry.NewCone(0.3)
	if err != nil {
		return err
	}
	ell, _ := geometry.NewEllipsoid(types.XYZ(0.9, 0.5, 0.6))
	sq, _ := geometry.NewSuperquadric(4)
	disc, _ := geometry.NewRing(0.4, 0.9)

	type placed struct {
		prim   geometry.Primitive
		colour types.Color
		at     types.Vec3
		scale  types.Vec3
	}
	items := []placed{
		{box, types.Color{0.9, 0.2, 0.2}, types.XYZ(-3, 0, 0), types.XYZ(1, 1, 1)},
		{cyl, types.Color{0.2, 0.9, 0.2}, types.XYZ(-1, 0, 0), types.XYZ(0.6, 0.6, 1.5)},
		{cone, types.Color{0.2, 0.2, 0.9}, types.XYZ(1, 0, 0), types.XYZ(0.7, 0.7, 1.5)},
		{ell, types.Color{0.9, 0.9, 0.2}, types.XYZ(3, 0, 0.6), types.XYZ(1, 1, 1)},
		{sq, types.Color{0.9, 0.2, 0.9}, types.XYZ(-2, 2.5, 0.8), types.XYZ(0.8, 0.8, 0.8)},
		{disc, types.Color{0.2, 0.9, 0.9}, types.XYZ(2, 2.5, 1), types.XYZ(1, 1, 1)},
	}
	for _, it := range items {
		ctx.Push()
		ctx.WithSurface(shiny(it.colour))
		ctx.Scale(it.scale).Translate(it.at)
		if _, err := b.Add(ctx, it.prim); err != nil {
			return err
		}
		ctx.Pop()
	}
	return nil
}

func buildTorus(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, -5, 3), types.Vec3{}, types.XYZ(0, 0, 1)))
	b.AddLight(NewPointLight(types.XYZ(4, -6, 8), types.Grey(1)))

	if err := addFloor(b, ctx, -1, 20); err != nil {
		return err
	}

	torus, err := geometry.NewTorus(0.3)
	if err != nil {
		return err
	}
	ctx.Push()
	s := shiny(types.Color{0.6, 0.6, 0.7})
	s.Refl = types.Grey(0.4)
	ctx.WithSurface(s)
	ctx.Rotate(types.XYZ(1, 0, 0), 30)
	if _, err := b.AddNamed(ctx, "torus", torus); err != nil {
		return err
	}
	ctx.Pop()

	ring, _ := geometry.NewTorus(0.2)
	ctx.Push()
	defer ctx.Pop()
	marble := texture.NewPattern(texture.Marble, types.Color{0.1, 0.1, 0.3})
	marble.Scale = 4
	ctx.WithSurface(surface(types.Grey(0.95))).WithTexture(marble)
	ctx.Scale(types.XYZ(0.5, 0.5, 0.5)).Translate(types.XYZ(0, 0, -0.6))
	_, err = b.AddNamed(ctx, "ring", ring)
	return err
}

func buildBlob(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, -6, 2), types.Vec3{}, types.XYZ(0, 0, 1)))
	b.AddLight(NewPointLight(types.XYZ(5, -5, 10), types.Grey(1)))

	blob, err := geometry.NewBlob([]geometry.Ball{
		{Center: types.XYZ(-0.7, 0, 0), Radius: 1.2, Strength: 1},
		{Center: types.XYZ(0.7, 0, 0), Radius: 1.2, Strength: 1},
		{Center: types.XYZ(0, 0, 0.9), Radius: 1, Strength: 1},
	}, 0.5)
	if err != nil {
		return err
	}
	ctx.WithSurface(shiny(types.Color{0.3, 0.8, 0.4}))
	_, err = b.AddNamed(ctx, "blob", blob)
	return err
}

func buildHeightField(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0.5, -1.2, 1.2), types.XYZ(0.5, 0.5, 0), types.XYZ(0, 0, 1)))
	b.AddLight(NewDistantLight(types.XYZ(1, -1, 2), types.Grey(1)))

	const n = 64
	z := make([]float64, n*n)
	cols := make([]types.Color, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x, y := float64(i)/(n-1), float64(j)/(n-1)
			r := math.Hypot(x-0.5, y-0.5)
			h := 0.08*math.Cos(r*30)*math.Exp(-3*r) + 0.1
			z[j*n+i] = h
			cols[j*n+i] = types.Color{0.2 + 2*h, 0.5, 1 - 2*h}
		}
	}
	f, err := hfield.New(n, n, z, cols, true)
	if err != nil {
		return err
	}
	_, err = b.AddNamed(ctx, "terrain", hfield.NewPrimitive(f))
	return err
}

func buildPatch(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(1.5, -3, 3), types.XYZ(1.5, 1.5, 0), types.XYZ(0, 0, 1)))
	b.AddLight(NewSpotLight(types.XYZ(1.5, 1.5, 6), types.XYZ(1.5, 1.5, 0), types.Grey(1), 35, 20))
	b.AddLight(NewPointLight(types.XYZ(-4, -4, 4), types.Grey(0.3)))

	var geom [4][4]types.Vec3
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			h := 0.0
			if (i == 1 || i == 2) && (j == 1 || j == 2) {
				h = 1.5
			}
			geom[i][j] = types.XYZ(float64(i), float64(j), h)
		}
	}
	patch, err := geometry.NewPatch(geom, geometry.BezierBasis, 0)
	if err != nil {
		return err
	}
	ctx.WithSurface(shiny(types.Color{0.9, 0.5, 0.3}))
	_, err = b.AddNamed(ctx, "patch", patch)
	return err
}

func buildAlgebraic(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, -6, 3), types.Vec3{}, types.XYZ(0, 0, 1)))
	b.AddLight(NewPointLight(types.XYZ(5, -5, 10), types.Grey(1)))

	// Unbounded floor: z + 1.5 = 0.
	plane, err := geometry.NewAlgebraic([]geometry.Term{{Coef: 1, Z: 1}, {Coef: 1.5}}, nil)
	if err != nil {
		return err
	}
	ctx.Push()
	ctx.WithSurface(surface(types.Color{0.7, 0.7, 0.6}))
	if _, err := b.AddNamed(ctx, "plane", plane); err != nil {
		return err
	}
	ctx.Pop()

	// Tangle cube x^4 - 5x^2 + y^4 - 5y^2 + z^4 - 5z^2 + 11.8 = 0 clipped
	// to a box around its finite part.
	clipBox, _ := geometry.NewBox(types.XYZ(-3, -3, -3), types.XYZ(3, 3, 3))
	clip, err := geometry.NewObject(clipBox, types.Ident4(), nil)
	if err != nil {
		return err
	}
	clip.InCSG = true
	tangle, err := geometry.NewAlgebraic([]geometry.Term{
		{Coef: 1, X: 4}, {Coef: -5, X: 2},
		{Coef: 1, Y: 4}, {Coef: -5, Y: 2},
		{Coef: 1, Z: 4}, {Coef: -5, Z: 2},
		{Coef: 11.8},
	}, clip)
	if err != nil {
		return err
	}
	ctx.Push()
	defer ctx.Pop()
	ctx.WithSurface(shiny(types.Color{0.3, 0.6, 0.9}))
	ctx.Scale(types.XYZ(0.5, 0.5, 0.5))
	_, err = b.AddNamed(ctx, "tangle", tangle)
	return err
}

func buildGlass(b *Builder, ctx *Context) error {
	b.SetCamera(NewCamera(types.XYZ(0, -6, 1.5), types.XYZ(0, 0, 0.5), types.XYZ(0, 0, 1)))
	light := NewPointLight(types.XYZ(3, -4, 8), types.Grey(1))
	light.SetArea(0.5, 8)
	b.AddLight(light)

	ctx.Push()
	ctx.WithSurface(surface(types.Color{0.9, 0.85, 0.8}))
	ctx.WithTexture(&texture.Blocks{
		Placement: texture.Identity(),
		Size:      types.XYZ(1, 1, 0),
		Gap:       0.1,
		Colour:    types.Color{0.8, 0.3, 0.2},
		GapColour: types.Grey(0.9),
	})
	if err := addFloor(b, ctx, 0, 30); err != nil {
		return err
	}
	ctx.Pop()

	glass, _ := geometry.NewSphere(1)
	ctx.Push()
	s := geometry.DefaultSurface()
	s.Colour = types.Color{0.9, 0.95, 1}
	s.Kd = 0.1
	s.Ks = 0.8
	s.KsExp = 60
	s.Trans = types.Grey(0.85)
	s.Refl = types.Grey(0.1)
	s.RI = 1.5
	ctx.WithSurface(s)
	ctx.Translate(types.XYZ(0, 0, 1))
	if _, err := b.AddNamed(ctx, "glass", glass); err != nil {
		return err
	}
	ctx.Pop()

	bumpy, _ := geometry.NewSphere(0.6)
	ctx.Push()
	defer ctx.Pop()
	ctx.WithSurface(shiny(types.Color{0.2, 0.6, 0.3}))
	ctx.WithTexture(texture.NewBump(types.XYZ(0.3, 0.3, 0.3)))
	ctx.Translate(types.XYZ(1.8, 2, 0.6))
	_, err := b.AddNamed(ctx, "bumpy", bumpy)
	return err
}
