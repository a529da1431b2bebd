// Package geometry implements the primitive intersection kernel: per kind
// ray intersection, surface normals and tile mapping, plus the Object
// record that binds a primitive to its transform and surface.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

var logger = log.New("geometry")

var (
	// ErrDegenerate is returned by constructors whose input describes a
	// primitive that can never be hit.
	ErrDegenerate = errors.New("geometry: degenerate primitive")
)

// Kind identifies a primitive type.
type Kind uint8

const (
	SphereKind Kind = iota
	EllipsoidKind
	BoxKind
	CylinderKind
	ConeKind
	TorusKind
	RingKind
	PolygonKind
	TriangleKind
	SuperquadricKind
	AlgebraicKind
	PatchKind
	BlobKind
	HeightFieldKind
	CSGKind
	NumKinds
)

var kindNames = [NumKinds]string{
	"sphere",
	"ellipsoid",
	"box",
	"cylinder",
	"cone",
	"torus",
	"ring",
	"polygon",
	"triangle",
	"superquadric",
	"algebraic",
	"patch",
	"blob",
	"heightfield",
	"csg",
}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Hit types shared by the quadrics. Faces are named after the axis their
// outward normal points along.
const (
	NXFace = iota
	NYFace
	NZFace
	PXFace
	PYFace
	PZFace
	Side
)

// Flags are the static per kind tracing properties.
type Flags struct {
	// Test the object bounding box before running the intersection.
	CheckBBox bool

	// The surface can cast a shadow onto itself, so rays leaving it must
	// still test it.
	SelfShadowing bool
}

// A Tile maps surface coordinates to a colour.
type Tile interface {
	Lookup(u, v float64) types.Color
}

// Primitive is implemented by every primitive kind. Points and rays passed
// to a primitive are in its object space.
type Primitive interface {
	Kind() Kind

	// Object space bounds. Unbounded primitives return an infinite box.
	Bounds() types.BBox

	Flags() Flags

	// Intersect returns the crossings of r sorted by distance. Primitives
	// that take part in CSG (self.InCSG) must report both entry and exit
	// crossings; otherwise only the nearest is required.
	Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID

	// Normal returns the unnormalized outward normal at p.
	Normal(p types.Vec3, h *tracer.Hit) types.Vec3

	// SurfaceColor maps p through tile. It returns false for primitives
	// without a surface parameterisation.
	SurfaceColor(p types.Vec3, h *tracer.Hit, tile Tile) (types.Color, bool)
}

// VertexColoured is implemented by primitives that interpolate a base
// colour across their surface.
type VertexColoured interface {
	VertexColour(p types.Vec3, h *tracer.Hit) (types.Color, bool)
}

// pairHits emits the crossings of a convex interval [t1, t2]. Crossings at
// or below the tolerance are dropped; only the nearest is kept unless self
// takes part in CSG.
func pairHits(ctx *tracer.Context, self *Object, t1 float64, typ1 int, t2 float64, typ2 int) tracer.HitID {
	if t1 > t2 {
		t1, t2 = t2, t1
		typ1, typ2 = typ2, typ1
	}

	a := ctx.Arena
	if t1 > ctx.Tolerance {
		h := a.Alloc(t1, self.ID, typ1)
		if self.InCSG {
			a.SetNext(h, a.Alloc(t2, self.ID, typ2))
		}
		return h
	}
	if t2 > ctx.Tolerance {
		return a.Alloc(t2, self.ID, typ2)
	}
	return tracer.Nil
}

// planeHits emits the crossing of a zero thickness surface. Inside CSG a
// sheet is entered and left at the same distance.
func planeHits(ctx *tracer.Context, self *Object, t float64, typ int) tracer.HitID {
	a := ctx.Arena
	h := a.Alloc(t, self.ID, typ)
	if self.InCSG {
		a.SetNext(h, a.Alloc(t, self.ID, typ))
	}
	return h
}

// spheremap maps a unit direction to (u, v) in [0, 1).
func spheremap(p types.Vec3) (u, v float64) {
	p = p.Normalize()
	u = math.Atan2(p[1], p[0])/(2*math.Pi) + 0.5
	v = math.Acos(math.Max(-1, math.Min(1, p[2]))) / math.Pi
	return u, v
}

// cylmap maps a point around the z axis to (u, v) with v running from lo
// to hi.
func cylmap(p types.Vec3, lo, hi float64) (u, v float64) {
	u = math.Atan2(p[1], p[0])/(2*math.Pi) + 0.5
	v = (p[2] - lo) / (hi - lo)
	return u, v
}

func lookup(tile Tile, u, v float64) (types.Color, bool) {
	if tile == nil {
		return types.Color{}, false
	}
	return tile.Lookup(u, v), true
}
