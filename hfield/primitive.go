package hfield

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// HeightField adapts a Field to the geometry kernel. Each worker gets its
// own Cache through the tracing context. Hit types encode cell*4+triangle
// and the hit U/V hold the barycentric weights.
type HeightField struct {
	Field  *Field
	Config Config
}

// NewPrimitive wraps f using the default pool sizes.
func NewPrimitive(f *Field) *HeightField {
	return &HeightField{Field: f, Config: DefaultConfig}
}

func (h *HeightField) Kind() geometry.Kind { return geometry.HeightFieldKind }

func (h *HeightField) Bounds() types.BBox { return h.Field.Bounds() }

func (h *HeightField) Flags() geometry.Flags {
	return geometry.Flags{CheckBBox: true, SelfShadowing: true}
}

// Cache returns the calling worker's cache for self.
func (h *HeightField) Cache(ctx *tracer.Context, self *geometry.Object) *Cache {
	return ctx.Local(self.ID, func() interface{} {
		return NewCache(h.Field, h.Config)
	}).(*Cache)
}

func (h *HeightField) Intersect(ctx *tracer.Context, r *tracer.Ray, self *geometry.Object) tracer.HitID {
	x, ok := h.Cache(ctx, self).Intersect(r.Org, r.Dir, ctx.Tolerance)
	if !ok {
		return tracer.Nil
	}

	a := ctx.Arena
	typ := x.Cell*4 + x.Tri
	id := a.Alloc(x.T, self.ID, typ)
	a.Get(id).U, a.Get(id).V = x.W1, x.W2
	if self.InCSG {
		exit := a.Alloc(x.T, self.ID, typ)
		a.Get(exit).U, a.Get(exit).V = x.W1, x.W2
		a.SetNext(id, exit)
	}
	return id
}

func (h *HeightField) Normal(_ types.Vec3, hit *tracer.Hit) types.Vec3 {
	return h.Field.Normal(hit.Type/4, hit.Type%4, hit.U, hit.V)
}

// SurfaceColor maps tiles flat across the x/y extent of the field.
func (h *HeightField) SurfaceColor(p types.Vec3, _ *tracer.Hit, tile geometry.Tile) (types.Color, bool) {
	if tile == nil {
		return types.Color{}, false
	}
	b := h.Field.Bounds()
	return tile.Lookup(p[0]/b.Max[0], p[1]/b.Max[1]), true
}

func (h *HeightField) VertexColour(_ types.Vec3, hit *tracer.Hit) (types.Color, bool) {
	return h.Field.Colour(hit.Type/4, hit.Type%4, hit.U, hit.V)
}
