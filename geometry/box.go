package geometry

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Box is an axis aligned box. Hit types name the face that was crossed.
type Box struct {
	Min types.Vec3
	Max types.Vec3
}

// NewBox creates a box spanning the two corners.
func NewBox(min, max types.Vec3) (*Box, error) {
	b := &Box{Min: types.MinVec3(min, max), Max: types.MaxVec3(min, max)}
	for i := 0; i < 3; i++ {
		if b.Max[i]-b.Min[i] <= 0 {
			return nil, ErrDegenerate
		}
	}
	return b, nil
}

func (b *Box) Kind() Kind { return BoxKind }

func (b *Box) Flags() Flags { return Flags{} }

func (b *Box) Bounds() types.BBox {
	return types.BBox{Min: b.Min, Max: b.Max}
}

func (b *Box) Intersect(ctx *tracer.Context, r *tracer.Ray, self *Object) tracer.HitID {
	tmin, tmax := -types.Huge, types.Huge
	minFace, maxFace := NXFace, PXFace

	for axis := 0; axis < 3; axis++ {
		if r.Dir[axis] == 0 {
			if r.Org[axis] < b.Min[axis] || r.Org[axis] > b.Max[axis] {
				return tracer.Nil
			}
			continue
		}

		t1 := (b.Min[axis] - r.Org[axis]) / r.Dir[axis]
		t2 := (b.Max[axis] - r.Org[axis]) / r.Dir[axis]
		f1, f2 := NXFace+axis, PXFace+axis
		if t1 > t2 {
			t1, t2 = t2, t1
			f1, f2 = f2, f1
		}
		if t1 > tmin {
			tmin, minFace = t1, f1
		}
		if t2 < tmax {
			tmax, maxFace = t2, f2
		}
		if tmin > tmax {
			return tracer.Nil
		}
	}

	return pairHits(ctx, self, tmin, minFace, tmax, maxFace)
}

func (b *Box) Normal(_ types.Vec3, h *tracer.Hit) types.Vec3 {
	var n types.Vec3
	switch {
	case h.Type >= NXFace && h.Type <= NZFace:
		n[h.Type-NXFace] = -1
	case h.Type >= PXFace && h.Type <= PZFace:
		n[h.Type-PXFace] = 1
	}
	return n
}

// SurfaceColor maps each face onto the tile using the two axes spanning it.
func (b *Box) SurfaceColor(p types.Vec3, h *tracer.Hit, tile Tile) (types.Color, bool) {
	axis := h.Type % 3
	ua, va := (axis+1)%3, (axis+2)%3
	u := (p[ua] - b.Min[ua]) / (b.Max[ua] - b.Min[ua])
	v := (p[va] - b.Min[va]) / (b.Max[va] - b.Min[va])
	return lookup(tile, u, v)
}
