package types

import "math"

// An axis aligned bounding box.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty box that any Extend/Union call will replace.
func EmptyBBox() BBox {
	return BBox{
		Min: Vec3{Huge, Huge, Huge},
		Max: Vec3{-Huge, -Huge, -Huge},
	}
}

// Create a box that covers all of space.
func InfiniteBBox() BBox {
	return BBox{
		Min: Vec3{-Huge, -Huge, -Huge},
		Max: Vec3{Huge, Huge, Huge},
	}
}

// Returns true if the box has no volume on some axis.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Returns true if the box reaches the Huge limit on any axis.
func (b BBox) IsInfinite() bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] <= -Huge || b.Max[i] >= Huge {
			return true
		}
	}
	return false
}

// Grow the box to include p.
func (b BBox) Extend(p Vec3) BBox {
	return BBox{Min: MinVec3(b.Min, p), Max: MaxVec3(b.Max, p)}
}

// Smallest box enclosing both boxes.
func (b BBox) Union(b2 BBox) BBox {
	return BBox{Min: MinVec3(b.Min, b2.Min), Max: MaxVec3(b.Max, b2.Max)}
}

// Intersection of both boxes. The result may be empty.
func (b BBox) Overlap(b2 BBox) BBox {
	return BBox{Min: MaxVec3(b.Min, b2.Min), Max: MinVec3(b.Max, b2.Max)}
}

// Grow the box by tol on every side.
func (b BBox) Pad(tol float64) BBox {
	return BBox{
		Min: b.Min.Sub(Vec3{tol, tol, tol}),
		Max: b.Max.Add(Vec3{tol, tol, tol}),
	}
}

// Length of the box diagonal.
func (b BBox) Diagonal() float64 {
	return b.Max.Sub(b.Min).Len()
}

// Box centre.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Returns true if p lies inside or on the box.
func (b BBox) Contains(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Returns true if the two boxes share any volume.
func (b BBox) Overlaps(b2 BBox) bool {
	return b.Min[0] <= b2.Max[0] && b.Max[0] >= b2.Min[0] &&
		b.Min[1] <= b2.Max[1] && b.Max[1] >= b2.Min[1] &&
		b.Min[2] <= b2.Max[2] && b.Max[2] >= b2.Min[2]
}

// Transform the 8 box corners by m and return the box enclosing them.
// Infinite boxes stay infinite and empty ones stay empty.
func (b BBox) Transform(m Mat4) BBox {
	if b.IsEmpty() {
		return b
	}
	if b.IsInfinite() {
		return InfiniteBBox()
	}

	out := EmptyBBox()
	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out = out.Extend(m.MulPoint(corner))
	}
	return out
}

// Slab test a ray against the box. It returns the parametric distances at
// which the ray enters and leaves the box; ok is false if the ray misses the
// box or the box lies behind the origin.
func (b BBox) Clip(org, dir Vec3) (tmin, tmax float64, ok bool) {
	tmin, tmax = -Huge, Huge
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if org[i] < b.Min[i] || org[i] > b.Max[i] {
				return 0, 0, false
			}
			continue
		}

		inv := 1.0 / dir[i]
		t1 := (b.Min[i] - org[i]) * inv
		t2 := (b.Max[i] - org[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, 0, false
		}
	}

	if tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// Returns true if the ray hits the box at some t >= 0.
func (b BBox) Hit(org, dir Vec3) bool {
	_, _, ok := b.Clip(org, dir)
	return ok
}
