// Package csg merges ordered hit lists under constructive solid geometry
// set operations.
package csg

import (
	"fmt"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/tracer"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Op is a CSG set operation.
type Op uint8

const (
	Union Op = iota
	Intersect
	Subtract
)

func (op Op) String() string {
	switch op {
	case Union:
		return "union"
	case Intersect:
		return "intersect"
	case Subtract:
		return "subtract"
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Flags returns whether being outside the left and right operand counts as
// being inside the result. The merge only needs these two values to
// implement every operation.
func Flags(op Op) (leftIn, rightIn bool) {
	switch op {
	case Union:
		return true, true
	case Intersect:
		return false, false
	default:
		return false, true
	}
}

// Bounds returns the bounding box of the result of op applied to operands
// with the given boxes.
func Bounds(op Op, left, right types.BBox) types.BBox {
	switch op {
	case Union:
		return left.Union(right)
	case Intersect:
		return left.Overlap(right)
	default:
		return left
	}
}

// Merge combines the sorted hit lists of the left and right operand into
// the sorted list of crossings of the result. Crossings that do not change
// the combined in/out state are released back to the arena. Right operand
// crossings that survive a subtraction have their orientation reversed.
func Merge(a *tracer.Arena, left, right tracer.HitID, op Op) tracer.HitID {
	if left == tracer.Nil && right == tracer.Nil {
		return tracer.Nil
	}

	leftb, rightb := Flags(op)

	// An odd number of crossings means the ray starts inside the operand.
	for id := left; id != tracer.Nil; id = a.Next(id) {
		leftb = !leftb
	}
	for id := right; id != tracer.Nil; id = a.Next(id) {
		if op == Subtract {
			h := a.Get(id)
			h.Flipped = !h.Flipped
		}
		rightb = !rightb
	}

	head, tail := tracer.Nil, tracer.Nil
	emit := func(id tracer.HitID) {
		if tail == tracer.Nil {
			head = id
		} else {
			a.SetNext(tail, id)
		}
		tail = id
	}

	var next tracer.HitID
	for left != tracer.Nil && right != tracer.Nil {
		if a.Get(left).T < a.Get(right).T {
			next = a.Next(left)
			a.SetNext(left, tracer.Nil)
			if rightb {
				emit(left)
			} else {
				a.Free(left)
			}
			left = next
			leftb = !leftb
		} else {
			next = a.Next(right)
			a.SetNext(right, tracer.Nil)
			if leftb {
				emit(right)
			} else {
				a.Free(right)
			}
			right = next
			rightb = !rightb
		}
	}

	var rest tracer.HitID
	switch {
	case left != tracer.Nil && rightb:
		rest = left
		a.Free(right)
	case right != tracer.Nil && leftb:
		rest = right
		a.Free(left)
	default:
		rest = tracer.Nil
		a.Free(left)
		a.Free(right)
	}

	if tail == tracer.Nil {
		return rest
	}
	a.SetNext(tail, rest)
	return head
}

// Inside reports whether the point at distance t lies inside the solid
// described by list, assuming the ray origin is outside it.
func Inside(a *tracer.Arena, list tracer.HitID, t float64) bool {
	inside := false
	for id := list; id != tracer.Nil && a.Get(id).T < t; id = a.Next(id) {
		inside = !inside
	}
	return inside
}
