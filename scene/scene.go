// Package scene assembles primitives, lights and a camera into an
// immutable Scene that the shading workers share.
package scene

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/accel"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

var logger = log.New("scene")

// Options holds the global rendering environment of a scene.
type Options struct {
	Background types.Color

	// Fog mixes the haze colour into distant surfaces; zero disables it.
	Haze    types.Color
	Fog     float64
	RFactor float64

	// Refractive index and light falloff of the space the camera is in.
	RI      float64
	Falloff float64

	// Spatial index for bounded objects.
	Index        accel.Kind
	IndexOptions accel.Options
}

// DefaultOptions returns a black background, no fog and a k-d tree.
func DefaultOptions() Options {
	return Options{
		Haze:         types.Grey(1),
		RFactor:      0.03,
		RI:           1,
		Index:        accel.KDTreeKind,
		IndexOptions: accel.DefaultOptions(),
	}
}

// A Scene is read-only once built.
type Scene struct {
	// Every object indexed by its ID, CSG operands included.
	Objects []*geometry.Object

	// Bounded objects. Nil when there are none.
	Index accel.Index

	// Unbounded and algebraic objects, tested for every ray.
	Others *accel.List

	Lights []*Light
	Camera *Camera

	Options Options

	// World bounds of the indexed objects and the distance below which
	// crossings are ignored.
	BBox      types.BBox
	Tolerance float64
}

// Stats summarises a built scene.
type Stats struct {
	Objects   int
	Operands  int
	Others    int
	Lights    int
	PerKind   [geometry.NumKinds]int
	BBox      types.BBox
	Tolerance float64
	Index     accel.Stats
}

// Stats counts the scene objects by kind.
func (sc *Scene) Stats() Stats {
	st := Stats{
		Objects:   len(sc.Objects),
		Lights:    len(sc.Lights),
		BBox:      sc.BBox,
		Tolerance: sc.Tolerance,
	}
	for _, o := range sc.Objects {
		st.PerKind[o.Kind()]++
		if o.InCSG {
			st.Operands++
		}
	}
	if sc.Others != nil {
		st.Others = sc.Others.Len()
	}
	if sc.Index != nil {
		st.Index = sc.Index.Stats()
	}
	return st
}
