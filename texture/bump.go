package texture

import (
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/geometry"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Bump perturbs the surface normal with vector noise scaled per axis by
// Amount. With more than one octave each layer samples the noise at twice
// the frequency of the previous one, giving a wrinkled surface.
type Bump struct {
	Placement Placement
	Amount    types.Vec3
	Octaves   int
}

// NewBump returns a single octave bump texture.
func NewBump(amount types.Vec3) *Bump {
	return &Bump{Placement: Identity(), Amount: amount, Octaves: 1}
}

// Perturbation returns the normal offset at texture space point p.
func (b *Bump) Perturbation(p types.Vec3) types.Vec3 {
	var out types.Vec3
	f := 1.0
	for i := 0; i < max(b.Octaves, 1); i++ {
		out = out.Add(VNoise(p.Mul(f)).MulVec(b.Amount))
		f *= 2
	}
	return out
}

func (b *Bump) Apply(s *geometry.Sample) {
	s.Perturb = s.Perturb.Add(b.Perturbation(b.Placement.Point(s.Local)))
}
