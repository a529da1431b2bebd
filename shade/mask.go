package shade

import "math"

// goldenAngle spaces successive mask points around the disc.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// A sampleMask spreads points evenly over the unit disc. Every point may be
// jittered by up to magnitude along each axis.
type sampleMask struct {
	points    [][2]float64
	magnitude float64
}

// newSampleMask places n points on a sunflower spiral so that each covers
// roughly the same area of the disc.
func newSampleMask(n int) *sampleMask {
	n = max(n, 1)
	m := &sampleMask{
		points:    make([][2]float64, n),
		magnitude: 0.5 / math.Sqrt(float64(n)),
	}
	for i := range m.points {
		r := math.Sqrt((float64(i) + 0.5) / float64(n))
		a := float64(i) * goldenAngle
		m.points[i] = [2]float64{r * math.Cos(a), r * math.Sin(a)}
	}
	return m
}

// mask returns the cached mask with n points.
func (s *Shader) mask(n int) *sampleMask {
	m, ok := s.masks[n]
	if !ok {
		m = newSampleMask(n)
		s.masks[n] = m
	}
	return m
}
