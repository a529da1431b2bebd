package texture

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/types"
)

// Value noise on the integer lattice with smoothstep interpolation. The
// lattice values come from a sine hash so the noise needs no tables and is
// identical in every worker.

func hash(n float64) float64 {
	x := math.Sin(n) * 43758.5453
	return x - math.Floor(x)
}

func lerp(v0, v1, t float64) float64 {
	return v0 + (v1-v0)*t
}

// Noise returns smooth noise in [-1, 1].
func Noise(p types.Vec3) float64 {
	var fl, f types.Vec3
	for i := 0; i < 3; i++ {
		fl[i] = math.Floor(p[i])
		f[i] = p[i] - fl[i]
		f[i] = f[i] * f[i] * (3 - 2*f[i])
	}
	n := fl[0] + fl[1]*57 + fl[2]*113

	v := lerp(
		lerp(lerp(hash(n), hash(n+1), f[0]), lerp(hash(n+57), hash(n+58), f[0]), f[1]),
		lerp(lerp(hash(n+113), hash(n+114), f[0]), lerp(hash(n+170), hash(n+171), f[0]), f[1]),
		f[2],
	)
	return 2*v - 1
}

// VNoise returns a noise vector, one independent noise value per axis.
func VNoise(p types.Vec3) types.Vec3 {
	return types.Vec3{
		Noise(p),
		Noise(p.Add(types.Vec3{31.416, -47.853, 12.793})),
		Noise(p.Add(types.Vec3{-233.145, 89.27, 51.9})),
	}
}

// Turbulence sums the magnitude of octaves noise layers, each at twice the
// frequency and half the weight of the previous one.
func Turbulence(p types.Vec3, octaves int) float64 {
	const step = 0.527849474673

	p[0] += 123.456
	t, f := 0.0, 1.0
	for i := 0; i < octaves; i++ {
		t += math.Abs(Noise(p)) / f
		p = p.Mul(1 / step)
		f /= step
	}
	return t - 0.3
}
