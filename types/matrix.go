package types

import (
	"errors"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

const floatCmpEpsilon = 1e-12

// Huge is used as "infinity" for distances and unbounded boxes.
const Huge = 1e24

var (
	ErrSingularMatrix = errors.New("types: matrix is singular or ill-conditioned")
)

// Matrices whose condition number exceeds this value are treated as singular.
const maxConditionNumber = 1e12

// A 4x4 transformation matrix in row-major order. Points are treated as row
// vectors so that p' = p * M and M1.Mul4(M2) applies M1 first.
type Mat4 f64.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	m := Ident4()
	m[12], m[13], m[14] = v[0], v[1], v[2]
	return m
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	m := Ident4()
	m[0], m[5], m[10] = v[0], v[1], v[2]
	return m
}

// Rotation about the X axis; angle is in radians.
func RotateX4(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	m := Ident4()
	m[5], m[6] = c, s
	m[9], m[10] = -s, c
	return m
}

// Rotation about the Y axis; angle is in radians.
func RotateY4(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	m := Ident4()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// Rotation about the Z axis; angle is in radians.
func RotateZ4(angle float64) Mat4 {
	s, c := math.Sincos(angle)
	m := Ident4()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

// Multiply two matrices. The result applies m first and m2 second.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[4*r+c] = m[4*r]*m2[c] + m[4*r+1]*m2[4+c] + m[4*r+2]*m2[8+c] + m[4*r+3]*m2[12+c]
		}
	}
	return out
}

// Transform a point (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		p[0]*m[0] + p[1]*m[4] + p[2]*m[8] + m[12],
		p[0]*m[1] + p[1]*m[5] + p[2]*m[9] + m[13],
		p[0]*m[2] + p[1]*m[6] + p[2]*m[10] + m[14],
	}
}

// Transform a direction (w = 0).
func (m Mat4) MulDir(d Vec3) Vec3 {
	return Vec3{
		d[0]*m[0] + d[1]*m[4] + d[2]*m[8],
		d[0]*m[1] + d[1]*m[5] + d[2]*m[9],
		d[0]*m[2] + d[1]*m[6] + d[2]*m[10],
	}
}

// Transform a direction by the transpose of the upper 3x3 block. Applied to
// the inverse of an object-to-world matrix this maps object space normals to
// world space.
func (m Mat4) MulDirTranspose(d Vec3) Vec3 {
	return Vec3{
		d[0]*m[0] + d[1]*m[1] + d[2]*m[2],
		d[0]*m[4] + d[1]*m[5] + d[2]*m[6],
		d[0]*m[8] + d[1]*m[9] + d[2]*m[10],
	}
}

// Get matrix transpose.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[4*c+r] = m[4*r+c]
		}
	}
	return out
}

// Returns true if m is the identity matrix.
func (m Mat4) IsIdent() bool {
	return m == Ident4()
}

// Calculate the matrix inverse. An error is returned if the matrix is
// singular or too badly conditioned to be inverted reliably.
func (m Mat4) Inverse() (Mat4, error) {
	src := make([]float64, 16)
	copy(src, m[:])
	dense := mat.NewDense(4, 4, src)

	if cond := mat.Cond(dense, 1); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxConditionNumber {
		return Mat4{}, ErrSingularMatrix
	}

	var inv mat.Dense
	if err := inv.Inverse(dense); err != nil {
		return Mat4{}, ErrSingularMatrix
	}

	var out Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[4*r+c] = inv.At(r, c)
		}
	}
	return out, nil
}
