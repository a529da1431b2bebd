package solver

import "math"

// MaxOrder is the highest polynomial degree the solver is expected to handle.
const MaxOrder = 12

// Poly is a univariate polynomial stored as a coefficient slice where the
// index of each coefficient is its power.
type Poly []float64

// Degree returns the index of the highest non-zero coefficient. The zero
// polynomial has degree 0.
func (p Poly) Degree() int {
	for d := len(p) - 1; d > 0; d-- {
		if p[d] != 0 {
			return d
		}
	}
	return 0
}

// Trim drops zero high order coefficients.
func (p Poly) Trim() Poly {
	return p[:p.Degree()+1]
}

// Eval evaluates the polynomial at x using Horner's rule.
func (p Poly) Eval(x float64) float64 {
	if len(p) == 0 {
		return 0
	}
	f := p[len(p)-1]
	for i := len(p) - 2; i >= 0; i-- {
		f = x*f + p[i]
	}
	return f
}

// Derivative returns dp/dx.
func (p Poly) Derivative() Poly {
	if len(p) < 2 {
		return Poly{0}
	}
	out := make(Poly, len(p)-1)
	for i := 1; i < len(p); i++ {
		out[i-1] = p[i] * float64(i)
	}
	return out
}

// Add returns p + q.
func (p Poly) Add(q Poly) Poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(Poly, n)
	copy(out, p)
	for i, c := range q {
		out[i] += c
	}
	return out
}

// Scale returns p * s.
func (p Poly) Scale(s float64) Poly {
	out := make(Poly, len(p))
	for i, c := range p {
		out[i] = c * s
	}
	return out
}

// Mul returns the product of two polynomials.
func Mul(a, b Poly) Poly {
	if len(a) == 0 || len(b) == 0 {
		return Poly{0}
	}
	out := make(Poly, len(a)+len(b)-1)
	for i, ca := range a {
		if ca == 0 {
			continue
		}
		for j, cb := range b {
			out[i+j] += ca * cb
		}
	}
	return out
}

// Linear returns the polynomial (org + dir*t)^n expanded in t.
func Linear(org, dir float64, n int) Poly {
	out := make(Poly, n+1)
	// binomial expansion; coefficient of t^k is C(n,k) org^(n-k) dir^k
	binom := 1.0
	for k := 0; k <= n; k++ {
		out[k] = binom * Power(org, n-k) * Power(dir, k)
		binom = binom * float64(n-k) / float64(k+1)
	}
	return out
}

// Power raises x to a non-negative integer power.
func Power(x float64, e int) float64 {
	switch e {
	case 0:
		return 1
	case 1:
		return x
	case 2:
		return x * x
	case 3:
		return x * x * x
	case 4:
		x *= x
		return x * x
	}

	res := 1.0
	for e > 0 {
		if e&1 != 0 {
			res *= x
		}
		x *= x
		e >>= 1
	}
	return res
}

// RegulaFalsi looks for a root of p in (a, b] using the modified regula falsi
// (Illinois) method. It requires p(a) and p(b) to differ in sign and returns
// false otherwise. A root sitting on a is not part of the interval; callers
// move a off it first. If the iteration limit is reached the best estimate
// is returned.
func RegulaFalsi(p Poly, a, b float64) (float64, bool) {
	fa, fb := p.Eval(a), p.Eval(b)

	if fa*fb > 0 {
		return 0, false
	}
	if math.Abs(fb) < RelativeError {
		return b, true
	}

	var x, fx float64
	lfx := fa
	for its := 0; its < MaxIterations; its++ {
		x = (fb*a - fa*b) / (fb - fa)
		fx = p.Eval(x)
		if converged(x, fx) {
			return x, true
		}

		if fa*fx < 0 {
			b, fb = x, fx
			if lfx*fx > 0 {
				fa /= 2
			}
		} else {
			a, fa = x, fx
			if lfx*fx > 0 {
				fb /= 2
			}
		}
		lfx = fx
	}

	if math.Abs(fx) > Tolerance {
		logger.Warningf("regula falsi did not converge in [%f, %f]; residual %e", a, b, fx)
	}
	return x, true
}

// converged reports whether p(x) = fx is close enough to zero for x to be
// taken as a root.
func converged(x, fx float64) bool {
	if math.Abs(x) > RelativeError {
		return math.Abs(fx/x) < RelativeError
	}
	return math.Abs(fx) < RelativeError
}
