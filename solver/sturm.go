package solver

import (
	"math"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/log"
)

const (
	// Upper bound on bisection and regula falsi steps.
	MaxIterations = 800

	// Relative convergence criterion for isolated roots.
	RelativeError = 1e-10

	// Intervals wider than this after MaxIterations trigger a warning.
	Tolerance = 1e-4
)

var logger = log.New("solver")

// Sequence is a Sturm sequence: the polynomial, its derivative and the
// chain of negated remainders. Each entry has a strictly smaller degree
// than the previous one and the chain ends with a constant.
type Sequence []Poly

// Root is an isolated root together with the number of times it is repeated.
type Root struct {
	T     float64
	Count int
}

// BuildSturm constructs the Sturm sequence for p. A polynomial of degree
// zero yields a single element sequence that never reports roots.
func BuildSturm(p Poly) Sequence {
	p = append(Poly(nil), p.Trim()...)
	ord := len(p) - 1
	if ord < 1 {
		return Sequence{p}
	}

	seq := make(Sequence, 0, ord+1)
	seq = append(seq, p)

	// Derivative with a unit leading coefficient.
	f := math.Abs(p[ord] * float64(ord))
	d := make(Poly, ord)
	for i := 1; i <= ord; i++ {
		d[i-1] = p[i] * float64(i) / f
	}
	seq = append(seq, d)

	for {
		r := modp(seq[len(seq)-2], seq[len(seq)-1])
		if len(r) == 1 {
			r[0] = -r[0]
			seq = append(seq, r)
			break
		}

		f = -math.Abs(r[len(r)-1])
		for i := range r {
			r[i] /= f
		}
		seq = append(seq, r)
	}

	return seq
}

// modp returns the remainder of u / v. v must have a leading coefficient of
// 1 or -1.
func modp(u, v Poly) Poly {
	r := append(Poly(nil), u...)
	uo, vo := len(u)-1, len(v)-1

	if v[vo] < 0 {
		for k := uo - vo - 1; k >= 0; k -= 2 {
			r[k] = -r[k]
		}
		for k := uo - vo; k >= 0; k-- {
			for j := vo + k - 1; j >= k; j-- {
				r[j] = -r[j] - r[vo+k]*v[j-k]
			}
		}
	} else {
		for k := uo - vo; k >= 0; k-- {
			for j := vo + k - 1; j >= k; j-- {
				r[j] -= r[vo+k] * v[j-k]
			}
		}
	}

	// Leading coefficients that are rounding noise relative to u are
	// zeroed, otherwise a repeated root leaves a tiny constant at the end
	// of the chain whose sign corrupts the change counts.
	var scale float64
	for _, c := range u {
		scale = math.Max(scale, math.Abs(c))
	}
	fudge := scale * remainderFudge

	k := vo - 1
	for k >= 0 && math.Abs(r[k]) <= fudge {
		r[k] = 0
		k--
	}
	if k < 0 {
		k = 0
	}
	return r[:k+1]
}

const remainderFudge = 1e-12

// Order returns the degree of the polynomial the sequence was built from.
func (s Sequence) Order() int {
	return len(s[0]) - 1
}

// Changes returns the number of sign changes in the sequence at x.
func (s Sequence) Changes(x float64) int {
	changes := 0
	lf := s[0].Eval(x)
	for _, p := range s[1:] {
		f := p.Eval(x)
		if lf == 0 || lf*f < 0 {
			changes++
		}
		lf = f
	}
	return changes
}

// ChangesAtZero counts sign changes at x = 0 using the constant terms.
func (s Sequence) ChangesAtZero() int {
	changes := 0
	for i := 1; i < len(s); i++ {
		l, c := s[i-1][0], s[i][0]
		if l*c < 0 || (l == 0 && c != 0) {
			changes++
		}
	}
	return changes
}

// ChangesAtInf counts sign changes at positive infinity using the leading
// coefficients.
func (s Sequence) ChangesAtInf() int {
	changes := 0
	lf := s[0][len(s[0])-1]
	for _, p := range s[1:] {
		f := p[len(p)-1]
		if lf == 0 || lf*f < 0 {
			changes++
		}
		lf = f
	}
	return changes
}

// ChangesAtNegInf counts sign changes at negative infinity.
func (s Sequence) ChangesAtNegInf() int {
	sign := func(p Poly) float64 {
		if (len(p)-1)&1 != 0 {
			return -p[len(p)-1]
		}
		return p[len(p)-1]
	}

	changes := 0
	lf := sign(s[0])
	for _, p := range s[1:] {
		f := sign(p)
		if lf == 0 || lf*f < 0 {
			changes++
		}
		lf = f
	}
	return changes
}

// NumRoots returns the number of distinct real roots.
func (s Sequence) NumRoots() int {
	return s.ChangesAtNegInf() - s.ChangesAtInf()
}

// CountRoots returns the number of distinct roots in (min, max].
func (s Sequence) CountRoots(min, max float64) int {
	return s.Changes(min) - s.Changes(max)
}

// FirstRoot isolates the smallest root in (min, max].
func (s Sequence) FirstRoot(min, max float64) (float64, bool) {
	atmin, atmax := s.Changes(min), s.Changes(max)
	if atmin-atmax <= 0 {
		return 0, false
	}
	return s.Bisect(min, max, atmin, atmax), true
}

// Bisect isolates the smallest root in (min, max] given the sign change
// counts at both bounds. Once a single distinct root is isolated it is
// refined by isolated.
func (s Sequence) Bisect(min, max float64, atmin, atmax int) float64 {
	var its int
	for its = 0; its < MaxIterations; its++ {
		mid := (min + max) / 2
		atmid := s.Changes(mid)

		switch n1 := atmin - atmid; {
		case n1 == 1:
			root, _ := s.isolated(min, mid)
			return root
		case n1 == 0:
			min = mid
		default:
			max = mid
		}
	}

	if max-min > Tolerance {
		logger.Warningf("bisection did not converge: min %f max %f diff %e", min, max, max-min)
	}

	// multiple roots close together
	return min
}

// isolated refines the single distinct root in (min, max] and reports how
// many times it is repeated. A root of multiplicity m is a root of
// multiplicity m-1 of gcd(p, p'), so the gcd chain is walked down to the
// member in which the root is simple and the root is refined there.
func (s Sequence) isolated(min, max float64) (float64, int) {
	count := 1
	for {
		g, ok := s.gcd()
		if !ok {
			break
		}
		gs := BuildSturm(g)
		if gs.CountRoots(min, max) == 0 {
			break
		}
		s = gs
		count++
	}

	atmin := s.Changes(min)
	min, max, collapsed := s.openLeft(min, max, atmin)
	if root, ok := RegulaFalsi(s[0], min, max); ok {
		return root, count
	}

	// No sign change across the interval: an even root the gcd chain lost
	// to rounding.
	root, _ := s.bisectSingle(min, max, atmin)
	if count == 1 && !collapsed {
		count = 2
	}
	return root, count
}

// gcd returns the greatest common divisor of the polynomial and its
// derivative. It exists when the chain ends in a zero remainder, in which
// case it is the last non-constant member.
func (s Sequence) gcd() (Poly, bool) {
	if len(s) < 3 {
		return nil, false
	}
	if last := s[len(s)-1]; len(last) != 1 || last[0] != 0 {
		return nil, false
	}
	return s[len(s)-2], true
}

// openLeft moves min towards max until p(min) is clear of zero, keeping the
// single root of (min, max] inside. A root on min belongs to the interval
// on its left. collapsed is set when the interval shrank onto min instead.
func (s Sequence) openLeft(min, max float64, atmin int) (float64, float64, bool) {
	for its := 0; its < MaxIterations && converged(min, s[0].Eval(min)); its++ {
		if max-min <= RelativeError*math.Max(1, math.Abs(min)) {
			return min, max, true
		}
		mid := (min + max) / 2
		if atmin-s.Changes(mid) == 0 {
			min = mid
		} else {
			max = mid
		}
	}
	return min, max, false
}

// bisectSingle narrows an interval known to hold exactly one distinct root
// using only the Sturm counts. It returns false if the iteration limit was
// hit.
func (s Sequence) bisectSingle(min, max float64, atmin int) (float64, bool) {
	var mid float64
	for its := 0; its < MaxIterations; its++ {
		mid = (min + max) / 2
		if math.Abs(mid) > RelativeError {
			if math.Abs((max-min)/mid) < RelativeError {
				return mid, true
			}
		} else if math.Abs(max-min) < RelativeError {
			return mid, true
		}

		if atmin-s.Changes(mid) == 0 {
			min = mid
		} else {
			max = mid
		}
	}

	if max-min > Tolerance {
		logger.Warningf("bisection did not converge: min %f max %f diff %e", min, max, max-min)
	}
	return mid, false
}

// AllRoots isolates every distinct root in (min, max] in increasing order,
// each with its multiplicity. Roots that could not be separated share one
// entry whose count is the number of distinct roots it stands for.
func (s Sequence) AllRoots(min, max float64) []Root {
	atmin, atmax := s.Changes(min), s.Changes(max)
	if atmin-atmax <= 0 {
		return nil
	}
	return s.allRoots(min, max, atmin, atmax, make([]Root, 0, atmin-atmax))
}

func (s Sequence) allRoots(min, max float64, atmin, atmax int, out []Root) []Root {
	nroot := atmin - atmax

	if nroot == 1 {
		root, count := s.isolated(min, max)
		return append(out, Root{T: root, Count: count})
	}

	var mid float64
	for its := 0; its < MaxIterations; its++ {
		mid = (min + max) / 2
		atmid := s.Changes(mid)

		n1, n2 := atmin-atmid, atmid-atmax
		if n1 != 0 && n2 != 0 {
			out = s.allRoots(min, mid, atmin, atmid, out)
			return s.allRoots(mid, max, atmid, atmax, out)
		}

		if n1 == 0 {
			min = mid
		} else {
			max = mid
		}
	}

	logger.Warningf("roots too close together: min %f max %f diff %e nroot %d", min, max, max-min, nroot)
	return append(out, Root{T: mid, Count: nroot})
}

// UpperBound doubles max starting from min+2 until done reports true for
// the number of roots in (min, max], giving up after MaxDoublings steps.
// It returns the final bound and the sign change count at it.
func (s Sequence) UpperBound(min float64, atmin int, done func(nroots int) bool) (float64, int) {
	max := min + 2
	atmax := s.Changes(max)
	for its := 0; its < MaxDoublings && !done(atmin-atmax); its++ {
		max *= 2
		atmax = s.Changes(max)
	}
	return max, atmax
}

// MaxDoublings bounds UpperBound's search.
const MaxDoublings = 32
