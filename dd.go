package deepzoom

import "math"

// DD is a double-double value: the unevaluated sum Hi + Lo with |Lo| at most
// half an ulp of Hi. It carries roughly 106 bits of mantissa, enough for the
// pan accumulator to keep absorbing sub-ulp motion at deep zoom.
type DD struct {
	Hi, Lo float64
}

// DDFrom returns x as a DD with an empty low part.
func DDFrom(x float64) DD {
	return DD{Hi: x}
}

// TwoSum returns s = fl(a+b) and the exact rounding error e, so that
// a + b == s + e holds exactly (Knuth).
func TwoSum(a, b float64) (s, e float64) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// quickTwoSum is TwoSum for |a| >= |b| (Dekker).
func quickTwoSum(a, b float64) (s, e float64) {
	s = a + b
	e = b - (s - a)
	return s, e
}

// Add returns a + d with the rounding error of the high part folded into
// the low part.
func (a DD) Add(d float64) DD {
	s, e := TwoSum(a.Hi, d)
	e += a.Lo
	s, e = quickTwoSum(s, e)
	return DD{Hi: s, Lo: e}
}

// AddDD returns a + b.
func (a DD) AddDD(b DD) DD {
	s, e := TwoSum(a.Hi, b.Hi)
	t, f := TwoSum(a.Lo, b.Lo)
	e += t
	s, e = quickTwoSum(s, e)
	e += f
	s, e = quickTwoSum(s, e)
	return DD{Hi: s, Lo: e}
}

// Sub returns a - b without the catastrophic cancellation a plain float64
// difference of two nearby pans would suffer.
func (a DD) Sub(b DD) DD {
	return a.AddDD(b.Neg())
}

// twoProd returns p = fl(a*b) and the exact error e with a*b == p + e.
func twoProd(a, b float64) (p, e float64) {
	p = a * b
	e = math.FMA(a, b, -p)
	return p, e
}

// Mul returns a * b.
func (a DD) Mul(b DD) DD {
	p, e := twoProd(a.Hi, b.Hi)
	e += a.Hi*b.Lo + a.Lo*b.Hi
	p, e = quickTwoSum(p, e)
	return DD{Hi: p, Lo: e}
}

// Scale returns a * k for a power of two k, which is exact.
func (a DD) Scale(k float64) DD {
	return DD{Hi: a.Hi * k, Lo: a.Lo * k}
}

// Neg returns -a.
func (a DD) Neg() DD {
	return DD{Hi: -a.Hi, Lo: -a.Lo}
}

// Value collapses a to a single float64.
func (a DD) Value() float64 {
	return a.Hi + a.Lo
}

// Split decomposes x into a float32 pair with float64(hi)+float64(lo)
// approximating x to about 48 bits. This is the layout shader uniform pairs
// (u_*_h, u_*_l) and orbit texels use.
func Split(x float64) (hi, lo float32) {
	hi = float32(x)
	lo = float32(x - float64(hi))
	return hi, lo
}

// Split decomposes a into a float32 pair, folding a.Lo into the low word.
func (a DD) Split() (hi, lo float32) {
	hi = float32(a.Hi)
	lo = float32((a.Hi - float64(hi)) + a.Lo)
	return hi, lo
}

// Join reassembles a float32 pair produced by Split.
func Join(hi, lo float32) float64 {
	return float64(hi) + float64(lo)
}
