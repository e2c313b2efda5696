package deepzoom

import "math"

// Easing maps linear progress t in [0,1] to eased progress. Implementations
// return 0 at t=0 and 1 at t=1.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// EaseInOutCubic accelerates over the first half and decelerates over the
// second.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	f := -2*t + 2
	return 1 - f*f*f/2
}

// EaseOutQuad decelerates to the end.
func EaseOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }

// EaseInOutSine follows half a cosine period.
func EaseInOutSine(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 }

// Lerp interpolates linearly between a and b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// ExpLerp interpolates geometrically: a·(b/a)^t. It returns a exactly at
// t <= 0 and b exactly at t >= 1. a and b must be positive.
func ExpLerp(a, b, t float64) float64 {
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return a * math.Exp(t*math.Log(b/a))
}

// shortestArc returns the signed angle in [-π, π] that rotates from to to.
func shortestArc(from, to float64) float64 {
	return math.Remainder(to-from, twoPi)
}
