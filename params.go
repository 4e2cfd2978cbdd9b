package minlsh

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// integrationPrecision is the fixed step of the fallback midpoint rule.
const integrationPrecision = 0.001

// simpsonTolerance bounds the error of the adaptive quadrature; the midpoint
// fallback agrees with it to within the integration tolerance.
const simpsonTolerance = 1e-9

// riemann integrates f over [a, b] with a fixed-step midpoint rule. Kept as
// the reference implementation the adaptive quadrature is checked against.
func riemann(f func(float64) float64, a, b float64) float64 {
	p := integrationPrecision
	area := 0.0
	for x := a; x < b; x += p {
		area += f(x+0.5*p) * p
	}
	return area
}

// integrate computes the definite integral of f over [a, b] using adaptive
// Simpson quadrature.
func integrate(f func(float64) float64, a, b float64) float64 {
	if b <= a {
		return 0
	}
	m := (a + b) / 2
	fa, fm, fb := f(a), f(m), f(b)
	whole := (b - a) / 6 * (fa + 4*fm + fb)
	return adaptiveSimpson(f, a, b, fa, fm, fb, whole, simpsonTolerance, 24)
}

func adaptiveSimpson(f func(float64) float64, a, b, fa, fm, fb, whole, tol float64, depth int) float64 {
	m := (a + b) / 2
	lm := (a + m) / 2
	rm := (m + b) / 2
	flm, frm := f(lm), f(rm)

	left := (m - a) / 6 * (fa + 4*flm + fm)
	right := (b - m) / 6 * (fm + 4*frm + fb)

	if depth <= 0 || math.Abs(left+right-whole) <= 15*tol {
		return left + right + (left+right-whole)/15
	}
	return adaptiveSimpson(f, a, m, fa, flm, fm, left, tol/2, depth-1) +
		adaptiveSimpson(f, m, b, fm, frm, fb, right, tol/2, depth-1)
}

// falsePositiveProbability is the probability that a pair with similarity
// below threshold still collides in at least one band.
func falsePositiveProbability(threshold float64, b, r int) float64 {
	probability := func(s float64) float64 {
		return 1 - math.Pow(1-math.Pow(s, float64(r)), float64(b))
	}
	return integrate(probability, 0, threshold)
}

// falseNegativeProbability is the probability that a pair with similarity
// above threshold never collides in any band.
func falseNegativeProbability(threshold float64, b, r int) float64 {
	probability := func(s float64) float64 {
		return 1 - (1 - math.Pow(1-math.Pow(s, float64(r)), float64(b)))
	}
	return integrate(probability, threshold, 1)
}

// optimalParams picks the (bands, rows) pair minimizing the weighted sum of
// false-positive and false-negative probability for the given threshold.
//
// The search enumerates b in [1, numPerm] ascending and r in [1, numPerm/b]
// ascending; on ties the first pair encountered in that order wins. The
// per-b columns are evaluated concurrently, but the final reduction walks b
// in ascending order with a strict comparison, so the result is identical to
// the sequential scan.
func optimalParams(threshold float64, numPerm int, fpWeight, fnWeight float64) (int, int) {
	type cell struct {
		err  float64
		rows int
	}
	best := make([]cell, numPerm+1)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for b := 1; b <= numPerm; b++ {
		g.Go(func() error {
			col := cell{err: math.Inf(1)}
			maxR := numPerm / b
			for r := 1; r <= maxR; r++ {
				fp := falsePositiveProbability(threshold, b, r)
				fn := falseNegativeProbability(threshold, b, r)
				if e := fp*fpWeight + fn*fnWeight; e < col.err {
					col.err = e
					col.rows = r
				}
			}
			best[b] = col
			return nil
		})
	}
	_ = g.Wait()

	minError := math.Inf(1)
	optB, optR := 0, 0
	for b := 1; b <= numPerm; b++ {
		if best[b].err < minError {
			minError = best[b].err
			optB, optR = b, best[b].rows
		}
	}
	return optB, optR
}
