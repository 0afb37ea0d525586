package formulas

import "sort"

// Interp evaluates the piecewise-linear function through (xp, fp) at x.
// xp must be ascending. Outside [xp[0], xp[n-1]] the end values are returned.
func Interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if n == 0 || n != len(fp) {
		return 0
	}
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}

	// First index with xp[i] > x; x lies in [xp[i-1], xp[i]).
	i := sort.Search(n, func(i int) bool { return xp[i] > x })
	x0, x1 := xp[i-1], xp[i]
	y0, y1 := fp[i-1], fp[i]
	if x1 == x0 {
		return y1
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
