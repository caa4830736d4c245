// Package core provides the ledger domain types and amount arithmetic.
//
// Amounts are whole currency units held in int64. Ratios used by the
// budget gauge are computed in integer arithmetic so results are exact
// and reproducible; rounding is always half-up (half away from zero).
package core

import (
	"math"
	"math/bits"
	"strconv"
)

// DivRoundHalfUp returns num/den rounded half away from zero.
// den must be positive.
//
// Examples:
//
//	DivRoundHalfUp(5, 2)  -> 3
//	DivRoundHalfUp(7, 3)  -> 2
//	DivRoundHalfUp(-5, 2) -> -3
func DivRoundHalfUp(num, den int64) int64 {
	if den <= 0 {
		panic("core: non-positive divisor")
	}
	q, r := num/den, num%den
	switch {
	case r > 0 && r >= den-r:
		q++
	case r < 0 && -r >= den+r:
		q--
	}
	return q
}

// MulDivRoundHalfUp returns a*b/den rounded half up, computed on the full
// 128-bit product. a and b must be non-negative and den positive. Results
// beyond math.MaxInt64 saturate.
func MulDivRoundHalfUp(a, b, den int64) int64 {
	if den <= 0 {
		panic("core: non-positive divisor")
	}
	if a < 0 || b < 0 {
		panic("core: negative factor")
	}
	d := uint64(den)
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= d {
		return math.MaxInt64
	}
	q, r := bits.Div64(hi, lo, d)
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	if r >= d-r {
		q++
	}
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// AddUnits adds two non-negative amounts, saturating at math.MaxInt64.
func AddUnits(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// AbsUnits converts a possibly fractional, possibly signed amount into
// non-negative whole units, rounding half away from zero. Magnitudes
// beyond int64 saturate at math.MaxInt64.
func AbsUnits(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Round(math.Abs(f))
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// FormatUnits renders whole units without grouping, e.g. "1500000".
func FormatUnits(v int64) string {
	return strconv.FormatInt(v, 10)
}
