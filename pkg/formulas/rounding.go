package formulas

import "math"

// Round2 rounds to 2 decimal places. Valuation results are rounded once, at
// the persistence edge, never during intermediate accumulation.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Round4 rounds to 4 decimal places
func Round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}

// PercentChange returns the percentage change from base to value.
// A zero base yields 0 rather than Inf/NaN.
func PercentChange(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (value - base) / base * 100
}
