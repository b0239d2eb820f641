package costguard

import "math"

// USDToCents rounds up so fractional spend is never under-counted.
func USDToCents(usd float64) int64 {
	if usd <= 0 {
		return 0
	}
	return int64(math.Ceil(usd*100 - 1e-9))
}

func CentsToUSD(cents int64) float64 {
	return float64(cents) / 100
}
