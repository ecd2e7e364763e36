package risk

import "math"

// RR is the reward-to-risk ratio implied by the price levels. It is a
// display aid only; the service-reported ratio is stored as given.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}
