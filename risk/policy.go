package risk

// Policy holds the limits a plan is reviewed against before it is shown.
// A zero field disables its check.
type Policy struct {
	MaxRiskPercent float64 // 2 means 2% of balance
	MinRR          float64 // 1.5
	MinConfidence  float64 // 0-100
}

// DefaultPolicy matches the limits most journals start with.
func DefaultPolicy() Policy {
	return Policy{MaxRiskPercent: 2, MinRR: 1.5}
}

// Intent is a plan as seen by the review: levels, account and confidence.
type Intent struct {
	Inputs
	TakeProfit float64
	Confidence float64
}
