package risk

import "fmt"

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRiskPercent float64
	PlannedRR          float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Messages returns the violation texts in check order.
func (d Decision) Messages() []string {
	if len(d.Violations) == 0 {
		return nil
	}
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Msg
	}
	return out
}

// Evaluate reviews in against p. The result is advisory: a plan is sized
// and may be saved whatever the decision says.
func Evaluate(p Policy, in Intent) Decision {
	d := Decision{Allowed: true, PlannedRiskPercent: in.RiskPercent}

	// Basic sanity
	if in.Entry == 0 || in.StopLoss == 0 {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	// no distance to measure; the sizer keeps the prior size
	if in.Entry == in.StopLoss {
		return d
	}

	d.PlannedRR = RR(in.Entry, in.StopLoss, in.TakeProfit)

	if p.MaxRiskPercent > 0 && in.RiskPercent > p.MaxRiskPercent {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%", in.RiskPercent, p.MaxRiskPercent))
	}
	if p.MinRR > 0 && d.PlannedRR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}
	if p.MinConfidence > 0 && in.Confidence < p.MinConfidence {
		d.add("LOW_CONFIDENCE",
			fmt.Sprintf("confidence %.0f below minimum %.0f", in.Confidence, p.MinConfidence))
	}
	return d
}
