package plan

import "fmt"

// ConsistencyNotes describes where the price levels disagree with the
// declared bias, e.g. a BULLISH plan whose target sits below the entry.
// The notes are advisory: nothing in the pipeline rejects a plan because of
// them.
func ConsistencyNotes(p TradePlan) []string {
	var notes []string

	switch p.Bias {
	case Bullish:
		if p.StopLoss >= p.Entry {
			notes = append(notes, fmt.Sprintf("bullish plan has stop %.5f at or above entry %.5f", p.StopLoss, p.Entry))
		}
		if p.TakeProfit <= p.Entry {
			notes = append(notes, fmt.Sprintf("bullish plan has target %.5f at or below entry %.5f", p.TakeProfit, p.Entry))
		}
	case Bearish:
		if p.StopLoss <= p.Entry {
			notes = append(notes, fmt.Sprintf("bearish plan has stop %.5f at or below entry %.5f", p.StopLoss, p.Entry))
		}
		if p.TakeProfit >= p.Entry {
			notes = append(notes, fmt.Sprintf("bearish plan has target %.5f at or above entry %.5f", p.TakeProfit, p.Entry))
		}
	}

	if p.Entry == p.StopLoss {
		notes = append(notes, "entry equals stop loss; position size left unchanged")
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 100 {
		notes = append(notes, fmt.Sprintf("confidence %.1f outside 0-100", p.ConfidenceScore))
	}
	return notes
}
