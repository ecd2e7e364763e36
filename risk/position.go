package risk

// Lot sizing from account risk.
//
// size = (balance * riskPercent/100) / (|entry - stop| * pipValue)
//
// pipValue is the account-currency value of a one-unit price move per lot.
// The historical default is 10 for every instrument; a Sizer can carry a
// per-instrument table instead.

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPipValue is used for instruments missing from a Sizer's table.
const DefaultPipValue = 10.0

// DefaultSize is shown before any size has been computed.
const DefaultSize = "0.00"

type Inputs struct {
	Pair        string
	Entry       float64
	StopLoss    float64
	Balance     float64
	RiskPercent float64 // 1 means 1%
}

type Result struct {
	PipsAtRisk decimal.Decimal
	RiskAmount decimal.Decimal
	PipValue   float64
	Size       decimal.Decimal

	// Computed is false when entry == stop and no size could be derived.
	Computed bool
}

// String formats the size to two decimal places.
func (r Result) String() string {
	return r.Size.StringFixed(2)
}

type Sizer struct {
	DefaultPipValue float64
	PipValues       map[string]float64 // keyed by normalized pair, e.g. "EURUSD"
}

// NewSizer returns a sizer using DefaultPipValue for every instrument.
func NewSizer() Sizer {
	return Sizer{DefaultPipValue: DefaultPipValue}
}

// PipValue returns the pip value for pair.
func (s Sizer) PipValue(pair string) float64 {
	if v, ok := s.PipValues[NormalizePair(pair)]; ok && v != 0 {
		return v
	}
	if s.DefaultPipValue != 0 {
		return s.DefaultPipValue
	}
	return DefaultPipValue
}

// Calculate derives the recommended size. Inputs are not validated: zero or
// negative balances and risk percentages flow through the arithmetic.
func (s Sizer) Calculate(in Inputs) Result {
	entry := decimal.NewFromFloat(in.Entry)
	stop := decimal.NewFromFloat(in.StopLoss)
	pips := entry.Sub(stop).Abs()

	res := Result{PipsAtRisk: pips, PipValue: s.PipValue(in.Pair)}
	if pips.IsZero() {
		return res
	}

	res.RiskAmount = decimal.NewFromFloat(in.Balance).
		Mul(decimal.NewFromFloat(in.RiskPercent)).
		Div(decimal.NewFromInt(100))
	res.Size = res.RiskAmount.Div(pips.Mul(decimal.NewFromFloat(res.PipValue)))
	res.Computed = true
	return res
}

// Size returns the formatted size for pair, or prior unchanged when the
// entry/stop distance is zero.
func (s Sizer) Size(pair string, entry, stopLoss, balance, riskPercent float64, prior string) string {
	res := s.Calculate(Inputs{
		Pair:        pair,
		Entry:       entry,
		StopLoss:    stopLoss,
		Balance:     balance,
		RiskPercent: riskPercent,
	})
	if !res.Computed {
		return prior
	}
	return res.String()
}

// Size sizes with the default pip value of 10.
func Size(entry, stopLoss, balance, riskPercent float64, prior string) string {
	return NewSizer().Size("", entry, stopLoss, balance, riskPercent, prior)
}

// NormalizePair maps "EUR/USD", "eur_usd" and "EURUSD" to "EURUSD".
func NormalizePair(pair string) string {
	r := strings.NewReplacer("/", "", "_", "", "-", "", " ", "")
	return strings.ToUpper(r.Replace(pair))
}
