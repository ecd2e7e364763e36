package gemini

import (
	"github.com/go-playground/validator/v10"

	"github.com/rustyeddy/tradelens/plan"
)

// Schema is the OpenAPI subset accepted as responseSchema.
type Schema struct {
	Type       string             `json:"type"`
	Enum       []string           `json:"enum,omitempty"`
	Format     string             `json:"format,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

func str() *Schema     { return &Schema{Type: "STRING"} }
func num() *Schema     { return &Schema{Type: "NUMBER"} }
func strList() *Schema { return &Schema{Type: "ARRAY", Items: str()} }

func enum(v ...string) *Schema {
	return &Schema{Type: "STRING", Format: "enum", Enum: v}
}

// PlanSchema is the structured-output schema for a trade plan. id,
// timestamp, positionSize and the image references are filled in locally
// and are not part of it.
func PlanSchema() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"pair":              str(),
			"bias":              enum(string(plan.Bullish), string(plan.Bearish), string(plan.Neutral)),
			"entry":             num(),
			"stopLoss":          num(),
			"takeProfit":        num(),
			"riskReward":        num(),
			"confidenceScore":   num(),
			"marketStructure":   str(),
			"confluenceVerdict": str(),
			"keyZones":          strList(),
			"reasoning":         strList(),
			"patterns":          strList(),
			"nearbyNews": {
				Type: "ARRAY",
				Items: &Schema{
					Type: "OBJECT",
					Properties: map[string]*Schema{
						"event":        str(),
						"timeRelative": str(),
						"impact":       enum(string(plan.ImpactLow), string(plan.ImpactMedium), string(plan.ImpactHigh)),
					},
					Required: []string{"event", "timeRelative", "impact"},
				},
			},
		},
		Required: []string{
			"pair", "bias", "entry", "stopLoss", "takeProfit", "riskReward",
			"confidenceScore", "marketStructure", "confluenceVerdict",
			"keyZones", "reasoning", "patterns", "nearbyNews",
		},
	}
}

// planPayload mirrors PlanSchema. Pointers and nil slices distinguish a
// missing field from a zero value.
type planPayload struct {
	Pair              *string       `json:"pair" validate:"required"`
	Bias              *string       `json:"bias" validate:"required,oneof=BULLISH BEARISH NEUTRAL"`
	Entry             *float64      `json:"entry" validate:"required"`
	StopLoss          *float64      `json:"stopLoss" validate:"required"`
	TakeProfit        *float64      `json:"takeProfit" validate:"required"`
	RiskReward        *float64      `json:"riskReward" validate:"required"`
	ConfidenceScore   *float64      `json:"confidenceScore" validate:"required"`
	MarketStructure   *string       `json:"marketStructure" validate:"required"`
	ConfluenceVerdict *string       `json:"confluenceVerdict" validate:"required"`
	KeyZones          []string      `json:"keyZones" validate:"required"`
	Reasoning         []string      `json:"reasoning" validate:"required"`
	Patterns          []string      `json:"patterns" validate:"required"`
	NearbyNews        []newsPayload `json:"nearbyNews" validate:"required,dive"`
}

type newsPayload struct {
	Event        *string `json:"event" validate:"required"`
	TimeRelative *string `json:"timeRelative" validate:"required"`
	Impact       *string `json:"impact" validate:"required,oneof=LOW MEDIUM HIGH"`
}

var payloadValidator = validator.New()

func (p *planPayload) validate() error {
	return payloadValidator.Struct(p)
}

// toPlan copies the validated payload into a TradePlan.
func (p *planPayload) toPlan() plan.TradePlan {
	news := make([]plan.NewsEvent, 0, len(p.NearbyNews))
	for _, n := range p.NearbyNews {
		news = append(news, plan.NewsEvent{
			Event:        *n.Event,
			TimeRelative: *n.TimeRelative,
			Impact:       plan.Impact(*n.Impact),
		})
	}
	return plan.TradePlan{
		Pair:              *p.Pair,
		Bias:              plan.Bias(*p.Bias),
		Entry:             *p.Entry,
		StopLoss:          *p.StopLoss,
		TakeProfit:        *p.TakeProfit,
		RiskReward:        *p.RiskReward,
		ConfidenceScore:   *p.ConfidenceScore,
		MarketStructure:   *p.MarketStructure,
		ConfluenceVerdict: *p.ConfluenceVerdict,
		KeyZones:          p.KeyZones,
		Reasoning:         p.Reasoning,
		Patterns:          p.Patterns,
		NearbyNews:        news,
	}
}
