package utils

import (
	"fmt"
	"math"
	"strings"
)

// WarningSeverity categorizes how serious the flag is.
type WarningSeverity string

const (
	Info    WarningSeverity = "info"
	Caution WarningSeverity = "caution"
	High    WarningSeverity = "high"
)

// Warning is a structured dietary finding attached to a synthesized record.
type Warning struct {
	Code     string          `json:"code"`
	Severity WarningSeverity `json:"severity"`
	Message  string          `json:"message"`
	Value    float64         `json:"value,omitempty"`
	Limit    float64         `json:"limit,omitempty"`
}

// AssessRecordSafety runs DGA-aligned screens over whatever macro fields the
// synthesis produced. Only emits findings when inputs are present. Sugar and
// sodium are zero unless the label source supplied them.
func AssessRecordSafety(kcal, protein, carbs, fat, fiber, sugarG, sodiumMg float64) []Warning {
	warnings := []Warning{}

	// Reconstruct kcal from macros when the source omitted it.
	if kcal <= 0 {
		kcal = protein*4 + carbs*4 + fat*9
	}
	if kcal <= 0 {
		return warnings
	}

	// Single item supplying a large share of a 2000 kcal day.
	if kcal >= 800 {
		warnings = append(warnings, Warning{
			Code:     "high_calorie_item",
			Severity: Caution,
			Message:  fmt.Sprintf("This item provides ~%.0f%% of a 2000 kcal day.", kcal/2000*100),
			Value:    round2(kcal),
			Limit:    800,
		})
	}

	// Fat share of item calories (>40% of item kcal).
	if fat > 0 {
		pct := (fat * 9.0) / kcal
		if pct >= 0.40 {
			warnings = append(warnings, Warning{
				Code:     "fat_high_item",
				Severity: Caution,
				Message:  fmt.Sprintf("High fat for this item (%.0f%% of its calories).", pct*100),
				Value:    round2(pct * 100),
				Limit:    40,
			})
		}
	}

	// Sugars >10% of item kcal (label-sourced records only).
	if sugarG > 0 {
		pct := (sugarG * 4.0) / kcal
		if pct >= 0.10 {
			warnings = append(warnings, Warning{
				Code:     "sugars_high_item",
				Severity: High,
				Message:  fmt.Sprintf("High sugars for this item (%.0f%% of its calories).", pct*100),
				Value:    round2(pct * 100),
				Limit:    10,
			})
		}
	}

	// Sodium vs the 2300 mg/day CDRR.
	if sodiumMg > 0 {
		share := sodiumMg / 2300.0
		if share >= 0.40 {
			warnings = append(warnings, Warning{
				Code:     "sodium_high_daily_share",
				Severity: High,
				Message:  fmt.Sprintf("This serving provides ~%.0f%% of the daily sodium limit.", share*100),
				Value:    round2(sodiumMg),
				Limit:    2300,
			})
		}
	}

	return warnings
}

// WarningsToString flattens findings into the comma-separated column the
// record stores.
func WarningsToString(ws []Warning) string {
	if len(ws) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(ws))
	for _, w := range ws {
		msgs = append(msgs, w.Message)
	}
	return strings.Join(msgs, ", ")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
