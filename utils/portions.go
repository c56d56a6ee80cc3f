package utils

import "strings"

// TypicalPortion holds sane single-serving values for a coarse dish category.
// The portion estimator clamps model output to a ±50% band around these so a
// full dish is never counted as one ingredient, and side dishes never double
// the mains.
type TypicalPortion struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    float64
}

var typicalPortions = map[string]TypicalPortion{
	"burger":    {Calories: 550, Protein: 28, Carbs: 45, Fat: 28, Fiber: 3},
	"pizza":     {Calories: 600, Protein: 25, Carbs: 70, Fat: 24, Fiber: 4},
	"sandwich":  {Calories: 420, Protein: 20, Carbs: 45, Fat: 16, Fiber: 3},
	"salad":     {Calories: 250, Protein: 8, Carbs: 18, Fat: 16, Fiber: 5},
	"pasta":     {Calories: 520, Protein: 18, Carbs: 75, Fat: 14, Fiber: 4},
	"rice dish": {Calories: 500, Protein: 16, Carbs: 80, Fat: 12, Fiber: 3},
	"soup":      {Calories: 220, Protein: 10, Carbs: 22, Fat: 9, Fiber: 3},
	"steak":     {Calories: 480, Protein: 45, Carbs: 2, Fat: 32, Fiber: 0},
	"fish dish": {Calories: 380, Protein: 34, Carbs: 10, Fat: 20, Fiber: 1},
	"breakfast": {Calories: 450, Protein: 20, Carbs: 40, Fat: 22, Fiber: 3},
	"dessert":   {Calories: 380, Protein: 5, Carbs: 50, Fat: 18, Fiber: 1},
	"fruit":     {Calories: 95, Protein: 1, Carbs: 25, Fat: 0.3, Fiber: 4},
	"vegetable": {Calories: 80, Protein: 3, Carbs: 14, Fat: 1, Fiber: 5},
	"snack":     {Calories: 200, Protein: 5, Carbs: 24, Fat: 10, Fiber: 2},
	"beverage":  {Calories: 150, Protein: 2, Carbs: 30, Fat: 2, Fiber: 0},
}

// Generic fallback when the category is unknown.
var defaultPortion = TypicalPortion{Calories: 450, Protein: 20, Carbs: 45, Fat: 18, Fiber: 3}

// TypicalPortionFor returns the reference values for a coarse category string
// as reported by the vision stage.
func TypicalPortionFor(category string) TypicalPortion {
	if p, ok := typicalPortions[strings.ToLower(strings.TrimSpace(category))]; ok {
		return p
	}
	return defaultPortion
}

// ClampToBand pulls v into [ref*(1-band), ref*(1+band)]. Zero refs pass
// through untouched (nothing sensible to clamp against).
func ClampToBand(v, ref, band float64) float64 {
	if ref <= 0 {
		return v
	}
	lo, hi := ref*(1-band), ref*(1+band)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
