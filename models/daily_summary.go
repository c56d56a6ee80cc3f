package models

// DailySummary aggregates a user's synthesized records for one calendar day.
// Computed on demand, never stored.
type DailySummary struct {
	Date     string  `json:"date"`
	Records  int64   `json:"records"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`

	// Records still awaiting user confirmation are counted but flagged so
	// clients can render the total as provisional.
	Unconfirmed int64 `json:"unconfirmed"`
}
