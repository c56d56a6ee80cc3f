package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func warningCodes(ws []Warning) []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestAssessRecordSafety(t *testing.T) {
	tests := []struct {
		name                                     string
		kcal, protein, carbs, fat, fiber         float64
		sugar, sodium                            float64
		want                                     []string
	}{
		{name: "modest meal is clean", kcal: 400, protein: 20, carbs: 40, fat: 12},
		{name: "calorie bomb", kcal: 1200, protein: 40, carbs: 90, fat: 60,
			want: []string{"high_calorie_item", "fat_high_item"}},
		{name: "sugary label item", kcal: 300, carbs: 50, sugar: 30,
			want: []string{"sugars_high_item"}},
		{name: "salty label item", kcal: 500, sodium: 1200,
			want: []string{"sodium_high_daily_share"}},
		{name: "kcal derived from macros", protein: 10, carbs: 10, fat: 50,
			want: []string{"fat_high_item"}},
		{name: "no data no warnings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRecordSafety(tt.kcal, tt.protein, tt.carbs, tt.fat, tt.fiber, tt.sugar, tt.sodium)
			assert.ElementsMatch(t, tt.want, warningCodes(got))
		})
	}
}

func TestWarningsToString(t *testing.T) {
	assert.Equal(t, "", WarningsToString(nil))
	s := WarningsToString([]Warning{{Message: "a"}, {Message: "b"}})
	assert.Equal(t, "a, b", s)
}
