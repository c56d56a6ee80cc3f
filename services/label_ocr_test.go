package services

import (
	"context"
	"testing"
	"time"

	"backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(mv *mockVision) *LabelOCRExtractor {
	return NewLabelOCRExtractor(mv, utils.NewMemoryCache(), testRetry(), time.Hour)
}

func TestExtractComputesCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
	}{
		{
			"full label",
			`{"calories":230,"protein_g":4,"carbs_g":37,"fat_g":8,"saturated_fat_g":1,
			  "trans_fat_g":0.5,"fiber_g":4,"sugar_g":12,"sodium_mg":160,"cholesterol_mg":5,
			  "serving_size":"2/3 cup (55 g)"}`,
			1.0,
		},
		{
			"partial label",
			`{"calories":230,"protein_g":4,"carbs_g":37,"fat_g":8,"serving_size":"1 cup"}`,
			0.4,
		},
		{
			"zeros do not count as populated",
			`{"calories":230,"protein_g":0,"carbs_g":37,"fat_g":8,"sugar_g":0,"serving_size":"1 cup"}`,
			0.3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mv := newMockVision()
			mv.queue("nutrition-facts labels", tt.reply)

			out, err := newTestExtractor(mv).Extract(context.Background(), []byte("label-img"))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out.Completeness, 1e-9)
		})
	}
}

func TestExtractRejectsNegativeValues(t *testing.T) {
	mv := newMockVision()
	mv.queue("nutrition-facts labels", `{"calories":-10,"protein_g":4,"carbs_g":37,"fat_g":8}`)
	mv.queue("nutrition-facts labels", `{"calories":-10,"protein_g":4,"carbs_g":37,"fat_g":8}`)

	_, err := newTestExtractor(mv).Extract(context.Background(), []byte("label-img"))
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestExtractKeepsServingSize(t *testing.T) {
	mv := newMockVision()
	mv.queue("nutrition-facts labels", `{"calories":110,"protein_g":10,"carbs_g":12,"fat_g":4,"fiber_g":2,"sugar_g":6,"sodium_mg":95,"serving_size":"1 bar (45 g)"}`)

	out, err := newTestExtractor(mv).Extract(context.Background(), []byte("label-img"))
	require.NoError(t, err)
	assert.Equal(t, "1 bar (45 g)", out.ServingSize)
	assert.InDelta(t, 0.7, out.Completeness, 1e-9)
}
