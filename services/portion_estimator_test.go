package services

import (
	"context"
	"testing"
	"time"

	"backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEstimator(mv *mockVision) *PortionEstimator {
	return NewPortionEstimator(mv, utils.NewMemoryCache(), testRetry(), time.Hour)
}

func TestEstimateParsesResponse(t *testing.T) {
	mv := newMockVision()
	mv.queue("estimate nutrition", `{
		"calories": 540, "protein_g": 26, "carbs_g": 44, "fat_g": 27, "fiber_g": 3,
		"confidence": 0.85, "serving_description": "1 burger", "servings": 1, "category": "burger"
	}`)

	est, err := newTestEstimator(mv).Estimate(context.Background(), []byte("img"), "hamburger", nil)
	require.NoError(t, err)
	assert.Equal(t, 540.0, est.Calories)
	assert.Equal(t, 0.85, est.Confidence)
	assert.Equal(t, 1.0, est.Servings)
}

func TestEstimateClampsImplausibleCalories(t *testing.T) {
	mv := newMockVision()
	mv.queue("estimate nutrition", `{
		"calories": 3000, "protein_g": 28, "carbs_g": 45, "fat_g": 28, "fiber_g": 3,
		"confidence": 0.8, "serving_description": "1 burger", "servings": 1, "category": "burger"
	}`)

	est, err := newTestEstimator(mv).Estimate(context.Background(), []byte("img"), "hamburger", nil)
	require.NoError(t, err)
	// Burger reference is 550 kcal; output is pulled into the plausibility band.
	assert.Equal(t, 825.0, est.Calories)
}

func TestEstimateClampBandScalesWithServings(t *testing.T) {
	mv := newMockVision()
	mv.queue("estimate nutrition", `{
		"calories": 1050, "protein_g": 50, "carbs_g": 85, "fat_g": 50, "fiber_g": 5,
		"confidence": 0.8, "serving_description": "2 burgers", "servings": 2, "category": "burger"
	}`)

	est, err := newTestEstimator(mv).Estimate(context.Background(), []byte("img"), "hamburger", nil)
	require.NoError(t, err)
	// Two servings widen the band to 550..1650, so 1050 passes untouched.
	assert.Equal(t, 1050.0, est.Calories)
	assert.Equal(t, 2.0, est.Servings)
}

func TestEstimateDefaultsMissingServings(t *testing.T) {
	mv := newMockVision()
	mv.queue("estimate nutrition", `{
		"calories": 95, "protein_g": 1, "carbs_g": 25, "fat_g": 0.3, "fiber_g": 4,
		"confidence": 0.9, "serving_description": "", "category": "fruit"
	}`)

	est, err := newTestEstimator(mv).Estimate(context.Background(), []byte("img"), "apple", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, est.Servings)
	assert.NotEmpty(t, est.ServingDescription)
}

func TestEstimateRejectsAllZeros(t *testing.T) {
	mv := newMockVision()
	mv.queue("estimate nutrition", `{"calories":0,"protein_g":0,"carbs_g":0,"fat_g":0,"confidence":0.9,"servings":1,"category":"other"}`)
	mv.queue("estimate nutrition", `{"calories":0,"protein_g":0,"carbs_g":0,"fat_g":0,"confidence":0.9,"servings":1,"category":"other"}`)

	_, err := newTestEstimator(mv).Estimate(context.Background(), []byte("img"), "mystery", nil)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestEstimateSiblingsChangeCacheKey(t *testing.T) {
	mv := newMockVision()
	reply := `{"calories":540,"protein_g":26,"carbs_g":44,"fat_g":27,"fiber_g":3,"confidence":0.85,"serving_description":"1 burger","servings":1,"category":"burger"}`
	mv.queue("estimate nutrition", reply)

	pe := newTestEstimator(mv)
	img := []byte("same-photo")

	_, err := pe.Estimate(context.Background(), img, "hamburger", nil)
	require.NoError(t, err)
	_, err = pe.Estimate(context.Background(), img, "hamburger", []string{"french fries"})
	require.NoError(t, err)

	assert.Equal(t, 2, mv.callCount("estimate nutrition"),
		"different sibling exclusions must not share a cache entry")
}
