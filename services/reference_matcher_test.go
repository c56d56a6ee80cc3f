package services

import (
	"context"
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExactNormalizedName(t *testing.T) {
	db := testDB(t)
	seedReference(t, db,
		models.ReferenceFood{Name: "Hamburger", Calories: 550, ServingSize: "1 burger"},
		models.ReferenceFood{Name: "Caesar Salad", Calories: 320, ServingSize: "1 bowl"},
	)
	rm := NewReferenceDatabaseMatcher(db)

	m := rm.Match(context.Background(), "Large Grilled Hamburger")
	require.NotNil(t, m, "modifier words must not break the exact match")
	assert.Equal(t, "Hamburger", m.Food.Name)
	assert.Equal(t, 1.0, m.MatchConfidence)
}

func TestMatchFuzzyAboveThreshold(t *testing.T) {
	db := testDB(t)
	seedReference(t, db, models.ReferenceFood{Name: "Hamburger", Calories: 550})
	rm := NewReferenceDatabaseMatcher(db)

	m := rm.Match(context.Background(), "hamburgers")
	require.NotNil(t, m)
	assert.Equal(t, "Hamburger", m.Food.Name)
	assert.GreaterOrEqual(t, m.MatchConfidence, 0.8)
	assert.Less(t, m.MatchConfidence, 1.0)
}

func TestMatchBelowThresholdIsAbsence(t *testing.T) {
	db := testDB(t)
	seedReference(t, db, models.ReferenceFood{Name: "Hamburger", Calories: 550})
	rm := NewReferenceDatabaseMatcher(db)

	assert.Nil(t, rm.Match(context.Background(), "spaghetti carbonara"),
		"an unrelated dish must be absence, never a low-confidence hit")
}

func TestMatchEmptyAndBlankNames(t *testing.T) {
	rm := NewReferenceDatabaseMatcher(testDB(t))
	assert.Nil(t, rm.Match(context.Background(), ""))
	assert.Nil(t, rm.Match(context.Background(), "a large serving"))
}

func TestMatchPicksBestOfSeveral(t *testing.T) {
	db := testDB(t)
	seedReference(t, db,
		models.ReferenceFood{Name: "Chicken Soup", Calories: 220},
		models.ReferenceFood{Name: "Chicken Sandwich", Calories: 420},
	)
	rm := NewReferenceDatabaseMatcher(db)

	m := rm.Match(context.Background(), "chicken soups")
	require.NotNil(t, m)
	assert.Equal(t, "Chicken Soup", m.Food.Name)
}
