package services

import (
	"context"
	"errors"
	"log/slog"

	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

// similarityThreshold is the floor below which a fuzzy hit is reported as
// absence rather than a low-confidence match, so unrelated foods are never
// silently blended into a record.
const similarityThreshold = 0.8

// ReferenceDatabaseMatcher resolves a dish name against the verified
// reference_foods table: exact normalized match first, then fuzzy.
type ReferenceDatabaseMatcher struct {
	db *gorm.DB
}

func NewReferenceDatabaseMatcher(db *gorm.DB) *ReferenceDatabaseMatcher {
	return &ReferenceDatabaseMatcher{db: db}
}

// Match returns the best reference hit or nil below threshold. nil is
// absence, not an error.
func (rm *ReferenceDatabaseMatcher) Match(ctx context.Context, dishName string) *models.ReferenceMatch {
	normalized := utils.NormalizeFoodName(dishName)
	if normalized == "" {
		return nil
	}

	var exact models.ReferenceFood
	err := rm.db.WithContext(ctx).First(&exact, "normalized_name = ?", normalized).Error
	if err == nil {
		slog.Info("REF_DB: exact match", "dish", dishName, "matched", exact.Name)
		return &models.ReferenceMatch{Food: exact, MatchConfidence: 1.0}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Warn("REF_DB: lookup failed, treating as absent", "error", err)
		return nil
	}

	// Fuzzy pass over the catalog. The verified table is small enough to scan.
	var all []models.ReferenceFood
	if err := rm.db.WithContext(ctx).Find(&all).Error; err != nil {
		slog.Warn("REF_DB: scan failed, treating as absent", "error", err)
		return nil
	}

	var best *models.ReferenceFood
	bestScore := 0.0
	for i := range all {
		score := utils.NameSimilarity(normalized, all[i].NormalizedName)
		if score > bestScore {
			best = &all[i]
			bestScore = score
		}
	}
	if best == nil || bestScore < similarityThreshold {
		return nil
	}

	slog.Info("REF_DB: fuzzy match", "dish", dishName, "matched", best.Name, "similarity", bestScore)
	return &models.ReferenceMatch{Food: *best, MatchConfidence: bestScore}
}
