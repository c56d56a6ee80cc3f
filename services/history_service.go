package services

import (
	"context"
	"math"
	"time"

	"backend/models"

	"gorm.io/gorm"
)

// HistoryService reads back synthesized records: per-day listings for the
// capture journal and rolled-up daily totals.
type HistoryService struct{ db *gorm.DB }

func NewHistoryService(db *gorm.DB) *HistoryService { return &HistoryService{db: db} }

// ListDay returns the user's records created on the given day, newest first,
// with provenance preloaded.
func (s *HistoryService) ListDay(ctx context.Context, userID uint, day time.Time) ([]models.SynthesizedNutritionRecord, error) {
	var recs []models.SynthesizedNutritionRecord
	err := s.db.WithContext(ctx).
		Preload("Provenance").
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, dayStart(day), dayEnd(day)).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Summary totals one day's records. Unconfirmed records are included in the
// totals and surfaced in the count so clients can mark the day provisional.
func (s *HistoryService) Summary(ctx context.Context, userID uint, day time.Time) (*models.DailySummary, error) {
	recs, err := s.ListDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	out := &models.DailySummary{Date: day.Format("2006-01-02")}
	for _, r := range recs {
		out.Records++
		out.Calories += r.Calories
		out.Protein += r.Protein
		out.Carbs += r.Carbs
		out.Fat += r.Fat
		out.Fiber += r.Fiber
		if r.NeedsConfirmation {
			out.Unconfirmed++
		}
	}
	out.Calories = round2(out.Calories)
	out.Protein = round2(out.Protein)
	out.Carbs = round2(out.Carbs)
	out.Fat = round2(out.Fat)
	out.Fiber = round2(out.Fiber)
	return out, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
