package models

import (
	"time"

	"gorm.io/gorm"
)

// Lifecycle of one photo-to-record analysis.
const (
	CaptureInProgress = "IN_PROGRESS"
	CaptureResolved   = "RESOLVED"
	CaptureFailed     = "FAILED"
	CaptureAbandoned  = "ABANDONED"
)

// FoodCaptureSession owns everything produced while one capture is being
// analyzed. Intermediate artifacts (candidates, estimates, lookups) are
// in-memory only; the session row tracks inputs, status and the final record.
type FoodCaptureSession struct {
	ID            string `gorm:"type:varchar(36);primaryKey"`
	UserID        uint   `gorm:"index"`
	PhotoURL      string // S3 URL of the food photo
	LabelPhotoURL string // S3 URL of the nutrition-label photo, if supplied
	Barcode       string `gorm:"type:varchar(64)"`
	Status        string `gorm:"type:varchar(16);not null;default:IN_PROGRESS"`
	RecordID      *uint  // set once a SynthesizedNutritionRecord is persisted
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}
