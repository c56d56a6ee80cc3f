package models

import "gorm.io/gorm"

// Source tags, in synthesis priority order.
const (
	SourceBarcode     = "barcode"
	SourceLabel       = "nutrition_label"
	SourceReferenceDB = "reference_db"
	SourceAIVision    = "ai_vision"
)

// SynthesizedNutritionRecord is the only artifact persisted past the capture
// session. Confidence is always set; Provenance always has at least one entry.
type SynthesizedNutritionRecord struct {
	gorm.Model
	UserID             uint   `gorm:"index" json:"user_id"`
	CaptureSessionID   string `gorm:"type:varchar(36);index" json:"capture_session_id"`
	DishName           string `json:"dish_name"`
	ServingDescription string `json:"serving_description"`
	Calories           float64 `json:"calories"`
	Protein            float64 `json:"protein_g"`
	Carbs              float64 `json:"carbs_g"`
	Fat                float64 `json:"fat_g"`
	Fiber              float64 `json:"fiber_g"`
	Confidence         float64 `json:"confidence"`
	Source             string  `gorm:"type:varchar(32)" json:"source"`
	NeedsConfirmation  bool    `json:"needs_user_confirmation"`
	Warnings           string  `json:"warnings,omitempty"` // comma-sep dietary flags
	Provenance         []ProvenanceEntry `gorm:"foreignKey:RecordID" json:"provenance"`
}

// ProvenanceEntry records one synthesis step, taken or skipped, so the final
// numbers are auditable. Position preserves priority order.
type ProvenanceEntry struct {
	gorm.Model `json:"-"`
	RecordID   uint    `json:"-"`
	Position   int     `json:"position"`
	Source     string  `gorm:"type:varchar(32)" json:"source"`
	Used       bool    `json:"used"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence,omitempty"`
}
