package models

import (
	"time"

	"gorm.io/gorm"
)

// A verified catalog entry used by the reference database matcher.
// NormalizedName is the lookup key (case-folded, modifier words stripped).
type ReferenceFood struct {
	gorm.Model
	Name           string  `gorm:"not null" json:"name"`
	NormalizedName string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	Category       string  `json:"category"`
	Calories       float64 `json:"calories"` // per serving
	Protein        float64 `json:"protein_g"`
	Carbs          float64 `json:"carbs_g"`
	Fat            float64 `json:"fat_g"`
	Fiber          float64 `json:"fiber_g"`
	ServingSize    string  `json:"serving_size"` // e.g. "1 medium (182 g)"
}

// CachedProduct is the write-through local cache for barcode lookups.
// FetchedAt drives the 30-day TTL check on read.
type CachedProduct struct {
	Barcode     string `gorm:"type:varchar(64);primaryKey"`
	ProductName string
	Calories    float64 // per serving
	Protein     float64
	Carbs       float64
	Fat         float64
	Fiber       float64
	ServingSize string
	FetchedAt   time.Time
}
