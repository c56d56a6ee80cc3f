package services

import (
	"fmt"
	"log/slog"

	"backend/models"
)

// labelCompletenessGate is the minimum field completeness for a label
// extraction to be usable as the record's source.
const labelCompletenessGate = 0.7

// SourceSet is whatever the pipeline managed to gather for one session. Any
// pointer may be nil; a source that missed the deadline arrives here as nil.
type SourceSet struct {
	Candidates []models.DishCandidate
	Barcode    *models.BarcodeLookupResult
	Label      *models.NutritionLabelExtraction
	Reference  *models.ReferenceMatch
	Estimate   *models.NutritionEstimate
}

// SynthesisEngine merges the available sources into one record under the
// fixed priority barcode > label > reference database > vision estimate.
// Relative confidence never reorders the priority.
type SynthesisEngine struct {
	confidenceThreshold float64
	ambiguityGap        float64
}

func NewSynthesisEngine(confidenceThreshold, ambiguityGap float64) *SynthesisEngine {
	return &SynthesisEngine{
		confidenceThreshold: confidenceThreshold,
		ambiguityGap:        ambiguityGap,
	}
}

// Synthesize walks the priority ladder once, appending every step taken or
// skipped to the provenance list. Returns ErrNoSourceAvailable when no rung
// holds.
func (se *SynthesisEngine) Synthesize(src SourceSet) (*models.SynthesizedNutritionRecord, error) {
	rec := &models.SynthesizedNutritionRecord{}
	pos := 0
	addProv := func(source string, used bool, reason string, conf float64) {
		pos++
		rec.Provenance = append(rec.Provenance, models.ProvenanceEntry{
			Position: pos, Source: source, Used: used, Reason: reason, Confidence: conf,
		})
	}

	// Portion multiplier from the vision estimate refines serving-based
	// sources; one serving is assumed when the estimate is absent.
	servings := 1.0
	portionConf := 1.0
	if src.Estimate != nil && src.Estimate.Servings > 0 {
		servings = src.Estimate.Servings
		portionConf = src.Estimate.Confidence
	}

	// 1. Barcode: verbatim product data, highest trust.
	if src.Barcode != nil {
		n := src.Barcode.PerServing
		rec.DishName = src.Barcode.ProductName
		rec.Calories = n.Calories * servings
		rec.Protein = n.Protein * servings
		rec.Carbs = n.Carbs * servings
		rec.Fat = n.Fat * servings
		rec.Fiber = n.Fiber * servings
		rec.ServingDescription = servingDescription(n.ServingSize, servings)
		rec.Confidence = 0.99
		rec.Source = models.SourceBarcode
		addProv(models.SourceBarcode, true,
			fmt.Sprintf("product database hit (%s), %.2g serving(s)", src.Barcode.Origin, servings), 0.99)
		se.skipRemaining(rec, addProv, models.SourceBarcode, src)
		return rec, nil
	}
	addProv(models.SourceBarcode, false, barcodeSkipReason(src), 0)

	// 2. Nutrition label, gated on completeness.
	if src.Label != nil {
		if src.Label.Completeness >= labelCompletenessGate {
			l := src.Label
			rec.DishName = se.dishName(src)
			rec.Calories = l.Calories * servings
			rec.Protein = l.Protein * servings
			rec.Carbs = l.Carbs * servings
			rec.Fat = l.Fat * servings
			rec.Fiber = l.Fiber * servings
			rec.ServingDescription = servingDescription(l.ServingSize, servings)
			rec.Confidence = l.Completeness
			rec.Source = models.SourceLabel
			addProv(models.SourceLabel, true,
				fmt.Sprintf("label extraction, completeness %.2f, %.2g serving(s)", l.Completeness, servings), l.Completeness)
			se.skipRemaining(rec, addProv, models.SourceLabel, src)
			return rec, nil
		}
		addProv(models.SourceLabel, false,
			fmt.Sprintf("skipped: completeness %.2f < %.2f threshold", src.Label.Completeness, labelCompletenessGate), 0)
	} else {
		addProv(models.SourceLabel, false, "no label photo provided", 0)
	}

	// 3. Reference database, scaled by the portion multiplier.
	if src.Reference != nil && src.Reference.MatchConfidence >= similarityThreshold {
		f := src.Reference.Food
		rec.DishName = f.Name
		rec.Calories = f.Calories * servings
		rec.Protein = f.Protein * servings
		rec.Carbs = f.Carbs * servings
		rec.Fat = f.Fat * servings
		rec.Fiber = f.Fiber * servings
		rec.ServingDescription = servingDescription(f.ServingSize, servings)
		rec.Confidence = src.Reference.MatchConfidence * portionConf
		rec.Source = models.SourceReferenceDB
		reason := fmt.Sprintf("verified match %.2f, %.2g serving(s)", src.Reference.MatchConfidence, servings)
		if src.Estimate == nil {
			reason = fmt.Sprintf("verified match %.2f, assumed one serving", src.Reference.MatchConfidence)
		}
		addProv(models.SourceReferenceDB, true, reason, rec.Confidence)
		se.skipRemaining(rec, addProv, models.SourceReferenceDB, src)
		return rec, nil
	}
	addProv(models.SourceReferenceDB, false, "no reference match at or above similarity threshold", 0)

	// 4. Raw vision estimate.
	if src.Estimate != nil {
		e := src.Estimate
		rec.DishName = se.dishName(src)
		rec.Calories = e.Calories
		rec.Protein = e.Protein
		rec.Carbs = e.Carbs
		rec.Fat = e.Fat
		rec.Fiber = e.Fiber
		rec.ServingDescription = e.ServingDescription
		rec.Confidence = e.Confidence
		rec.Source = models.SourceAIVision
		addProv(models.SourceAIVision, true, "vision estimate used directly", e.Confidence)
		return rec, nil
	}
	addProv(models.SourceAIVision, false, "no vision estimate available", 0)

	return nil, ErrNoSourceAvailable
}

// NeedsClarification reports whether the record should go through the
// dialogue instead of finalizing: low chosen confidence, or two candidates
// too close to call. A barcode hit pins the product identity, so it never
// defers.
func (se *SynthesisEngine) NeedsClarification(src SourceSet, rec *models.SynthesizedNutritionRecord) (bool, string) {
	if rec.Source == models.SourceBarcode {
		return false, ""
	}
	if rec.Confidence < se.confidenceThreshold {
		return true, fmt.Sprintf("confidence %.2f below threshold %.2f", rec.Confidence, se.confidenceThreshold)
	}
	if len(src.Candidates) >= 2 {
		gap := src.Candidates[0].Confidence - src.Candidates[1].Confidence
		if gap < se.ambiguityGap {
			return true, fmt.Sprintf("top candidates %q and %q within %.2f of each other",
				src.Candidates[0].Name, src.Candidates[1].Name, gap)
		}
	}
	return false, ""
}

// skipRemaining records the rungs below the chosen source so the full ladder
// stays auditable.
func (se *SynthesisEngine) skipRemaining(rec *models.SynthesizedNutritionRecord, addProv func(string, bool, string, float64), chosen string, src SourceSet) {
	order := []string{models.SourceLabel, models.SourceReferenceDB, models.SourceAIVision}
	start := 0
	switch chosen {
	case models.SourceBarcode:
		start = 0
	case models.SourceLabel:
		start = 1
	case models.SourceReferenceDB:
		start = 2
	}
	for _, s := range order[start:] {
		addProv(s, false, "skipped: higher-priority source selected", 0)
	}
	slog.Info("SYNTHESIS: record built", "source", chosen, "confidence", rec.Confidence)
}

func (se *SynthesisEngine) dishName(src SourceSet) string {
	for _, c := range src.Candidates {
		if c.IsPrimary {
			return c.Name
		}
	}
	if len(src.Candidates) > 0 {
		return src.Candidates[0].Name
	}
	return "unidentified food"
}

func barcodeSkipReason(src SourceSet) string {
	if src.Barcode == nil {
		return "no barcode provided or lookup missed"
	}
	return "barcode unusable"
}

func servingDescription(servingSize string, servings float64) string {
	if servingSize == "" {
		return fmt.Sprintf("%.2g serving(s)", servings)
	}
	if servings == 1 {
		return servingSize
	}
	return fmt.Sprintf("%.2g × %s", servings, servingSize)
}
