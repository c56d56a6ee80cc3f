package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backend/models"
	"backend/utils"
)

// LabelOCRExtractor reads a nutrition-facts photo in a single vision call.
// Fields not visible on the label stay zero-filled; completeness feeds the
// synthesis usability gate.
type LabelOCRExtractor struct {
	visionStage
}

func NewLabelOCRExtractor(vision VisionInvoker, cache utils.ResponseCache, retry *utils.RetryPolicy, cacheTTL time.Duration) *LabelOCRExtractor {
	return &LabelOCRExtractor{
		visionStage: visionStage{vision: vision, cache: cache, retry: retry, ttl: cacheTTL},
	}
}

const labelOCRSystem = `You read nutrition-facts labels from photographs.

Extract the per-serving values printed on the label. Use 0 for any field that
is not visible or not legible. Never guess a value that is not printed.

Reply with ONLY a JSON object, no prose, no markdown formatting:
{
  "calories": number,
  "protein_g": number,
  "carbs_g": number,
  "fat_g": number,
  "saturated_fat_g": number,
  "trans_fat_g": number,
  "fiber_g": number,
  "sugar_g": number,
  "sodium_mg": number,
  "cholesterol_mg": number,
  "serving_size": string
}`

// labelFieldCount is the expected-field total that completeness divides by.
const labelFieldCount = 10

// Extract runs the one vision call this stage is allowed and computes the
// completeness ratio over the numeric field set.
func (lx *LabelOCRExtractor) Extract(ctx context.Context, labelImage []byte) (*models.NutritionLabelExtraction, error) {
	var resp models.NutritionLabelExtraction
	err := lx.invokeJSON(ctx, "label_ocr", labelOCRSystem, "Read this nutrition label.", [][]byte{labelImage}, nil, &resp, func() error {
		if resp.Calories < 0 || resp.Protein < 0 || resp.Carbs < 0 || resp.Fat < 0 {
			return fmt.Errorf("negative label values")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	populated := 0
	for _, v := range []float64{
		resp.Calories, resp.Protein, resp.Carbs, resp.Fat, resp.SaturatedFat,
		resp.TransFat, resp.Fiber, resp.Sugar, resp.Sodium, resp.Cholesterol,
	} {
		if v > 0 {
			populated++
		}
	}
	resp.Completeness = float64(populated) / float64(labelFieldCount)

	slog.Info("LABEL_OCR: extracted", "completeness", resp.Completeness, "calories", resp.Calories)
	return &resp, nil
}
