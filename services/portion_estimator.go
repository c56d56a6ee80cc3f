package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"backend/models"
	"backend/utils"
)

// PortionEstimator is stage 2: estimate macros and portion size for the
// primary dish only, with sibling candidates explicitly excluded so side
// dishes never inflate the count.
type PortionEstimator struct {
	visionStage
}

func NewPortionEstimator(vision VisionInvoker, cache utils.ResponseCache, retry *utils.RetryPolicy, cacheTTL time.Duration) *PortionEstimator {
	return &PortionEstimator{
		visionStage: visionStage{vision: vision, cache: cache, retry: retry, ttl: cacheTTL},
	}
}

const portionEstimatorSystem = `You estimate nutrition from food photographs for a nutrition tracker.

Estimate ONLY the named dish. If other foods are visible, exclude them
completely. Judge the visible portion against a typical single serving.

Reply with ONLY a JSON object, no prose, no markdown formatting:
{
  "calories": number,
  "protein_g": number,
  "carbs_g": number,
  "fat_g": number,
  "fiber_g": number,
  "confidence": number,
  "serving_description": string,
  "servings": number,
  "category": string
}
servings is the portion multiplier versus one typical serving (e.g. 1.5).
category is one of: burger, pizza, sandwich, salad, pasta, rice dish, soup,
steak, fish dish, breakfast, dessert, fruit, vegetable, snack, beverage, other.
confidence is your 0..1 certainty in the estimate.`

type portionResponse struct {
	models.NutritionEstimate
	Category string `json:"category"`
}

// Estimate returns the vision-only NutritionEstimate for the primary dish.
// Output is clamped to a ±50% band around the typical-portion table value for
// the reported category, scaled by the portion multiplier.
func (pe *PortionEstimator) Estimate(ctx context.Context, image []byte, primary string, siblings []string) (*models.NutritionEstimate, error) {
	user := fmt.Sprintf("Estimate the nutrition of the %q in this photo.", primary)
	if len(siblings) > 0 {
		user += fmt.Sprintf(" Exclude these other foods entirely: %s.", strings.Join(siblings, ", "))
	}

	var resp portionResponse
	err := pe.invokeJSON(ctx, "portion_estimate", portionEstimatorSystem, user, [][]byte{image}, siblings, &resp, func() error {
		if resp.Calories < 0 || resp.Confidence < 0 || resp.Confidence > 1 {
			return fmt.Errorf("estimate values out of range")
		}
		if resp.Calories == 0 && resp.Protein == 0 && resp.Carbs == 0 && resp.Fat == 0 {
			return fmt.Errorf("estimate is all zeros")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	est := resp.NutritionEstimate
	est.Source = models.SourceAIVision
	if est.Servings <= 0 {
		est.Servings = 1
	}

	// Clamp against the typical-portion table: model output outside ±50% of
	// the table value (scaled by the claimed portion) is implausible.
	ref := utils.TypicalPortionFor(resp.Category)
	mult := est.Servings
	before := est.Calories
	est.Calories = utils.ClampToBand(est.Calories, ref.Calories*mult, 0.5)
	est.Protein = utils.ClampToBand(est.Protein, ref.Protein*mult, 0.5)
	est.Carbs = utils.ClampToBand(est.Carbs, ref.Carbs*mult, 0.5)
	est.Fat = utils.ClampToBand(est.Fat, ref.Fat*mult, 0.5)
	est.Fiber = utils.ClampToBand(est.Fiber, ref.Fiber*mult, 0.5)
	if before != est.Calories {
		slog.Info("PORTION: clamped to typical-portion band",
			"dish", primary, "category", resp.Category, "raw_kcal", before, "clamped_kcal", est.Calories)
	}

	if est.ServingDescription == "" {
		est.ServingDescription = fmt.Sprintf("%.1f serving(s)", est.Servings)
	}
	return &est, nil
}
