package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"backend/models"
	"backend/utils"
)

// DishIdentifier is stage 1 of the vision pipeline: list the menu-level
// dishes present in a photo and flag the primary one.
type DishIdentifier struct {
	visionStage
	maxCandidates int
}

func NewDishIdentifier(vision VisionInvoker, cache utils.ResponseCache, retry *utils.RetryPolicy, cacheTTL time.Duration, maxCandidates int) *DishIdentifier {
	return &DishIdentifier{
		visionStage:   visionStage{vision: vision, cache: cache, retry: retry, ttl: cacheTTL},
		maxCandidates: maxCandidates,
	}
}

const dishIdentifierSystem = `You identify food in photographs for a nutrition tracker.

Name dishes the way they would appear on a menu ("hamburger", "caesar salad"),
NEVER as bare ingredients ("bun", "patty", "lettuce"). List every distinct dish
visible, most prominent first, and mark exactly one as primary.

Reply with ONLY a JSON object, no prose, no markdown formatting:
{
  "candidates": [
    {"name": string, "confidence": number, "is_primary": boolean}
  ]
}
confidence is your 0..1 certainty that the dish is what you say it is.`

type dishIdentifierResponse struct {
	Candidates []models.DishCandidate `json:"candidates"`
}

// Identify returns the ordered candidate list with exactly one primary, or an
// identification failure. Transient upstream errors are retried; a response
// that never parses into the expected shape surfaces as MalformedResponseError.
func (di *DishIdentifier) Identify(ctx context.Context, image []byte) ([]models.DishCandidate, error) {
	user := fmt.Sprintf("Identify the dishes in this photo. List at most %d candidates.", di.maxCandidates)

	var resp dishIdentifierResponse
	err := di.invokeJSON(ctx, "dish_identify", dishIdentifierSystem, user, [][]byte{image}, nil, &resp, func() error {
		return validateCandidates(resp.Candidates)
	})
	if err != nil {
		return nil, err
	}

	// Stray ingredient-level names ride along with otherwise good lists now
	// and then; drop them rather than burning the corrective retry.
	cands := make([]models.DishCandidate, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		if !isIngredientLevel(strings.TrimSpace(c.Name)) {
			cands = append(cands, c)
		}
	}
	if len(cands) > di.maxCandidates {
		cands = cands[:di.maxCandidates]
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Confidence > cands[j].Confidence })
	ensureSinglePrimary(cands)

	slog.Info("DISH_ID: identified", "candidates", len(cands), "primary", primaryOf(cands).Name)
	return cands, nil
}

// validateCandidates enforces the structural contract: non-empty list,
// confidences in range, and at least one dish-granularity name. A stray
// ingredient in an otherwise good list is filtered later, not rejected here.
func validateCandidates(cands []models.DishCandidate) error {
	if len(cands) == 0 {
		return fmt.Errorf("no candidates returned")
	}
	dishLevel := 0
	for _, c := range cands {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("candidate with empty name")
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return fmt.Errorf("candidate %q confidence %v out of range", c.Name, c.Confidence)
		}
		if !isIngredientLevel(name) {
			dishLevel++
		}
	}
	if dishLevel == 0 {
		return fmt.Errorf("no dish-level candidates, only ingredients")
	}
	return nil
}

// Names the prompt forbids but models still emit now and then. A list made
// entirely of these has no discernible dish granularity.
var ingredientNames = map[string]struct{}{
	"bun": {}, "patty": {}, "lettuce": {}, "tomato": {}, "onion": {},
	"cheese": {}, "bread": {}, "sauce": {}, "dough": {}, "rice": {},
	"noodles": {}, "meat": {}, "beef": {}, "chicken breast": {},
}

func isIngredientLevel(name string) bool {
	_, ok := ingredientNames[strings.ToLower(name)]
	return ok
}

// ensureSinglePrimary repairs the is_primary flags so exactly one candidate,
// the most confident marked one (or the top candidate), carries it.
func ensureSinglePrimary(cands []models.DishCandidate) {
	first := -1
	for i := range cands {
		if cands[i].IsPrimary && first == -1 {
			first = i
			continue
		}
		cands[i].IsPrimary = false
	}
	if first == -1 && len(cands) > 0 {
		cands[0].IsPrimary = true
	}
}

func primaryOf(cands []models.DishCandidate) models.DishCandidate {
	for _, c := range cands {
		if c.IsPrimary {
			return c
		}
	}
	if len(cands) > 0 {
		return cands[0]
	}
	return models.DishCandidate{}
}
