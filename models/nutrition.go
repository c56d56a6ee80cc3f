package models

// In-memory artifacts produced by the pipeline stages. None of these are
// persisted; they live only for the duration of a FoodCaptureSession.

// DishCandidate is one menu-level dish the identifier saw in the photo.
// Exactly one candidate per session is primary (or none on failure).
// Immutable once created.
type DishCandidate struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	IsPrimary  bool    `json:"is_primary"`
}

// NutritionEstimate is the vision-only macro estimate for the primary dish.
type NutritionEstimate struct {
	Calories           float64 `json:"calories"`
	Protein            float64 `json:"protein_g"`
	Carbs              float64 `json:"carbs_g"`
	Fat                float64 `json:"fat_g"`
	Fiber              float64 `json:"fiber_g"`
	Confidence         float64 `json:"confidence"`
	ServingDescription string  `json:"serving_description"`
	Servings           float64 `json:"servings"` // portion multiplier vs one typical serving
	Source             string  `json:"source"`   // always SourceAIVision
}

// Where a barcode lookup was answered from.
const (
	BarcodeOriginLocalCache = "local_cache"
	BarcodeOriginExternalDB = "external_db"
)

// BarcodeLookupResult is a product-database hit for a scanned barcode.
type BarcodeLookupResult struct {
	Barcode     string     `json:"barcode"`
	ProductName string     `json:"product_name"`
	PerServing  ServingNutrition `json:"nutrition_per_serving"`
	Origin      string     `json:"origin"`
}

// ServingNutrition holds per-serving macro values.
type ServingNutrition struct {
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein_g"`
	Carbs       float64 `json:"carbs_g"`
	Fat         float64 `json:"fat_g"`
	Fiber       float64 `json:"fiber_g"`
	ServingSize string  `json:"serving_size"`
}

// NutritionLabelExtraction is the structured read of a nutrition-facts photo.
// Fields the model could not see stay zero rather than being omitted;
// Completeness is populated-field-count over the total expected field count.
type NutritionLabelExtraction struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein_g"`
	Carbs        float64 `json:"carbs_g"`
	Fat          float64 `json:"fat_g"`
	SaturatedFat float64 `json:"saturated_fat_g"`
	TransFat     float64 `json:"trans_fat_g"`
	Fiber        float64 `json:"fiber_g"`
	Sugar        float64 `json:"sugar_g"`
	Sodium       float64 `json:"sodium_mg"`
	Cholesterol  float64 `json:"cholesterol_mg"`
	ServingSize  string  `json:"serving_size"`
	Completeness float64 `json:"completeness"`
}

// ReferenceMatch is a verified-database hit for a dish name. Matches below the
// similarity threshold are reported as absence, never as a low-confidence hit.
type ReferenceMatch struct {
	Food            ReferenceFood `json:"food"`
	MatchConfidence float64       `json:"match_confidence"`
}
