package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

// BarcodeResolver answers barcode scans local-cache-first, then from the
// external product database. A failed external call degrades to absence:
// barcode is the highest-priority source but always optional, so it must
// never block a session.
type BarcodeResolver struct {
	db       *gorm.DB
	client   *http.Client
	retry    *utils.RetryPolicy
	baseURL  string
	cacheTTL time.Duration
}

func NewBarcodeResolver(db *gorm.DB, retry *utils.RetryPolicy, baseURL string, cacheTTL time.Duration) *BarcodeResolver {
	return &BarcodeResolver{
		db:       db,
		client:   &http.Client{Timeout: 10 * time.Second},
		retry:    retry,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
	}
}

// productResponse is the slice of the Open Food Facts payload we use.
type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName     string  `json:"product_name"`
		ServingSize     string  `json:"serving_size"`
		ServingQuantity float64 `json:"serving_quantity"`
		Nutriments      struct {
			KcalServing    float64 `json:"energy-kcal_serving"`
			ProteinServing float64 `json:"proteins_serving"`
			CarbsServing   float64 `json:"carbohydrates_serving"`
			FatServing     float64 `json:"fat_serving"`
			FiberServing   float64 `json:"fiber_serving"`
			KcalPer100g    float64 `json:"energy-kcal_100g"`
			ProteinPer100g float64 `json:"proteins_100g"`
			CarbsPer100g   float64 `json:"carbohydrates_100g"`
			FatPer100g     float64 `json:"fat_100g"`
			FiberPer100g   float64 `json:"fiber_100g"`
		} `json:"nutriments"`
	} `json:"product"`
}

// Resolve returns the lookup result or nil when the barcode cannot be
// answered from cache or the external database. nil is never an error here.
func (br *BarcodeResolver) Resolve(ctx context.Context, barcode string) *models.BarcodeLookupResult {
	if barcode == "" {
		return nil
	}

	var cached models.CachedProduct
	err := br.db.WithContext(ctx).First(&cached, "barcode = ?", barcode).Error
	if err == nil && time.Since(cached.FetchedAt) < br.cacheTTL {
		slog.Info("BARCODE: cache hit", "barcode", barcode)
		return &models.BarcodeLookupResult{
			Barcode:     barcode,
			ProductName: cached.ProductName,
			Origin:      models.BarcodeOriginLocalCache,
			PerServing: models.ServingNutrition{
				Calories:    cached.Calories,
				Protein:     cached.Protein,
				Carbs:       cached.Carbs,
				Fat:         cached.Fat,
				Fiber:       cached.Fiber,
				ServingSize: cached.ServingSize,
			},
		}
	}

	result, err := br.lookupExternal(ctx, barcode)
	if err != nil {
		slog.Warn("BARCODE: external lookup failed, treating as absent", "barcode", barcode, "error", err)
		return nil
	}
	if result == nil {
		return nil
	}

	// Write-through on success. Last writer wins is fine here.
	br.db.WithContext(ctx).Save(&models.CachedProduct{
		Barcode:     barcode,
		ProductName: result.ProductName,
		Calories:    result.PerServing.Calories,
		Protein:     result.PerServing.Protein,
		Carbs:       result.PerServing.Carbs,
		Fat:         result.PerServing.Fat,
		Fiber:       result.PerServing.Fiber,
		ServingSize: result.PerServing.ServingSize,
		FetchedAt:   time.Now(),
	})
	return result
}

func (br *BarcodeResolver) lookupExternal(ctx context.Context, barcode string) (*models.BarcodeLookupResult, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", br.baseURL, barcode)

	var body []byte
	err := br.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := br.client.Do(req)
		if err != nil {
			return utils.Retryable(err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return utils.Retryable(err)
		}
		if resp.StatusCode == http.StatusNotFound {
			body = nil
			return nil // definitive miss, no retry
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return utils.Retryable(fmt.Errorf("product API error %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("product API error %d: %s", resp.StatusCode, string(body))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call product API: %w", err)
	}
	if body == nil {
		return nil, nil
	}

	var pr productResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse product JSON: %w", err)
	}
	if pr.Status != 1 || pr.Product.ProductName == "" {
		return nil, nil
	}

	n := pr.Product.Nutriments
	serving := models.ServingNutrition{
		Calories:    n.KcalServing,
		Protein:     n.ProteinServing,
		Carbs:       n.CarbsServing,
		Fat:         n.FatServing,
		Fiber:       n.FiberServing,
		ServingSize: pr.Product.ServingSize,
	}
	// Per-serving values are often missing; derive from per-100g when we know
	// the serving quantity in grams.
	if serving.Calories == 0 && n.KcalPer100g > 0 && pr.Product.ServingQuantity > 0 {
		f := pr.Product.ServingQuantity / 100.0
		serving.Calories = n.KcalPer100g * f
		serving.Protein = n.ProteinPer100g * f
		serving.Carbs = n.CarbsPer100g * f
		serving.Fat = n.FatPer100g * f
		serving.Fiber = n.FiberPer100g * f
	}
	if serving.Calories == 0 {
		return nil, nil // nothing usable
	}

	return &models.BarcodeLookupResult{
		Barcode:     barcode,
		ProductName: pr.Product.ProductName,
		PerServing:  serving,
		Origin:      models.BarcodeOriginExternalDB,
	}, nil
}
