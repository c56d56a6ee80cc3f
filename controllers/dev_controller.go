// controllers/dev_controller.go
package controllers

import (
	"net/http"

	"backend/config"
	"backend/models"
	"backend/utils"

	"github.com/gin-gonic/gin"
)

type seedFoodReq struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category"`
	Calories    float64 `json:"calories" binding:"required"`
	Protein     float64 `json:"protein_g"`
	Carbs       float64 `json:"carbs_g"`
	Fat         float64 `json:"fat_g"`
	Fiber       float64 `json:"fiber_g"`
	ServingSize string  `json:"serving_size"`
}

// DevSeedReferenceFoods upserts verified reference foods for the matcher.
// Dev tooling; gate it off in production routing.
func DevSeedReferenceFoods(c *gin.Context) {
	var req []seedFoodReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seeded := 0
	for _, f := range req {
		food := models.ReferenceFood{
			Name:           f.Name,
			NormalizedName: utils.NormalizeFoodName(f.Name),
			Category:       f.Category,
			Calories:       f.Calories,
			Protein:        f.Protein,
			Carbs:          f.Carbs,
			Fat:            f.Fat,
			Fiber:          f.Fiber,
			ServingSize:    f.ServingSize,
		}
		if err := config.DB.Where("normalized_name = ?", food.NormalizedName).
			Assign(food).FirstOrCreate(&models.ReferenceFood{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "seeded": seeded})
			return
		}
		seeded++
	}

	c.JSON(http.StatusOK, gin.H{"seeded": seeded})
}
