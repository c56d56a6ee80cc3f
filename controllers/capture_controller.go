package controllers

import (
	"errors"
	"net/http"

	"backend/config"
	"backend/models"
	"backend/services"
	"backend/utils"

	"github.com/gin-gonic/gin"
)

type CaptureController struct {
	Captures *services.CaptureService
}

func NewCaptureController(cs *services.CaptureService) *CaptureController {
	return &CaptureController{Captures: cs}
}

type AnalyzeRequest struct {
	ImageBase64      string `json:"image_base64" binding:"required"`
	Barcode          string `json:"barcode"`
	LabelImageBase64 string `json:"label_image_base64"`
}

// POST /capture/analyze
// Returns 201 with a finalized record, or 202 with an open clarification
// session when the evidence is ambiguous.
func (cc *CaptureController) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	photo, contentType, err := utils.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var labelPhoto []byte
	if req.LabelImageBase64 != "" {
		labelPhoto, _, err = utils.DecodeBase64Image(req.LabelImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid label image: " + err.Error()})
			return
		}
	}

	out, err := cc.Captures.AnalyzeFoodCapture(c.Request.Context(), services.AnalyzeInput{
		UserID:           c.GetUint("userID"),
		Photo:            photo,
		PhotoContentType: contentType,
		LabelPhoto:       labelPhoto,
		Barcode:          req.Barcode,
	})
	if err != nil {
		respondCaptureError(c, err)
		return
	}

	if out.Clarification != nil {
		c.JSON(http.StatusAccepted, gin.H{"clarification": out.Clarification})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": out.Record})
}

type ClarifyRequest struct {
	Reply string `json:"reply" binding:"required"`
}

// POST /capture/clarify/:id
func (cc *CaptureController) Clarify(c *gin.Context) {
	var req ClarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := cc.Captures.RespondToClarification(c.Request.Context(), c.GetUint("userID"), c.Param("id"), req.Reply)
	if err != nil {
		respondCaptureError(c, err)
		return
	}

	if out.Clarification != nil {
		c.JSON(http.StatusAccepted, gin.H{"clarification": out.Clarification})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": out.Record})
}

// GET /capture/:id
func (cc *CaptureController) GetSession(c *gin.Context) {
	var session models.FoodCaptureSession
	err := config.DB.First(&session, "id = ? AND user_id = ?", c.Param("id"), c.GetUint("userID")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "capture session not found"})
		return
	}

	resp := gin.H{"session": session}
	if session.RecordID != nil {
		var rec models.SynthesizedNutritionRecord
		if err := config.DB.Preload("Provenance").First(&rec, *session.RecordID).Error; err == nil {
			resp["record"] = rec
		}
	}
	c.JSON(http.StatusOK, resp)
}

// respondCaptureError maps the engine's error taxonomy onto HTTP statuses so
// clients can offer the manual-logging path on terminal failures.
func respondCaptureError(c *gin.Context, err error) {
	switch {
	case services.IsMalformed(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "vision service returned an unusable response", "detail": err.Error()})
	case errors.Is(err, services.ErrNoSourceAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not determine nutrition from the provided inputs", "detail": err.Error()})
	case errors.Is(err, services.ErrSessionTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis timed out", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
