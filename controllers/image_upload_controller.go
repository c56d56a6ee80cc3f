package controllers

import (
	"net/http"

	"backend/utils"

	"github.com/gin-gonic/gin"
)

type DevUploadRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// DevUploadImage pushes a base64 photo straight to S3. Dev convenience only.
func DevUploadImage(c *gin.Context) {
	var req DevUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	data, contentType, err := utils.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image", "detail": err.Error()})
		return
	}
	url, err := utils.UploadCapturePhoto(data, contentType, "dev-upload", "general")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
