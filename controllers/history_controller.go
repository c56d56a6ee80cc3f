package controllers

import (
	"net/http"
	"time"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	Svc *services.HistoryService
}

func NewHistoryController(svc *services.HistoryService) *HistoryController {
	return &HistoryController{Svc: svc}
}

// GetHistory lists the day's synthesized records. ?date=YYYY-MM-DD, default today.
func (h *HistoryController) GetHistory(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	recs, err := h.Svc.ListDay(c.Request.Context(), c.GetUint("userID"), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

// GetDailySummary rolls the day's records into macro totals.
func (h *HistoryController) GetDailySummary(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	out, err := h.Svc.Summary(c.Request.Context(), c.GetUint("userID"), day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

func parseDay(c *gin.Context) (time.Time, bool) {
	now := time.Now()
	str := c.DefaultQuery("date", now.Format("2006-01-02"))
	day, err := time.ParseInLocation("2006-01-02", str, now.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return time.Time{}, false
	}
	return day, true
}
