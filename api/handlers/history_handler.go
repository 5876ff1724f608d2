package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
)

const defaultHistoryLimit = 50

// HistoryHandler handles fetch history requests
type HistoryHandler struct {
	service *app.FetchService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(service *app.FetchService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		service: service,
		logger:  logger,
	}
}

// ListHistory handles GET /api/v1/history
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	filter := domain.HistoryFilter{
		Outcome: domain.FetchOutcome(strings.ToLower(c.Query("outcome"))),
	}
	if raw := c.Query("platform"); raw != "" {
		filter.Platform = domain.ParsePlatform(raw)
		if filter.Platform == domain.PlatformUnsupported {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown platform %q", raw)})
			return
		}
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	records, err := h.service.History(filter, limit)
	if err != nil {
		h.respondError(c, "Failed to list history", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/v1/history/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats()
	if err != nil {
		h.respondError(c, "Failed to get stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecord handles GET /api/v1/history/:id
func (h *HistoryHandler) GetRecord(c *gin.Context) {
	record, err := h.service.GetRecord(c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to get record", err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteRecord handles DELETE /api/v1/history/:id
func (h *HistoryHandler) DeleteRecord(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.DeleteRecord(id); err != nil {
		h.respondError(c, "Failed to delete record", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "record deleted"})
}

func (h *HistoryHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, app.ErrHistoryDisabled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
