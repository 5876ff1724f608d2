package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
)

// FetchHandler handles retrieval requests
type FetchHandler struct {
	service *app.FetchService
	logger  *zap.Logger
}

// NewFetchHandler creates a new fetch handler
func NewFetchHandler(service *app.FetchService, logger *zap.Logger) *FetchHandler {
	return &FetchHandler{
		service: service,
		logger:  logger,
	}
}

// FetchRequest represents a request to retrieve one URL
type FetchRequest struct {
	URL         string              `json:"url" binding:"required"`
	Credentials *domain.Credentials `json:"credentials,omitempty"`
}

// FetchEnvelope wraps an asset as JSON
type FetchEnvelope struct {
	Asset    *domain.RetrievedAsset `json:"asset"`
	RecordID string                 `json:"record_id,omitempty"`
	Cached   bool                   `json:"cached"`
}

// ErrorResponse is the JSON body of a failed retrieval
type ErrorResponse struct {
	Platform  domain.Platform      `json:"platform"`
	Category  domain.ErrorCategory `json:"category"`
	Message   string               `json:"message"`
	Retryable bool                 `json:"retryable"`
}

// Fetch handles POST /api/v1/fetch
func (h *FetchHandler) Fetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Fetch(c.Request.Context(), req.URL, req.Credentials)
	if err != nil {
		re := domain.AsRetrievalError(domain.Classify(req.URL), err)
		c.JSON(StatusForCategory(re.Category), ErrorResponse{
			Platform:  re.Platform,
			Category:  re.Category,
			Message:   re.Message,
			Retryable: re.Retryable,
		})
		return
	}

	if c.Query("envelope") == "true" {
		c.JSON(http.StatusOK, FetchEnvelope{
			Asset:    result.Asset,
			RecordID: result.RecordID,
			Cached:   result.Cached,
		})
		return
	}

	asset := result.Asset
	c.Header("X-Source-Platform", string(asset.SourcePlatform))
	if asset.Kind == domain.KindMetadataRecord {
		c.JSON(http.StatusOK, asset.Record)
		return
	}

	if asset.SuggestedFilename != "" {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
			"filename": asset.SuggestedFilename,
		}))
	}
	c.Data(http.StatusOK, asset.ContentType, asset.Payload)
}

// StatusForCategory maps an error category to an HTTP status
func StatusForCategory(category domain.ErrorCategory) int {
	switch category {
	case domain.CategoryUnsupportedPlatform, domain.CategoryMalformedInput:
		return http.StatusBadRequest
	case domain.CategoryAccessRestricted:
		return http.StatusForbidden
	case domain.CategoryContentUnavailable:
		return http.StatusNotFound
	case domain.CategoryPlatformBlocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// ClassifyResponse represents the platform of a URL
type ClassifyResponse struct {
	URL       string          `json:"url"`
	Platform  domain.Platform `json:"platform"`
	Supported bool            `json:"supported"`
}

// Classify handles GET /api/v1/classify
func (h *FetchHandler) Classify(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	platform := h.service.Classify(rawURL)
	c.JSON(http.StatusOK, ClassifyResponse{
		URL:       rawURL,
		Platform:  platform,
		Supported: platform != domain.PlatformUnsupported,
	})
}

// PlatformInfo describes one supported platform
type PlatformInfo struct {
	Platform domain.Platform  `json:"platform"`
	Name     string           `json:"name"`
	Hosts    []string         `json:"hosts"`
	Output   domain.AssetKind `json:"output"`
}

// Platforms handles GET /api/v1/platforms
func (h *FetchHandler) Platforms(c *gin.Context) {
	platforms := domain.Platforms()
	infos := make([]PlatformInfo, 0, len(platforms))
	for _, p := range platforms {
		infos = append(infos, PlatformInfo{
			Platform: p,
			Name:     p.DisplayName(),
			Hosts:    p.Hosts(),
			Output:   p.OutputKind(),
		})
	}
	c.JSON(http.StatusOK, infos)
}
