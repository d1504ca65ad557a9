package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"roblox-license-platform/internal/cache"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
)

// TrackingHandler serves the endpoints game servers call. These are
// public: possession of the product key is the only credential.
type TrackingHandler struct {
	licenses *services.LicenseService
	cache    *cache.CacheManager
}

func NewTrackingHandler(licenses *services.LicenseService, cacheMgr *cache.CacheManager) *TrackingHandler {
	return &TrackingHandler{
		licenses: licenses,
		cache:    cacheMgr,
	}
}

// VerifyErrorResponse is the failure shape of the verify endpoint. Game
// servers have no fallback logic, so even errors carry the whitelisted
// and active fields.
type VerifyErrorResponse struct {
	Message     string `json:"error"`
	Whitelisted bool   `json:"whitelisted"`
	Active      bool   `json:"active"`
}

// Verify handles a license verification call
// @Summary Verify a product license for a place
// @Description Record the call and return the whitelist decision for (productKey, placeId)
// @Tags tracking
// @Accept json
// @Produce json
// @Param request body services.VerifyInput true "Verification data"
// @Success 200 {object} services.Decision
// @Failure 400 {object} VerifyErrorResponse
// @Failure 404 {object} VerifyErrorResponse
// @Failure 500 {object} VerifyErrorResponse
// @Router /api/track/verify [post]
func (h *TrackingHandler) Verify(c *gin.Context) {
	var req services.VerifyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, VerifyErrorResponse{
			Message:     "Product key and Place ID are required",
			Whitelisted: false,
			Active:      false,
		})
		return
	}

	if req.ProductKey == "" || req.PlaceID == "" {
		c.JSON(http.StatusBadRequest, VerifyErrorResponse{
			Message:     "Product key and Place ID are required",
			Whitelisted: false,
			Active:      false,
		})
		return
	}

	decision, err := h.licenses.Verify(req)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// Fail closed on a bad credential: no ledger row was written
			c.JSON(http.StatusNotFound, VerifyErrorResponse{
				Message:     "Invalid product key",
				Whitelisted: false,
				Active:      false,
			})
			return
		}

		// A platform fault must never block a live game
		log.Printf("Verify error: %v", err)
		c.JSON(http.StatusInternalServerError, VerifyErrorResponse{
			Message:     "Server error",
			Whitelisted: false,
			Active:      true,
		})
		return
	}

	h.cache.PublishVerify(cache.VerifyEvent{
		ProductID: decision.ProductID,
		PlaceID:   decision.PlaceID,
		GameName:  req.GameName,
		Status:    decision.Status,
		Timestamp: time.Now().Unix(),
	})

	c.JSON(http.StatusOK, decision)
}

// Ping handles the liveness probe
// @Summary Health ping
// @Tags tracking
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/track/ping [get]
func (h *TrackingHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns public usage aggregates for a product key
// @Summary Usage statistics by product key
// @Tags tracking
// @Produce json
// @Param productKey path string true "Product key"
// @Success 200 {object} map[string]services.UsageSummary
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/track/stats/{productKey} [get]
func (h *TrackingHandler) Stats(c *gin.Context) {
	product, err := h.licenses.FindProductByKey(c.Param("productKey"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Invalid product key"})
			return
		}
		log.Printf("Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	stats, err := h.licenses.Summarize(product.ID)
	if err != nil {
		log.Printf("Stats error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
