package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
)

// WhitelistHandler exposes the operator-facing whitelist transitions.
// Every route runs behind the auth middleware and goes through the
// ownership predicates, so a foreign or missing resource is always a
// plain 404.
type WhitelistHandler struct {
	licenses *services.LicenseService
}

func NewWhitelistHandler(licenses *services.LicenseService) *WhitelistHandler {
	return &WhitelistHandler{licenses: licenses}
}

type AddWhitelistRequest struct {
	PlaceID  string `json:"placeId" binding:"required"`
	GameName string `json:"gameName" binding:"required"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func currentUserID(c *gin.Context) uint {
	id, _ := c.Get("user_id")
	uid, _ := id.(uint)
	return uid
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// List returns a product's whitelist entries, newest first
// @Summary List whitelist entries
// @Tags whitelist
// @Produce json
// @Param productId path int true "Product ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/whitelist/product/{productId} [get]
func (h *WhitelistHandler) List(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	entries, err := h.licenses.ListEntries(product.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"whitelist": entries})
}

// Add creates a whitelist entry for (product, place)
// @Summary Add a place to the whitelist
// @Tags whitelist
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param request body AddWhitelistRequest true "Place data"
// @Security BearerAuth
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/whitelist/product/{productId} [post]
func (h *WhitelistHandler) Add(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	var req AddWhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Place ID and Game Name are required"})
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	entry, err := h.licenses.CreateEntry(product.ID, req.PlaceID, req.GameName)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Added to whitelist successfully",
		Data:    entry,
	})
}

// SetStatus overwrites an entry's status tag
// @Summary Update whitelist status
// @Tags whitelist
// @Accept json
// @Produce json
// @Param id path int true "Entry ID"
// @Param request body SetStatusRequest true "New status"
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/whitelist/{id}/status [put]
func (h *WhitelistHandler) SetStatus(c *gin.Context) {
	entryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Status is required"})
		return
	}

	entry, err := h.licenses.OwnedEntry(currentUserID(c), entryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.licenses.SetStatus(entry, req.Status); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Status updated successfully",
		Data:    entry,
	})
}

// Toggle flips an entry's active flag
// @Summary Toggle a whitelist entry on or off
// @Tags whitelist
// @Produce json
// @Param id path int true "Entry ID"
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/whitelist/{id}/toggle [put]
func (h *WhitelistHandler) Toggle(c *gin.Context) {
	entryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.licenses.OwnedEntry(currentUserID(c), entryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.licenses.ToggleActive(entry); err != nil {
		h.respondError(c, err)
		return
	}

	message := "Entry deactivated successfully"
	if entry.IsActive {
		message = "Entry activated successfully"
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: message,
		Data:    entry,
	})
}

// Delete removes an entry; the pair reverts to not-yet-checked
// @Summary Remove a place from the whitelist
// @Tags whitelist
// @Produce json
// @Param id path int true "Entry ID"
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/whitelist/{id} [delete]
func (h *WhitelistHandler) Delete(c *gin.Context) {
	entryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.licenses.OwnedEntry(currentUserID(c), entryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.licenses.DeleteEntry(entry); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Removed from whitelist successfully"})
}

func (h *WhitelistHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Whitelist entry not found"})
	case errors.Is(err, services.ErrDuplicateEntry):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "This Place ID is already in the whitelist"})
	case errors.Is(err, services.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid status"})
	default:
		log.Printf("Whitelist error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
	}
}
