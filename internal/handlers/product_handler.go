package handlers

import (
	"errors"
	"log"
	"net/http"

	"roblox-license-platform/internal/models"
	"roblox-license-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductHandler covers product CRUD and the per-product reporting views.
type ProductHandler struct {
	db       *gorm.DB
	licenses *services.LicenseService
	scripts  *services.ScriptService
}

func NewProductHandler(db *gorm.DB, licenses *services.LicenseService, scripts *services.ScriptService) *ProductHandler {
	return &ProductHandler{
		db:       db,
		licenses: licenses,
		scripts:  scripts,
	}
}

type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProductWithCount is a product plus the number of distinct places that
// have called verify with its key.
type ProductWithCount struct {
	models.Product
	UserCount int64 `json:"user_count"`
}

// List returns the caller's products, newest first
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var products []ProductWithCount
	err := h.db.Model(&models.Product{}).
		Select("products.*, (SELECT COUNT(DISTINCT place_id) FROM usage_logs WHERE usage_logs.product_id = products.id) as user_count").
		Where("user_id = ?", currentUserID(c)).
		Order("created_at DESC").
		Scan(&products).Error
	if err != nil {
		log.Printf("Get products error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Get returns a single owned product
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var product ProductWithCount
	err := h.db.Model(&models.Product{}).
		Select("products.*, (SELECT COUNT(DISTINCT place_id) FROM usage_logs WHERE usage_logs.product_id = products.id) as user_count").
		Where("products.id = ? AND user_id = ?", productID, currentUserID(c)).
		Scan(&product).Error
	if err != nil || product.ID == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Create registers a product and returns its generated key and script
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Param request body ProductRequest true "Product data"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /api/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Product name is required"})
		return
	}

	product := models.Product{
		UserID:      currentUserID(c),
		ProductKey:  uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.db.Create(&product).Error; err != nil {
		log.Printf("Create product error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	script, err := h.scripts.Generate(product.ProductKey, c.Request.Host)
	if err != nil {
		log.Printf("Script generation error: %v", err)
		script = ""
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Product created successfully",
		"product":      product,
		"robloxScript": script,
	})
}

// Update changes a product's name or description
// @Summary Update a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param request body UpdateProductRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}

	if err := h.db.Save(product).Error; err != nil {
		log.Printf("Update product error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// Delete removes a product; whitelist entries and usage logs cascade
// @Summary Delete a product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.db.Delete(product).Error; err != nil {
		log.Printf("Delete product error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Product deleted successfully"})
}

// Users returns the distinct places seen for a product with their
// whitelist state
// @Summary List a product's users (distinct places)
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id}/users [get]
func (h *ProductHandler) Users(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	users, err := h.licenses.ListDistinctPlaces(product.ID)
	if err != nil {
		log.Printf("Get users error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Script returns the Lua integration script for a product
// @Summary Get integration script
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorResponse
// @Router /api/products/{id}/script [get]
func (h *ProductHandler) Script(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.licenses.OwnedProduct(currentUserID(c), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	script, err := h.scripts.Generate(product.ProductKey, c.Request.Host)
	if err != nil {
		log.Printf("Script generation error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"script": script})
}

func (h *ProductHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Product not found"})
		return
	}
	log.Printf("Product error: %v", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
}
