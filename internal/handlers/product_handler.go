package handlers

import (
	"net/http"
	"strings"

	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductInput is used for create and partial update. Fields left out are not touched.
type ProductInput struct {
	Name        *string          `json:"name"`
	SKU         *string          `json:"sku"`
	Barcode     *string          `json:"barcode"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	MinStock    *int             `json:"min_stock"`
	MaxStock    *int             `json:"max_stock"`
	IsActive    *bool            `json:"is_active"`
}

func (in *ProductInput) apply(p *models.Product) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.SKU != nil {
		p.SKU = strings.TrimSpace(*in.SKU)
	}
	if in.Barcode != nil {
		// an empty barcode clears it so the unique index is not hit by ""
		if b := strings.TrimSpace(*in.Barcode); b != "" {
			p.Barcode = &b
		} else {
			p.Barcode = nil
		}
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.UnitPrice != nil {
		p.UnitPrice = models.Round2(*in.UnitPrice)
	}
	if in.CostPrice != nil {
		p.CostPrice = models.Round2(*in.CostPrice)
	}
	if in.TaxRate != nil {
		p.TaxRate = *in.TaxRate
	}
	if in.MinStock != nil {
		p.MinStock = *in.MinStock
	}
	if in.MaxStock != nil {
		p.MaxStock = *in.MaxStock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return p.Validate()
}

// --- GET: List products ---
func (h *Handler) ListProducts(c *gin.Context) {
	page := pageFrom(c)
	active, err := queryBool(c, "active")
	if err != nil {
		h.fail(c, err)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Product{})
	if term := c.Query("search"); term != "" {
		p := likePattern(term)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(barcode) LIKE ?", p, p, p)
	}
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.fail(c, database.Translate(err, "products"))
		return
	}
	var products []models.Product
	if err := q.Scopes(page.Scope).Order("name, id").Find(&products).Error; err != nil {
		h.fail(c, database.Translate(err, "products"))
		return
	}
	respondPage(c, products, page, total)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
		h.fail(c, database.Translate(err, "product"))
		return
	}
	respond(c, http.StatusOK, "", &product)
}

// --- GET: /products/scan/:barcode ---
// Used by the till's barcode reader. Only active products are returned.
func (h *Handler) ScanProduct(c *gin.Context) {
	code := strings.TrimSpace(c.Param("barcode"))

	var product models.Product
	err := h.db.WithContext(c.Request.Context()).
		Where("barcode = ? AND is_active = ?", code, true).
		First(&product).Error
	if err != nil {
		h.fail(c, database.Translate(err, "product"))
		return
	}
	respond(c, http.StatusOK, "", &product)
}

// --- POST: Add a new product ---
func (h *Handler) CreateProduct(c *gin.Context) {
	var input ProductInput

	// 1. Parse JSON Input
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	// 2. Validate
	product := models.Product{IsActive: true, TaxRate: decimal.Zero}
	if err := input.apply(&product); err != nil {
		h.fail(c, err)
		return
	}

	// 3. Save to DB
	if err := h.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		h.fail(c, database.Translate(err, "product"))
		return
	}

	h.logger.Info("product created", zap.Uint("product_id", product.ID), zap.String("sku", product.SKU))
	respond(c, http.StatusCreated, "product created", &product)
}

// --- PUT: Update a product ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	// 1. Get ID from URL (e.g., /products/5)
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var input ProductInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	// 2. Find existing product
	db := h.db.WithContext(c.Request.Context())
	var product models.Product
	if err := db.First(&product, id).Error; err != nil {
		h.fail(c, database.Translate(err, "product"))
		return
	}

	// 3. Apply what was sent and re-check the whole record
	if err := input.apply(&product); err != nil {
		h.fail(c, err)
		return
	}

	// 4. Save updates
	if err := db.Save(&product).Error; err != nil {
		h.fail(c, database.Translate(err, "product"))
		return
	}

	respond(c, http.StatusOK, "product updated", &product)
}

// --- DELETE: Remove a product ---
// Soft delete, so past sales keep their product.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := softDelete(h.db.WithContext(c.Request.Context()), &models.Product{}, id, "product"); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "product deleted", nil)
}
