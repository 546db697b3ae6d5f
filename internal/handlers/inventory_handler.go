package handlers

import (
	"net/http"

	"branch-pos/internal/apperr"
	"branch-pos/internal/inventory"
	"branch-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type RestockRequest struct {
	Quantity  int              `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
	Reference string           `json:"reference"`
}

type CountRequest struct {
	CountedStock *int   `json:"counted_stock"`
	Notes        string `json:"notes"`
}

func (h *Handler) ListInventory(c *gin.Context) {
	var (
		f   inventory.Filter
		err error
	)
	if f.BranchID, err = queryUint(c, "branch_id"); err != nil {
		h.fail(c, err)
		return
	}
	if f.ProductID, err = queryUint(c, "product_id"); err != nil {
		h.fail(c, err)
		return
	}
	low, err := queryBool(c, "low_stock")
	if err != nil {
		h.fail(c, err)
		return
	}
	f.LowStock = low != nil && *low

	page := pageFrom(c)
	records, total, err := h.inventory.List(c.Request.Context(), f, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondPage(c, records, page, total)
}

func (h *Handler) GetInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	inv, err := h.inventory.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", inv)
}

func (h *Handler) CreateInventory(c *gin.Context) {
	var input inventory.CreateInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	inv, err := h.inventory.Create(c.Request.Context(), input, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "inventory record created", inv)
}

func (h *Handler) UpdateInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input inventory.UpdateInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	inv, err := h.inventory.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "inventory record updated", inv)
}

func (h *Handler) DeleteInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.inventory.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "inventory record deleted", nil)
}

// --- POST: /inventory/:id/adjust ---
func (h *Handler) AdjustInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input AdjustRequest
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	inv, err := h.inventory.Adjust(c.Request.Context(), id, input.Delta, input.Reason, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "stock adjusted", inv)
}

func (h *Handler) RestockInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input RestockRequest
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	inv, err := h.inventory.Restock(c.Request.Context(), id, input.Quantity, input.UnitCost, input.Reference, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "stock received", inv)
}

func (h *Handler) CountInventory(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input CountRequest
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	if input.CountedStock == nil {
		h.fail(c, apperr.Validation("counted_stock is required"))
		return
	}
	inv, err := h.inventory.Count(c.Request.Context(), id, *input.CountedStock, input.Notes, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "stock counted", inv)
}

func (h *Handler) InventoryMovements(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	page := pageFrom(c)
	movements, total, err := h.inventory.Movements(c.Request.Context(), id, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondPage(c, movements, page, total)
}
