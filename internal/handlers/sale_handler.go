package handlers

import (
	"net/http"

	"branch-pos/internal/apperr"
	"branch-pos/internal/auth"
	"branch-pos/internal/middleware"
	"branch-pos/internal/models"
	"branch-pos/internal/sales"

	"github.com/gin-gonic/gin"
)

// --- POST: /sales ---
// A missing user_id is taken from the token. Cashiers always sell as themselves.
func (h *Handler) CreateSale(c *gin.Context) {
	var input sales.CreateInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	if input.UserID == 0 || middleware.Role(c) == models.RoleCashier {
		input.UserID = middleware.UserID(c)
	}

	sale, err := h.sales.Create(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "sale created", sale)
}

func (h *Handler) ListSales(c *gin.Context) {
	var (
		f   sales.Filter
		err error
	)
	if f.BranchID, err = queryUint(c, "branch_id"); err != nil {
		h.fail(c, err)
		return
	}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		h.fail(c, err)
		return
	}
	if f.CustomerID, err = queryUint(c, "customer_id"); err != nil {
		h.fail(c, err)
		return
	}
	if f.From, err = queryTime(c, "from", false); err != nil {
		h.fail(c, err)
		return
	}
	if f.To, err = queryTime(c, "to", true); err != nil {
		h.fail(c, err)
		return
	}
	if status := models.SaleStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			h.fail(c, apperr.Validation("status %q is not valid", status))
			return
		}
		f.Status = status
	}

	page := pageFrom(c)
	list, total, err := h.sales.List(c.Request.Context(), f, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondPage(c, list, page, total)
}

func (h *Handler) GetSale(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sale, err := h.sales.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", sale)
}

// --- PUT: /sales/:id ---
// Completing a pending sale needs create_sale. Cancelling or refunding needs void_sale.
func (h *Handler) UpdateSale(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input sales.UpdateInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	if input.Status != nil {
		switch *input.Status {
		case models.SaleStatusCancelled, models.SaleStatusRefunded:
			if !auth.Can(middleware.Role(c), auth.CapVoidSale) {
				h.fail(c, apperr.Forbidden("your role cannot %s sales", voidVerb(*input.Status)))
				return
			}
		}
	}

	sale, err := h.sales.Update(c.Request.Context(), id, input, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "sale updated", sale)
}

func voidVerb(s models.SaleStatus) string {
	if s == models.SaleStatusRefunded {
		return "refund"
	}
	return "cancel"
}

// --- DELETE: /sales/:id ---
// Sales are never removed. Deleting one cancels it and puts the stock back.
func (h *Handler) CancelSale(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sale, err := h.sales.Cancel(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "sale cancelled", sale)
}
