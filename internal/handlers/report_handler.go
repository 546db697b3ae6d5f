package handlers

import (
	"net/http"
	"strconv"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"

	"github.com/gin-gonic/gin"
)

const defaultTopProducts = 10

// --- GET: /api/reports/dashboard ---
func (h *Handler) GetDashboard(c *gin.Context) {
	dashboard, err := database.GetDashboard(h.db.WithContext(c.Request.Context()), h.now())
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to build dashboard"))
		return
	}
	respond(c, http.StatusOK, "", dashboard)
}

// --- GET: /api/reports/sales?start=&end=&branch_id= ---
func (h *Handler) GetSalesReport(c *gin.Context) {
	var (
		f   database.SalesFilter
		err error
	)
	if f.Start, err = queryTime(c, "start", false); err != nil {
		h.fail(c, err)
		return
	}
	if f.End, err = queryTime(c, "end", true); err != nil {
		h.fail(c, err)
		return
	}
	if f.BranchID, err = queryUint(c, "branch_id"); err != nil {
		h.fail(c, err)
		return
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		h.fail(c, apperr.Validation("end must not be before start"))
		return
	}

	report, err := database.GetSalesReport(h.db.WithContext(c.Request.Context()), f)
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to calculate revenue"))
		return
	}
	respond(c, http.StatusOK, "", report)
}

// --- GET: /api/reports/top-products?limit= ---
func (h *Handler) GetTopProducts(c *gin.Context) {
	limit := defaultTopProducts
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > database.MaxPageSize {
			h.fail(c, apperr.Validation("limit must be between 1 and %d", database.MaxPageSize))
			return
		}
		limit = n
	}
	branchID, err := queryUint(c, "branch_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	top, err := database.GetTopProducts(h.db.WithContext(c.Request.Context()), limit, branchID)
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to fetch top selling items"))
		return
	}
	respond(c, http.StatusOK, "", top)
}

// --- GET: /api/reports/valuation?branch_id= ---
// Total monetary value of stock on hand, grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	branchID, err := queryUint(c, "branch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	valuation, err := database.GetStockValuation(h.db.WithContext(c.Request.Context()), branchID)
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to fetch inventory"))
		return
	}
	respond(c, http.StatusOK, "", valuation)
}

func (h *Handler) GetLowStock(c *gin.Context) {
	branchID, err := queryUint(c, "branch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	records, err := database.GetLowStock(h.db.WithContext(c.Request.Context()), branchID)
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to fetch low stock"))
		return
	}
	respond(c, http.StatusOK, "", records)
}
