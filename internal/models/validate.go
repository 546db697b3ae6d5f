package models

import (
	"strings"

	"branch-pos/internal/apperr"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Validate checks the catalog invariants of a product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("product name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return apperr.Validation("product sku is required")
	}
	if p.CostPrice.IsNegative() {
		return apperr.Validation("cost price cannot be negative")
	}
	if !p.UnitPrice.GreaterThan(p.CostPrice) {
		return apperr.Validation("unit price must be greater than cost price")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(one) {
		return apperr.Validation("tax rate must be between 0 and 1")
	}
	if p.MinStock < 0 || p.MaxStock < 0 {
		return apperr.Validation("stock thresholds cannot be negative")
	}
	// max_stock 0 means no ceiling
	if p.MaxStock > 0 && p.MinStock >= p.MaxStock {
		return apperr.Validation("min stock must be less than max stock")
	}
	return nil
}

// Validate checks the invariants of a stock record.
func (i *Inventory) Validate() error {
	if i.Stock < 0 {
		return apperr.Validation("stock cannot be negative")
	}
	if i.MinStock < 0 {
		return apperr.Validation("min stock cannot be negative")
	}
	if i.MaxStock != nil && *i.MaxStock <= i.MinStock {
		return apperr.Validation("max stock must be greater than min stock")
	}
	if i.ReservedStock < 0 || i.ReservedStock > i.Stock {
		return apperr.Validation("reserved stock must be between 0 and current stock")
	}
	if i.AverageCost.IsNegative() {
		return apperr.Validation("average cost cannot be negative")
	}
	return nil
}

// Validate checks the required fields of a branch.
func (b *Branch) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return apperr.Validation("branch name is required")
	}
	if strings.TrimSpace(b.Code) == "" {
		return apperr.Validation("branch code is required")
	}
	return nil
}

// Validate checks the required fields of a customer.
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return apperr.Validation("customer first name is required")
	}
	return nil
}
