package ai

import (
	"context"
	"time"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	toolCheckInventory = "check_inventory"
	toolLowStock       = "list_low_stock"
	toolSalesReport    = "get_sales_report"
	toolUpdatePrice    = "update_product_price"
)

type stockLine struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	BranchID  uint   `json:"branch_id"`
	Stock     int    `json:"stock"`
	MinStock  int    `json:"min_stock"`
	Price     string `json:"price"`
	Cost      string `json:"cost"`
}

// ExecuteTool runs a tool by name. Failures are reported to the model in the
// response map rather than returned.
func (a *Agent) ExecuteTool(ctx context.Context, name string, args map[string]any) map[string]any {
	db := a.db.WithContext(ctx)

	switch name {
	case toolCheckInventory, toolLowStock:
		branchID := argUint(args, "branch_id")
		var records []models.Inventory
		var err error
		if name == toolLowStock {
			records, err = database.GetLowStock(db, branchID)
		} else {
			q := db.Preload("Product").Order("branch_id, product_id")
			if branchID != 0 {
				q = q.Where("branch_id = ?", branchID)
			}
			err = q.Find(&records).Error
		}
		if err != nil {
			return a.toolError(name, err)
		}
		return map[string]any{"inventory": stockLines(records)}

	case toolSalesReport:
		start, err1 := time.Parse("2006-01-02", argString(args, "start_date"))
		end, err2 := time.Parse("2006-01-02", argString(args, "end_date"))
		if err1 != nil || err2 != nil {
			return map[string]any{"error": "dates must be in YYYY-MM-DD format"}
		}
		end = end.Add(24*time.Hour - time.Nanosecond)

		report, err := database.GetSalesReport(db, database.SalesFilter{Start: start, End: end, BranchID: argUint(args, "branch_id")})
		if err != nil {
			return a.toolError(name, err)
		}
		return map[string]any{
			"revenue":     report.TotalRevenue.StringFixed(2),
			"sales_count": report.TotalCount,
		}

	case toolUpdatePrice:
		productID := argUint(args, "product_id")
		newPrice, ok := args["new_price"].(float64)
		if productID == 0 || !ok {
			return map[string]any{"error": "product_id and new_price are required"}
		}

		var product models.Product
		if err := db.First(&product, productID).Error; err != nil {
			return map[string]any{"status": "Product ID not found"}
		}
		product.UnitPrice = models.Round2(decimal.NewFromFloat(newPrice))
		if err := product.Validate(); err != nil {
			return a.toolError(name, err)
		}
		if err := db.Model(&product).Update("unit_price", product.UnitPrice).Error; err != nil {
			return a.toolError(name, err)
		}
		a.logger.Info("assistant updated price", zap.Uint("product_id", productID), zap.String("price", product.UnitPrice.StringFixed(2)))
		return map[string]any{"status": "Success", "new_price": product.UnitPrice.StringFixed(2)}
	}

	return map[string]any{"error": "unknown tool " + name}
}

func stockLines(records []models.Inventory) []stockLine {
	out := make([]stockLine, 0, len(records))
	for _, r := range records {
		if r.Product == nil {
			continue
		}
		out = append(out, stockLine{
			ProductID: r.ProductID,
			Name:      r.Product.Name,
			SKU:       r.Product.SKU,
			BranchID:  r.BranchID,
			Stock:     r.Stock,
			MinStock:  r.MinStock,
			Price:     r.Product.UnitPrice.StringFixed(2),
			Cost:      r.Product.CostPrice.StringFixed(2),
		})
	}
	return out
}

// toolError reports only the client-safe message to the model. The cause is logged.
func (a *Agent) toolError(tool string, err error) map[string]any {
	err = database.Translate(err, "store data")
	if apperr.KindOf(err) == apperr.KindInternal {
		a.logger.Error("assistant tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return map[string]any{"error": apperr.Message(err)}
}

// Gemini sends every number as float64.
func argUint(args map[string]any, key string) uint {
	if v, ok := args[key].(float64); ok && v > 0 {
		return uint(v)
	}
	return 0
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
