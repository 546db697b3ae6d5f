package database

import (
	"sort"
	"time"

	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesFilter narrows the sales report. Zero values mean "no filter".
type SalesFilter struct {
	Start    time.Time
	End      time.Time
	BranchID uint
}

type PaymentBreakdown struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Orders        int64                `json:"orders"`
	Revenue       decimal.Decimal      `json:"revenue"`
}

// SalesReportResult holds revenue figures for completed sales
type SalesReportResult struct {
	TotalRevenue    decimal.Decimal    `json:"total_revenue"`
	TotalCount      int64              `json:"total_orders"`
	AverageTicket   decimal.Decimal    `json:"average_ticket"`
	ByPaymentMethod []PaymentBreakdown `json:"by_payment_method"`
}

func completedSales(db *gorm.DB, f SalesFilter) *gorm.DB {
	q := db.Model(&models.Sale{}).Where("status = ?", models.SaleStatusCompleted)
	if !f.Start.IsZero() {
		q = q.Where("sale_date >= ?", f.Start)
	}
	if !f.End.IsZero() {
		q = q.Where("sale_date <= ?", f.End)
	}
	if f.BranchID != 0 {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	return q
}

// GetSalesReport calculates revenue within a date range. Only completed sales count.
func GetSalesReport(db *gorm.DB, f SalesFilter) (*SalesReportResult, error) {
	var result SalesReportResult

	// 1. Revenue. COALESCE gives 0 instead of NULL when nothing matches.
	err := completedSales(db, f).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	// 2. Orders
	if err := completedSales(db, f).Count(&result.TotalCount).Error; err != nil {
		return nil, err
	}

	if result.TotalCount > 0 {
		result.AverageTicket = models.Round2(result.TotalRevenue.Div(decimal.NewFromInt(result.TotalCount)))
	}

	// 3. Split by payment method
	err = completedSales(db, f).
		Select("payment_method, COUNT(*) as orders, COALESCE(SUM(total_amount), 0) as revenue").
		Group("payment_method").
		Order("payment_method").
		Scan(&result.ByPaymentMethod).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

type BranchRevenue struct {
	BranchID   uint            `json:"branch_id"`
	BranchName string          `json:"branch_name"`
	Orders     int64           `json:"orders"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// Dashboard is the landing-page summary for one day.
type Dashboard struct {
	Date          string          `json:"date"`
	TodayRevenue  decimal.Decimal `json:"today_revenue"`
	TodayOrders   int64           `json:"today_orders"`
	LowStockCount int64           `json:"low_stock_count"`
	Branches      []BranchRevenue `json:"branches"`
}

// GetDashboard summarises the UTC day containing now.
func GetDashboard(db *gorm.DB, now time.Time) (*Dashboard, error) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)

	today, err := GetSalesReport(db, SalesFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Date:         start.Format("2006-01-02"),
		TodayRevenue: today.TotalRevenue,
		TodayOrders:  today.TotalCount,
	}

	err = db.Model(&models.Inventory{}).
		Where("stock <= min_stock").
		Count(&d.LowStockCount).Error
	if err != nil {
		return nil, err
	}

	err = db.Table("sales").
		Select("branches.id as branch_id, branches.name as branch_name, COUNT(sales.id) as orders, COALESCE(SUM(sales.total_amount), 0) as revenue").
		Joins("JOIN branches ON branches.id = sales.branch_id").
		Where("sales.status = ? AND sales.deleted_at IS NULL", models.SaleStatusCompleted).
		Where("sales.sale_date BETWEEN ? AND ?", start, end).
		Group("branches.id, branches.name").
		Order("branches.id").
		Scan(&d.Branches).Error
	if err != nil {
		return nil, err
	}

	return d, nil
}

type TopProduct struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Sold        int64           `json:"sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// GetTopProducts ranks products by units sold in completed sales.
func GetTopProducts(db *gorm.DB, limit int, branchID uint) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}

	q := db.Table("sale_items").
		Select("products.id as product_id, products.name as product_name, SUM(sale_items.quantity) as sold, SUM(sale_items.subtotal) as revenue").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.status = ? AND sales.deleted_at IS NULL", models.SaleStatusCompleted)
	if branchID != 0 {
		q = q.Where("sales.branch_id = ?", branchID)
	}

	var out []TopProduct
	err := q.Group("products.id, products.name").
		Order("sold desc").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// ValuationItem is one stock record in the valuation report
type ValuationItem struct {
	ProductID   uint            `json:"product_id"`
	Name        string          `json:"name"`
	BranchID    uint            `json:"branch_id"`
	Quantity    int             `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// CategoryGroup is one category table of the valuation report
type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type ValuationResponse struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// GetStockValuation totals the value of stock on hand, grouped by product category.
func GetStockValuation(db *gorm.DB, branchID uint) (*ValuationResponse, error) {
	var records []models.Inventory
	q := db.Preload("Product")
	if branchID != 0 {
		q = q.Where("branch_id = ?", branchID)
	}
	if err := q.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	grouped := make(map[string]*CategoryGroup)
	response := &ValuationResponse{GrandTotal: decimal.Zero}

	for _, r := range records {
		if r.Product == nil {
			continue
		}
		// Items with no category are grouped as "Uncategorized"
		catName := r.Product.Category
		if catName == "" {
			catName = "Uncategorized"
		}

		group, ok := grouped[catName]
		if !ok {
			group = &CategoryGroup{CategoryName: catName, Subtotal: decimal.Zero}
			grouped[catName] = group
		}

		value := models.InventoryValue(r.Stock, r.AverageCost)
		group.Items = append(group.Items, ValuationItem{
			ProductID:   r.ProductID,
			Name:        r.Product.Name,
			BranchID:    r.BranchID,
			Quantity:    r.Stock,
			AverageCost: r.AverageCost,
			TotalValue:  value,
		})
		group.Subtotal = group.Subtotal.Add(value)
		response.GrandTotal = response.GrandTotal.Add(value)
	}

	for _, group := range grouped {
		response.Categories = append(response.Categories, *group)
	}
	sort.Slice(response.Categories, func(i, j int) bool {
		return response.Categories[i].CategoryName < response.Categories[j].CategoryName
	})

	return response, nil
}

// GetLowStock lists stock records at or below their minimum.
func GetLowStock(db *gorm.DB, branchID uint) ([]models.Inventory, error) {
	q := db.Preload("Product").Where("stock <= min_stock")
	if branchID != 0 {
		q = q.Where("branch_id = ?", branchID)
	}
	var out []models.Inventory
	err := q.Order("branch_id, product_id").Find(&out).Error
	return out, err
}
