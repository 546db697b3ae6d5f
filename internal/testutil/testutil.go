// Package testutil builds throwaway SQLite databases and fixtures for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

func next() int64 {
	return seq.Add(1)
}

// NewDB opens a migrated SQLite database in the test's temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "pos.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func Branch(t testing.TB, db *gorm.DB) *models.Branch {
	t.Helper()
	n := next()
	b := &models.Branch{Name: fmt.Sprintf("Branch %d", n), Code: fmt.Sprintf("BR%03d", n), IsActive: true}
	require.NoError(t, db.Create(b).Error)
	return b
}

func User(t testing.TB, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	n := next()
	u := &models.User{
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "x",
		FirstName:    "Test",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Customer(t testing.TB, db *gorm.DB) *models.Customer {
	t.Helper()
	c := &models.Customer{FirstName: "Ana", LastName: "Lopez", IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Product creates a catalog product with the given unit price and a cost of 60% of it.
func Product(t testing.TB, db *gorm.DB, price string) *models.Product {
	t.Helper()
	n := next()
	unit := decimal.RequireFromString(price)
	p := &models.Product{
		Name:      fmt.Sprintf("Product %d", n),
		SKU:       fmt.Sprintf("SKU-%04d", n),
		Category:  "General",
		UnitPrice: unit,
		CostPrice: unit.Mul(decimal.RequireFromString("0.6")).Round(2),
		TaxRate:   decimal.RequireFromString("0.16"),
		MinStock:  1,
		MaxStock:  100,
		IsActive:  true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Stock creates an inventory record for product at branch.
func Stock(t testing.TB, db *gorm.DB, productID, branchID uint, qty int) *models.Inventory {
	t.Helper()
	inv := &models.Inventory{
		ProductID:   productID,
		BranchID:    branchID,
		Stock:       qty,
		MinStock:    1,
		AverageCost: decimal.NewFromInt(10),
	}
	inv.Revalue()
	require.NoError(t, db.Create(inv).Error)
	return inv
}

// StockLevel reads the current stock of product at branch.
func StockLevel(t testing.TB, db *gorm.DB, productID, branchID uint) int {
	t.Helper()
	var inv models.Inventory
	require.NoError(t, db.Where("product_id = ? AND branch_id = ?", productID, branchID).First(&inv).Error)
	return inv.Stock
}
