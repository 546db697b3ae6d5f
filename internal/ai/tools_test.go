package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"branch-pos/internal/apperr"
	"branch-pos/internal/models"
	"branch-pos/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestExecuteTool_Inventory(t *testing.T) {
	db := testutil.NewDB(t)
	agent := NewAgent(db, "", "test-model", zaptest.NewLogger(t))
	branch := testutil.Branch(t, db)
	other := testutil.Branch(t, db)
	p := testutil.Product(t, db, "12.50")
	testutil.Stock(t, db, p.ID, branch.ID, 9)
	testutil.Stock(t, db, p.ID, other.ID, 1)

	out := agent.ExecuteTool(context.Background(), toolCheckInventory, map[string]any{"branch_id": float64(branch.ID)})
	lines, ok := out["inventory"].([]stockLine)
	require.True(t, ok, "%v", out)
	require.Len(t, lines, 1)
	assert.Equal(t, 9, lines[0].Stock)
	assert.Equal(t, "12.50", lines[0].Price)

	out = agent.ExecuteTool(context.Background(), toolLowStock, map[string]any{})
	lines = out["inventory"].([]stockLine)
	require.Len(t, lines, 1)
	assert.Equal(t, other.ID, lines[0].BranchID)
}

func TestExecuteTool_SalesReport(t *testing.T) {
	db := testutil.NewDB(t)
	agent := NewAgent(db, "", "test-model", zaptest.NewLogger(t))
	branch := testutil.Branch(t, db)
	user := testutil.User(t, db, models.RoleCashier)

	sale := models.Sale{
		Reference:     "TXN-TEST-0001",
		BranchID:      branch.ID,
		UserID:        user.ID,
		TotalAmount:   decimal.RequireFromString("232.00"),
		PaymentMethod: models.PaymentCash,
		Status:        models.SaleStatusCompleted,
		SaleDate:      time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&sale).Error)

	out := agent.ExecuteTool(context.Background(), toolSalesReport, map[string]any{
		"start_date": "2026-10-18",
		"end_date":   "2026-10-18",
	})
	assert.Equal(t, "232.00", out["revenue"])
	assert.EqualValues(t, 1, out["sales_count"])

	out = agent.ExecuteTool(context.Background(), toolSalesReport, map[string]any{"start_date": "yesterday"})
	assert.Contains(t, out, "error")
}

func TestExecuteTool_UpdatePrice(t *testing.T) {
	db := testutil.NewDB(t)
	agent := NewAgent(db, "", "test-model", zaptest.NewLogger(t))
	p := testutil.Product(t, db, "10.00") // cost 6.00

	out := agent.ExecuteTool(context.Background(), toolUpdatePrice, map[string]any{"product_id": float64(p.ID), "new_price": 11.5})
	assert.Equal(t, "Success", out["status"])

	var stored models.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.True(t, stored.UnitPrice.Equal(decimal.RequireFromString("11.5")))

	out = agent.ExecuteTool(context.Background(), toolUpdatePrice, map[string]any{"product_id": float64(p.ID), "new_price": 5.0})
	assert.Equal(t, "unit price must be greater than cost price", out["error"])

	out = agent.ExecuteTool(context.Background(), "delete_everything", nil)
	assert.Contains(t, out, "error")
}

func TestAskWithoutKey(t *testing.T) {
	agent := NewAgent(nil, "", "test-model", nil)
	_, err := agent.Ask(context.Background(), "hello")
	assert.Error(t, err)
}

func TestExecuteTool_HidesStorageErrors(t *testing.T) {
	db := testutil.NewDB(t)
	agent := NewAgent(db, "", "test-model", zaptest.NewLogger(t))
	require.NoError(t, db.Migrator().DropTable(&models.Inventory{}))

	out := agent.ExecuteTool(context.Background(), toolCheckInventory, map[string]any{})
	msg, ok := out["error"].(string)
	require.True(t, ok, "%v", out)
	assert.Equal(t, "failed to access store data", msg)
	assert.NotContains(t, msg, "no such table")

	out = agent.toolError(toolLowStock, apperr.Internal(errors.New("dial tcp 10.0.0.5:3306: refused"), "failed to read stock"))
	assert.Equal(t, "failed to read stock", out["error"])
}
