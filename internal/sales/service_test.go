package sales_test

import (
	"context"
	"regexp"
	"testing"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"
	"branch-pos/internal/inventory"
	"branch-pos/internal/models"
	"branch-pos/internal/sales"
	"branch-pos/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type env struct {
	db      *gorm.DB
	svc     *sales.Service
	branch  *models.Branch
	cashier *models.User
	product *models.Product
}

func newEnv(t *testing.T, cfg sales.Config) *env {
	db := testutil.NewDB(t)
	logger := zaptest.NewLogger(t)
	if cfg.TaxRate.IsZero() {
		cfg.TaxRate = decimal.RequireFromString("0.16")
	}
	e := &env{
		db:      db,
		svc:     sales.NewService(db, inventory.NewLedger(logger), cfg, logger),
		branch:  testutil.Branch(t, db),
		cashier: testutil.User(t, db, models.RoleCashier),
		product: testutil.Product(t, db, "100.00"),
	}
	return e
}

func (e *env) input(items ...sales.ItemInput) sales.CreateInput {
	return sales.CreateInput{
		BranchID:      e.branch.ID,
		UserID:        e.cashier.ID,
		PaymentMethod: models.PaymentCash,
		Items:         items,
	}
}

func (e *env) stock(t *testing.T, p *models.Product) int {
	return testutil.StockLevel(t, e.db, p.ID, e.branch.ID)
}

func (e *env) saleCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, e.db.Model(&models.Sale{}).Count(&n).Error)
	return n
}

func TestCreate_TotalsAndStock(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 10)

	sale, err := e.svc.Create(context.Background(), e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, sale.Subtotal.Equal(decimal.RequireFromString("200.00")), sale.Subtotal.String())
	assert.True(t, sale.TaxAmount.Equal(decimal.RequireFromString("32.00")), sale.TaxAmount.String())
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("232.00")), sale.TotalAmount.String())
	assert.Equal(t, models.SaleStatusCompleted, sale.Status)
	assert.Regexp(t, regexp.MustCompile(`^TXN-\d{8}-[0-9A-F]{8}$`), sale.Reference)
	require.Len(t, sale.Items, 1)
	assert.True(t, sale.Items[0].UnitPrice.Equal(e.product.UnitPrice))
	require.NotNil(t, sale.Items[0].Product)

	assert.Equal(t, 8, e.stock(t, e.product))
}

func TestCreate_InsufficientStock(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)

	_, err := e.svc.Create(context.Background(), e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 10}))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Contains(t, apperr.Message(err), e.product.Name)

	assert.Equal(t, 5, e.stock(t, e.product))
	assert.Zero(t, e.saleCount(t))
}

func TestCreate_FailureLeavesEarlierLinesUntouched(t *testing.T) {
	e := newEnv(t, sales.Config{})
	other := testutil.Product(t, e.db, "5.00")
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 10)
	testutil.Stock(t, e.db, other.ID, e.branch.ID, 1)

	_, err := e.svc.Create(context.Background(), e.input(
		sales.ItemInput{ProductID: e.product.ID, Quantity: 3},
		sales.ItemInput{ProductID: other.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	assert.Equal(t, 10, e.stock(t, e.product))
	assert.Equal(t, 1, e.stock(t, other))
	assert.Zero(t, e.saleCount(t))
}

func TestCreate_RepeatedProductUsesCombinedQuantity(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 4)

	_, err := e.svc.Create(context.Background(), e.input(
		sales.ItemInput{ProductID: e.product.ID, Quantity: 3},
		sales.ItemInput{ProductID: e.product.ID, Quantity: 2},
	))
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 4, e.stock(t, e.product))
}

func TestCreate_NotStockedAtBranch(t *testing.T) {
	e := newEnv(t, sales.Config{})
	elsewhere := testutil.Branch(t, e.db)
	testutil.Stock(t, e.db, e.product.ID, elsewhere.ID, 50)

	_, err := e.svc.Create(context.Background(), e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 50, testutil.StockLevel(t, e.db, e.product.ID, elsewhere.ID))
}

func TestCreate_Preconditions(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	item := sales.ItemInput{ProductID: e.product.ID, Quantity: 1}
	missing := uint(9999)

	cases := []struct {
		name   string
		mutate func(in *sales.CreateInput)
		want   error
	}{
		{"no items", func(in *sales.CreateInput) { in.Items = nil }, apperr.ErrValidation},
		{"no branch", func(in *sales.CreateInput) { in.BranchID = 0 }, apperr.ErrValidation},
		{"no user", func(in *sales.CreateInput) { in.UserID = 0 }, apperr.ErrValidation},
		{"no payment method", func(in *sales.CreateInput) { in.PaymentMethod = "" }, apperr.ErrValidation},
		{"bad payment method", func(in *sales.CreateInput) { in.PaymentMethod = "barter" }, apperr.ErrValidation},
		{"refunded status", func(in *sales.CreateInput) { in.Status = models.SaleStatusRefunded }, apperr.ErrValidation},
		{"unknown user", func(in *sales.CreateInput) { in.UserID = missing }, apperr.ErrReference},
		{"unknown branch", func(in *sales.CreateInput) { in.BranchID = missing }, apperr.ErrReference},
		{"unknown customer", func(in *sales.CreateInput) { in.CustomerID = &missing }, apperr.ErrReference},
		{"unknown product", func(in *sales.CreateInput) { in.Items = []sales.ItemInput{{ProductID: missing, Quantity: 1}} }, apperr.ErrReference},
		{"zero quantity", func(in *sales.CreateInput) { in.Items = []sales.ItemInput{{ProductID: e.product.ID}} }, apperr.ErrValidation},
		{"negative quantity", func(in *sales.CreateInput) { in.Items = []sales.ItemInput{{ProductID: e.product.ID, Quantity: -1}} }, apperr.ErrValidation},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := e.input(item)
			c.mutate(&in)
			_, err := e.svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, c.want)
			assert.Equal(t, 5, e.stock(t, e.product))
		})
	}
	assert.Zero(t, e.saleCount(t))
}

func TestCreate_CashierBoundToBranch(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	home := testutil.Branch(t, e.db)
	require.NoError(t, e.db.Model(e.cashier).Update("branch_id", home.ID).Error)

	_, err := e.svc.Create(context.Background(), e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCreate_PriceOverrideDiscountAndCustomer(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	customer := testutil.Customer(t, e.db)

	price := decimal.RequireFromString("80.00")
	rate := decimal.RequireFromString("0.10")
	in := e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 3, UnitPrice: &price})
	in.DiscountRate = &rate
	in.CustomerID = &customer.ID
	in.PaymentMethod = models.PaymentCard

	sale, err := e.svc.Create(context.Background(), in)
	require.NoError(t, err)

	// 240 - 24 = 216, tax 34.56
	assert.True(t, sale.Subtotal.Equal(decimal.RequireFromString("240")))
	assert.True(t, sale.DiscountAmount.Equal(decimal.RequireFromString("24")))
	assert.True(t, sale.TaxAmount.Equal(decimal.RequireFromString("34.56")), sale.TaxAmount.String())
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("250.56")), sale.TotalAmount.String())
	require.NotNil(t, sale.Customer)
	assert.Equal(t, customer.ID, sale.Customer.ID)
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	sale, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 2}))
	require.NoError(t, err)
	require.Equal(t, 3, e.stock(t, e.product))

	cancelled, err := e.svc.Cancel(ctx, sale.ID, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, e.stock(t, e.product))

	_, err = e.svc.Cancel(ctx, sale.ID, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 5, e.stock(t, e.product))

	var movements []models.InventoryMovement
	require.NoError(t, e.db.Where("reference = ?", sale.Reference).Order("id").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, models.MovementSale, movements[0].Type)
	assert.Equal(t, models.MovementCancellation, movements[1].Type)
}

func TestCancel_NotFound(t *testing.T) {
	e := newEnv(t, sales.Config{})
	_, err := e.svc.Cancel(context.Background(), 424242, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRefund(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	sale, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 4}))
	require.NoError(t, err)

	refunded, err := e.svc.Refund(ctx, sale.ID, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusRefunded, refunded.Status)
	assert.Equal(t, 5, e.stock(t, e.product))

	_, err = e.svc.Cancel(ctx, sale.ID, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 5, e.stock(t, e.product))
}

func TestPendingSaleLifecycle(t *testing.T) {
	e := newEnv(t, sales.Config{DefaultStatus: models.SaleStatusPending})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	pending, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusPending, pending.Status)
	assert.Equal(t, 5, e.stock(t, e.product), "pending sales only reserve")

	// only 2 units are still available
	_, err = e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 3}))
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	_, err = e.svc.Refund(ctx, pending.ID, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	completed, err := e.svc.Complete(ctx, pending.ID, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, completed.Status)
	assert.Equal(t, 2, e.stock(t, e.product))

	second, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 2}))
	require.NoError(t, err)
	_, err = e.svc.Cancel(ctx, second.ID, e.cashier.ID)
	require.NoError(t, err)

	var inv models.Inventory
	require.NoError(t, e.db.Where("product_id = ?", e.product.ID).First(&inv).Error)
	assert.Equal(t, 2, inv.Stock)
	assert.Zero(t, inv.ReservedStock)
}

func TestUpdate(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	sale, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
	require.NoError(t, err)

	notes := "gift wrap"
	card := models.PaymentCard
	updated, err := e.svc.Update(ctx, sale.ID, sales.UpdateInput{Notes: &notes, PaymentMethod: &card}, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, "gift wrap", updated.Notes)
	assert.Equal(t, models.PaymentCard, updated.PaymentMethod)

	pending := models.SaleStatusPending
	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &pending, Notes: &notes}, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	cancelled := models.SaleStatusCancelled
	updated, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &cancelled}, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCancelled, updated.Status)
	assert.Equal(t, 5, e.stock(t, e.product))

	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{PaymentMethod: &card}, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// a second cancel through Update fails like Cancel does and leaves stock alone
	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &cancelled, Notes: &notes}, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 5, e.stock(t, e.product))
}

func TestUpdate_RepeatedStatus(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	sale, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 2}))
	require.NoError(t, err)

	// same live status with an edit is just the edit
	completed := models.SaleStatusCompleted
	notes := "paid at counter"
	updated, err := e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &completed, Notes: &notes}, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid at counter", updated.Notes)
	assert.Equal(t, 3, e.stock(t, e.product))

	refunded := models.SaleStatusRefunded
	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &refunded}, e.cashier.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, e.stock(t, e.product))

	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &refunded}, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	cancelled := models.SaleStatusCancelled
	_, err = e.svc.Update(ctx, sale.ID, sales.UpdateInput{Status: &cancelled}, e.cashier.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 5, e.stock(t, e.product))

	var stored models.Sale
	require.NoError(t, e.db.First(&stored, sale.ID).Error)
	assert.Equal(t, models.SaleStatusRefunded, stored.Status)
}

func TestCreate_InactiveUserOrBranch(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 5)
	ctx := context.Background()

	require.NoError(t, e.db.Model(e.cashier).Update("is_active", false).Error)
	_, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, e.db.Model(e.cashier).Update("is_active", true).Error)
	require.NoError(t, e.db.Model(e.branch).Update("is_active", false).Error)
	_, err = e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Zero(t, e.saleCount(t))
	assert.Equal(t, 5, e.stock(t, e.product))
}

func TestList(t *testing.T) {
	e := newEnv(t, sales.Config{})
	testutil.Stock(t, e.db, e.product.ID, e.branch.ID, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.svc.Create(ctx, e.input(sales.ItemInput{ProductID: e.product.ID, Quantity: 1}))
		require.NoError(t, err)
	}
	first, _, err := e.svc.List(ctx, sales.Filter{}, database.Page{Limit: 1})
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = e.svc.Cancel(ctx, first[0].ID, e.cashier.ID)
	require.NoError(t, err)

	all, total, err := e.svc.List(ctx, sales.Filter{BranchID: e.branch.ID}, database.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 2)

	_, total, err = e.svc.List(ctx, sales.Filter{Status: models.SaleStatusCancelled}, database.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = e.svc.List(ctx, sales.Filter{Status: "lost"}, database.Page{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
