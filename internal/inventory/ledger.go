// Package inventory keeps per-branch stock. Every change to a stock figure
// goes through the Ledger so that derived values and the movement audit trail
// stay consistent.
package inventory

import (
	"context"
	"errors"

	"branch-pos/internal/apperr"
	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LowStockFunc receives a record whose stock reached its minimum after a committed change.
type LowStockFunc func(inv models.Inventory)

// Entry describes why a mutation happened. It is copied into the movement row.
type Entry struct {
	Type      models.MovementType
	Reason    string
	Reference string
	UserID    *uint
}

type Ledger struct {
	logger     *zap.Logger
	onLowStock LowStockFunc
}

func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger}
}

// OnLowStock registers a callback for the low stock signal in addition to the log line.
func (l *Ledger) OnLowStock(fn LowStockFunc) {
	l.onLowStock = fn
}

// Tx is a ledger bound to one database transaction.
type Tx struct {
	DB  *gorm.DB
	low map[uint]models.Inventory
}

// Transaction runs fn inside a single database transaction. Low stock signals
// are only raised once the transaction has committed.
func (l *Ledger) Transaction(ctx context.Context, db *gorm.DB, fn func(tx *Tx) error) error {
	var low map[uint]models.Inventory

	err := db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx := &Tx{DB: gtx, low: map[uint]models.Inventory{}}
		if err := fn(tx); err != nil {
			return err
		}
		low = tx.low
		return nil
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperr.Internal(err, "inventory transaction failed")
	}

	for _, inv := range low {
		l.signalLowStock(inv)
	}
	return nil
}

func (l *Ledger) signalLowStock(inv models.Inventory) {
	l.logger.Warn("low stock",
		zap.Uint("inventory_id", inv.ID),
		zap.Uint("product_id", inv.ProductID),
		zap.Uint("branch_id", inv.BranchID),
		zap.Int("stock", inv.Stock),
		zap.Int("min_stock", inv.MinStock),
	)
	if l.onLowStock != nil {
		l.onLowStock(inv)
	}
}

// Lock loads the stock record for (product, branch) with a row lock.
func (t *Tx) Lock(productID, branchID uint) (*models.Inventory, error) {
	var inv models.Inventory
	err := t.DB.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no inventory for product %d at branch %d", productID, branchID)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load inventory")
	}
	return &inv, nil
}

func requirePositive(qty int) error {
	if qty <= 0 {
		return apperr.Validation("quantity must be greater than zero")
	}
	return nil
}

// Increment adds qty units to stock.
func (t *Tx) Increment(productID, branchID uint, qty int, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	return t.apply(inv, qty, 0, e)
}

// Decrement removes qty units. It never lets stock drop below what is reserved
// by pending sales, and so never below zero.
func (t *Tx) Decrement(productID, branchID uint, qty int, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if qty > inv.Available() {
		return nil, apperr.InsufficientStock("insufficient stock for product %d at branch %d: requested %d, available %d",
			productID, branchID, qty, inv.Available())
	}
	return t.apply(inv, -qty, 0, e)
}

// Adjust applies a signed correction. The result may not go below zero or below
// the reserved quantity.
func (t *Tx) Adjust(productID, branchID uint, delta int, e Entry) (*models.Inventory, error) {
	if delta == 0 {
		return nil, apperr.Validation("adjustment delta cannot be zero")
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if inv.Stock+delta < 0 {
		return nil, apperr.Validation("adjustment would leave stock negative (current %d, delta %d)", inv.Stock, delta)
	}
	if inv.Stock+delta < inv.ReservedStock {
		return nil, apperr.Validation("adjustment would leave stock below the %d units reserved", inv.ReservedStock)
	}
	return t.apply(inv, delta, 0, e)
}

// Restock adds received units and blends unitCost into the average cost.
// A nil unitCost keeps the current average.
func (t *Tx) Restock(productID, branchID uint, qty int, unitCost *decimal.Decimal, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, apperr.Validation("unit cost cannot be negative")
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if unitCost != nil {
		inv.AverageCost = models.WeightedAverageCost(inv.Stock, inv.AverageCost, qty, *unitCost)
	}
	return t.apply(inv, qty, 0, e)
}

// Reserve holds qty units for a pending sale.
func (t *Tx) Reserve(productID, branchID uint, qty int, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if qty > inv.Available() {
		return nil, apperr.InsufficientStock("insufficient stock for product %d at branch %d: requested %d, available %d",
			productID, branchID, qty, inv.Available())
	}
	return t.apply(inv, 0, qty, e)
}

// Release gives back units held by Reserve.
func (t *Tx) Release(productID, branchID uint, qty int, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if qty > inv.ReservedStock {
		qty = inv.ReservedStock
	}
	return t.apply(inv, 0, -qty, e)
}

// Fulfill turns a reservation into a sale: reserved and stock both drop by qty.
func (t *Tx) Fulfill(productID, branchID uint, qty int, e Entry) (*models.Inventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	inv, err := t.Lock(productID, branchID)
	if err != nil {
		return nil, err
	}
	if qty > inv.ReservedStock || qty > inv.Stock {
		return nil, apperr.InsufficientStock("product %d at branch %d has only %d units reserved", productID, branchID, inv.ReservedStock)
	}
	return t.apply(inv, -qty, -qty, e)
}

// apply mutates the locked record, recomputes derived fields, persists it and
// writes the movement row.
func (t *Tx) apply(inv *models.Inventory, stockDelta, reservedDelta int, e Entry) (*models.Inventory, error) {
	previous := inv.Stock
	inv.Stock += stockDelta
	inv.ReservedStock += reservedDelta

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	inv.Revalue()

	if err := t.DB.Save(inv).Error; err != nil {
		return nil, apperr.Internal(err, "failed to update inventory")
	}

	quantity := stockDelta
	if stockDelta == 0 {
		quantity = reservedDelta
	}
	movement := models.InventoryMovement{
		InventoryID:   inv.ID,
		ProductID:     inv.ProductID,
		BranchID:      inv.BranchID,
		Type:          e.Type,
		Quantity:      quantity,
		PreviousStock: previous,
		NewStock:      inv.Stock,
		Reason:        e.Reason,
		Reference:     e.Reference,
		UserID:        e.UserID,
	}
	if err := t.DB.Create(&movement).Error; err != nil {
		return nil, apperr.Internal(err, "failed to record inventory movement")
	}

	if stockDelta != 0 {
		if inv.IsLow() {
			t.low[inv.ID] = *inv
		} else {
			delete(t.low, inv.ID)
		}
	}
	return inv, nil
}
