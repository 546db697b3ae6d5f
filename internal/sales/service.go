// Package sales implements the sale workflows: creation with stock
// decrement, cancellation with stock restoration, and the remaining status
// transitions. Each workflow runs in one database transaction.
package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"
	"branch-pos/internal/inventory"
	"branch-pos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Config carries the sale defaults taken from the server configuration.
type Config struct {
	TaxRate             decimal.Decimal
	DefaultDiscountRate decimal.Decimal
	DefaultStatus       models.SaleStatus
}

type Service struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = models.SaleStatusCompleted
	}
	return &Service{
		db:     db,
		ledger: ledger,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

type ItemInput struct {
	ProductID       uint             `json:"product_id"`
	Quantity        int              `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
}

type CreateInput struct {
	CustomerID    *uint                `json:"customer_id"`
	BranchID      uint                 `json:"branch_id"`
	UserID        uint                 `json:"user_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	DiscountRate  *decimal.Decimal     `json:"discount_rate"`
	Status        models.SaleStatus    `json:"status"`
	Notes         string               `json:"notes"`
	Items         []ItemInput          `json:"items"`
}

// UpdateInput edits a sale. A status change runs the matching workflow.
type UpdateInput struct {
	Status        *models.SaleStatus    `json:"status"`
	Notes         *string               `json:"notes"`
	PaymentMethod *models.PaymentMethod `json:"payment_method"`
}

type Filter struct {
	BranchID   uint
	UserID     uint
	CustomerID uint
	Status     models.SaleStatus
	From       time.Time
	To         time.Time
}

var one = decimal.NewFromInt(1)

// validate covers the checks that need no database access.
func (in *CreateInput) validate() error {
	if in.BranchID == 0 {
		return apperr.Validation("branch_id is required")
	}
	if in.UserID == 0 {
		return apperr.Validation("user_id is required")
	}
	if in.PaymentMethod == "" {
		return apperr.Validation("payment_method is required")
	}
	if !in.PaymentMethod.Valid() {
		return apperr.Validation("invalid payment_method %q", in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return apperr.Validation("a sale needs at least one item")
	}
	if in.Status != "" && in.Status != models.SaleStatusPending && in.Status != models.SaleStatusCompleted {
		return apperr.Validation("a new sale must be pending or completed")
	}
	if in.DiscountRate != nil && (in.DiscountRate.IsNegative() || in.DiscountRate.GreaterThan(one)) {
		return apperr.Validation("discount_rate must be between 0 and 1")
	}
	return nil
}

// line is a checked request item with its resolved price.
type line struct {
	product  *models.Product
	quantity int
	price    decimal.Decimal
	percent  decimal.Decimal
}

// Create runs the sale creation workflow. Nothing is written unless every
// precondition holds, and the sale, its items and the stock changes commit together.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Sale, error) {
	// 1. Shape of the request
	if err := in.validate(); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = s.cfg.DefaultStatus
	}
	discountRate := s.cfg.DefaultDiscountRate
	if in.DiscountRate != nil {
		discountRate = *in.DiscountRate
	}

	var sale models.Sale
	err := s.ledger.Transaction(ctx, s.db, func(tx *inventory.Tx) error {
		// 2. References
		var user models.User
		if err := tx.DB.First(&user, in.UserID).Error; err != nil {
			return reference(err, "user %d does not exist", in.UserID)
		}
		if !user.IsActive {
			return apperr.Validation("user %d is inactive", in.UserID)
		}
		var branch models.Branch
		if err := tx.DB.First(&branch, in.BranchID).Error; err != nil {
			return reference(err, "branch %d does not exist", in.BranchID)
		}
		if !branch.IsActive {
			return apperr.Validation("branch %d is inactive", in.BranchID)
		}
		if in.CustomerID != nil {
			if err := mustExist(tx.DB, &models.Customer{}, *in.CustomerID, "customer"); err != nil {
				return err
			}
		}
		if user.Role == models.RoleCashier && user.BranchID != nil && *user.BranchID != in.BranchID {
			return apperr.Validation("user %d is not assigned to branch %d", in.UserID, in.BranchID)
		}

		// 3. Items: product, quantity, then stock at this branch
		lines, err := s.checkItems(tx, in.BranchID, in.Items)
		if err != nil {
			return err
		}

		// 4. Money
		items := make([]models.SaleItem, 0, len(lines))
		subtotals := make([]decimal.Decimal, 0, len(lines))
		for _, l := range lines {
			discount, subtotal := LineAmounts(l.price, l.quantity, l.percent)
			items = append(items, models.SaleItem{
				ProductID:       l.product.ID,
				Quantity:        l.quantity,
				UnitPrice:       l.price,
				DiscountPercent: l.percent,
				DiscountAmount:  discount,
				Subtotal:        subtotal,
			})
			subtotals = append(subtotals, subtotal)
		}
		totals := ComputeTotals(subtotals, discountRate, s.cfg.TaxRate)

		now := s.now().UTC()
		sale = models.Sale{
			Reference:      GenerateReference(now, s.newID()),
			CustomerID:     in.CustomerID,
			BranchID:       in.BranchID,
			UserID:         in.UserID,
			Subtotal:       totals.Subtotal,
			DiscountRate:   discountRate,
			DiscountAmount: totals.DiscountAmount,
			TaxRate:        s.cfg.TaxRate,
			TaxAmount:      totals.TaxAmount,
			TotalAmount:    totals.TotalAmount,
			PaymentMethod:  in.PaymentMethod,
			Status:         status,
			SaleDate:       now,
			Notes:          strings.TrimSpace(in.Notes),
			Items:          items, // GORM inserts these with the header
		}

		// 5. Persist header and items
		if err := tx.DB.Create(&sale).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("transaction reference %s already used", sale.Reference)
			}
			return apperr.Internal(err, "failed to create sale record")
		}

		// 6. Stock: decrement a completed sale, reserve a pending one
		for _, item := range sale.Items {
			entry := inventory.Entry{Reference: sale.Reference, UserID: &sale.UserID}
			var err error
			if status == models.SaleStatusPending {
				entry.Type = models.MovementReservation
				_, err = tx.Reserve(item.ProductID, sale.BranchID, item.Quantity, entry)
			} else {
				entry.Type = models.MovementSale
				_, err = tx.Decrement(item.ProductID, sale.BranchID, item.Quantity, entry)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Info("sale rejected",
			zap.Uint("branch_id", in.BranchID),
			zap.Uint("user_id", in.UserID),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("sale created",
		zap.Uint("sale_id", sale.ID),
		zap.String("reference", sale.Reference),
		zap.Uint("branch_id", sale.BranchID),
		zap.String("status", string(sale.Status)),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
	)
	return s.Get(ctx, sale.ID)
}

// checkItems resolves products and verifies stock for the whole request before
// anything is written. Repeated products are checked against their combined quantity.
func (s *Service) checkItems(tx *inventory.Tx, branchID uint, in []ItemInput) ([]line, error) {
	lines := make([]line, 0, len(in))
	needed := map[uint]int{}
	stock := map[uint]*models.Inventory{}

	for i, item := range in {
		var product models.Product
		if err := tx.DB.First(&product, item.ProductID).Error; err != nil {
			return nil, reference(err, "product %d does not exist", item.ProductID)
		}
		if !product.IsActive {
			return nil, apperr.Validation("product %s is not active", product.Name)
		}
		if item.Quantity <= 0 {
			return nil, apperr.Validation("item %d: quantity must be greater than zero", i+1)
		}

		price := product.UnitPrice
		if item.UnitPrice != nil {
			if item.UnitPrice.IsNegative() {
				return nil, apperr.Validation("item %d: unit_price cannot be negative", i+1)
			}
			price = *item.UnitPrice
		}
		percent := decimal.Zero
		if item.DiscountPercent != nil {
			if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(hundred) {
				return nil, apperr.Validation("item %d: discount_percent must be between 0 and 100", i+1)
			}
			percent = *item.DiscountPercent
		}

		inv, ok := stock[product.ID]
		if !ok {
			var err error
			inv, err = tx.Lock(product.ID, branchID)
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.InsufficientStock("insufficient stock for %s: not stocked at branch %d", product.Name, branchID)
			}
			if err != nil {
				return nil, err
			}
			stock[product.ID] = inv
		}

		needed[product.ID] += item.Quantity
		if needed[product.ID] > inv.Available() {
			return nil, apperr.InsufficientStock("insufficient stock for %s: requested %d, available %d",
				product.Name, needed[product.ID], inv.Available())
		}

		lines = append(lines, line{product: &product, quantity: item.Quantity, price: models.Round2(price), percent: percent})
	}
	return lines, nil
}

// Cancel runs the cancellation workflow: stock goes back (or reservations are
// released) and the sale becomes cancelled, atomically.
func (s *Service) Cancel(ctx context.Context, id uint, userID uint) (*models.Sale, error) {
	return s.changeStatus(ctx, id, models.SaleStatusCancelled, userID, nil)
}

// Complete settles a pending sale, turning its reservations into decrements.
func (s *Service) Complete(ctx context.Context, id uint, userID uint) (*models.Sale, error) {
	return s.changeStatus(ctx, id, models.SaleStatusCompleted, userID, nil)
}

// Refund reverses a completed sale and returns its goods to stock.
func (s *Service) Refund(ctx context.Context, id uint, userID uint) (*models.Sale, error) {
	return s.changeStatus(ctx, id, models.SaleStatusRefunded, userID, nil)
}

// Update edits notes and payment method and, if asked, moves the status.
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput, userID uint) (*models.Sale, error) {
	if in.PaymentMethod != nil && !in.PaymentMethod.Valid() {
		return nil, apperr.Validation("invalid payment_method %q", *in.PaymentMethod)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("invalid status %q", *in.Status)
	}

	edit := func(tx *gorm.DB, sale *models.Sale) error {
		updates := map[string]any{}
		if in.Notes != nil {
			updates["notes"] = strings.TrimSpace(*in.Notes)
		}
		if in.PaymentMethod != nil {
			if sale.Status.IsTerminal() {
				return apperr.InvalidTransition("cannot change payment method of a %s sale", sale.Status)
			}
			updates["payment_method"] = *in.PaymentMethod
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).Updates(updates).Error; err != nil {
			return apperr.Internal(err, "failed to update sale")
		}
		return nil
	}

	next := models.SaleStatus("")
	if in.Status != nil {
		next = *in.Status
	}
	return s.changeStatus(ctx, id, next, userID, edit)
}

// changeStatus loads and locks the sale, applies edit, then moves it to next
// (if set) with the matching stock effect. Everything commits together.
func (s *Service) changeStatus(ctx context.Context, id uint, next models.SaleStatus, userID uint, edit func(*gorm.DB, *models.Sale) error) (*models.Sale, error) {
	var from models.SaleStatus
	err := s.ledger.Transaction(ctx, s.db, func(tx *inventory.Tx) error {
		var sale models.Sale
		err := tx.DB.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items").First(&sale, id).Error
		if err != nil {
			return database.Translate(err, "sale")
		}
		from = sale.Status

		if edit != nil {
			if err := edit(tx.DB, &sale); err != nil {
				return err
			}
		}
		// Repeating a live status is a plain edit. A terminal one falls through and is rejected.
		if next == "" || (next == sale.Status && !sale.Status.IsTerminal()) {
			return nil
		}
		if !sale.Status.CanTransitionTo(next) {
			return apperr.InvalidTransition("cannot move sale %s from %s to %s", sale.Reference, sale.Status, next)
		}

		for _, item := range sale.Items {
			if err := s.restock(tx, &sale, item, next, userID); err != nil {
				return err
			}
		}

		res := tx.DB.Model(&models.Sale{}).
			Where("id = ? AND status = ?", sale.ID, sale.Status).
			Update("status", next)
		if res.Error != nil {
			return apperr.Internal(res.Error, "failed to update sale status")
		}
		if res.RowsAffected != 1 {
			return apperr.InvalidTransition("sale %s changed concurrently", sale.Reference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if next != "" && next != from {
		s.logger.Info("sale status changed",
			zap.Uint("sale_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(next)),
			zap.Uint("user_id", userID),
		)
	}
	return s.Get(ctx, id)
}

// restock applies the stock effect of moving one line of sale to next.
func (s *Service) restock(tx *inventory.Tx, sale *models.Sale, item models.SaleItem, next models.SaleStatus, userID uint) error {
	entry := inventory.Entry{Reference: sale.Reference, UserID: &userID}
	var err error
	switch {
	case sale.Status == models.SaleStatusPending && next == models.SaleStatusCompleted:
		entry.Type = models.MovementSale
		_, err = tx.Fulfill(item.ProductID, sale.BranchID, item.Quantity, entry)
	case sale.Status == models.SaleStatusPending && next == models.SaleStatusCancelled:
		entry.Type = models.MovementRelease
		_, err = tx.Release(item.ProductID, sale.BranchID, item.Quantity, entry)
	case sale.Status == models.SaleStatusCompleted && next == models.SaleStatusCancelled:
		entry.Type = models.MovementCancellation
		_, err = tx.Increment(item.ProductID, sale.BranchID, item.Quantity, entry)
	case sale.Status == models.SaleStatusCompleted && next == models.SaleStatusRefunded:
		entry.Type = models.MovementRefund
		_, err = tx.Increment(item.ProductID, sale.BranchID, item.Quantity, entry)
	}
	return err
}

// Get loads a sale with its items and references.
func (s *Service) Get(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		Preload("Customer").
		Preload("Branch").
		Preload("User").
		First(&sale, id).Error
	if err != nil {
		return nil, database.Translate(err, "sale")
	}
	return &sale, nil
}

// List returns sales newest first.
func (s *Service) List(ctx context.Context, f Filter, page database.Page) ([]models.Sale, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status %q", f.Status)
	}

	q := s.db.WithContext(ctx).Model(&models.Sale{})
	if f.BranchID != 0 {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CustomerID != 0 {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("sale_date >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("sale_date <= ?", f.To.UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, database.Translate(err, "sale")
	}

	var out []models.Sale
	err := q.Scopes(page.Scope).
		Preload("Items").
		Order("sale_date desc, id desc").
		Find(&out).Error
	if err != nil {
		return nil, 0, database.Translate(err, "sale")
	}
	return out, total, nil
}

func mustExist(db *gorm.DB, model any, id uint, what string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperr.Internal(err, "failed to look up %s", what)
	}
	if count == 0 {
		return apperr.Reference("%s %d does not exist", what, id)
	}
	return nil
}

func reference(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Reference(format, args...)
	}
	return apperr.Internal(err, "lookup failed")
}
