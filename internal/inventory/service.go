package inventory

import (
	"context"
	"errors"
	"time"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service manages stock records. Quantity changes are delegated to the Ledger.
type Service struct {
	db     *gorm.DB
	ledger *Ledger
	logger *zap.Logger
}

func NewService(db *gorm.DB, ledger *Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, ledger: ledger, logger: logger}
}

type Filter struct {
	BranchID  uint
	ProductID uint
	LowStock  bool
}

type CreateInput struct {
	ProductID   uint             `json:"product_id" binding:"required"`
	BranchID    uint             `json:"branch_id" binding:"required"`
	Stock       int              `json:"current_stock"`
	MinStock    int              `json:"min_stock"`
	MaxStock    *int             `json:"max_stock"`
	AverageCost *decimal.Decimal `json:"average_cost"`
	Location    string           `json:"location"`
	Zone        string           `json:"zone"`
}

// UpdateInput changes thresholds and placement. Stock is never set here.
type UpdateInput struct {
	MinStock    *int             `json:"min_stock"`
	MaxStock    *int             `json:"max_stock"`
	ClearMax    bool             `json:"clear_max_stock"`
	AverageCost *decimal.Decimal `json:"average_cost"`
	Location    *string          `json:"location"`
	Zone        *string          `json:"zone"`
}

func (s *Service) List(ctx context.Context, f Filter, page database.Page) ([]models.Inventory, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Inventory{})
	if f.BranchID != 0 {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.ProductID != 0 {
		q = q.Where("product_id = ?", f.ProductID)
	}
	if f.LowStock {
		q = q.Where("stock <= min_stock")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, database.Translate(err, "inventory")
	}

	var records []models.Inventory
	err := q.Scopes(page.Scope).Preload("Product").Preload("Branch").Order("id").Find(&records).Error
	if err != nil {
		return nil, 0, database.Translate(err, "inventory")
	}
	return records, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Inventory, error) {
	var inv models.Inventory
	err := s.db.WithContext(ctx).Preload("Product").Preload("Branch").First(&inv, id).Error
	if err != nil {
		return nil, database.Translate(err, "inventory")
	}
	return &inv, nil
}

// Create starts tracking a product at a branch.
func (s *Service) Create(ctx context.Context, in CreateInput, userID uint) (*models.Inventory, error) {
	inv := &models.Inventory{
		ProductID: in.ProductID,
		BranchID:  in.BranchID,
		MinStock:  in.MinStock,
		MaxStock:  in.MaxStock,
		Location:  in.Location,
		Zone:      in.Zone,
	}

	err := s.ledger.Transaction(ctx, s.db, func(tx *Tx) error {
		var product models.Product
		if err := tx.DB.First(&product, in.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Reference("product %d does not exist", in.ProductID)
			}
			return database.Translate(err, "product")
		}
		if err := exists(tx.DB, &models.Branch{}, in.BranchID, "branch"); err != nil {
			return err
		}

		inv.AverageCost = product.CostPrice
		if in.AverageCost != nil {
			inv.AverageCost = *in.AverageCost
		}
		if err := inv.Validate(); err != nil {
			return err
		}
		if in.Stock < 0 {
			return apperr.Validation("initial stock cannot be negative")
		}
		inv.Revalue()

		if err := tx.DB.Create(inv).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("product %d is already stocked at branch %d", in.ProductID, in.BranchID)
			}
			return database.Translate(err, "inventory")
		}

		if in.Stock > 0 {
			_, err := tx.Increment(in.ProductID, in.BranchID, in.Stock, Entry{
				Type:   models.MovementRestock,
				Reason: "initial stock",
				UserID: &userID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inventory record created",
		zap.Uint("inventory_id", inv.ID),
		zap.Uint("product_id", inv.ProductID),
		zap.Uint("branch_id", inv.BranchID),
	)
	return s.Get(ctx, inv.ID)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Inventory, error) {
	err := s.ledger.Transaction(ctx, s.db, func(tx *Tx) error {
		var inv models.Inventory
		if err := tx.DB.First(&inv, id).Error; err != nil {
			return database.Translate(err, "inventory")
		}

		if in.MinStock != nil {
			inv.MinStock = *in.MinStock
		}
		if in.ClearMax {
			inv.MaxStock = nil
		} else if in.MaxStock != nil {
			inv.MaxStock = in.MaxStock
		}
		if in.AverageCost != nil {
			inv.AverageCost = *in.AverageCost
		}
		if in.Location != nil {
			inv.Location = *in.Location
		}
		if in.Zone != nil {
			inv.Zone = *in.Zone
		}

		if err := inv.Validate(); err != nil {
			return err
		}
		inv.Revalue()
		return database.Translate(tx.DB.Save(&inv).Error, "inventory")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the record; movements are kept.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Inventory{}, id)
	if res.Error != nil {
		return database.Translate(res.Error, "inventory")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("inventory not found")
	}
	s.logger.Info("inventory record deleted", zap.Uint("inventory_id", id))
	return nil
}

func (s *Service) locate(tx *gorm.DB, id uint) (*models.Inventory, error) {
	var inv models.Inventory
	if err := tx.Select("id", "product_id", "branch_id").First(&inv, id).Error; err != nil {
		return nil, database.Translate(err, "inventory")
	}
	return &inv, nil
}

// Adjust applies a signed manual correction to the record with the given id.
func (s *Service) Adjust(ctx context.Context, id uint, delta int, reason string, userID uint) (*models.Inventory, error) {
	if reason == "" {
		return nil, apperr.Validation("adjustment reason is required")
	}
	var out *models.Inventory
	err := s.ledger.Transaction(ctx, s.db, func(tx *Tx) error {
		inv, err := s.locate(tx.DB, id)
		if err != nil {
			return err
		}
		out, err = tx.Adjust(inv.ProductID, inv.BranchID, delta, Entry{
			Type:   models.MovementAdjustment,
			Reason: reason,
			UserID: &userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("inventory adjusted",
		zap.Uint("inventory_id", id),
		zap.Int("delta", delta),
		zap.String("reason", reason),
		zap.Uint("user_id", userID),
	)
	return out, nil
}

// Restock records received goods.
func (s *Service) Restock(ctx context.Context, id uint, qty int, unitCost *decimal.Decimal, reference string, userID uint) (*models.Inventory, error) {
	var out *models.Inventory
	err := s.ledger.Transaction(ctx, s.db, func(tx *Tx) error {
		inv, err := s.locate(tx.DB, id)
		if err != nil {
			return err
		}
		out, err = tx.Restock(inv.ProductID, inv.BranchID, qty, unitCost, Entry{
			Type:      models.MovementRestock,
			Reason:    "restock",
			Reference: reference,
			UserID:    &userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count reconciles stock with a physical count and stamps the audit fields.
func (s *Service) Count(ctx context.Context, id uint, counted int, notes string, userID uint) (*models.Inventory, error) {
	if counted < 0 {
		return nil, apperr.Validation("counted stock cannot be negative")
	}
	var out *models.Inventory
	err := s.ledger.Transaction(ctx, s.db, func(tx *Tx) error {
		loc, err := s.locate(tx.DB, id)
		if err != nil {
			return err
		}
		inv, err := tx.Lock(loc.ProductID, loc.BranchID)
		if err != nil {
			return err
		}

		if delta := counted - inv.Stock; delta != 0 {
			reason := "physical count"
			if notes != "" {
				reason = reason + ": " + notes
			}
			inv, err = tx.Adjust(inv.ProductID, inv.BranchID, delta, Entry{
				Type:   models.MovementCount,
				Reason: reason,
				UserID: &userID,
			})
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		inv.LastCountAt = &now
		inv.LastCountedBy = &userID
		if err := tx.DB.Model(inv).Updates(map[string]any{
			"last_count_at":   now,
			"last_counted_by": userID,
		}).Error; err != nil {
			return apperr.Internal(err, "failed to stamp count")
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Movements returns the audit trail of one record, newest first.
func (s *Service) Movements(ctx context.Context, id uint, page database.Page) ([]models.InventoryMovement, int64, error) {
	if _, err := s.locate(s.db.WithContext(ctx), id); err != nil {
		return nil, 0, err
	}
	q := s.db.WithContext(ctx).Model(&models.InventoryMovement{}).Where("inventory_id = ?", id)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, database.Translate(err, "inventory movement")
	}
	var out []models.InventoryMovement
	if err := q.Scopes(page.Scope).Order("id desc").Find(&out).Error; err != nil {
		return nil, 0, database.Translate(err, "inventory movement")
	}
	return out, total, nil
}

func exists(db *gorm.DB, model any, id uint, what string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return database.Translate(err, what)
	}
	if count == 0 {
		return apperr.Reference("%s %d does not exist", what, id)
	}
	return nil
}
