package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User - staff member who logs in and rings up sales
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never return this in JSON
	FirstName    string         `gorm:"size:80" json:"first_name"`
	LastName     string         `gorm:"size:80" json:"last_name"`
	Role         Role           `gorm:"size:20;not null" json:"role"`
	BranchID     *uint          `json:"branch_id"`
	Branch       *Branch        `json:"branch,omitempty"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Branch - a physical store with its own stock and staff
type Branch struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:120;not null" json:"name"`
	Code       string         `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Address    string         `json:"address"`
	City       string         `gorm:"size:80" json:"city"`
	State      string         `gorm:"size:80" json:"state"`
	PostalCode string         `gorm:"size:20" json:"postal_code"`
	Country    string         `gorm:"size:80" json:"country"`
	Phone      string         `gorm:"size:30" json:"phone"`
	Email      string         `gorm:"size:120" json:"email"`
	IsActive   bool           `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Product - the catalog entry. Stock lives per branch in Inventory.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:150;not null" json:"name"`
	SKU         string          `gorm:"uniqueIndex;size:64;not null" json:"sku"`
	Barcode     *string         `gorm:"uniqueIndex;size:64" json:"barcode"`
	Description string          `json:"description"`
	Category    string          `gorm:"size:80;index" json:"category"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"tax_rate"`
	MinStock    int             `gorm:"not null" json:"min_stock"`
	MaxStock    int             `gorm:"not null" json:"max_stock"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Customer - optional party on a sale
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FirstName string         `gorm:"size:80;not null" json:"first_name"`
	LastName  string         `gorm:"size:80" json:"last_name"`
	Email     string         `gorm:"size:120;index" json:"email"`
	Phone     string         `gorm:"size:30" json:"phone"`
	Address   string         `json:"address"`
	Company   string         `gorm:"size:120" json:"company"`
	TaxID     string         `gorm:"size:40" json:"tax_id"`
	Branches  []Branch       `gorm:"many2many:customer_branches" json:"branches,omitempty"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Inventory - stock of one product at one branch
type Inventory struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"uniqueIndex:idx_inventory_product_branch;not null" json:"product_id"`
	BranchID      uint            `gorm:"uniqueIndex:idx_inventory_product_branch;not null" json:"branch_id"`
	Product       *Product        `json:"product,omitempty"`
	Branch        *Branch         `json:"branch,omitempty"`
	Stock         int             `gorm:"not null" json:"current_stock"`
	MinStock      int             `gorm:"not null" json:"min_stock"`
	MaxStock      *int            `json:"max_stock"`
	ReservedStock int             `gorm:"not null" json:"reserved_stock"`
	AverageCost   decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"average_cost"`
	TotalValue    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_value"`
	Location      string          `gorm:"size:80" json:"location"`
	Zone          string          `gorm:"size:40" json:"zone"`
	LastCountAt   *time.Time      `json:"last_count_at"`
	LastCountedBy *uint           `json:"last_counted_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// InventoryMovement - audit row written by every stock mutation
type InventoryMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	InventoryID   uint         `gorm:"index;not null" json:"inventory_id"`
	ProductID     uint         `gorm:"index;not null" json:"product_id"`
	BranchID      uint         `gorm:"index;not null" json:"branch_id"`
	Type          MovementType `gorm:"size:20;not null" json:"type"`
	Quantity      int          `gorm:"not null" json:"quantity"` // signed delta on stock (or on reserved for reservations)
	PreviousStock int          `gorm:"not null" json:"previous_stock"`
	NewStock      int          `gorm:"not null" json:"new_stock"`
	Reason        string       `json:"reason"`
	Reference     string       `gorm:"size:40;index" json:"reference"`
	UserID        *uint        `json:"user_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Sale - the transaction header
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Reference      string          `gorm:"uniqueIndex;size:40;not null" json:"transaction_reference"`
	CustomerID     *uint           `json:"customer_id"`
	Customer       *Customer       `json:"customer,omitempty"`
	BranchID       uint            `gorm:"index;not null" json:"branch_id"`
	Branch         *Branch         `json:"branch,omitempty"`
	UserID         uint            `gorm:"index;not null" json:"user_id"` // cashier
	User           *User           `json:"user,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountRate   decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"discount_rate"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,4);not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentMethod  PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	Status         SaleStatus      `gorm:"size:20;index;not null" json:"status"`
	SaleDate       time.Time       `gorm:"index;not null" json:"sale_date"`
	Notes          string          `json:"notes"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// SaleItem - one line of a sale
type SaleItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SaleID          uint            `gorm:"index;not null" json:"sale_id"`
	ProductID       uint            `gorm:"index;not null" json:"product_id"`
	Product         *Product        `json:"product,omitempty"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"` // snapshot of price at time of sale
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// All lists every model for migrations.
func All() []any {
	return []any{
		&Branch{},
		&User{},
		&Product{},
		&Customer{},
		&Inventory{},
		&InventoryMovement{},
		&Sale{},
		&SaleItem{},
	}
}
