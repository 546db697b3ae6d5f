package models

// Role is the closed set of staff roles.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleAuditor Role = "auditor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleCashier, RoleAuditor:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMixed    PaymentMethod = "mixed"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMixed:
		return true
	}
	return false
}

// MovementType tags an InventoryMovement with what caused it.
type MovementType string

const (
	MovementSale         MovementType = "sale"
	MovementCancellation MovementType = "cancellation"
	MovementRefund       MovementType = "refund"
	MovementAdjustment   MovementType = "adjustment"
	MovementRestock      MovementType = "restock"
	MovementCount        MovementType = "count"
	MovementReservation  MovementType = "reservation"
	MovementRelease      MovementType = "release"
)
