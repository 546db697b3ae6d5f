package models

// SaleStatus is the lifecycle state of a Sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// saleTransitions is the full status graph. Anything not listed is rejected.
var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusPending:   {SaleStatusCompleted, SaleStatusCancelled},
	SaleStatusCompleted: {SaleStatusCancelled, SaleStatusRefunded},
}

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled, SaleStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s SaleStatus) IsTerminal() bool {
	return len(saleTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is an edge of the status graph.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	for _, allowed := range saleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
