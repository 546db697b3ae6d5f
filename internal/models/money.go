package models

import "github.com/shopspring/decimal"

// Round2 rounds a currency amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// InventoryValue is the derived total value of a stock record: stock x average cost, in cents.
func InventoryValue(stock int, averageCost decimal.Decimal) decimal.Decimal {
	return Round2(averageCost.Mul(decimal.NewFromInt(int64(stock))))
}

// WeightedAverageCost blends the existing average cost with incoming units
// bought at unitCost. With no resulting stock the incoming cost wins.
func WeightedAverageCost(stock int, averageCost decimal.Decimal, qty int, unitCost decimal.Decimal) decimal.Decimal {
	total := stock + qty
	if total <= 0 || stock < 0 {
		return unitCost.Round(4)
	}
	current := averageCost.Mul(decimal.NewFromInt(int64(stock)))
	incoming := unitCost.Mul(decimal.NewFromInt(int64(qty)))
	return current.Add(incoming).Div(decimal.NewFromInt(int64(total))).Round(4)
}

// Revalue recomputes the derived fields of an inventory record. Call it after
// every change to Stock or AverageCost.
func (i *Inventory) Revalue() {
	i.TotalValue = InventoryValue(i.Stock, i.AverageCost)
}

// Available is what can still be sold: stock not held by pending sales.
func (i *Inventory) Available() int {
	return i.Stock - i.ReservedStock
}

// IsLow reports whether stock has reached the branch minimum.
func (i *Inventory) IsLow() bool {
	return i.Stock <= i.MinStock
}
