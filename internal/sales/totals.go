package sales

import (
	"branch-pos/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals are the stored money figures of a sale header.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// LineAmounts prices one line: gross = price x qty, discount = gross x percent / 100,
// subtotal = gross - discount. Both results are rounded to cents.
func LineAmounts(price decimal.Decimal, qty int, discountPercent decimal.Decimal) (discount, subtotal decimal.Decimal) {
	gross := price.Mul(decimal.NewFromInt(int64(qty)))
	discount = models.Round2(gross.Mul(discountPercent).Div(hundred))
	subtotal = models.Round2(gross).Sub(discount)
	return discount, subtotal
}

// ComputeTotals applies the header discount to the sum of line subtotals and
// taxes what remains: total = subtotal - discount + tax.
func ComputeTotals(lineSubtotals []decimal.Decimal, discountRate, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, s := range lineSubtotals {
		subtotal = subtotal.Add(s)
	}
	subtotal = models.Round2(subtotal)

	discount := models.Round2(subtotal.Mul(discountRate))
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	tax := models.Round2(subtotal.Sub(discount).Mul(taxRate))

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    subtotal.Sub(discount).Add(tax),
	}
}
