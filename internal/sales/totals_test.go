package sales

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals_Scenario(t *testing.T) {
	_, line := LineAmounts(d("100.00"), 2, decimal.Zero)
	totals := ComputeTotals([]decimal.Decimal{line}, decimal.Zero, d("0.16"))

	assert.True(t, totals.Subtotal.Equal(d("200.00")), totals.Subtotal.String())
	assert.True(t, totals.TaxAmount.Equal(d("32.00")), totals.TaxAmount.String())
	assert.True(t, totals.DiscountAmount.IsZero())
	assert.True(t, totals.TotalAmount.Equal(d("232.00")), totals.TotalAmount.String())
}

func TestComputeTotals_Identity(t *testing.T) {
	cases := []struct {
		prices   []string
		qty      []int
		percent  []string
		discount string
		tax      string
	}{
		{[]string{"19.99", "0.35"}, []int{3, 7}, []string{"0", "0"}, "0.05", "0.16"},
		{[]string{"1.01"}, []int{1}, []string{"12.5"}, "0", "0.0825"},
		{[]string{"333.33", "0.01", "45.5"}, []int{1, 99, 2}, []string{"0", "10", "33.3"}, "0.125", "0.2"},
		{[]string{"10"}, []int{1}, []string{"0"}, "1", "0.16"},
	}

	tolerance := d("0.01")
	for _, c := range cases {
		var subtotals []decimal.Decimal
		for i := range c.prices {
			_, sub := LineAmounts(d(c.prices[i]), c.qty[i], d(c.percent[i]))
			subtotals = append(subtotals, sub)
		}
		totals := ComputeTotals(subtotals, d(c.discount), d(c.tax))

		expected := totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)
		assert.True(t, totals.TotalAmount.Sub(expected).Abs().LessThanOrEqual(tolerance))
		assert.True(t, totals.DiscountAmount.LessThanOrEqual(totals.Subtotal))
	}
}

func TestLineAmounts_Discount(t *testing.T) {
	discount, subtotal := LineAmounts(d("50.00"), 3, d("10"))
	assert.True(t, discount.Equal(d("15.00")))
	assert.True(t, subtotal.Equal(d("135.00")))
}

func TestGenerateReference(t *testing.T) {
	id := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	ref := GenerateReference(time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), id)
	assert.Equal(t, "TXN-20261018-1A2B3C4D", ref)
}
