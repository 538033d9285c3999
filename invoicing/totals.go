package invoicing

import "github.com/shopspring/decimal"

// LineAmount is quantity * rate * (1 - discountPct/100) at full precision.
// Transient bad input is tolerated: quantity below 1 counts as 1, a
// negative rate counts as 0 and the discount is clamped to [0,100].
func LineAmount(l Line) decimal.Decimal {
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	rate := l.Rate
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	disc := clamp(l.DiscountPct, decimal.Zero, hundred)

	return decimal.NewFromInt(int64(qty)).
		Mul(rate).
		Mul(hundred.Sub(disc)).
		Div(hundred)
}

type Totals struct {
	SubTotal      decimal.Decimal `json:"subTotal"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	InvoiceAmount decimal.Decimal `json:"invoiceAmount"`
}

// ComputeTotals folds LineAmount over lines and applies a flat tax.
// Nothing is rounded here; see Totals.Rounded.
func ComputeTotals(lines []Line, taxPct decimal.Decimal) Totals {
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(LineAmount(l))
	}
	tax := sub.Mul(clamp(taxPct, decimal.Zero, hundred)).Div(hundred)
	return Totals{
		SubTotal:      sub,
		TaxAmount:     tax,
		InvoiceAmount: sub.Add(tax),
	}
}

// Rounded returns the two-digit values shown to users.
func (t Totals) Rounded() Totals {
	return Totals{
		SubTotal:      Round2(t.SubTotal),
		TaxAmount:     Round2(t.TaxAmount),
		InvoiceAmount: Round2(t.InvoiceAmount),
	}
}
