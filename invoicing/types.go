package invoicing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire form of an invoice date.
const DateLayout = "2006-01-02"

// Item is a catalog entry. Lines copy its description, rate and discount
// when the item is selected.
type Item struct {
	ItemID            int             `json:"itemID"`
	ItemName          string          `json:"itemName" validate:"required,max=50"`
	Description       string          `json:"description" validate:"max=500"`
	SalesRate         decimal.Decimal `json:"salesRate" validate:"gte=0"`
	DiscountPct       decimal.Decimal `json:"discountPct" validate:"gte=0,lte=100"`
	CreatedByUserName string          `json:"createdByUserName,omitempty"`
	CreatedOn         string          `json:"createdOn,omitempty"`
	UpdatedByUserName string          `json:"updatedByUserName,omitempty"`
	UpdatedOn         string          `json:"updatedOn,omitempty"`
}

// Line is one row of an invoice. The line amount is derived, see LineAmount.
type Line struct {
	RowNo       int             `json:"rowNo"`
	ItemID      int             `json:"itemID" validate:"gte=1,incatalog"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	Rate        decimal.Decimal `json:"rate" validate:"gte=0"`
	DiscountPct decimal.Decimal `json:"discountPct" validate:"gte=0,lte=100"`
}

// Invoice is the aggregate as it travels over the wire. SubTotal, TaxAmount
// and InvoiceAmount are outputs only; receivers recompute them from Lines.
type Invoice struct {
	InvoiceID         int             `json:"invoiceID,omitempty"`
	InvoiceNo         string          `json:"invoiceNo" validate:"required,digitsonly,max=50"`
	InvoiceDate       string          `json:"invoiceDate" validate:"required,isodate"`
	CustomerName      string          `json:"customerName" validate:"required,max=100"`
	Address           string          `json:"address" validate:"max=200"`
	City              string          `json:"city" validate:"max=50"`
	TaxPercentage     decimal.Decimal `json:"taxPercentage" validate:"gte=0,lte=100"`
	Notes             string          `json:"notes" validate:"max=1000"`
	Lines             []Line          `json:"lines" validate:"min=1,dive"`
	SubTotal          decimal.Decimal `json:"subTotal"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	InvoiceAmount     decimal.Decimal `json:"invoiceAmount"`
	CreatedByUserName string          `json:"createdByUserName,omitempty"`
	CreatedOn         string          `json:"createdOn,omitempty"`
	UpdatedByUserName string          `json:"updatedByUserName,omitempty"`
	UpdatedOn         string          `json:"updatedOn,omitempty"`
}

// UnmarshalJSON accepts invoiceNo as a JSON string or a JSON number.
func (inv *Invoice) UnmarshalJSON(b []byte) error {
	type plain Invoice
	aux := struct {
		*plain
		InvoiceNo json.RawMessage `json:"invoiceNo"`
	}{plain: (*plain)(inv)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.InvoiceNo)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		inv.InvoiceNo = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &inv.InvoiceNo)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("invoiceNo: %w", err)
		}
		inv.InvoiceNo = n.String()
	}
	return nil
}

// WithTotals returns a copy whose total fields are recomputed from the lines.
func (inv Invoice) WithTotals() Invoice {
	t := ComputeTotals(inv.Lines, inv.TaxPercentage)
	inv.SubTotal = t.SubTotal
	inv.TaxAmount = t.TaxAmount
	inv.InvoiceAmount = t.InvoiceAmount
	return inv
}

// InvoiceListItem is one row of the invoice list view.
type InvoiceListItem struct {
	InvoiceID         int             `json:"invoiceID"`
	InvoiceNo         string          `json:"invoiceNo"`
	InvoiceDate       string          `json:"invoiceDate"`
	CustomerName      string          `json:"customerName"`
	SubTotal          decimal.Decimal `json:"subTotal"`
	TaxPercentage     decimal.Decimal `json:"taxPercentage"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	InvoiceAmount     decimal.Decimal `json:"invoiceAmount"`
	CreatedByUserName string          `json:"createdByUserName,omitempty"`
	CreatedOn         string          `json:"createdOn,omitempty"`
	UpdatedByUserName string          `json:"updatedByUserName,omitempty"`
	UpdatedOn         string          `json:"updatedOn,omitempty"`
}

// SaveResult is the body answered by every mutating endpoint.
type SaveResult struct {
	PrimaryKeyID       int    `json:"primaryKeyID"`
	UpdatedOn          string `json:"updatedOn"`
	NofRecordsEffected int    `json:"nofRecordsEffected"`
}

// ParseDate accepts "2006-01-02" or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
