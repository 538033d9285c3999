package invoicing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLastLine is returned, with the draft unchanged, when removing a
	// line would leave the invoice empty.
	ErrLastLine     = errors.New("Invoice must have at least one line item")
	ErrLineIndex    = errors.New("line index out of range")
	ErrUnknownField = errors.New("unknown field")
)

type LineField string

const (
	FieldItemID      LineField = "itemID"
	FieldDescription LineField = "description"
	FieldQuantity    LineField = "quantity"
	FieldRate        LineField = "rate"
	FieldDiscountPct LineField = "discountPct"
)

type HeaderField string

const (
	FieldInvoiceNo     HeaderField = "invoiceNo"
	FieldInvoiceDate   HeaderField = "invoiceDate"
	FieldCustomerName  HeaderField = "customerName"
	FieldAddress       HeaderField = "address"
	FieldCity          HeaderField = "city"
	FieldTaxPercentage HeaderField = "taxPercentage"
	FieldNotes         HeaderField = "notes"
)

// Draft is an invoice being edited. It is a value: every operation returns
// a new Draft and leaves the receiver untouched, so totals derived from it
// can never go stale.
type Draft struct {
	inv     Invoice
	catalog *Catalog
}

func blankLine(rowNo int) Line {
	return Line{RowNo: rowNo, Quantity: 1}
}

// NewDraft starts a new invoice dated today with one blank line.
func NewDraft(catalog *Catalog, today time.Time) Draft {
	return Draft{
		inv: Invoice{
			InvoiceDate: today.Format(DateLayout),
			Lines:       []Line{blankLine(1)},
		},
		catalog: catalog,
	}
}

// HydrateDraft starts editing a persisted invoice. Its identifier and
// updatedOn token are kept for the next update.
func HydrateDraft(catalog *Catalog, inv Invoice) Draft {
	inv.Lines = copyLines(inv.Lines)
	if len(inv.Lines) == 0 {
		inv.Lines = []Line{blankLine(1)}
	}
	if t, err := ParseDate(inv.InvoiceDate); err == nil {
		inv.InvoiceDate = t.Format(DateLayout)
	}
	return Draft{inv: inv, catalog: catalog}
}

func copyLines(src []Line) []Line {
	out := make([]Line, len(src))
	copy(out, src)
	return out
}

func (d Draft) ID() int { return d.inv.InvoiceID }
func (d Draft) IsNew() bool { return d.inv.InvoiceID == 0 }
func (d Draft) UpdatedOn() string { return d.inv.UpdatedOn }
func (d Draft) Catalog() *Catalog { return d.catalog }
func (d Draft) LineCount() int { return len(d.inv.Lines) }
func (d Draft) Lines() []Line { return copyLines(d.inv.Lines) }
func (d Draft) Totals() Totals { return ComputeTotals(d.inv.Lines, d.inv.TaxPercentage) }

// Invoice returns the current state with totals filled in.
func (d Draft) Invoice() Invoice {
	inv := d.inv
	inv.Lines = copyLines(d.inv.Lines)
	return inv.WithTotals()
}

// Payload is what gets submitted: lines renumbered 1..N and totals rounded
// for the wire.
func (d Draft) Payload() Invoice {
	inv := d.Invoice()
	for i := range inv.Lines {
		inv.Lines[i].RowNo = i + 1
	}
	t := ComputeTotals(inv.Lines, inv.TaxPercentage).Rounded()
	inv.SubTotal, inv.TaxAmount, inv.InvoiceAmount = t.SubTotal, t.TaxAmount, t.InvoiceAmount
	return inv
}

// WithCatalog swaps the catalog snapshot. Existing lines keep their values.
func (d Draft) WithCatalog(c *Catalog) Draft {
	d.inv.Lines = copyLines(d.inv.Lines)
	d.catalog = c
	return d
}

// AddLine appends a blank line numbered one past the highest row number.
func (d Draft) AddLine() Draft {
	next := 1
	for _, l := range d.inv.Lines {
		if l.RowNo >= next {
			next = l.RowNo + 1
		}
	}
	lines := make([]Line, len(d.inv.Lines), len(d.inv.Lines)+1)
	copy(lines, d.inv.Lines)
	d.inv.Lines = append(lines, blankLine(next))
	return d
}

// RemoveLine drops the line at index and renumbers the rest 1..N in order.
func (d Draft) RemoveLine(index int) (Draft, error) {
	if index < 0 || index >= len(d.inv.Lines) {
		return d, ErrLineIndex
	}
	if len(d.inv.Lines) == 1 {
		return d, ErrLastLine
	}
	lines := make([]Line, 0, len(d.inv.Lines)-1)
	for i, l := range d.inv.Lines {
		if i == index {
			continue
		}
		l.RowNo = len(lines) + 1
		lines = append(lines, l)
	}
	d.inv.Lines = lines
	return d, nil
}

// UpdateLine sets one field of the line at index from user input.
//
// Selecting an item copies its description, rate and discount from the
// catalog onto the line, replacing whatever was typed there before. An id
// missing from the catalog is stored as is; validation rejects it later.
func (d Draft) UpdateLine(index int, field LineField, value string) (Draft, error) {
	if index < 0 || index >= len(d.inv.Lines) {
		return d, ErrLineIndex
	}
	lines := copyLines(d.inv.Lines)
	l := lines[index]
	switch field {
	case FieldItemID:
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			id = 0
		}
		l.ItemID = id
		if it, ok := d.catalog.ByID(id); ok {
			l.Description = it.Description
			l.Rate = it.SalesRate
			l.DiscountPct = it.DiscountPct
		}
	case FieldDescription:
		l.Description = value
	case FieldQuantity:
		l.Quantity = ParseQuantity(value)
	case FieldRate:
		l.Rate = ParseAmount(value)
	case FieldDiscountPct:
		l.DiscountPct = ParseAmount(value)
	default:
		return d, ErrUnknownField
	}
	lines[index] = l
	d.inv.Lines = lines
	return d, nil
}

// SetField sets one header field from user input.
func (d Draft) SetField(field HeaderField, value string) (Draft, error) {
	d.inv.Lines = copyLines(d.inv.Lines)
	switch field {
	case FieldInvoiceNo:
		d.inv.InvoiceNo = value
	case FieldInvoiceDate:
		d.inv.InvoiceDate = value
	case FieldCustomerName:
		d.inv.CustomerName = value
	case FieldAddress:
		d.inv.Address = value
	case FieldCity:
		d.inv.City = value
	case FieldTaxPercentage:
		d.inv.TaxPercentage = ParseAmount(value)
	case FieldNotes:
		d.inv.Notes = value
	default:
		return d, ErrUnknownField
	}
	return d, nil
}

// SetTaxPercentage is SetField for callers that already hold a decimal.
func (d Draft) SetTaxPercentage(pct decimal.Decimal) Draft {
	d.inv.Lines = copyLines(d.inv.Lines)
	d.inv.TaxPercentage = pct
	return d
}

// Validate runs the validation rules against the payload, checking line
// items against the draft's catalog when it has one.
func (d Draft) Validate(ctx context.Context) error {
	if d.catalog != nil {
		ctx = WithCatalog(ctx, d.catalog)
	}
	return ValidateInvoice(ctx, d.Payload())
}

// Persisted returns the draft after a successful save: same content, with
// the id and token the server assigned.
func (d Draft) Persisted(id int, updatedOn string) Draft {
	d.inv.Lines = copyLines(d.inv.Lines)
	for i := range d.inv.Lines {
		d.inv.Lines[i].RowNo = i + 1
	}
	d.inv.InvoiceID = id
	d.inv.UpdatedOn = updatedOn
	return d
}
