package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmdatafocus/invoice_backend/invoicing"
)

type Mode int

const (
	Create Mode = iota + 1
	Update
)

func (m Mode) String() string {
	if m == Update {
		return "update"
	}
	return "create"
}

var errUpdateNew = errors.New("update requires an invoice that has been saved before")

// PersistedInvoice is the outcome of a successful save. Draft carries the
// fresh token and must replace the draft that was submitted.
type PersistedInvoice struct {
	InvoiceID int
	UpdatedOn string
	Draft     invoicing.Draft
}

// Gateway persists invoices.
type Gateway struct {
	c *Client
}

func NewGateway(c *Client) *Gateway { return &Gateway{c: c} }

// Save validates d and submits it. A draft that fails validation is
// returned as *invoicing.ValidationError and nothing is sent.
//
// Create sends neither id nor token. Update sends both, with the token
// captured when d was loaded; if the record changed since then the server
// answers 409 and Save returns a Conflict error.
func (g *Gateway) Save(ctx context.Context, d invoicing.Draft, mode Mode) (*PersistedInvoice, error) {
	method := http.MethodPost
	switch mode {
	case Create:
	case Update:
		if d.IsNew() {
			return nil, errUpdateNew
		}
		method = http.MethodPut
	default:
		return nil, fmt.Errorf("unknown save mode %d", mode)
	}
	if err := d.Validate(ctx); err != nil {
		return nil, err
	}

	payload := d.Payload()
	if mode == Create {
		payload.InvoiceID = 0
		payload.UpdatedOn = ""
	}

	var res invoicing.SaveResult
	if err := g.c.doJSON(ctx, true, method, "/Invoice/", nil, payload, &res); err != nil {
		return nil, err
	}
	id := res.PrimaryKeyID
	if id == 0 {
		id = d.ID()
	}
	return &PersistedInvoice{
		InvoiceID: id,
		UpdatedOn: res.UpdatedOn,
		Draft:     d.Persisted(id, res.UpdatedOn),
	}, nil
}

func (g *Gateway) GetByID(ctx context.Context, id int) (*invoicing.Invoice, error) {
	var inv invoicing.Invoice
	if err := g.c.doJSON(ctx, true, http.MethodGet, "/Invoice/"+strconv.Itoa(id), nil, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Load fetches an invoice and opens it as a draft, capturing its current
// updatedOn token for the next update.
func (g *Gateway) Load(ctx context.Context, id int, catalog *invoicing.Catalog) (invoicing.Draft, error) {
	inv, err := g.GetByID(ctx, id)
	if err != nil {
		return invoicing.Draft{}, err
	}
	return invoicing.HydrateDraft(catalog, *inv), nil
}

func (g *Gateway) Delete(ctx context.Context, id int) error {
	return g.c.doJSON(ctx, true, http.MethodDelete, "/Invoice/"+strconv.Itoa(id), nil, nil, nil)
}

// ListFilter narrows the invoice list. Zero fields are not sent.
type ListFilter struct {
	InvoiceID int
	FromDate  string
	ToDate    string
	Search    string
}

func (f ListFilter) values() url.Values {
	q := url.Values{}
	if f.InvoiceID > 0 {
		q.Set("InvoiceID", strconv.Itoa(f.InvoiceID))
	}
	if f.FromDate != "" {
		q.Set("fromDate", f.FromDate)
	}
	if f.ToDate != "" {
		q.Set("toDate", f.ToDate)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

func (g *Gateway) List(ctx context.Context, f ListFilter) ([]invoicing.InvoiceListItem, error) {
	var out []invoicing.InvoiceListItem
	if err := g.c.doJSON(ctx, true, http.MethodGet, "/Invoice/GetList", f.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
