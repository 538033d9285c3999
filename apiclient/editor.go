package apiclient

import (
	"context"
	"sync"

	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/sirupsen/logrus"
)

// InvoiceEditor owns the draft of one edit session. Edits apply at once and
// stay possible while a save is running; a second save of the same draft
// is refused until the first one returns.
type InvoiceEditor struct {
	gw *Gateway

	mu        sync.Mutex
	draft     invoicing.Draft
	saving    bool
	discarded bool
}

func NewInvoiceEditor(gw *Gateway, d invoicing.Draft) *InvoiceEditor {
	return &InvoiceEditor{gw: gw, draft: d}
}

// OpenInvoice loads invoice id with the current catalog snapshot.
func OpenInvoice(ctx context.Context, gw *Gateway, items *Items, id int) (*InvoiceEditor, error) {
	catalog, err := items.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	d, err := gw.Load(ctx, id, catalog)
	if err != nil {
		return nil, err
	}
	return NewInvoiceEditor(gw, d), nil
}

func (e *InvoiceEditor) Draft() invoicing.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *InvoiceEditor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Apply runs one draft operation and keeps its result. A rejected operation
// (e.g. removing the last line) leaves the draft as it was.
func (e *InvoiceEditor) Apply(op func(invoicing.Draft) (invoicing.Draft, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.discarded {
		return ErrDiscarded
	}
	next, err := op(e.draft)
	if err != nil {
		return err
	}
	e.draft = next
	return nil
}

// Save validates the draft and submits it, as a create the first time and
// as an update afterwards. Nothing is sent if validation fails.
func (e *InvoiceEditor) Save(ctx context.Context) (*PersistedInvoice, error) {
	e.mu.Lock()
	if e.discarded {
		e.mu.Unlock()
		return nil, ErrDiscarded
	}
	if e.saving {
		e.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	d := e.draft
	// checked here too so an invalid draft never marks a save in flight
	if err := d.Validate(ctx); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.saving = true
	e.mu.Unlock()

	mode := Update
	if d.IsNew() {
		mode = Create
	}
	res, err := e.gw.Save(ctx, d, mode)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if e.discarded {
		fields := logrus.Fields{"invoiceID": d.ID(), "mode": mode.String()}
		if err != nil {
			fields["error"] = err.Error()
		}
		e.gw.c.logger.WithFields(fields).Warn("save finished after the draft was discarded")
		return nil, ErrDiscarded
	}
	if err != nil {
		return nil, err
	}
	// keep edits made while the request was out, under the new token
	e.draft = e.draft.Persisted(res.InvoiceID, res.UpdatedOn)
	res.Draft = e.draft
	return res, nil
}

// Reload replaces the draft with the server's current version, dropping
// local edits. This is the way out of a Conflict.
func (e *InvoiceEditor) Reload(ctx context.Context) error {
	e.mu.Lock()
	if e.discarded {
		e.mu.Unlock()
		return ErrDiscarded
	}
	if e.saving {
		e.mu.Unlock()
		return ErrSaveInFlight
	}
	id, catalog := e.draft.ID(), e.draft.Catalog()
	e.mu.Unlock()

	if id == 0 {
		return errUpdateNew
	}
	d, err := e.gw.Load(ctx, id, catalog)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.discarded {
		return ErrDiscarded
	}
	e.draft = d
	return nil
}

// Discard ends the session. Saves still running complete on the server but
// their results are dropped.
func (e *InvoiceEditor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discarded = true
}
