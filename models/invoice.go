package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID            int             `gorm:"primary_key"`
	CompanyId     int             `gorm:"not null;uniqueIndex:idx_invoices_company_no,priority:1"`
	InvoiceNo     string          `gorm:"size:50;not null;uniqueIndex:idx_invoices_company_no,priority:2"`
	InvoiceDate   time.Time       `gorm:"type:date;not null;index"`
	CustomerName  string          `gorm:"size:100;not null"`
	Address       string          `gorm:"size:200"`
	City          string          `gorm:"size:50"`
	Notes         string          `gorm:"size:1000"`
	TaxPercentage decimal.Decimal `gorm:"type:decimal(7,4);default:0"`
	SubTotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	InvoiceAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	Lines         []InvoiceLine   `gorm:"foreignKey:InvoiceId"`
	CreatedById   int
	CreatedByName string    `gorm:"size:100"`
	CreatedOn     time.Time `gorm:"type:datetime(6);not null"`
	UpdatedById   int
	UpdatedByName string    `gorm:"size:100"`
	UpdatedOn     time.Time `gorm:"type:datetime(6);not null"`
}

type InvoiceLine struct {
	ID          int             `gorm:"primary_key"`
	InvoiceId   int             `gorm:"index;not null"`
	RowNo       int             `gorm:"not null"`
	ItemId      int             `gorm:"index;not null"`
	Description string          `gorm:"size:500"`
	Quantity    int             `gorm:"not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	DiscountPct decimal.Decimal `gorm:"type:decimal(7,4);default:0"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0"`
	// only declares the foreign key; never loaded or saved through here
	Item *Item `gorm:"foreignKey:ItemId;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// InvoiceFilter narrows the invoice list. Zero values do not filter.
type InvoiceFilter struct {
	InvoiceID int
	FromDate  *time.Time
	ToDate    *time.Time
	Search    string
}

var (
	errInvoiceNotFound = utils.WithMessage(utils.ErrorRecordNotFound, "Invoice not found")
	errInvoiceConflict = utils.WithMessage(utils.ErrorConflict, "Invoice was modified by another user. Please reload.")
)

// errLineItemGone is a line whose item was deleted after validation.
var errLineItemGone = utils.NewInputError("Selected item is not available")

func errInvoiceNoTaken(no string) error {
	return utils.NewInputError(fmt.Sprintf("Invoice number %s already exists", no))
}

func (inv Invoice) toWire() invoicing.Invoice {
	lines := make([]invoicing.Line, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, invoicing.Line{
			RowNo:       l.RowNo,
			ItemID:      l.ItemId,
			Description: l.Description,
			Quantity:    l.Quantity,
			Rate:        l.Rate,
			DiscountPct: l.DiscountPct,
		})
	}
	return invoicing.Invoice{
		InvoiceID:         inv.ID,
		InvoiceNo:         inv.InvoiceNo,
		InvoiceDate:       inv.InvoiceDate.Format(invoicing.DateLayout),
		CustomerName:      inv.CustomerName,
		Address:           inv.Address,
		City:              inv.City,
		TaxPercentage:     inv.TaxPercentage,
		Notes:             inv.Notes,
		Lines:             lines,
		SubTotal:          inv.SubTotal,
		TaxAmount:         inv.TaxAmount,
		InvoiceAmount:     inv.InvoiceAmount,
		CreatedByUserName: inv.CreatedByName,
		CreatedOn:         formatTime(inv.CreatedOn),
		UpdatedByUserName: inv.UpdatedByName,
		UpdatedOn:         formatToken(inv.UpdatedOn),
	}
}

func (inv Invoice) toListItem() invoicing.InvoiceListItem {
	return invoicing.InvoiceListItem{
		InvoiceID:         inv.ID,
		InvoiceNo:         inv.InvoiceNo,
		InvoiceDate:       inv.InvoiceDate.Format(invoicing.DateLayout),
		CustomerName:      inv.CustomerName,
		SubTotal:          inv.SubTotal,
		TaxPercentage:     inv.TaxPercentage,
		TaxAmount:         inv.TaxAmount,
		InvoiceAmount:     inv.InvoiceAmount,
		CreatedByUserName: inv.CreatedByName,
		CreatedOn:         formatTime(inv.CreatedOn),
		UpdatedByUserName: inv.UpdatedByName,
		UpdatedOn:         formatToken(inv.UpdatedOn),
	}
}

func normalizeInvoice(input *invoicing.Invoice) {
	input.InvoiceNo = strings.TrimSpace(input.InvoiceNo)
	input.InvoiceDate = strings.TrimSpace(input.InvoiceDate)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.Address = strings.TrimSpace(input.Address)
	input.City = strings.TrimSpace(input.City)
	input.Notes = strings.TrimSpace(input.Notes)
	for i := range input.Lines {
		input.Lines[i].Description = strings.TrimSpace(input.Lines[i].Description)
	}
}

// prepareInvoice validates input against the company's items and builds the
// row to store. Totals always come from the lines; whatever totals the
// client sent are ignored.
func prepareInvoice(ctx context.Context, companyId int, input *invoicing.Invoice) (*Invoice, error) {
	normalizeInvoice(input)

	ids := make([]int, 0, len(input.Lines))
	for _, l := range input.Lines {
		ids = append(ids, l.ItemID)
	}
	catalog, err := itemCatalog(ctx, config.GetDB(), companyId, ids)
	if err != nil {
		return nil, err
	}
	if err := invoicing.ValidateInvoice(invoicing.WithCatalog(ctx, catalog), *input); err != nil {
		return nil, err
	}
	date, err := invoicing.ParseDate(input.InvoiceDate)
	if err != nil {
		return nil, utils.NewInputError("Invoice date is invalid")
	}

	totals := invoicing.ComputeTotals(input.Lines, input.TaxPercentage).Rounded()
	lines := make([]InvoiceLine, 0, len(input.Lines))
	for i, l := range input.Lines {
		lines = append(lines, InvoiceLine{
			RowNo:       i + 1,
			ItemId:      l.ItemID,
			Description: l.Description,
			Quantity:    l.Quantity,
			Rate:        l.Rate,
			DiscountPct: l.DiscountPct,
			Amount:      invoicing.LineAmount(l).Round(4),
		})
	}
	return &Invoice{
		CompanyId:     companyId,
		InvoiceNo:     input.InvoiceNo,
		InvoiceDate:   date,
		CustomerName:  input.CustomerName,
		Address:       input.Address,
		City:          input.City,
		Notes:         input.Notes,
		TaxPercentage: input.TaxPercentage,
		SubTotal:      totals.SubTotal,
		TaxAmount:     totals.TaxAmount,
		InvoiceAmount: totals.InvoiceAmount,
		Lines:         lines,
	}, nil
}

func checkInvoiceNo(ctx context.Context, companyId int, no string, id int) error {
	free, err := utils.ValidateUnique[Invoice](ctx, companyId, "invoice_no", no, id)
	if err != nil {
		return err
	}
	if !free {
		return errInvoiceNoTaken(no)
	}
	return nil
}

// GetInvoices lists invoices newest first.
func GetInvoices(ctx context.Context, filter InvoiceFilter) ([]invoicing.InvoiceListItem, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", a.companyId)
	if filter.InvoiceID > 0 {
		dbCtx = dbCtx.Where("id = ?", filter.InvoiceID)
	}
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("invoice_date >= ?", filter.FromDate.Format(invoicing.DateLayout))
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("invoice_date <= ?", filter.ToDate.Format(invoicing.DateLayout))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("invoice_no LIKE ? OR customer_name LIKE ?", like, like)
	}

	var rows []Invoice
	if err := dbCtx.Order("invoice_date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]invoicing.InvoiceListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toListItem())
	}
	return out, nil
}

func GetInvoice(ctx context.Context, id int) (*invoicing.Invoice, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	var row Invoice
	err = db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("row_no") }).
		Where("company_id = ?", a.companyId).
		First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	inv := row.toWire()
	return &inv, nil
}

func CreateInvoice(ctx context.Context, input *invoicing.Invoice) (*invoicing.SaveResult, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	row, err := prepareInvoice(ctx, a.companyId, input)
	if err != nil {
		return nil, err
	}

	release, err := utils.CompanyLock(ctx, a.companyId, "invoice_no", "models", "CreateInvoice")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := checkInvoiceNo(ctx, a.companyId, row.InvoiceNo, 0); err != nil {
		return nil, err
	}

	ts := now()
	row.CreatedById, row.CreatedByName, row.CreatedOn = a.userId, a.userName, ts
	row.UpdatedById, row.UpdatedByName, row.UpdatedOn = a.userId, a.userName, ts

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(row).Error; err != nil {
		tx.Rollback()
		if utils.IsDuplicateKey(err) {
			return nil, errInvoiceNoTaken(row.InvoiceNo)
		}
		if utils.IsForeignKeyViolation(err) {
			return nil, errLineItemGone
		}
		config.LogError(config.GetLogger(), "models", "CreateInvoice", "create invoice", row.InvoiceNo, err)
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoicing.SaveResult{PrimaryKeyID: row.ID, UpdatedOn: formatToken(ts), NofRecordsEffected: 1}, nil
}

// UpdateInvoice replaces the header and lines of an invoice, provided
// input.UpdatedOn is still the stored token. A stale token yields an error
// matching utils.ErrorConflict and leaves the stored invoice untouched.
func UpdateInvoice(ctx context.Context, input *invoicing.Invoice) (*invoicing.SaveResult, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id := input.InvoiceID
	if id <= 0 {
		return nil, utils.NewInputError("invoiceID is required")
	}
	token, err := parseToken(input.UpdatedOn)
	if errors.Is(err, utils.ErrorConflict) {
		return nil, errInvoiceConflict
	}
	if err != nil {
		return nil, err
	}
	row, err := prepareInvoice(ctx, a.companyId, input)
	if err != nil {
		return nil, err
	}

	release, err := utils.CompanyLock(ctx, a.companyId, "invoice_no", "models", "UpdateInvoice")
	if err != nil {
		return nil, err
	}
	defer release()

	if err := checkInvoiceNo(ctx, a.companyId, row.InvoiceNo, id); err != nil {
		return nil, err
	}

	ts := now()
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	err = updateIfCurrent[Invoice](tx, a.companyId, id, token, map[string]interface{}{
		"invoice_no":      row.InvoiceNo,
		"invoice_date":    row.InvoiceDate,
		"customer_name":   row.CustomerName,
		"address":         row.Address,
		"city":            row.City,
		"notes":           row.Notes,
		"tax_percentage":  row.TaxPercentage,
		"sub_total":       row.SubTotal,
		"tax_amount":      row.TaxAmount,
		"invoice_amount":  row.InvoiceAmount,
		"updated_by_id":   a.userId,
		"updated_by_name": a.userName,
		"updated_on":      ts,
	})
	if err != nil {
		tx.Rollback()
		switch {
		case errors.Is(err, utils.ErrorRecordNotFound):
			return nil, errInvoiceNotFound
		case errors.Is(err, utils.ErrorConflict):
			return nil, errInvoiceConflict
		case utils.IsDuplicateKey(err):
			return nil, errInvoiceNoTaken(row.InvoiceNo)
		}
		return nil, err
	}

	if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range row.Lines {
		row.Lines[i].InvoiceId = id
	}
	if err := tx.Create(&row.Lines).Error; err != nil {
		tx.Rollback()
		if utils.IsForeignKeyViolation(err) {
			return nil, errLineItemGone
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoicing.SaveResult{PrimaryKeyID: id, UpdatedOn: formatToken(ts), NofRecordsEffected: 1}, nil
}

func DeleteInvoice(ctx context.Context, id int) (*invoicing.SaveResult, error) {
	a, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Invoice](ctx, a.companyId, id); err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, errInvoiceNotFound
		}
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	res := tx.Where("id = ? AND company_id = ?", id, a.companyId).Delete(&Invoice{})
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, errInvoiceNotFound
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoicing.SaveResult{PrimaryKeyID: id, NofRecordsEffected: int(res.RowsAffected)}, nil
}
