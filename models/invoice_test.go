package models

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoice() *invoicing.Invoice {
	return &invoicing.Invoice{
		InvoiceNo:     "1001",
		InvoiceDate:   "2026-10-16",
		CustomerName:  " Acme Trading ",
		TaxPercentage: decimal.NewFromInt(5),
		Lines: []invoicing.Line{
			{RowNo: 4, ItemID: 3, Quantity: 2, Rate: decimal.NewFromInt(10)},
			{RowNo: 9, ItemID: 3, Quantity: 1, Rate: decimal.RequireFromString("3.335"), DiscountPct: decimal.NewFromInt(10)},
		},
		// totals sent by clients are ignored
		InvoiceAmount: decimal.NewFromInt(999),
	}
}

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "company_id", "item_name", "sales_rate", "discount_pct"}).
		AddRow(3, 7, "Widget", "10.0000", "0.0000")
}

func TestPrepareInvoice_RecomputesTotalsAndRenumbers(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())

	row, err := prepareInvoice(testContext(), 7, sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, "Acme Trading", row.CustomerName)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), row.InvoiceDate)
	// 20 + 3.0015 = 23.0015, tax 1.150075
	assert.Equal(t, "23", row.SubTotal.String())
	assert.Equal(t, "1.15", row.TaxAmount.String())
	assert.Equal(t, "24.15", row.InvoiceAmount.String())
	require.Len(t, row.Lines, 2)
	assert.Equal(t, 1, row.Lines[0].RowNo)
	assert.Equal(t, 2, row.Lines[1].RowNo)
	assert.Equal(t, "3.0015", row.Lines[1].Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoice_UnknownItemIsRejectedBeforeInsert(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "item_name"}))

	_, err := CreateInvoice(testContext(), sampleInvoice())
	var verr *invoicing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Selected item is not available", verr.Field("lines[0].itemID"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoice_DuplicateNumber(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(1))

	_, err := CreateInvoice(testContext(), sampleInvoice())
	require.True(t, utils.IsInputError(err))
	assert.Equal(t, "Invoice number 1001 already exists", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoice_WritesHeaderAndLines(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `invoices`")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `invoice_lines`")).WillReturnResult(sqlmock.NewResult(100, 2))
	mock.ExpectCommit()

	res, err := CreateInvoice(testContext(), sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, 42, res.PrimaryKeyID)
	assert.NotEmpty(t, res.UpdatedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoice_ItemDeletedMidSaveRollsBack(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `invoices`")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `invoice_lines`")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	res, err := CreateInvoice(testContext(), sampleInvoice())
	assert.Nil(t, res)
	require.True(t, utils.IsInputError(err))
	assert.Equal(t, "Selected item is not available", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInvoice_StaleTokenRollsBack(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `invoices` SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(1))
	mock.ExpectRollback()

	input := sampleInvoice()
	input.InvoiceID = 42
	input.UpdatedOn = formatToken(time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC))

	res, err := UpdateInvoice(testContext(), input)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, utils.ErrorConflict))
	assert.Equal(t, "Invoice was modified by another user. Please reload.", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInvoice_ReplacesLines(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `items`")).WillReturnRows(catalogRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `invoices` SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `invoice_lines`")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `invoice_lines`")).WillReturnResult(sqlmock.NewResult(200, 2))
	mock.ExpectCommit()

	input := sampleInvoice()
	input.InvoiceID = 42
	input.UpdatedOn = formatToken(time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC))

	res, err := UpdateInvoice(testContext(), input)
	require.NoError(t, err)
	assert.Equal(t, 42, res.PrimaryKeyID)
	assert.NotEqual(t, input.UpdatedOn, res.UpdatedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInvoice_NotFound(t *testing.T) {
	mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `invoices`")).WillReturnRows(countRows(0))

	_, err := DeleteInvoice(testContext(), 42)
	assert.True(t, errors.Is(err, utils.ErrorRecordNotFound))
	assert.Equal(t, "Invoice not found", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRoundTrip(t *testing.T) {
	ts := now()
	got, err := parseToken(formatToken(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}
