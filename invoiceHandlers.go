package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/mmdatafocus/invoice_backend/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// invoiceFilter reads InvoiceID, fromDate, toDate and search. Dates are
// yyyy-mm-dd or RFC 3339.
func invoiceFilter(c *gin.Context) (models.InvoiceFilter, bool) {
	var f models.InvoiceFilter
	if v := strings.TrimSpace(c.Query("InvoiceID")); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid InvoiceID"})
			return f, false
		}
		f.InvoiceID = id
	}
	for _, p := range []struct {
		name string
		dest **time.Time
	}{{"fromDate", &f.FromDate}, {"toDate", &f.ToDate}} {
		v := strings.TrimSpace(c.Query(p.name))
		if v == "" {
			continue
		}
		d, err := invoicing.ParseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.name})
			return f, false
		}
		*p.dest = &d
	}
	f.Search = c.Query("search")
	return f, true
}

func getInvoiceListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := invoiceFilter(c)
		if !ok {
			return
		}
		list, err := models.GetInvoices(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "invoiceHandlers", "getInvoiceListHandler", err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		inv, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, "invoiceHandlers", "getInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

func saveInvoiceHandler(create bool) gin.HandlerFunc {
	name := "UpdateInvoice"
	if create {
		name = "CreateInvoice"
	}
	return func(c *gin.Context) {
		var input invoicing.Invoice
		if !bindJSON(c, &input) {
			return
		}
		ctx, span := tracer.Start(c.Request.Context(), name)
		defer span.End()
		span.SetAttributes(
			attribute.Int("invoice.id", input.InvoiceID),
			attribute.Int("invoice.lines", len(input.Lines)),
		)

		var res *invoicing.SaveResult
		var err error
		if create {
			res, err = models.CreateInvoice(ctx, &input)
		} else {
			res, err = models.UpdateInvoice(ctx, &input)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			respondError(c, "invoiceHandlers", name, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func createInvoiceHandler() gin.HandlerFunc { return saveInvoiceHandler(true) }
func updateInvoiceHandler() gin.HandlerFunc { return saveInvoiceHandler(false) }

func deleteInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c)
		if !ok {
			return
		}
		res, err := models.DeleteInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, "invoiceHandlers", "deleteInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
