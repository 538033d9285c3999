package invoicing

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidationError maps each offending field path, e.g. "invoiceNo" or
// "lines[2].quantity", to the message of the first rule it broke.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for path, or "" if the field is valid.
func (e *ValidationError) Field(path string) string {
	return e.Fields[path]
}

var messages = map[string]map[string]string{
	"invoiceNo": {
		"required":   "Invoice number is required",
		"digitsonly": "Invoice number must contain only numbers",
		"max":        "Invoice number must be less than 50 characters",
	},
	"invoiceDate": {
		"required": "Invoice date is required",
		"isodate":  "Invoice date is invalid",
	},
	"customerName": {
		"required": "Customer name is required",
		"max":      "Customer name must be less than 100 characters",
	},
	"address":       {"max": "Address must be less than 200 characters"},
	"city":          {"max": "City must be less than 50 characters"},
	"notes":         {"max": "Notes must be less than 1000 characters"},
	"taxPercentage": {"gte": "Tax must be 0 or greater", "lte": "Tax must be 100 or less"},
	"lines":         {"min": "At least one line item is required"},
	"itemID": {
		"gte":       "Please select an item",
		"incatalog": "Selected item is not available",
	},
	"description": {"max": "Description must be less than 500 characters"},
	"quantity":    {"gte": "Quantity must be at least 1"},
	"rate":        {"gte": "Rate must be 0 or greater"},
	"discountPct": {"gte": "Discount must be 0 or greater", "lte": "Discount must be 100 or less"},
	"itemName": {
		"required": "Item name is required",
		"max":      "Item name must be less than 50 characters",
	},
	"salesRate": {"gte": "Sales rate must be 0 or greater"},
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("digitsonly", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			for _, r := range s {
				if r < '0' || r > '9' {
					return false
				}
			}
			return s != ""
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidationCtx("incatalog", func(ctx context.Context, fl validator.FieldLevel) bool {
			c, ok := CatalogFromContext(ctx)
			if !ok {
				return true
			}
			_, found := c.ByID(int(fl.Field().Int()))
			return found
		})
		validate = v
	})
	return validate
}

// ValidateInvoice checks inv against the document and line rules. When ctx
// carries a catalog (see WithCatalog) every line item must be in it.
// Returns *ValidationError on failure.
func ValidateInvoice(ctx context.Context, inv Invoice) error {
	inv = trimInvoice(inv)
	return check(ctx, &inv)
}

// ValidateItem checks a catalog item before it is saved.
func ValidateItem(ctx context.Context, it Item) error {
	it.ItemName = strings.TrimSpace(it.ItemName)
	it.Description = strings.TrimSpace(it.Description)
	return check(ctx, &it)
}

func check(ctx context.Context, s interface{}) error {
	err := getValidator().StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		if _, seen := out.Fields[path]; seen {
			continue
		}
		out.Fields[path] = message(fe)
	}
	return out
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Field()][fe.Tag()]; ok {
		return m
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func trimInvoice(inv Invoice) Invoice {
	inv.InvoiceNo = strings.TrimSpace(inv.InvoiceNo)
	inv.InvoiceDate = strings.TrimSpace(inv.InvoiceDate)
	inv.CustomerName = strings.TrimSpace(inv.CustomerName)
	inv.Address = strings.TrimSpace(inv.Address)
	inv.City = strings.TrimSpace(inv.City)
	inv.Notes = strings.TrimSpace(inv.Notes)
	lines := make([]Line, len(inv.Lines))
	for i, l := range inv.Lines {
		l.Description = strings.TrimSpace(l.Description)
		lines[i] = l
	}
	inv.Lines = lines
	return inv
}
