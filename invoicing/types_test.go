package invoicing

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestInvoice_InvoiceNoAsStringOrNumber(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"invoiceNo":"1001","lines":[{"rowNo":1,"itemID":7,"quantity":2,"rate":"100"}]}`, "1001"},
		{`{"invoiceNo":1001,"lines":[{"rowNo":1,"itemID":7,"quantity":2,"rate":100}]}`, "1001"},
		{`{"invoiceNo":null}`, ""},
		{`{"customerName":"Acme"}`, ""},
	}
	for _, tc := range cases {
		var inv Invoice
		if err := json.Unmarshal([]byte(tc.body), &inv); err != nil {
			t.Fatalf("%s: %v", tc.body, err)
		}
		if inv.InvoiceNo != tc.want {
			t.Errorf("%s: invoiceNo = %q, want %q", tc.body, inv.InvoiceNo, tc.want)
		}
	}
}

func TestInvoice_NumericInvoiceNoKeepsOtherFields(t *testing.T) {
	body := `{"invoiceNo":42,"customerName":"Acme","taxPercentage":5,
		"lines":[{"itemID":7,"quantity":3,"rate":100,"discountPct":10}]}`
	var inv Invoice
	if err := json.Unmarshal([]byte(body), &inv); err != nil {
		t.Fatal(err)
	}
	if inv.InvoiceNo != "42" || inv.CustomerName != "Acme" {
		t.Fatalf("got invoiceNo=%q customerName=%q", inv.InvoiceNo, inv.CustomerName)
	}
	if len(inv.Lines) != 1 || inv.Lines[0].ItemID != 7 {
		t.Fatalf("lines not decoded: %+v", inv.Lines)
	}
	if got := inv.WithTotals().InvoiceAmount; !got.Equal(dec("283.5")) {
		t.Errorf("invoiceAmount = %s, want 283.5", got)
	}

	out, err := json.Marshal(inv)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"invoiceNo":"42"`) {
		t.Errorf("invoiceNo must encode as a string: %s", out)
	}
}

func TestInvoice_InvoiceNoRejectsOtherTypes(t *testing.T) {
	for _, body := range []string{`{"invoiceNo":true}`, `{"invoiceNo":{"n":1}}`} {
		var inv Invoice
		if err := json.Unmarshal([]byte(body), &inv); err == nil {
			t.Errorf("%s: expected an error", body)
		}
	}
}
