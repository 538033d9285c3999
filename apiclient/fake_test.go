package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/mmdatafocus/invoice_backend/invoicing"
	"github.com/shopspring/decimal"
)

const testToken = "test-token"

// fakeAPI is an in-memory stand-in for the invoicing API with the same
// updatedOn comparison the real server does.
type fakeAPI struct {
	t *testing.T

	mu       sync.Mutex
	invoices map[int]invoicing.Invoice
	items    map[int]invoicing.Item
	nextID   int
	clock    int
	requests int
	logouts  int
	revoked  bool
	pictures map[int][]byte
	logos    map[int][]byte

	// hooks
	beforeSave    func()
	failPictures  bool
	lastPayload   invoicing.Invoice
	rejectMessage string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{
		t:        t,
		invoices: map[int]invoicing.Invoice{},
		items:    map[int]invoicing.Item{},
		pictures: map[int][]byte{},
		logos:    map[int][]byte{},
		nextID:   1,
	}
	f.items[7] = invoicing.Item{ItemID: 7, ItemName: "Widget", Description: "Blue widget",
		SalesRate: decimal.NewFromInt(100), DiscountPct: decimal.NewFromInt(10), UpdatedOn: f.tick()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/Auth/Login", f.login)
	mux.HandleFunc("POST /api/Auth/Signup", f.signup)
	mux.HandleFunc("POST /api/Auth/Logout", f.auth(f.logout))
	mux.HandleFunc("POST /api/Auth/UpdateCompanyLogo", f.auth(f.uploadLogo))
	mux.HandleFunc("GET /api/Auth/GetCompanyLogoUrl/{id}", f.logoURL)
	mux.HandleFunc("GET /api/Item/GetLookupList", f.auth(f.listItems))
	mux.HandleFunc("GET /api/Item/GetList", f.auth(f.listItems))
	mux.HandleFunc("GET /api/Item/CheckDuplicateItemName", f.auth(f.checkName))
	mux.HandleFunc("POST /api/Item", f.auth(f.createItem))
	mux.HandleFunc("POST /api/Item/UpdateItemPicture", f.auth(f.uploadPicture))
	mux.HandleFunc("GET /api/Item/Picture/{id}", f.auth(f.pictureURL))
	mux.HandleFunc("GET /api/Invoice/{id}", f.auth(f.getInvoice))
	mux.HandleFunc("DELETE /api/Invoice/{id}", f.auth(f.deleteInvoice))
	mux.HandleFunc("POST /api/Invoice/", f.auth(f.saveInvoice))
	mux.HandleFunc("PUT /api/Invoice/", f.auth(f.saveInvoice))
	mux.HandleFunc("GET /api/Invoice/GetList", f.auth(f.listInvoices))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) tick() string {
	f.clock++
	return fmt.Sprintf("T%d", f.clock)
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (f *fakeAPI) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		f.mu.Lock()
		revoked := f.revoked
		f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+testToken || revoked {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email != "owner@example.com" || req.Password != "secret123" {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:   testToken,
		User:    User{UserID: 1, FirstName: "Owner", Email: req.Email},
		Company: Company{CompanyID: 1, CompanyName: "Acme", CurrencySymbol: "$"},
	})
}

func (f *fakeAPI) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Email == "owner@example.com" {
		writeError(w, http.StatusBadRequest, "Email is already registered")
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:   testToken,
		User:    User{UserID: 2, FirstName: req.FirstName, Email: req.Email},
		Company: Company{CompanyID: 2, CompanyName: req.CompanyName, CurrencySymbol: req.CurrencySymbol},
	})
}

func (f *fakeAPI) logout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.revoked = true
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) uploadLogo(w http.ResponseWriter, r *http.Request) {
	if f.failPictures {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	file, _, err := r.FormFile("File")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	f.mu.Lock()
	f.logos[2] = data
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) logoURL(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "https://storage.example.com/companies/"+r.PathValue("id")+".png")
}

func (f *fakeAPI) listItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]invoicing.Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) checkName(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := r.URL.Query().Get("ItemName")
	exclude, _ := strconv.Atoi(r.URL.Query().Get("ExcludeID"))
	for _, it := range f.items {
		if strings.EqualFold(it.ItemName, name) && it.ItemID != exclude {
			writeError(w, http.StatusConflict, "Item name already exists")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) createItem(w http.ResponseWriter, r *http.Request) {
	var it invoicing.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it.ItemID = 100 + f.nextID
	f.nextID++
	it.UpdatedOn = f.tick()
	f.items[it.ItemID] = it
	writeJSON(w, http.StatusOK, invoicing.SaveResult{PrimaryKeyID: it.ItemID, UpdatedOn: it.UpdatedOn, NofRecordsEffected: 1})
}

func (f *fakeAPI) uploadPicture(w http.ResponseWriter, r *http.Request) {
	if f.failPictures {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	id, err := strconv.Atoi(r.FormValue("ItemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ItemID")
		return
	}
	file, _, err := r.FormFile("File")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	f.mu.Lock()
	f.pictures[id] = data
	f.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (f *fakeAPI) pictureURL(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "https://storage.example.com/items/"+r.PathValue("id")+".jpg")
}

func (f *fakeAPI) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (f *fakeAPI) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.invoices[id]; !ok {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	delete(f.invoices, id)
	writeJSON(w, http.StatusOK, invoicing.SaveResult{PrimaryKeyID: id, NofRecordsEffected: 1})
}

func (f *fakeAPI) listInvoices(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want, _ := strconv.Atoi(r.URL.Query().Get("InvoiceID"))
	out := []invoicing.InvoiceListItem{}
	for _, inv := range f.invoices {
		if want > 0 && inv.InvoiceID != want {
			continue
		}
		out = append(out, invoicing.InvoiceListItem{InvoiceID: inv.InvoiceID, InvoiceNo: inv.InvoiceNo, UpdatedOn: inv.UpdatedOn})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) saveInvoice(w http.ResponseWriter, r *http.Request) {
	if f.beforeSave != nil {
		f.beforeSave()
	}
	var inv invoicing.Invoice
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPayload = inv
	if f.rejectMessage != "" {
		writeError(w, http.StatusBadRequest, f.rejectMessage)
		return
	}
	for id, other := range f.invoices {
		if other.InvoiceNo == inv.InvoiceNo && id != inv.InvoiceID {
			writeError(w, http.StatusBadRequest, "Invoice number "+inv.InvoiceNo+" already exists")
			return
		}
	}

	if r.Method == http.MethodPost {
		inv.InvoiceID = f.nextID
		f.nextID++
	} else {
		cur, ok := f.invoices[inv.InvoiceID]
		if !ok {
			writeError(w, http.StatusNotFound, "Invoice not found")
			return
		}
		if cur.UpdatedOn != inv.UpdatedOn {
			writeError(w, http.StatusConflict, "Invoice was modified by another user. Please reload.")
			return
		}
	}
	inv.UpdatedOn = f.tick()
	f.invoices[inv.InvoiceID] = inv.WithTotals()
	writeJSON(w, http.StatusOK, invoicing.SaveResult{PrimaryKeyID: inv.InvoiceID, UpdatedOn: inv.UpdatedOn, NofRecordsEffected: 1})
}

// touch simulates another user saving invoice id.
func (f *fakeAPI) touch(id int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv := f.invoices[id]
	inv.Notes = "edited elsewhere"
	inv.UpdatedOn = f.tick()
	f.invoices[id] = inv
	return inv.UpdatedOn
}
