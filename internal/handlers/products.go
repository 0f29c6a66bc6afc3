package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/purchase"
	"github.com/felo/warranty-tracker/internal/warranty"
)

// productInput is a manually entered product. Dates accept any format the
// email date parser understands; warrantyMonths is used when
// warrantyEndDate is empty.
type productInput struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Vendor          string   `json:"vendor"`
	SerialNumber    string   `json:"serialNumber"`
	Description     string   `json:"description"`
	PurchaseDate    string   `json:"purchaseDate"`
	WarrantyEndDate string   `json:"warrantyEndDate"`
	WarrantyMonths  int      `json:"warrantyMonths"`
	Price           *float64 `json:"price"`
	Currency        string   `json:"currency"`
	OrderNumber     *string  `json:"orderNumber"`
}

// productPatch changes the mutable fields of a product
type productPatch struct {
	IsActive        *bool   `json:"isActive"`
	WarrantyEndDate *string `json:"warrantyEndDate"`
}

type warrantyInput struct {
	WarrantyPeriod    int    `json:"warrantyPeriod"`
	WarrantyStartDate string `json:"warrantyStartDate"`
	WarrantyEndDate   string `json:"warrantyEndDate"`
}

type extendInput struct {
	AdditionalMonths int `json:"additionalMonths"`
}

type searchResult struct {
	db.ProductView
	Snippet string `json:"snippet"`
}

// ListProducts lists products filtered by category and warranty status
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := warranty.Status(q.Get("status"))
	switch status {
	case "", warranty.StatusActive, warranty.StatusExpiring, warranty.StatusExpired:
	default:
		writeError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}

	now := h.now()
	products, err := h.db.ListProducts(r.Context(), db.ProductFilter{
		Category: q.Get("category"),
		Status:   status,
		Now:      now,
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	})
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.Views(products, now))
}

// SearchProducts runs a full-text search over products
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	results, err := h.db.SearchProducts(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 50))
	if err != nil {
		writeDBError(w, r, err)
		return
	}

	now := h.now()
	out := make([]searchResult, len(results))
	for i, res := range results {
		out[i] = searchResult{ProductView: res.Product.View(now), Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns one product with its warranty status
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View(h.now()))
}

// CreateProduct stores a manually entered product
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, msg := in.product()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.db.CreateProduct(r.Context(), p); err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.View(h.now()))
}

func (in productInput) product() (*db.Product, string) {
	purchased, ok := purchase.ParseDate(in.PurchaseDate)
	if !ok {
		return nil, "purchaseDate is required"
	}

	var end time.Time
	switch {
	case strings.TrimSpace(in.WarrantyEndDate) != "":
		if end, ok = purchase.ParseDate(in.WarrantyEndDate); !ok {
			return nil, "invalid warrantyEndDate"
		}
	case in.WarrantyMonths > 0:
		end = warranty.EndAfterMonths(purchased, in.WarrantyMonths)
	default:
		end = purchase.WarrantyEnd(purchased)
	}

	return &db.Product{
		Name:            in.Name,
		Category:        in.Category,
		Vendor:          in.Vendor,
		SerialNumber:    strings.TrimSpace(in.SerialNumber),
		Description:     in.Description,
		PurchaseDate:    purchased,
		WarrantyEndDate: end,
		Price:           in.Price,
		Currency:        in.Currency,
		OrderNumber:     in.OrderNumber,
		Source:          db.SourceManual,
	}, ""
}

// UpdateProduct toggles tracking or moves the warranty end date
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch productPatch
	if err := decodeJSON(r, &patch, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var update db.ProductUpdate
	update.IsActive = patch.IsActive
	if patch.WarrantyEndDate != nil {
		end, ok := purchase.ParseDate(*patch.WarrantyEndDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid warrantyEndDate")
			return
		}
		update.WarrantyEndDate = &end
	}

	if err := h.db.UpdateProduct(r.Context(), chi.URLParam(r, "id"), update); err != nil {
		writeDBError(w, r, err)
		return
	}

	h.GetProduct(w, r)
}

// SetWarranty replaces the coverage window, either as warrantyPeriod months
// from warrantyStartDate (or the purchase date) or as an explicit
// warrantyEndDate
func (h *Handlers) SetWarranty(w http.ResponseWriter, r *http.Request) {
	var in warrantyInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	var err error
	switch {
	case in.WarrantyPeriod > 0:
		var start time.Time
		if in.WarrantyStartDate != "" {
			parsed, ok := purchase.ParseDate(in.WarrantyStartDate)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid warrantyStartDate")
				return
			}
			start = parsed
		}
		err = h.db.SetWarrantyPeriod(r.Context(), id, in.WarrantyPeriod, start)
	case in.WarrantyEndDate != "":
		end, ok := purchase.ParseDate(in.WarrantyEndDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid warrantyEndDate")
			return
		}
		err = h.db.UpdateWarrantyEnd(r.Context(), id, end)
	default:
		writeError(w, http.StatusBadRequest, "warrantyPeriod or warrantyEndDate is required")
		return
	}
	if err != nil {
		writeDBError(w, r, err)
		return
	}

	h.GetProduct(w, r)
}

// ExtendWarranty pushes the current end date additionalMonths later
func (h *Handlers) ExtendWarranty(w http.ResponseWriter, r *http.Request) {
	var in extendInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.AdditionalMonths <= 0 {
		writeError(w, http.StatusBadRequest, "additionalMonths must be positive")
		return
	}

	if err := h.db.ExtendWarranty(r.Context(), chi.URLParam(r, "id"), in.AdditionalMonths); err != nil {
		writeDBError(w, r, err)
		return
	}

	h.GetProduct(w, r)
}

// DeleteProduct removes a product
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDBError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns the closed category list
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, purchase.Categories())
}
