package handlers

import (
	"net/http"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/warranty"
)

// UpcomingExpiries lists active products whose warranty ends within
// ?days= (default 30)
func (h *Handlers) UpcomingExpiries(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	products, err := h.db.UpcomingExpiries(r.Context(), now, queryInt(r, "days", warranty.ExpiringWindowDays))
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.Views(products, now))
}

// ExpiredProducts lists active products whose warranty has ended
func (h *Handlers) ExpiredProducts(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	products, err := h.db.ExpiredProducts(r.Context(), now)
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.Views(products, now))
}

// SendReminders runs the reminder job immediately
func (h *Handlers) SendReminders(w http.ResponseWriter, r *http.Request) {
	if h.reminder == nil {
		writeError(w, http.StatusServiceUnavailable, "reminders are disabled")
		return
	}

	sent, err := h.reminder.Run(r.Context(), h.now())
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reminded": sent})
}

type resetInput struct {
	ProductID string `json:"productId"`
}

// ResetReminder re-arms the expiry reminder for one product
func (h *Handlers) ResetReminder(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if err := decodeJSON(r, &in, false); err != nil || in.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}

	ctx := r.Context()
	if err := h.db.ResetReminder(ctx, in.ProductID); err != nil {
		writeDBError(w, r, err)
		return
	}

	p, err := h.db.GetProduct(ctx, in.ProductID)
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View(h.now()))
}

// Stats returns dashboard totals
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats(r.Context(), h.now())
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
