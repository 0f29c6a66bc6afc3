package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/felo/warranty-tracker/internal/db"
)

type emailDetail struct {
	*db.Email
	Body string `json:"body"`
}

// ListEmails lists indexed emails, newest first
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.db.ListEmails(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	if emails == nil {
		emails = []*db.Email{}
	}
	writeJSON(w, http.StatusOK, emails)
}

// GetEmail returns one indexed email with its stored body preview, so a
// reviewer can check a candidate against its source
func (h *Handlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email ID")
		return
	}

	email, err := h.db.GetEmailByID(r.Context(), id)
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emailDetail{Email: email, Body: email.BodyPreview})
}
