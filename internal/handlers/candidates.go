package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/felo/warranty-tracker/internal/db"
)

// ListCandidates lists candidates by status, most confident first.
// status defaults to pending; "all" lists every status.
func (h *Handlers) ListCandidates(w http.ResponseWriter, r *http.Request) {
	status := db.CandidateStatus(r.URL.Query().Get("status"))
	switch {
	case status == "":
		status = db.CandidatePending
	case status == "all":
		status = ""
	case !status.Valid():
		writeError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}

	candidates, err := h.db.ListCandidates(r.Context(), status, queryInt(r, "limit", 100))
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []*db.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// GetCandidate returns one candidate
func (h *Handlers) GetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.db.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ImportCandidate turns a candidate into a tracked product. The optional
// JSON body holds reviewer corrections.
func (h *Handlers) ImportCandidate(w http.ResponseWriter, r *http.Request) {
	var overrides db.ImportOverrides
	if err := decodeJSON(r, &overrides, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if overrides.WarrantyMonths < 0 {
		writeError(w, http.StatusBadRequest, "warrantyMonths must not be negative")
		return
	}

	p, err := h.db.ImportCandidate(r.Context(), chi.URLParam(r, "id"), overrides)
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.View(h.now()))
}

// DismissCandidate marks a candidate as not worth importing
func (h *Handlers) DismissCandidate(w http.ResponseWriter, r *http.Request) {
	h.setCandidateStatus(w, r, h.db.DismissCandidate)
}

// RestoreCandidate moves a dismissed candidate back to review
func (h *Handlers) RestoreCandidate(w http.ResponseWriter, r *http.Request) {
	h.setCandidateStatus(w, r, h.db.RestoreCandidate)
}

func (h *Handlers) setCandidateStatus(w http.ResponseWriter, r *http.Request, set func(context.Context, string) error) {
	id := chi.URLParam(r, "id")
	if err := set(r.Context(), id); err != nil {
		writeDBError(w, r, err)
		return
	}

	c, err := h.db.GetCandidate(r.Context(), id)
	if err != nil {
		writeDBError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
