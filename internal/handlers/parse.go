package handlers

import (
	"io"
	"mime"
	"net/http"

	"github.com/felo/warranty-tracker/internal/parser"
	"github.com/felo/warranty-tracker/internal/purchase"
)

type parseResponse struct {
	IsPurchase bool                `json:"isPurchase"`
	Candidate  *purchase.Candidate `json:"candidate"`
}

// ParseEmail previews what the parser extracts from one email without
// storing anything. The body is either a raw message (message/rfc822) or
// a JSON object with subject, from, date and body.
func (h *Handlers) ParseEmail(w http.ResponseWriter, r *http.Request) {
	var raw purchase.RawEmail

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "message/rfc822", "application/octet-stream":
		parsed, err := parser.ParseEML(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid email: "+err.Error())
			return
		}
		raw = parsed.RawEmail("upload")

	default:
		if err := decodeJSON(r, &raw, false); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	c := h.parser.Parse(raw)
	writeJSON(w, http.StatusOK, parseResponse{IsPurchase: c != nil, Candidate: c})
}
