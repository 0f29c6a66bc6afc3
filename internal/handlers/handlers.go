package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/indexer"
	"github.com/felo/warranty-tracker/internal/purchase"
	"github.com/felo/warranty-tracker/internal/reminder"
)

// Options wires the optional collaborators of Handlers
type Options struct {
	// Parser previews uploaded emails; purchase.New() when nil
	Parser *purchase.Parser
	// Indexer and Sources back POST /api/scan; scanning is disabled when
	// either is nil
	Indexer *indexer.Indexer
	Sources func() []indexer.Source
	// Reminder backs POST /api/reminders/send; disabled when nil
	Reminder *reminder.Service
	// Now is the clock for warranty status; time.Now when nil
	Now func() time.Time
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	db       *db.DB
	parser   *purchase.Parser
	indexer  *indexer.Indexer
	sources  func() []indexer.Source
	reminder *reminder.Service
	now      func() time.Time
	scan     *ScanProgress
}

// New creates a new Handlers instance
func New(database *db.DB, opts Options) *Handlers {
	h := &Handlers{
		db:       database,
		parser:   opts.Parser,
		indexer:  opts.Indexer,
		sources:  opts.Sources,
		reminder: opts.Reminder,
		now:      opts.Now,
		scan:     newScanProgress(),
	}
	if h.parser == nil {
		h.parser = purchase.New()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Routes mounts every API endpoint on a new router
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/parse", h.ParseEmail)

	r.Route("/emails", func(r chi.Router) {
		r.Get("/", h.ListEmails)
		r.Get("/{id}", h.GetEmail)
	})

	r.Route("/candidates", func(r chi.Router) {
		r.Get("/", h.ListCandidates)
		r.Get("/{id}", h.GetCandidate)
		r.Post("/{id}/import", h.ImportCandidate)
		r.Post("/{id}/dismiss", h.DismissCandidate)
		r.Post("/{id}/restore", h.RestoreCandidate)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/search", h.SearchProducts)
		r.Get("/{id}", h.GetProduct)
		r.Patch("/{id}", h.UpdateProduct)
		r.Put("/{id}/warranty", h.SetWarranty)
		r.Post("/{id}/extend-warranty", h.ExtendWarranty)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Get("/categories", h.ListCategories)

	r.Route("/reminders", func(r chi.Router) {
		r.Get("/upcoming", h.UpcomingExpiries)
		r.Get("/expired", h.ExpiredProducts)
		r.Post("/send", h.SendReminders)
		r.Post("/reset", h.ResetReminder)
	})

	r.Get("/stats", h.Stats)

	r.Post("/scan", h.Scan)
	r.Get("/scan/progress", h.ScanProgressSSE)

	return r
}
