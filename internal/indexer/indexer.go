package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/purchase"
)

// Indexer turns new messages into email rows and purchase candidates
type Indexer struct {
	db          *db.DB
	parser      *purchase.Parser
	concurrency int // Number of concurrent workers
}

// NewIndexer creates a new indexer
func NewIndexer(database *db.DB, p *purchase.Parser) *Indexer {
	if p == nil {
		p = purchase.New()
	}
	return &Indexer{
		db:          database,
		parser:      p,
		concurrency: runtime.NumCPU() * 2, // I/O bound
	}
}

// WithConcurrency sets the number of concurrent workers
func (idx *Indexer) WithConcurrency(workers int) *Indexer {
	if workers < 1 {
		workers = 1
	}
	idx.concurrency = workers
	return idx
}

// IndexResult contains statistics about an indexing operation
type IndexResult struct {
	TotalFound  int      `json:"totalFound"`
	NewIndexed  int      `json:"newIndexed"`
	Candidates  int      `json:"candidates"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	FailedFiles []string `json:"failedFiles"`
}

// Add merges other into r
func (r *IndexResult) Add(other *IndexResult) {
	r.TotalFound += other.TotalFound
	r.NewIndexed += other.NewIndexed
	r.Candidates += other.Candidates
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.FailedFiles = append(r.FailedFiles, other.FailedFiles...)
}

// ProgressFunc is called once per processed message
type ProgressFunc func(current, total int, key string)

type indexStatus int

const (
	statusIndexed indexStatus = iota
	statusCandidate
	statusSkipped
	statusFailed
)

type indexResult struct {
	key    string
	status indexStatus
}

// IndexAll indexes every source in turn and sums the results. A failing
// source is logged and does not stop the others.
func (idx *Indexer) IndexAll(ctx context.Context, sources []Source, progress ProgressFunc) (*IndexResult, error) {
	total := &IndexResult{FailedFiles: make([]string, 0)}
	for _, src := range sources {
		result, err := idx.Index(ctx, src, progress)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			slog.Error("indexing source failed", "source", src.Name(), "error", err)
			continue
		}
		total.Add(result)
	}

	if err := idx.db.SetSetting(ctx, db.SettingLastScan, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("failed to record scan time", "error", err)
	}
	return total, nil
}

// Index processes every new message of src with a worker pool
func (idx *Indexer) Index(ctx context.Context, src Source, progress ProgressFunc) (*IndexResult, error) {
	items, err := src.Items(ctx, idx.db.EmailsExistBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", src.Name(), err)
	}

	result := &IndexResult{
		TotalFound:  len(items),
		FailedFiles: make([]string, 0),
	}

	slog.Info("indexing messages",
		"source", src.Name(),
		"found", result.TotalFound,
		"workers", idx.concurrency,
	)

	itemChan := make(chan Item)
	resultChan := make(chan indexResult)

	var wg sync.WaitGroup
	for i := 0; i < idx.concurrency; i++ {
		wg.Add(1)
		go idx.indexWorker(ctx, &wg, itemChan, resultChan)
	}

	go func() {
		defer close(itemChan)
		for _, item := range items {
			select {
			case itemChan <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	processed := 0
	for res := range resultChan {
		processed++
		if progress != nil {
			progress(processed, result.TotalFound, res.key)
		}

		switch res.status {
		case statusIndexed:
			result.NewIndexed++
		case statusCandidate:
			result.NewIndexed++
			result.Candidates++
		case statusSkipped:
			result.Skipped++
		case statusFailed:
			result.Failed++
			result.FailedFiles = append(result.FailedFiles, res.key)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	slog.Info("indexing complete",
		"source", src.Name(),
		"new", result.NewIndexed,
		"candidates", result.Candidates,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

// indexWorker processes items from the item channel
func (idx *Indexer) indexWorker(ctx context.Context, wg *sync.WaitGroup, items <-chan Item, results chan<- indexResult) {
	defer wg.Done()

	for item := range items {
		results <- indexResult{key: item.Key, status: idx.processItem(ctx, item)}
	}
}

// processItem parses one message and stores it with its candidate
func (idx *Indexer) processItem(ctx context.Context, item Item) indexStatus {
	if item.Known || item.Load == nil {
		return statusSkipped
	}

	parsed, err := item.Load()
	if err != nil {
		slog.Warn("failed to parse message", "key", item.Key, "error", err)
		return statusFailed
	}

	email := &db.Email{
		SourceKey:       item.Key,
		MessageID:       parsed.MessageID,
		Subject:         parsed.Subject,
		Sender:          parsed.Sender,
		SenderName:      parsed.SenderName,
		BodyPreview:     parsed.Body(),
		AttachmentCount: len(parsed.Attachments),
	}
	if !parsed.Date.IsZero() {
		date := parsed.Date
		email.Date = &date
	}

	var candidate *db.Candidate
	if c := idx.parser.Parse(parsed.RawEmail(item.Key)); c != nil {
		email.IsPurchase = true
		candidate = db.NewCandidate(c)
	}

	if err := idx.db.InsertIndexedEmail(ctx, email, candidate); err != nil {
		slog.Warn("failed to store message", "key", item.Key, "error", err)
		return statusFailed
	}

	if candidate != nil {
		slog.Debug("purchase candidate found",
			"key", item.Key,
			"name", candidate.Name,
			"vendor", candidate.Vendor,
			"confidence", candidate.Confidence,
		)
		return statusCandidate
	}
	return statusIndexed
}
