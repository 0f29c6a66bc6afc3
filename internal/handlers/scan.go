package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felo/warranty-tracker/internal/indexer"
)

// ScanProgress holds the state of the background scan and its SSE
// subscribers
type ScanProgress struct {
	mu          sync.RWMutex
	isScanning  bool
	current     int
	total       int
	currentKey  string
	lastUpdate  time.Time
	lastResult  *indexer.IndexResult
	lastErr     error
	subscribers []chan ProgressEvent
}

// ProgressEvent is one SSE message
type ProgressEvent struct {
	Type string `json:"type"` // "progress", "complete", "error"
	Data any    `json:"data"`
}

type progressData struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Key     string `json:"key"`
}

func newScanProgress() *ScanProgress {
	return &ScanProgress{}
}

// start marks a scan as running; it fails when one already is
func (sp *ScanProgress) start() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.isScanning {
		return false
	}
	sp.isScanning = true
	sp.current, sp.total, sp.currentKey = 0, 0, ""
	sp.lastResult, sp.lastErr = nil, nil
	sp.lastUpdate = time.Now()
	return true
}

// Running reports whether a scan is in progress
func (sp *ScanProgress) Running() bool {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.isScanning
}

func (sp *ScanProgress) update(current, total int, key string) {
	sp.mu.Lock()
	sp.current, sp.total, sp.currentKey = current, total, key
	sp.lastUpdate = time.Now()
	sp.mu.Unlock()

	sp.broadcast(ProgressEvent{Type: "progress", Data: progressData{Current: current, Total: total, Key: key}})
}

func (sp *ScanProgress) finish(result *indexer.IndexResult, err error) {
	sp.mu.Lock()
	sp.isScanning = false
	sp.lastResult, sp.lastErr = result, err
	sp.mu.Unlock()

	if err != nil {
		sp.broadcast(ProgressEvent{Type: "error", Data: map[string]string{"error": err.Error()}})
		return
	}
	sp.broadcast(ProgressEvent{Type: "complete", Data: result})
}

// broadcast sends event to every subscriber without blocking
func (sp *ScanProgress) broadcast(event ProgressEvent) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	for _, ch := range sp.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is behind; it will catch up on the next event
		}
	}
}

// subscribe registers a subscriber and returns the event to replay first,
// if any
func (sp *ScanProgress) subscribe() (chan ProgressEvent, *ProgressEvent) {
	ch := make(chan ProgressEvent, 10)

	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.subscribers = append(sp.subscribers, ch)

	if sp.isScanning {
		return ch, &ProgressEvent{Type: "progress", Data: progressData{Current: sp.current, Total: sp.total, Key: sp.currentKey}}
	}
	return ch, nil
}

func (sp *ScanProgress) unsubscribe(ch chan ProgressEvent) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for i, c := range sp.subscribers {
		if c == ch {
			sp.subscribers = append(sp.subscribers[:i], sp.subscribers[i+1:]...)
			return
		}
	}
}

// Scan starts indexing every configured source in the background
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil || h.sources == nil {
		writeError(w, http.StatusServiceUnavailable, "scanning is not configured")
		return
	}
	if !h.scan.start() {
		writeError(w, http.StatusConflict, "scan already in progress")
		return
	}

	sources := h.sources()
	go func() {
		result, err := h.indexer.IndexAll(context.Background(), sources, h.scan.update)
		if err != nil {
			slog.Error("scan failed", "error", err)
		}
		h.scan.finish(result, err)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// ScanProgressSSE streams scan progress as Server-Sent Events until the
// scan completes or the client disconnects
func (h *Handlers) ScanProgressSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, initial := h.scan.subscribe()
	defer h.scan.unsubscribe(events)

	if initial != nil {
		sendSSE(w, flusher, *initial)
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			sendSSE(w, flusher, event)
			if event.Type == "complete" || event.Type == "error" {
				return
			}
		}
	}
}

// sendSSE writes one SSE message and flushes it
func sendSSE(w http.ResponseWriter, flusher http.Flusher, event ProgressEvent) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		slog.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
