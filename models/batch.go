package models

import (
	"sync"
	"time"
)

// BatchRequest is the payload for POST /api/v1/batch/scrape.
type BatchRequest struct {
	// URLs is the list of product pages to scrape. Required.
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// Options contains shared scrape options applied to all URLs.
	Options BatchOptions `json:"options"`

	// WebhookURL, if set, receives a signed "batch.completed" event when
	// every URL has been processed.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`
}

// BatchOptions are the shared scrape settings applied to every URL in a batch.
type BatchOptions struct {
	PreferredTransport string `json:"preferred_transport,omitempty" binding:"omitempty,oneof=http browser browser-stealth"`
	Timeout            int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
	MaxImages          int    `json:"max_images,omitempty" binding:"omitempty,min=1,max=30"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/scrape.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*ScrapeResponse `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch scrape operation. Worker goroutines
// record results while status polls read them, so all mutable state is
// accessed through the methods below, never directly.
type BatchJob struct {
	ID         string
	Total      int
	WebhookURL string
	CreatedAt  int64 // unix timestamp

	mu        sync.Mutex
	status    string // "processing", "completed", "partial", "failed"
	completed int
	results   []*ScrapeResponse
}

// NewBatchJob creates a job in the processing state with room for one result
// per URL.
func NewBatchJob(id string, total int, webhookURL string) *BatchJob {
	return &BatchJob{
		ID:         id,
		Total:      total,
		WebhookURL: webhookURL,
		CreatedAt:  time.Now().Unix(),
		status:     "processing",
		results:    make([]*ScrapeResponse, total),
	}
}

// SetResult records the outcome for one URL. Safe for concurrent workers.
func (j *BatchJob) SetResult(idx int, resp *ScrapeResponse) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[idx] = resp
	j.completed++
}

// Finish moves the job to its terminal status.
func (j *BatchJob) Finish(status string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
}

// Snapshot returns a consistent view of the job for serialization. The
// result slice is copied; the responses themselves are immutable once set.
func (j *BatchJob) Snapshot() BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]*ScrapeResponse, len(j.results))
	copy(results, j.results)
	return BatchStatusResponse{
		ID:        j.ID,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.Total,
		Results:   results,
	}
}
