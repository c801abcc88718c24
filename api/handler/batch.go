package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storeforge/prodscrape/models"
	"github.com/storeforge/prodscrape/scraper"
	"github.com/storeforge/prodscrape/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*models.BatchJob)
				if job.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// BatchDeps carries what batch processing needs beyond the scraper itself.
type BatchDeps struct {
	// MaxConcurrent bounds in-flight scrapes per batch job. Values < 1
	// fall back to 5.
	MaxConcurrent int

	// WebhookSecret signs batch.completed events; empty sends unsigned.
	WebhookSecret string
}

// PostBatch returns a handler for POST /api/v1/batch/scrape.
// It validates the request, creates a batch job, and launches goroutines
// to scrape each URL concurrently.
func PostBatch(sc *scraper.Scraper, deps BatchDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		jobID := "batch-" + randomID()
		job := models.NewBatchJob(jobID, len(req.URLs), req.WebhookURL)
		batchStore.Store(jobID, job)

		// Launch scraping in background.
		go runBatch(sc, deps, job, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		job := val.(*models.BatchJob)
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runBatch processes all URLs in a batch job with concurrency limited by a
// semaphore, then fires the completion webhook when one was requested.
func runBatch(sc *scraper.Scraper, deps BatchDeps, job *models.BatchJob, req models.BatchRequest) {
	maxConcurrent := deps.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 5
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	var failed atomic.Int32

	for i, rawURL := range req.URLs {
		wg.Add(1)
		go func(idx int, targetURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp := scrapeOne(sc, targetURL, req.Options)
			job.SetResult(idx, resp)

			if resp.Success {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
		}(i, rawURL)
	}

	wg.Wait()

	failedCount := int(failed.Load())
	succeededCount := int(succeeded.Load())

	var status string
	switch {
	case failedCount == job.Total:
		status = "failed"
	case failedCount > 0:
		status = "partial"
	default:
		status = "completed"
	}
	job.Finish(status)

	slog.Info("batch job finished",
		"id", job.ID,
		"status", status,
		"succeeded", succeededCount,
		"failed", failedCount,
		"total", job.Total,
	)

	if job.WebhookURL != "" {
		snap := job.Snapshot()
		snap.Results = nil // the callback announces completion; results are polled
		webhook.DeliverAsync(job.WebhookURL, deps.WebhookSecret, &webhook.Event{
			Type:      "batch.completed",
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data:      snap,
		})
	}
}

// scrapeOne performs a single scrape for one URL using shared batch options.
func scrapeOne(sc *scraper.Scraper, targetURL string, opts models.BatchOptions) *models.ScrapeResponse {
	totalStart := time.Now()

	sreq := &models.ScrapeRequest{
		URL:                targetURL,
		PreferredTransport: opts.PreferredTransport,
		Timeout:            opts.Timeout,
		MaxImages:          opts.MaxImages,
	}
	sreq.Defaults()

	result, serr := sc.Scrape(context.Background(), sreq)
	if serr != nil {
		return &models.ScrapeResponse{
			Success: false,
			Error:   serr.ToDetail(),
			Timing: models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			},
		}
	}

	return &models.ScrapeResponse{
		Success:      true,
		Completeness: result.Product.Completeness(),
		Product:      result.Product,
		Transport:    string(result.Transport),
		Timing: models.TimingInfo{
			TotalMs:   time.Since(totalStart).Milliseconds(),
			FetchMs:   result.Timing.FetchMs,
			ExtractMs: result.Timing.ExtractMs,
		},
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
