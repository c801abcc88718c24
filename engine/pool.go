package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
)

// PageHandle wraps a browser page with health tracking metadata.
type PageHandle struct {
	ID       int64
	Page     *rod.Page
	errScore float64
	useCount int
	created  time.Time
	mu       sync.Mutex
}

func newPageHandle(id int64, page *rod.Page) *PageHandle {
	return &PageHandle{
		ID:      id,
		Page:    page,
		created: time.Now(),
	}
}

// recordSuccess decreases the error score (min 0).
func (h *PageHandle) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore = math.Max(0, h.errScore-0.5)
}

// recordFailure increases the error score.
func (h *PageHandle) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// shouldRetire returns true if the page should be retired based on health
// metrics: errScore >= 3, 50 uses, or 50 minutes of age.
func (h *PageHandle) shouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errScore >= 3.0 {
		return true
	}
	if h.useCount >= 50 {
		return true
	}
	if time.Since(h.created) >= 50*time.Minute {
		return true
	}
	return false
}

// PagePoolConfig holds configuration for the page pool.
type PagePoolConfig struct {
	MinPages     int
	HardMax      int
	MemThreshold float64 // 0.0–1.0, fraction of heap memory
	ScaleStep    float64 // 0.0–1.0, fraction to grow/shrink
}

// PageFactory creates a new browser page.
type PageFactory func() (*rod.Page, error)

// PageDestroyer closes a browser page.
type PageDestroyer func(page *rod.Page)

// PagePool manages a bounded pool of browser pages with health scoring and
// automatic scaling based on memory pressure and utilization. It is the one
// shared resource concurrent scrapes contend for; Get honors context
// cancellation so a cancelled scrape never strands a waiter.
type PagePool struct {
	cfg       PagePoolConfig
	factory   PageFactory
	destroyer PageDestroyer

	idle    chan *PageHandle
	mu      sync.Mutex
	all     map[int64]*PageHandle // all live handles
	nextID  atomic.Int64
	active  atomic.Int32 // currently checked-out handles
	stopped chan struct{}
}

// NewPagePool creates and starts a page pool, pre-creating MinPages pages.
func NewPagePool(cfg PagePoolConfig, factory PageFactory, destroyer PageDestroyer) (*PagePool, error) {
	if cfg.MinPages < 1 {
		cfg.MinPages = 1
	}
	if cfg.HardMax < cfg.MinPages {
		cfg.HardMax = cfg.MinPages
	}
	if cfg.MemThreshold <= 0 {
		cfg.MemThreshold = 0.9
	}
	if cfg.ScaleStep <= 0 {
		cfg.ScaleStep = 0.05
	}

	pp := &PagePool{
		cfg:       cfg,
		factory:   factory,
		destroyer: destroyer,
		idle:      make(chan *PageHandle, cfg.HardMax),
		all:       make(map[int64]*PageHandle),
		stopped:   make(chan struct{}),
	}

	for i := 0; i < cfg.MinPages; i++ {
		h, err := pp.createHandle()
		if err != nil {
			slog.Warn("page_pool: failed to pre-create page", "error", err)
			continue
		}
		pp.idle <- h
	}

	go pp.scalingLoop()
	return pp, nil
}

// Get acquires a page handle. It returns an idle page if one is available,
// creates a new one when under the hard max, and otherwise blocks until a
// page is returned or ctx is done.
func (pp *PagePool) Get(ctx context.Context) (*PageHandle, error) {
	select {
	case h := <-pp.idle:
		pp.active.Add(1)
		return h, nil
	default:
	}

	pp.mu.Lock()
	if len(pp.all) < pp.cfg.HardMax {
		h, err := pp.createHandleLocked()
		pp.mu.Unlock()
		if err == nil {
			pp.active.Add(1)
			return h, nil
		}
		// Creation failed; fall through to blocking wait.
	} else {
		pp.mu.Unlock()
	}

	select {
	case h := <-pp.idle:
		pp.active.Add(1)
		return h, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("page_pool: wait for page: %w", ctx.Err())
	case <-pp.stopped:
		return nil, fmt.Errorf("page_pool: pool stopped")
	}
}

// Put returns a page handle to the pool, applying health scoring. Pages that
// should retire are destroyed and replaced when the pool is below minimum.
func (pp *PagePool) Put(h *PageHandle, success bool) {
	pp.active.Add(-1)

	if success {
		h.recordSuccess()
	} else {
		h.recordFailure()
	}

	if h.shouldRetire() {
		slog.Debug("page_pool: retiring page", "id", h.ID,
			"errScore", h.errScore, "useCount", h.useCount)
		pp.destroyHandle(h)

		pp.mu.Lock()
		if len(pp.all) < pp.cfg.MinPages {
			if newH, err := pp.createHandleLocked(); err == nil {
				pp.mu.Unlock()
				pp.idle <- newH
				return
			}
		}
		pp.mu.Unlock()
		return
	}

	pp.idle <- h
}

// Size returns the total number of live pages.
func (pp *PagePool) Size() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.all)
}

// ActiveCount returns the number of currently checked-out pages.
func (pp *PagePool) ActiveCount() int {
	return int(pp.active.Load())
}

// Stop shuts down the scaling goroutine and destroys all pages.
func (pp *PagePool) Stop() {
	close(pp.stopped)

drainLoop:
	for {
		select {
		case h := <-pp.idle:
			pp.destroyHandle(h)
		default:
			break drainLoop
		}
	}

	pp.mu.Lock()
	for id, h := range pp.all {
		pp.destroyer(h.Page)
		delete(pp.all, id)
	}
	pp.mu.Unlock()
}

func (pp *PagePool) createHandle() (*PageHandle, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return pp.createHandleLocked()
}

// createHandleLocked creates a new handle. Caller must hold pp.mu.
func (pp *PagePool) createHandleLocked() (*PageHandle, error) {
	page, err := pp.factory()
	if err != nil {
		return nil, err
	}
	h := newPageHandle(pp.nextID.Add(1), page)
	pp.all[h.ID] = h
	return h, nil
}

func (pp *PagePool) destroyHandle(h *PageHandle) {
	pp.mu.Lock()
	delete(pp.all, h.ID)
	pp.mu.Unlock()
	pp.destroyer(h.Page)
}

// scalingLoop periodically samples memory and adjusts pool size.
func (pp *PagePool) scalingLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-pp.stopped:
			return
		case <-ticker.C:
			pp.scaleCheck()
		}
	}
}

func (pp *PagePool) scaleCheck() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// Estimate memory pressure as HeapInuse / HeapSys.
	var memPressure float64
	if m.HeapSys > 0 {
		memPressure = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	pp.mu.Lock()
	totalSize := len(pp.all)
	pp.mu.Unlock()

	active := int(pp.active.Load())
	var activeRate float64
	if totalSize > 0 {
		activeRate = float64(active) / float64(totalSize)
	}

	if memPressure > pp.cfg.MemThreshold {
		// Shrink: close some idle pages.
		shrinkCount := int(math.Ceil(float64(totalSize) * pp.cfg.ScaleStep))
		for i := 0; i < shrinkCount; i++ {
			pp.mu.Lock()
			if len(pp.all) <= pp.cfg.MinPages {
				pp.mu.Unlock()
				break
			}
			pp.mu.Unlock()

			select {
			case h := <-pp.idle:
				slog.Debug("page_pool: shrinking, retiring page", "id", h.ID)
				pp.destroyHandle(h)
			default:
				return
			}
		}
	} else if activeRate > 0.8 {
		// Grow: add pages if under hard max.
		growCount := int(math.Ceil(float64(totalSize) * pp.cfg.ScaleStep))
		for i := 0; i < growCount; i++ {
			pp.mu.Lock()
			if len(pp.all) >= pp.cfg.HardMax {
				pp.mu.Unlock()
				break
			}
			h, err := pp.createHandleLocked()
			pp.mu.Unlock()
			if err != nil {
				slog.Warn("page_pool: failed to grow", "error", err)
				break
			}
			slog.Debug("page_pool: grew pool", "id", h.ID)
			pp.idle <- h
		}
	}
}
