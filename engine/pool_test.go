package engine

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod"
)

func testPool(t *testing.T, cfg PagePoolConfig) (*PagePool, *int) {
	t.Helper()
	destroyed := 0
	pp, err := NewPagePool(cfg,
		func() (*rod.Page, error) { return &rod.Page{}, nil },
		func(page *rod.Page) { destroyed++ },
	)
	if err != nil {
		t.Fatalf("NewPagePool: %v", err)
	}
	t.Cleanup(pp.Stop)
	return pp, &destroyed
}

func TestPagePool_PreCreatesMinPages(t *testing.T) {
	pp, _ := testPool(t, PagePoolConfig{MinPages: 2, HardMax: 4})
	if pp.Size() != 2 {
		t.Errorf("size = %d, want 2", pp.Size())
	}
	if pp.ActiveCount() != 0 {
		t.Errorf("active = %d, want 0", pp.ActiveCount())
	}
}

func TestPagePool_GetPut(t *testing.T) {
	pp, _ := testPool(t, PagePoolConfig{MinPages: 1, HardMax: 2})

	h, err := pp.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pp.ActiveCount() != 1 {
		t.Errorf("active = %d, want 1", pp.ActiveCount())
	}

	pp.Put(h, true)
	if pp.ActiveCount() != 0 {
		t.Errorf("active after Put = %d, want 0", pp.ActiveCount())
	}
	if pp.Size() != 1 {
		t.Errorf("size = %d, want 1", pp.Size())
	}
}

func TestPagePool_GrowsUpToHardMax(t *testing.T) {
	pp, _ := testPool(t, PagePoolConfig{MinPages: 1, HardMax: 2})

	a, err := pp.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := pp.Get(context.Background())
	if err != nil {
		t.Fatalf("second Get should create a page under the hard max: %v", err)
	}
	if pp.Size() != 2 || pp.ActiveCount() != 2 {
		t.Errorf("size = %d active = %d, want 2 and 2", pp.Size(), pp.ActiveCount())
	}
	pp.Put(a, true)
	pp.Put(b, true)
}

func TestPagePool_GetBlocksAtHardMaxUntilCancel(t *testing.T) {
	pp, _ := testPool(t, PagePoolConfig{MinPages: 1, HardMax: 1})

	h, err := pp.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer pp.Put(h, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pp.Get(ctx); err == nil {
		t.Error("Get at hard max should fail when the context expires")
	}
}

func TestPagePool_RetiresUnhealthyPages(t *testing.T) {
	pp, destroyed := testPool(t, PagePoolConfig{MinPages: 1, HardMax: 2})

	// Three consecutive failures push the error score to the retire line.
	var h *PageHandle
	var err error
	for i := 0; i < 3; i++ {
		h, err = pp.Get(context.Background())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		pp.Put(h, false)
	}

	if *destroyed != 1 {
		t.Errorf("destroyed = %d, want the unhealthy page retired", *destroyed)
	}
	// The pool replaces the retired page to stay at minimum.
	if pp.Size() != 1 {
		t.Errorf("size = %d, want 1 after replacement", pp.Size())
	}
}

func TestPagePool_SuccessOffsetsFailures(t *testing.T) {
	h := newPageHandle(1, &rod.Page{})
	h.recordFailure()
	h.recordFailure()
	h.recordSuccess()
	h.recordFailure()
	// Score 2.5 stays under the retire line of 3.
	if h.shouldRetire() {
		t.Error("page retired despite recovering successes")
	}
	h.recordFailure()
	if !h.shouldRetire() {
		t.Error("page not retired after repeated failures")
	}
}
