package models

import (
	"sync"
	"testing"
)

func TestBatchJob_ConcurrentWritesAndSnapshots(t *testing.T) {
	const total = 40
	job := NewBatchJob("batch-1", total, "")

	// Snapshot continuously while workers record results, the access pattern
	// of a client polling GET /batch/:id during processing.
	done := make(chan struct{})
	var poller sync.WaitGroup
	poller.Add(1)
	go func() {
		defer poller.Done()
		for {
			select {
			case <-done:
				return
			default:
				snap := job.Snapshot()
				if snap.Completed > snap.Total {
					t.Errorf("completed %d exceeds total %d", snap.Completed, snap.Total)
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			job.SetResult(idx, &ScrapeResponse{Success: idx%2 == 0})
		}(i)
	}
	wg.Wait()
	job.Finish("completed")
	close(done)
	poller.Wait()

	snap := job.Snapshot()
	if snap.Status != "completed" || snap.Completed != total {
		t.Errorf("status = %q completed = %d, want completed/%d", snap.Status, snap.Completed, total)
	}
	for i, r := range snap.Results {
		if r == nil {
			t.Fatalf("result %d missing", i)
		}
	}
}

func TestBatchJob_SnapshotIsDetached(t *testing.T) {
	job := NewBatchJob("batch-2", 2, "")
	job.SetResult(0, &ScrapeResponse{Success: true})

	snap := job.Snapshot()
	job.SetResult(1, &ScrapeResponse{Success: false})

	if snap.Completed != 1 || snap.Results[1] != nil {
		t.Errorf("snapshot mutated by later writes: completed = %d, results[1] = %v",
			snap.Completed, snap.Results[1])
	}
}
