package stats

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tendant/doc-convert-pipeline/internal/cache"
	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// countingCounter records how often the durable counter is bumped
type countingCounter struct {
	mu sync.Mutex
	n  int64
}

func (c *countingCounter) Increment(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n, nil
}

func TestRecordCounts(t *testing.T) {
	ctx := context.Background()
	a := New(cache.Noop{})

	a.Record(ctx, true, convert.OpConvert, 100*time.Millisecond)
	a.Record(ctx, true, convert.OpConvert, 200*time.Millisecond)
	a.Record(ctx, false, convert.OpMerge, 50*time.Millisecond)

	snap := a.Snapshot()
	if snap.TotalConversions != 3 {
		t.Errorf("total = %d, want 3", snap.TotalConversions)
	}
	if snap.SuccessfulConversions != 2 {
		t.Errorf("success = %d, want 2", snap.SuccessfulConversions)
	}
	if snap.FailedConversions != 1 {
		t.Errorf("failure = %d, want 1", snap.FailedConversions)
	}
	if snap.OperationUsage[convert.OpConvert] != 2 || snap.OperationUsage[convert.OpMerge] != 1 {
		t.Errorf("unexpected usage map: %v", snap.OperationUsage)
	}
}

func TestRunningMeanCoversAllOutcomes(t *testing.T) {
	ctx := context.Background()
	a := New(cache.Noop{})

	// Mean over successes AND failures: (100+200+600)/3 = 300
	a.Record(ctx, true, convert.OpConvert, 100*time.Millisecond)
	a.Record(ctx, false, convert.OpConvert, 200*time.Millisecond)
	a.Record(ctx, true, convert.OpConvert, 600*time.Millisecond)

	snap := a.Snapshot()
	if math.Abs(snap.AverageProcessingMS-300) > 0.001 {
		t.Errorf("mean = %f, want 300", snap.AverageProcessingMS)
	}
}

func TestRecordMirrorsDurableCounter(t *testing.T) {
	ctx := context.Background()
	counter := &countingCounter{}
	a := New(counter)

	for i := 0; i < 5; i++ {
		a.Record(ctx, true, convert.OpConvert, time.Millisecond)
	}

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.n != 5 {
		t.Errorf("durable counter = %d, want 5", counter.n)
	}
}

func TestRecordConcurrent(t *testing.T) {
	ctx := context.Background()
	a := New(cache.Noop{})

	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Record(ctx, w%2 == 0, convert.OpConvert, 10*time.Millisecond)
			}
		}(w)
	}
	wg.Wait()

	snap := a.Snapshot()
	if snap.TotalConversions != workers*perWorker {
		t.Errorf("total = %d, want %d", snap.TotalConversions, workers*perWorker)
	}
	if snap.SuccessfulConversions != workers/2*perWorker {
		t.Errorf("success = %d, want %d", snap.SuccessfulConversions, workers/2*perWorker)
	}
	if math.Abs(snap.AverageProcessingMS-10) > 0.001 {
		t.Errorf("mean = %f, want 10", snap.AverageProcessingMS)
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	ctx := context.Background()
	a := New(cache.Noop{})
	a.Record(ctx, true, convert.OpConvert, time.Millisecond)

	snap := a.Snapshot()
	snap.OperationUsage[convert.OpConvert] = 999

	if got := a.Snapshot().OperationUsage[convert.OpConvert]; got != 1 {
		t.Errorf("snapshot mutation leaked into aggregator: %d", got)
	}
}
