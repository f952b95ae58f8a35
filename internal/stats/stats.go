// Package stats aggregates conversion counters under concurrent access.
package stats

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/doc-convert-pipeline/internal/cache"
	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// durableCounterKey mirrors the total count into the external counter so it
// survives process restarts
const durableCounterKey = "docconvert:total_conversions"

// Aggregator owns all conversion statistics. Safe for concurrent use; the
// only write path is Record.
type Aggregator struct {
	mu      sync.Mutex
	total   int64
	success int64
	failure int64
	usage   map[string]int64
	meanMS  float64

	counter   cache.Counter
	startedAt time.Time

	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// New creates an aggregator mirroring totals into counter
func New(counter cache.Counter) *Aggregator {
	a := &Aggregator{
		usage:     make(map[string]int64),
		counter:   counter,
		startedAt: time.Now(),
		registry:  prometheus.NewRegistry(),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docconvert",
			Name:      "conversions_total",
			Help:      "Conversion requests by operation and outcome.",
		}, []string{"operation", "success"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docconvert",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing a request.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	a.registry.MustRegister(a.conversions, a.duration)
	return a
}

// Registry exposes the Prometheus registry for the /metrics endpoint
func (a *Aggregator) Registry() *prometheus.Registry {
	return a.registry
}

// Record adds one request outcome. Called exactly once per request,
// success or failure. The running mean covers all requests, not only
// successes.
func (a *Aggregator) Record(ctx context.Context, success bool, operation string, elapsed time.Duration) {
	a.mu.Lock()
	a.total++
	if success {
		a.success++
	} else {
		a.failure++
	}
	a.usage[operation]++
	a.meanMS += (float64(elapsed.Milliseconds()) - a.meanMS) / float64(a.total)
	a.mu.Unlock()

	a.conversions.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	a.duration.Observe(elapsed.Seconds())

	if _, err := a.counter.Increment(ctx, durableCounterKey); err != nil {
		log.Printf("durable counter update failed: %v", err)
	}
}

// Snapshot returns a copy of the current statistics
func (a *Aggregator) Snapshot() convert.StatsResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	usage := make(map[string]int64, len(a.usage))
	for op, n := range a.usage {
		usage[op] = n
	}

	return convert.StatsResponse{
		TotalConversions:      a.total,
		SuccessfulConversions: a.success,
		FailedConversions:     a.failure,
		AverageProcessingMS:   a.meanMS,
		OperationUsage:        usage,
		Uptime:                time.Since(a.startedAt).Round(time.Second).String(),
	}
}
