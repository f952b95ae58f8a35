// Package sweeper enforces time-based retention on the upload and artifact
// stores.
package sweeper

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tendant/doc-convert-pipeline/internal/storage"
)

// Sweeper periodically deletes files older than the retention window. It
// runs independently of request handling and communicates with it only
// through file timestamps: anything younger than the window is by
// construction still inside some request's processing time and is left
// alone.
type Sweeper struct {
	stores    []storage.Store
	retention time.Duration
	interval  time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a sweeper over the given stores
func New(retention, interval time.Duration, stores ...storage.Store) *Sweeper {
	return &Sweeper{
		stores:    stores,
		retention: retention,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (s *Sweeper) Start() {
	go s.run()
}

// Stop halts the loop and waits for an in-progress sweep to finish
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one retention cycle over every store. Deletion is best-effort
// per file: one failure never aborts the rest of the cycle.
func (s *Sweeper) Sweep(ctx context.Context) {
	for _, store := range s.stores {
		files, err := store.List(ctx)
		if err != nil {
			log.Printf("sweep: list failed: %v", err)
			continue
		}

		for _, f := range files {
			if f.Age <= s.retention {
				continue
			}
			if err := store.Delete(ctx, f.Name); err != nil {
				log.Printf("sweep: failed to delete %s: %v", f.Name, err)
				continue
			}
			log.Printf("sweep: deleted %s (age %s)", f.Name, f.Age.Round(time.Second))
		}
	}
}
