// Package cache provides the content-addressed result cache and the durable
// conversion counter.
//
// The cache is best-effort by contract: every backend failure is swallowed
// and logged, degrading the pipeline to recompute-every-time. It is never
// allowed to fail a conversion.
package cache

import "context"

// ResultCache maps (fingerprint, engine) to the name of a produced artifact
type ResultCache interface {
	// Lookup returns the cached artifact name for the given fingerprint and
	// engine. A hit requires an unexpired entry whose artifact still exists
	// in the artifact store; anything else is a miss.
	Lookup(ctx context.Context, fingerprint, engine string) (string, bool)

	// Store records an artifact name for the given fingerprint and engine
	// with a fresh TTL. Idempotent and last-writer-wins.
	Store(ctx context.Context, fingerprint, engine, artifactName string)

	// Available reports whether a real backend is connected
	Available() bool
}

// Counter is a durable counter surviving process restarts
type Counter interface {
	// Increment adds one to the named counter and returns the new value
	Increment(ctx context.Context, name string) (int64, error)
}

// Noop is a ResultCache and Counter used when no backend is configured.
// Lookups always miss, stores do nothing, increments report zero.
type Noop struct{}

func (Noop) Lookup(ctx context.Context, fingerprint, engine string) (string, bool) {
	return "", false
}

func (Noop) Store(ctx context.Context, fingerprint, engine, artifactName string) {}

func (Noop) Available() bool { return false }

func (Noop) Increment(ctx context.Context, name string) (int64, error) {
	return 0, nil
}
