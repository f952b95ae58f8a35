// Package engine holds the pluggable PDF-to-Word conversion engines and the
// selection logic that picks one per request.
package engine

import (
	"context"
	"log"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// Engine converts a stored input file into an output file. One
// implementation exists per EngineKind; internals are opaque to the
// pipeline.
type Engine interface {
	// Kind returns the engine identifier
	Kind() convert.EngineKind

	// Probe reports whether the engine can run. Called once at startup;
	// the result is treated as read-only afterwards.
	Probe(ctx context.Context) bool

	// Convert converts the file at inputPath and writes the result to
	// outputPath
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// Registry is the dispatch table from EngineKind to engine implementation.
// Availability is probed once at construction and never mutated, so reads
// are safe from any goroutine.
type Registry struct {
	engines map[convert.EngineKind]Engine
	avail   map[convert.EngineKind]bool
}

// NewRegistry probes each engine once and records its availability
func NewRegistry(ctx context.Context, engines ...Engine) *Registry {
	r := &Registry{
		engines: make(map[convert.EngineKind]Engine),
		avail:   make(map[convert.EngineKind]bool),
	}
	for _, e := range engines {
		r.engines[e.Kind()] = e
		r.avail[e.Kind()] = e.Probe(ctx)
		log.Printf("engine %s available=%v", e.Kind(), r.avail[e.Kind()])
	}
	return r
}

// Availability returns a copy of the engine availability flags
func (r *Registry) Availability() map[convert.EngineKind]bool {
	out := make(map[convert.EngineKind]bool, len(r.avail))
	for k, v := range r.avail {
		out[k] = v
	}
	return out
}

// Select resolves the requested kind against availability and returns the
// engine to run together with its effective kind. The effective kind must
// be reported back to the caller when it differs from the requested one.
func (r *Registry) Select(requested convert.EngineKind) (Engine, convert.EngineKind, error) {
	effective, err := Select(requested, r.avail)
	if err != nil {
		return nil, "", err
	}
	return r.engines[effective], effective, nil
}
