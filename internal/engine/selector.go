package engine

import (
	"errors"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// ErrNoEngineAvailable is returned when no conversion engine can run
var ErrNoEngineAvailable = errors.New("no conversion engine available")

// fallbackOrder fixes the substitution order so selection is deterministic
var fallbackOrder = []convert.EngineKind{
	convert.EngineStandard,
	convert.EngineHighQuality,
}

// Select picks the engine kind to run for a request. Pure function: the
// requested kind wins if available, otherwise the first available
// alternative in fallback order, otherwise ErrNoEngineAvailable.
func Select(requested convert.EngineKind, avail map[convert.EngineKind]bool) (convert.EngineKind, error) {
	if avail[requested] {
		return requested, nil
	}
	for _, kind := range fallbackOrder {
		if kind != requested && avail[kind] {
			return kind, nil
		}
	}
	return "", ErrNoEngineAvailable
}
