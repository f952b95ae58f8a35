package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes a stored file and its age, derived from the
// modification time
type FileInfo struct {
	Name string
	Age  time.Duration
}

// Store provides access to a flat namespace of stored files
type Store interface {
	// Write stores content under the given name, replacing any existing file
	Write(ctx context.Context, name string, r io.Reader) error

	// GetReader returns a reader for the file at the given name
	GetReader(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists checks if a file exists at the given name
	Exists(ctx context.Context, name string) (bool, error)

	// Delete removes the file at the given name
	Delete(ctx context.Context, name string) error

	// List returns every visible file together with its age
	List(ctx context.Context) ([]FileInfo, error)
}

// Stager is implemented by stores that support writing a file out of sight
// and publishing it atomically. Files under a staging path are never
// returned by Exists or List until promoted.
type Stager interface {
	// StagingPath returns a writable path for the given name that is not
	// yet visible in the store's namespace
	StagingPath(name string) (string, error)

	// Promote makes a previously staged file visible under its name
	Promote(ctx context.Context, name string) error

	// DiscardStaged removes a staged file that will not be promoted
	DiscardStaged(name string) error
}
