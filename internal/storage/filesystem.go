package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const stagingDir = ".staging"

// FilesystemStore implements Store on a local directory
type FilesystemStore struct {
	baseDir string
}

// NewFilesystemStore creates a filesystem store rooted at baseDir
func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	// Ensure base and staging directories exist
	if err := os.MkdirAll(filepath.Join(baseDir, stagingDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the directory the store is rooted at
func (fs *FilesystemStore) BaseDir() string {
	return fs.baseDir
}

// path resolves a name inside the base directory, rejecting traversal and
// nested names
func (fs *FilesystemStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid name: %q", name)
	}

	path := filepath.Join(fs.baseDir, name)

	// Security: prevent directory traversal
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(fs.baseDir)) {
		return "", fmt.Errorf("invalid name: path traversal detected")
	}

	return path, nil
}

// Write stores content under the given name
func (fs *FilesystemStore) Write(ctx context.Context, name string, r io.Reader) error {
	// Write into staging first so readers never observe a partial file
	staged, err := fs.StagingPath(name)
	if err != nil {
		return err
	}

	f, err := os.Create(staged)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(staged)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return fmt.Errorf("failed to close file: %w", err)
	}

	return fs.Promote(ctx, name)
}

// GetReader returns a reader for the file at the given name
func (fs *FilesystemStore) GetReader(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := fs.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", name)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Exists checks if a file exists at the given name
func (fs *FilesystemStore) Exists(ctx context.Context, name string) (bool, error) {
	path, err := fs.path(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return true, nil
}

// Delete removes the file at the given name
func (fs *FilesystemStore) Delete(ctx context.Context, name string) error {
	path, err := fs.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List returns every visible file with its age. Staged files are excluded.
func (fs *FilesystemStore) List(ctx context.Context) ([]FileInfo, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	now := time.Now()
	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name(),
			Age:  now.Sub(info.ModTime()),
		})
	}

	return files, nil
}

// StagingPath returns a writable path for name under the hidden staging
// directory
func (fs *FilesystemStore) StagingPath(name string) (string, error) {
	if _, err := fs.path(name); err != nil {
		return "", err
	}
	return filepath.Join(fs.baseDir, stagingDir, name), nil
}

// Promote renames a staged file into the visible namespace
func (fs *FilesystemStore) Promote(ctx context.Context, name string) error {
	path, err := fs.path(name)
	if err != nil {
		return err
	}

	staged := filepath.Join(fs.baseDir, stagingDir, name)
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("failed to promote staged file: %w", err)
	}

	return nil
}

// DiscardStaged removes a staged file that will not be promoted
func (fs *FilesystemStore) DiscardStaged(name string) error {
	staged, err := fs.StagingPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to discard staged file: %w", err)
	}

	return nil
}

// Path returns the visible on-disk path for name. Used by components that
// hand files to external tools by path.
func (fs *FilesystemStore) Path(name string) (string, error) {
	return fs.path(name)
}
