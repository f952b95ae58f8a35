package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tendant/doc-convert-pipeline/internal/storage"
)

func writeAged(t *testing.T, fs *storage.FilesystemStore, name string, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	if err := fs.Write(ctx, name, strings.NewReader("content")); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	ts := time.Now().Add(-age)
	if err := os.Chtimes(filepath.Join(fs.BaseDir(), name), ts, ts); err != nil {
		t.Fatalf("age %s: %v", name, err)
	}
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	fs, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}

	writeAged(t, fs, "young.pdf", 30*time.Minute)
	writeAged(t, fs, "expired.pdf", 61*time.Minute)
	writeAged(t, fs, "ancient.pdf", 90*time.Minute)

	s := New(60*time.Minute, time.Minute, fs)
	s.Sweep(ctx)

	for name, want := range map[string]bool{
		"young.pdf":   true,
		"expired.pdf": false,
		"ancient.pdf": false,
	} {
		exists, err := fs.Exists(ctx, name)
		if err != nil {
			t.Fatalf("Exists(%s): %v", name, err)
		}
		if exists != want {
			t.Errorf("%s: exists=%v, want %v", name, exists, want)
		}
	}
}

func TestSweepCoversAllStores(t *testing.T) {
	ctx := context.Background()
	uploads, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}
	artifacts, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}

	writeAged(t, uploads, "stale-upload.pdf", 2*time.Hour)
	writeAged(t, artifacts, "stale-artifact.docx", 2*time.Hour)

	s := New(time.Hour, time.Minute, uploads, artifacts)
	s.Sweep(ctx)

	if exists, _ := uploads.Exists(ctx, "stale-upload.pdf"); exists {
		t.Error("stale upload survived sweep")
	}
	if exists, _ := artifacts.Exists(ctx, "stale-artifact.docx"); exists {
		t.Error("stale artifact survived sweep")
	}
}

func TestStartStop(t *testing.T) {
	fs, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore failed: %v", err)
	}

	s := New(time.Hour, 10*time.Millisecond, fs)
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent
}
