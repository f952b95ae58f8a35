package pdfops

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writeTestImage(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := imaging.New(64, 64, c)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
}

func readHeader(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	buf := make([]byte, 5)
	if _, err := f.Read(buf); err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(buf)
}

func TestImagesToPDFMergeCompress(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	img1 := filepath.Join(dir, "a.png")
	img2 := filepath.Join(dir, "b.jpg")
	writeTestImage(t, img1, color.NRGBA{R: 255, A: 255})
	writeTestImage(t, img2, color.NRGBA{B: 255, A: 255})

	pdfPath := filepath.Join(dir, "images.pdf")
	if err := ImagesToPDF(ctx, []string{img1, img2}, pdfPath); err != nil {
		t.Fatalf("ImagesToPDF failed: %v", err)
	}
	if got := readHeader(t, pdfPath); got != "%PDF-" {
		t.Fatalf("expected PDF header, got %q", got)
	}

	merged := filepath.Join(dir, "merged.pdf")
	if err := Merge(ctx, []string{pdfPath, pdfPath}, merged); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got := readHeader(t, merged); got != "%PDF-" {
		t.Fatalf("expected PDF header on merged file, got %q", got)
	}

	compressed := filepath.Join(dir, "compressed.pdf")
	if err := Compress(ctx, merged, compressed); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if got := readHeader(t, compressed); got != "%PDF-" {
		t.Fatalf("expected PDF header on compressed file, got %q", got)
	}
}

func TestImagesToPDFSkipsUnreadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	good := filepath.Join(dir, "good.png")
	writeTestImage(t, good, color.NRGBA{G: 255, A: 255})

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatalf("write bad image: %v", err)
	}

	out := filepath.Join(dir, "out.pdf")
	if err := ImagesToPDF(ctx, []string{bad, good}, out); err != nil {
		t.Fatalf("ImagesToPDF failed: %v", err)
	}
	if got := readHeader(t, out); got != "%PDF-" {
		t.Fatalf("expected PDF header, got %q", got)
	}
}

func TestImagesToPDFAllUnreadable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatalf("write bad image: %v", err)
	}

	if err := ImagesToPDF(ctx, []string{bad}, filepath.Join(dir, "out.pdf")); err == nil {
		t.Fatal("expected error when no image is readable")
	}
}
