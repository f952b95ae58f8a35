// Package pdfops implements the PDF page operations behind the to-image,
// from-image, merge, and compress endpoints.
package pdfops

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ExtractPagesToZip pulls the page images out of the PDF at pdfPath and
// bundles them into a zip archive at zipPath
func ExtractPagesToZip(ctx context.Context, pdfPath, zipPath string) error {
	tmpDir, err := os.MkdirTemp("", "docconvert-pages-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractImagesFile(pdfPath, tmpDir, nil, configuration()); err != nil {
		return fmt.Errorf("image extraction failed: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return fmt.Errorf("failed to read extracted images: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("document contains no extractable images")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to add zip entry: %w", err)
		}
		f, err := os.Open(filepath.Join(tmpDir, name))
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to open extracted image: %w", err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to write zip entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to finalize zip: %w", err)
	}

	return out.Close()
}

// ImagesToPDF normalizes the given images and combines them into a single
// PDF at outPath. Unreadable images are skipped; at least one readable
// image is required.
func ImagesToPDF(ctx context.Context, imagePaths []string, outPath string) error {
	tmpDir, err := os.MkdirTemp("", "docconvert-images-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// Re-encode every input as JPEG so mixed formats and alpha channels
	// import cleanly
	var normalized []string
	for i, p := range imagePaths {
		img, err := imaging.Open(p, imaging.AutoOrientation(true))
		if err != nil {
			log.Printf("skipping unreadable image %s: %v", filepath.Base(p), err)
			continue
		}
		jpgPath := filepath.Join(tmpDir, fmt.Sprintf("page_%03d.jpg", i+1))
		if err := imaging.Save(img, jpgPath, imaging.JPEGQuality(90)); err != nil {
			log.Printf("skipping image %s: %v", filepath.Base(p), err)
			continue
		}
		normalized = append(normalized, jpgPath)
	}

	if len(normalized) == 0 {
		return fmt.Errorf("no readable images provided")
	}

	if err := api.ImportImagesFile(normalized, outPath, nil, configuration()); err != nil {
		return fmt.Errorf("image import failed: %w", err)
	}

	return nil
}

// Merge combines the given PDFs, in order, into a single PDF at outPath
func Merge(ctx context.Context, inputPaths []string, outPath string) error {
	if err := api.MergeCreateFile(inputPaths, outPath, false, configuration()); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	return nil
}

// Compress rewrites the PDF at inPath with optimized object streams
func Compress(ctx context.Context, inPath, outPath string) error {
	if err := api.OptimizeFile(inPath, outPath, configuration()); err != nil {
		return fmt.Errorf("optimize failed: %w", err)
	}
	return nil
}
