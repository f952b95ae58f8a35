// Package pipeline drives a conversion request end to end: validate,
// fingerprint, cache check, engine invocation, post-processing, cache
// store, and input cleanup.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/doc-convert-pipeline/internal/cache"
	"github.com/tendant/doc-convert-pipeline/internal/engine"
	"github.com/tendant/doc-convert-pipeline/internal/fingerprint"
	"github.com/tendant/doc-convert-pipeline/internal/pdfops"
	"github.com/tendant/doc-convert-pipeline/internal/stats"
	"github.com/tendant/doc-convert-pipeline/internal/storage"
	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// allowedExtensions is the accepted set for uploads
var allowedExtensions = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// FileStore is the file access the orchestrator needs from a store
type FileStore interface {
	storage.Store
	storage.Stager

	// Path returns the visible on-disk path for name
	Path(name string) (string, error)
}

// PostProcessor applies best-effort layout normalization to a produced
// document
type PostProcessor interface {
	Apply(path string) error
}

// UsageLedger records successful conversions durably
type UsageLedger interface {
	Record(ctx context.Context, fingerprint string, operation string) (int, error)
}

// Upload is one file received from a request
type Upload struct {
	Name   string
	Reader io.Reader
}

// Result describes a completed operation
type Result struct {
	Filename string
	Engine   convert.EngineKind
	Cached   bool
	Elapsed  time.Duration
}

// Orchestrator owns one request's state machine. Stateless between
// requests; safe for concurrent use.
type Orchestrator struct {
	uploads   FileStore
	artifacts FileStore
	cache     cache.ResultCache
	engines   *engine.Registry
	post      PostProcessor
	stats     *stats.Aggregator
	ledger    UsageLedger
}

// NewOrchestrator wires the pipeline. ledger may be nil.
func NewOrchestrator(uploads, artifacts FileStore, resultCache cache.ResultCache, engines *engine.Registry, post PostProcessor, aggregator *stats.Aggregator, ledger UsageLedger) *Orchestrator {
	return &Orchestrator{
		uploads:   uploads,
		artifacts: artifacts,
		cache:     resultCache,
		engines:   engines,
		post:      post,
		stats:     aggregator,
		ledger:    ledger,
	}
}

// Convert runs the full PDF-to-Word pipeline for one upload
func (o *Orchestrator) Convert(ctx context.Context, up Upload, requested convert.EngineKind) (*Result, error) {
	start := time.Now()
	runID := shortID()
	success := false
	defer func() {
		o.stats.Record(ctx, success, convert.OpConvert, time.Since(start))
	}()

	if !requested.Valid() {
		requested = convert.EngineStandard
	}
	log.Printf("[%s] convert request: file=%s engine=%s", runID, up.Name, requested)

	inputName, err := o.saveUpload(ctx, up)
	if err != nil {
		return nil, err
	}
	defer o.deleteInput(ctx, runID, inputName)

	inPath, err := o.uploads.Path(inputName)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint.ComputeFile(inPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint failed: %w", err)
	}

	if name, ok := o.cache.Lookup(ctx, fp, string(requested)); ok {
		log.Printf("[%s] cache hit: fingerprint=%s artifact=%s", runID, fp, name)
		success = true
		return &Result{
			Filename: name,
			Engine:   requested,
			Cached:   true,
			Elapsed:  time.Since(start),
		}, nil
	}

	eng, effective, err := o.engines.Select(requested)
	if err != nil {
		return nil, err
	}
	if effective != requested {
		log.Printf("[%s] engine %s unavailable, falling back to %s", runID, requested, effective)
	}

	outName := replaceExt(inputName, ".docx")
	staged, err := o.artifacts.StagingPath(outName)
	if err != nil {
		return nil, err
	}

	if err := eng.Convert(ctx, inPath, staged); err != nil {
		o.discardStaged(outName)
		return nil, &EngineFailure{Engine: effective, Err: err}
	}

	// Cosmetic RTL pass; the artifact stays valid if it fails
	if err := o.post.Apply(staged); err != nil {
		log.Printf("[%s] post-processing skipped: %v", runID, err)
	}

	if err := o.artifacts.Promote(ctx, outName); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	o.cache.Store(ctx, fp, string(effective), outName)

	if o.ledger != nil {
		seen, err := o.ledger.Record(ctx, fp, convert.OpConvert)
		if err != nil {
			log.Printf("[%s] ledger update failed: %v", runID, err)
		} else {
			log.Printf("[%s] ledger: fingerprint=%s seen=%d", runID, fp, seen)
		}
	}

	elapsed := time.Since(start)
	log.Printf("[%s] conversion completed: artifact=%s engine=%s elapsed=%s", runID, outName, effective, elapsed.Round(time.Millisecond))
	success = true
	return &Result{
		Filename: outName,
		Engine:   effective,
		Cached:   false,
		Elapsed:  elapsed,
	}, nil
}

// ToImage extracts the page images of a PDF into a zip archive
func (o *Orchestrator) ToImage(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	runID := shortID()
	success := false
	defer func() {
		o.stats.Record(ctx, success, convert.OpToImage, time.Since(start))
	}()

	if ext(up.Name) != "pdf" {
		return nil, ErrUnsupportedFormat
	}

	inputName, err := o.saveUpload(ctx, up)
	if err != nil {
		return nil, err
	}
	defer o.deleteInput(ctx, runID, inputName)

	inPath, err := o.uploads.Path(inputName)
	if err != nil {
		return nil, err
	}

	outName := replaceExt(inputName, ".zip")
	staged, err := o.artifacts.StagingPath(outName)
	if err != nil {
		return nil, err
	}

	if err := pdfops.ExtractPagesToZip(ctx, inPath, staged); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("page extraction failed: %w", err)
	}

	if err := o.artifacts.Promote(ctx, outName); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	log.Printf("[%s] pdf exported to images: artifact=%s", runID, outName)
	success = true
	return &Result{Filename: outName, Elapsed: time.Since(start)}, nil
}

// FromImage combines uploaded images into a single PDF
func (o *Orchestrator) FromImage(ctx context.Context, ups []Upload) (*Result, error) {
	start := time.Now()
	runID := shortID()
	success := false
	defer func() {
		o.stats.Record(ctx, success, convert.OpFromImage, time.Since(start))
	}()

	if len(ups) == 0 {
		return nil, ErrEmptySubmission
	}

	saved, paths, err := o.saveUploads(ctx, ups, imageExtensions)
	defer o.deleteInputs(ctx, runID, saved)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &ValidationError{Reason: "no valid images provided"}
	}

	outName := uniqueName("images_merged.pdf")
	staged, err := o.artifacts.StagingPath(outName)
	if err != nil {
		return nil, err
	}

	if err := pdfops.ImagesToPDF(ctx, paths, staged); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("image import failed: %w", err)
	}

	if err := o.artifacts.Promote(ctx, outName); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	log.Printf("[%s] images combined into pdf: artifact=%s count=%d", runID, outName, len(paths))
	success = true
	return &Result{Filename: outName, Elapsed: time.Since(start)}, nil
}

// Merge combines two or more uploaded PDFs into one
func (o *Orchestrator) Merge(ctx context.Context, ups []Upload) (*Result, error) {
	start := time.Now()
	runID := shortID()
	success := false
	defer func() {
		o.stats.Record(ctx, success, convert.OpMerge, time.Since(start))
	}()

	if len(ups) < 2 {
		return nil, &ValidationError{Reason: "merge requires at least two PDF files"}
	}

	saved, paths, err := o.saveUploads(ctx, ups, map[string]bool{"pdf": true})
	defer o.deleteInputs(ctx, runID, saved)
	if err != nil {
		return nil, err
	}
	if len(paths) < 2 {
		return nil, &ValidationError{Reason: "merge requires at least two PDF files"}
	}

	outName := uniqueName("merged.pdf")
	staged, err := o.artifacts.StagingPath(outName)
	if err != nil {
		return nil, err
	}

	if err := pdfops.Merge(ctx, paths, staged); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	if err := o.artifacts.Promote(ctx, outName); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	log.Printf("[%s] pdfs merged: artifact=%s count=%d", runID, outName, len(paths))
	success = true
	return &Result{Filename: outName, Elapsed: time.Since(start)}, nil
}

// Compress rewrites a PDF with optimized streams
func (o *Orchestrator) Compress(ctx context.Context, up Upload) (*Result, error) {
	start := time.Now()
	runID := shortID()
	success := false
	defer func() {
		o.stats.Record(ctx, success, convert.OpCompress, time.Since(start))
	}()

	if ext(up.Name) != "pdf" {
		return nil, ErrUnsupportedFormat
	}

	inputName, err := o.saveUpload(ctx, up)
	if err != nil {
		return nil, err
	}
	defer o.deleteInput(ctx, runID, inputName)

	inPath, err := o.uploads.Path(inputName)
	if err != nil {
		return nil, err
	}

	outName := "compressed_" + inputName
	staged, err := o.artifacts.StagingPath(outName)
	if err != nil {
		return nil, err
	}

	if err := pdfops.Compress(ctx, inPath, staged); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	if err := o.artifacts.Promote(ctx, outName); err != nil {
		o.discardStaged(outName)
		return nil, fmt.Errorf("failed to publish artifact: %w", err)
	}

	log.Printf("[%s] pdf compressed: artifact=%s", runID, outName)
	success = true
	return &Result{Filename: outName, Elapsed: time.Since(start)}, nil
}

// saveUpload validates and stores one upload under a collision-resistant
// name
func (o *Orchestrator) saveUpload(ctx context.Context, up Upload) (string, error) {
	if up.Reader == nil || up.Name == "" {
		return "", ErrEmptySubmission
	}
	if !allowedExtensions[ext(up.Name)] {
		return "", ErrUnsupportedFormat
	}

	br := bufio.NewReader(up.Reader)
	if _, err := br.Peek(1); err != nil {
		if err == io.EOF {
			return "", ErrEmptySubmission
		}
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	name := uniqueName(up.Name)
	if err := o.uploads.Write(ctx, name, br); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return name, nil
}

// saveUploads stores every upload whose extension is in accepted, skipping
// the rest. Returns the stored names and their on-disk paths.
func (o *Orchestrator) saveUploads(ctx context.Context, ups []Upload, accepted map[string]bool) ([]string, []string, error) {
	var names, paths []string
	for _, up := range ups {
		if up.Reader == nil || !accepted[ext(up.Name)] {
			continue
		}
		name := uniqueName(up.Name)
		if err := o.uploads.Write(ctx, name, up.Reader); err != nil {
			return names, paths, fmt.Errorf("failed to store upload: %w", err)
		}
		names = append(names, name)
		path, err := o.uploads.Path(name)
		if err != nil {
			return names, paths, err
		}
		paths = append(paths, path)
	}
	return names, paths, nil
}

func (o *Orchestrator) deleteInput(ctx context.Context, runID, name string) {
	if err := o.uploads.Delete(ctx, name); err != nil {
		log.Printf("[%s] failed to delete upload %s: %v", runID, name, err)
	}
}

func (o *Orchestrator) deleteInputs(ctx context.Context, runID string, names []string) {
	for _, name := range names {
		o.deleteInput(ctx, runID, name)
	}
}

func (o *Orchestrator) discardStaged(name string) {
	if err := o.artifacts.DiscardStaged(name); err != nil {
		log.Printf("failed to discard staged output %s: %v", name, err)
	}
}

func shortID() string {
	return uuid.New().String()[:8]
}

func ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// uniqueName sanitizes the original filename and appends a per-upload
// suffix so concurrent uploads of same-named files never collide
func uniqueName(original string) string {
	base := filepath.Base(original)
	e := filepath.Ext(base)
	name := strings.TrimSuffix(base, e)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "document"
	}

	return fmt.Sprintf("%s_%s%s", cleaned, shortID(), strings.ToLower(e))
}

func replaceExt(name, newExt string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + newExt
}
