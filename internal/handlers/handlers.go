// Package handlers exposes the conversion pipeline over HTTP: multipart
// uploads in, JSON envelopes and downloadable artifacts out.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/doc-convert-pipeline/internal/cache"
	"github.com/tendant/doc-convert-pipeline/internal/engine"
	"github.com/tendant/doc-convert-pipeline/internal/pipeline"
	"github.com/tendant/doc-convert-pipeline/internal/stats"
	"github.com/tendant/doc-convert-pipeline/internal/storage"
	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// Handler serves the HTTP surface of the conversion service
type Handler struct {
	orch           *pipeline.Orchestrator
	artifacts      storage.Store
	engines        *engine.Registry
	cache          cache.ResultCache
	stats          *stats.Aggregator
	maxUploadBytes int64
}

// New wires the HTTP boundary to the pipeline
func New(orch *pipeline.Orchestrator, artifacts storage.Store, engines *engine.Registry, resultCache cache.ResultCache, aggregator *stats.Aggregator, maxUploadBytes int64) *Handler {
	return &Handler{
		orch:           orch,
		artifacts:      artifacts,
		engines:        engines,
		cache:          resultCache,
		stats:          aggregator,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes builds the service router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.HandleIndex)
	r.Get("/health", h.HandleHealth)
	r.Get("/stats", h.HandleStats)
	r.Get("/download/{filename}", h.HandleDownload)
	r.Post("/convert", h.HandleConvert)
	r.Post("/convert/to-image", h.HandleToImage)
	r.Post("/convert/from-image", h.HandleFromImage)
	r.Post("/merge", h.HandleMerge)
	r.Post("/compress", h.HandleCompress)
	r.Handle("/metrics", promhttp.HandlerFor(h.stats.Registry(), promhttp.HandlerOpts{}))

	return r
}

// HandleConvert converts one uploaded PDF to Word
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	up, closeUploads, err := h.singleUpload(w, r, "file")
	if err != nil {
		h.rejectUpload(w, r, convert.OpConvert, start, err)
		return
	}
	defer closeUploads()

	requested := convert.EngineKind(r.FormValue("engine"))
	res, err := h.orch.Convert(r.Context(), up, requested)
	if err != nil {
		h.respondError(w, err)
		return
	}

	message := "file converted successfully"
	if res.Cached {
		message = "result served from cache"
	}
	h.respondResult(w, res, message)
}

// HandleToImage exports a PDF's pages as a zip of images
func (h *Handler) HandleToImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	up, closeUploads, err := h.singleUpload(w, r, "file")
	if err != nil {
		h.rejectUpload(w, r, convert.OpToImage, start, err)
		return
	}
	defer closeUploads()

	res, err := h.orch.ToImage(r.Context(), up)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondResult(w, res, "pdf exported to images")
}

// HandleFromImage combines uploaded images into one PDF
func (h *Handler) HandleFromImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ups, closeUploads, err := h.multiUpload(w, r, "files")
	if err != nil {
		h.rejectUpload(w, r, convert.OpFromImage, start, err)
		return
	}
	defer closeUploads()

	res, err := h.orch.FromImage(r.Context(), ups)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondResult(w, res, "images combined into pdf")
}

// HandleMerge combines uploaded PDFs into one
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ups, closeUploads, err := h.multiUpload(w, r, "files")
	if err != nil {
		h.rejectUpload(w, r, convert.OpMerge, start, err)
		return
	}
	defer closeUploads()

	res, err := h.orch.Merge(r.Context(), ups)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondResult(w, res, "pdfs merged")
}

// HandleCompress rewrites an uploaded PDF with optimized streams
func (h *Handler) HandleCompress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	up, closeUploads, err := h.singleUpload(w, r, "file")
	if err != nil {
		h.rejectUpload(w, r, convert.OpCompress, start, err)
		return
	}
	defer closeUploads()

	res, err := h.orch.Compress(r.Context(), up)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondResult(w, res, "pdf compressed")
}

// HandleDownload streams a produced artifact as an attachment
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	rc, err := h.artifacts.GetReader(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, convert.ConvertResponse{
			Success: false,
			Error:   "file not found",
		})
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("download of %s aborted: %v", name, err)
	}
}

// HandleStats reports aggregated conversion statistics
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	snap.CacheAvailable = h.cache.Available()
	writeJSON(w, http.StatusOK, snap)
}

// HandleHealth reports service liveness and per-engine availability
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	avail := h.engines.Availability()
	engines := make(map[string]bool, len(avail))
	anyUp := false
	for kind, ok := range avail {
		engines[string(kind)] = ok
		anyUp = anyUp || ok
	}

	status := "ok"
	if !anyUp {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, convert.HealthResponse{
		Status:  status,
		Engines: engines,
	})
}

// HandleIndex describes the service endpoints
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "doc-convert-pipeline",
		"endpoints": []string{
			"POST /convert",
			"POST /convert/to-image",
			"POST /convert/from-image",
			"POST /merge",
			"POST /compress",
			"GET /download/{filename}",
			"GET /stats",
			"GET /health",
			"GET /metrics",
		},
	})
}

// singleUpload parses the request and returns the first file under field
func (h *Handler) singleUpload(w http.ResponseWriter, r *http.Request, field string) (pipeline.Upload, func(), error) {
	ups, closeUploads, err := h.multiUpload(w, r, field)
	if err != nil {
		return pipeline.Upload{}, nil, err
	}
	if len(ups) == 0 {
		closeUploads()
		return pipeline.Upload{}, nil, pipeline.ErrEmptySubmission
	}
	return ups[0], closeUploads, nil
}

// multiUpload parses the multipart body, capped at maxUploadBytes, and
// opens every file under field. The returned closer releases them all.
func (h *Handler) multiUpload(w http.ResponseWriter, r *http.Request, field string) ([]pipeline.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, nil, err
		}
		return nil, nil, &pipeline.ValidationError{Reason: "invalid multipart form"}
	}

	headers := r.MultipartForm.File[field]
	var ups []pipeline.Upload
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, f)
		ups = append(ups, pipeline.Upload{Name: fh.Filename, Reader: f})
	}
	return ups, closeAll, nil
}

// rejectUpload handles requests turned away before reaching the pipeline.
// The pipeline records every request it sees, so boundary rejections are
// recorded here to keep the one-record-per-request accounting intact.
func (h *Handler) rejectUpload(w http.ResponseWriter, r *http.Request, operation string, start time.Time, err error) {
	h.stats.Record(r.Context(), false, operation, time.Since(start))
	h.respondError(w, err)
}

// respondResult writes the success envelope for a completed operation
func (h *Handler) respondResult(w http.ResponseWriter, res *pipeline.Result, message string) {
	writeJSON(w, http.StatusOK, convert.ConvertResponse{
		Success:        true,
		Message:        message,
		Filename:       res.Filename,
		EngineUsed:     string(res.Engine),
		DownloadURL:    "/download/" + res.Filename,
		Cached:         res.Cached,
		ProcessingTime: res.Elapsed.String(),
	})
}

// respondError maps pipeline errors onto HTTP statuses. Validation errors
// carry their reason to the client; everything else stays generic and is
// logged server-side.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case pipeline.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, convert.ConvertResponse{
			Success: false,
			Error:   err.Error(),
		})
	case errors.As(err, &maxBytes):
		writeJSON(w, http.StatusRequestEntityTooLarge, convert.ConvertResponse{
			Success: false,
			Error:   "uploaded file is too large",
		})
	case errors.Is(err, engine.ErrNoEngineAvailable):
		writeJSON(w, http.StatusServiceUnavailable, convert.ConvertResponse{
			Success: false,
			Error:   "no conversion engine is available",
		})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, convert.ConvertResponse{
			Success: false,
			Error:   "conversion failed",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
