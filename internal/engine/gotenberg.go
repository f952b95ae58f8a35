package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// GotenbergEngine is the high_quality engine, backed by a remote Gotenberg
// instance
type GotenbergEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewGotenbergEngine creates the high_quality engine. An empty baseURL
// yields an engine that never probes available.
func NewGotenbergEngine(baseURL string) *GotenbergEngine {
	return &GotenbergEngine{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Kind returns the engine identifier
func (e *GotenbergEngine) Kind() convert.EngineKind {
	return convert.EngineHighQuality
}

// Probe checks the Gotenberg health endpoint
func (e *GotenbergEngine) Probe(ctx context.Context) bool {
	if e.baseURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// Convert uploads inputPath to Gotenberg's LibreOffice route and writes the
// converted document to outputPath
func (e *GotenbergEngine) Convert(ctx context.Context, inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(inputPath))
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload: %w", err)
	}

	url := e.baseURL + "/forms/libreoffice/convert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotenberg request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gotenberg returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to close output: %w", err)
	}

	return nil
}
