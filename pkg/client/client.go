// Package client is an HTTP client for the document conversion service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

// Client calls a running conversion server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new conversion client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// NewWithHTTPClient creates a new conversion client with a custom HTTP client
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Convert uploads one PDF and returns the conversion result. engine may be
// empty to accept the server default.
func (c *Client) Convert(ctx context.Context, filename string, content io.Reader, engine convert.EngineKind) (*convert.ConvertResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if engine != "" {
		if err := mw.WriteField("engine", string(engine)); err != nil {
			return nil, fmt.Errorf("failed to write engine field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/convert", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Conversion errors still carry a JSON envelope
	var out convert.ConvertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, err)
	}
	if !out.Success {
		return &out, fmt.Errorf("conversion failed (status %d): %s", resp.StatusCode, out.Error)
	}
	return &out, nil
}

// Download streams a produced artifact. The caller must close the reader.
func (c *Client) Download(ctx context.Context, filename string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/download/%s", c.baseURL, filename)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Stats fetches the server's aggregated conversion statistics
func (c *Client) Stats(ctx context.Context) (*convert.StatsResponse, error) {
	var out convert.StatsResponse
	if err := c.getJSON(ctx, "/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the server's health and engine availability
func (c *Client) Health(ctx context.Context) (*convert.HealthResponse, error) {
	var out convert.HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
