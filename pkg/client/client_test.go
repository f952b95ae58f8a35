package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tendant/doc-convert-pipeline/pkg/convert"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(r.MultipartForm.File["file"]) != 1 {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(convert.ConvertResponse{
			Success:     true,
			Filename:    "doc_abc123.docx",
			EngineUsed:  r.FormValue("engine"),
			DownloadURL: "/download/doc_abc123.docx",
		})
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(convert.StatsResponse{TotalConversions: 7})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(convert.HealthResponse{
			Status:  "ok",
			Engines: map[string]bool{"standard": true},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientConvert(t *testing.T) {
	srv := newStubServer(t)
	c := New(srv.URL)

	out, err := c.Convert(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4 x"), convert.EngineHighQuality)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if out.Filename != "doc_abc123.docx" {
		t.Errorf("filename = %q", out.Filename)
	}
	if out.EngineUsed != "high_quality" {
		t.Errorf("engine_used = %q, want high_quality", out.EngineUsed)
	}
}

func TestClientStatsAndHealth(t *testing.T) {
	srv := newStubServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalConversions != 7 {
		t.Errorf("total = %d, want 7", stats.TotalConversions)
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "ok" || !health.Engines["standard"] {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestClientConvertErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(convert.ConvertResponse{
			Success: false,
			Error:   "unsupported file format",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	out, err := c.Convert(context.Background(), "doc.txt", strings.NewReader("text"), "")
	if err == nil {
		t.Fatal("expected error for failed conversion")
	}
	if out == nil || out.Error != "unsupported file format" {
		t.Errorf("error envelope not returned: %+v", out)
	}
}
