package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newGotenbergStub(t *testing.T, converted []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/forms/libreoffice/convert", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		if _, ok := r.MultipartForm.File["files"]; !ok {
			http.Error(w, "missing files field", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(converted)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGotenbergProbe(t *testing.T) {
	srv := newGotenbergStub(t, nil)

	if !NewGotenbergEngine(srv.URL).Probe(context.Background()) {
		t.Error("expected probe to succeed against healthy stub")
	}
	if NewGotenbergEngine("").Probe(context.Background()) {
		t.Error("expected probe to fail with no URL configured")
	}
}

func TestGotenbergConvert(t *testing.T) {
	converted := []byte("docx bytes from gotenberg")
	srv := newGotenbergStub(t, converted)

	dir := t.TempDir()
	in := filepath.Join(dir, "input.pdf")
	out := filepath.Join(dir, "output.docx")
	if err := os.WriteFile(in, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	e := NewGotenbergEngine(srv.URL)
	if err := e.Convert(context.Background(), in, out); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != string(converted) {
		t.Errorf("output mismatch: got %q", got)
	}
}

func TestGotenbergConvertErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forms/libreoffice/convert", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		http.Error(w, "conversion blew up", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(in, []byte("%PDF-1.4 test"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	e := NewGotenbergEngine(srv.URL)
	err := e.Convert(context.Background(), in, filepath.Join(dir, "output.docx"))
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
}
