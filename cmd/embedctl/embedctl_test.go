package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeServer mimics the nuka-embed API and records the last request body.
type fakeServer struct {
	lastPath string
	lastBody map[string]any
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path
		f.lastBody = nil
		if r.Body != nil && r.Method == http.MethodPost {
			if err := json.NewDecoder(r.Body).Decode(&f.lastBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/health":
			_, _ = w.Write([]byte(`{"status":"ok","provider":"gemini (gemini-embedding-001)"}`))
		case "/api/embeddings":
			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3,0.4,0.5,0.6],[1,2]],"count":2,"dimension":6}`))
		case "/api/embeddings/one":
			_, _ = w.Write([]byte(`{"embedding":[0.5,0.25],"dimension":2}`))
		case "/api/documents":
			_, _ = w.Write([]byte(`{"ids":["id-1","id-2"],"count":2}`))
		case "/api/search":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"retrieval index not configured"}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func run(t *testing.T, args ...string) (string, *fakeServer, error) {
	t.Helper()
	f := &fakeServer{}
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", ts.URL}, args...))
	err := cmd.Execute()
	return out.String(), f, err
}

func TestHealthCommand(t *testing.T) {
	out, _, err := run(t, "health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "status: ok") || !strings.Contains(out, "provider: gemini (gemini-embedding-001)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEmbedCommand(t *testing.T) {
	out, f, err := run(t, "embed", "hello", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.lastPath != "/api/embeddings" {
		t.Errorf("got path %s, want /api/embeddings", f.lastPath)
	}
	texts, _ := f.lastBody["texts"].([]any)
	if len(texts) != 2 || texts[1] != "world" {
		t.Errorf("unexpected request body %v", f.lastBody)
	}
	if !strings.Contains(out, "[0] dim=6 [0.1000, 0.2000, 0.3000, 0.4000, 0.5000, ...]") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "[1] dim=2 [1.0000, 2.0000]") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEmbedOneCommand(t *testing.T) {
	out, f, err := run(t, "embed", "--one", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.lastPath != "/api/embeddings/one" || f.lastBody["text"] != "hello" {
		t.Errorf("unexpected request %s %v", f.lastPath, f.lastBody)
	}
	if !strings.Contains(out, "dim=2") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, _, err := run(t, "embed", "--one", "a", "b"); err == nil {
		t.Error("expected error for --one with two texts")
	}
}

func TestEmbedCommandJSON(t *testing.T) {
	out, _, err := run(t, "--json", "embed", "--one", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != `{"embedding":[0.5,0.25],"dimension":2}` {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestIndexCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("file body"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, f, err := run(t, "index", path, "--text", "inline body", "--meta", "lang=en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	docs, _ := f.lastBody["documents"].([]any)
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	first := docs[0].(map[string]any)
	meta := first["metadata"].(map[string]any)
	if first["content"] != "file body" || meta["source"] != filepath.ToSlash(path) || meta["lang"] != "en" {
		t.Errorf("unexpected first document %v", first)
	}
	second := docs[1].(map[string]any)
	if second["content"] != "inline body" {
		t.Errorf("unexpected second document %v", second)
	}
	if !strings.Contains(out, "indexed 2 documents") || !strings.Contains(out, "id-2") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, _, err := run(t, "index"); err == nil {
		t.Error("expected error with nothing to index")
	}
}

func TestSearchCommandServerError(t *testing.T) {
	_, f, err := run(t, "search", "what", "is", "this", "-k", "3")
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	se, ok := err.(*serverError)
	if !ok {
		t.Fatalf("got %T, want *serverError", err)
	}
	if se.Status != http.StatusServiceUnavailable || se.Message != "retrieval index not configured" {
		t.Errorf("unexpected error %+v", se)
	}
	if f.lastBody["query"] != "what is this" || f.lastBody["top_k"] != float64(3) {
		t.Errorf("unexpected request body %v", f.lastBody)
	}
}

func TestPreviewAndSnippet(t *testing.T) {
	if got := preview(nil); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
	if got := snippet("  héllo wörld ", 5); got != "héllo..." {
		t.Errorf("got %q", got)
	}
}
