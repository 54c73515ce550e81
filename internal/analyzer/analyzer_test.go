package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"verdict/internal/logging"
)

func TestSummaryRoundTrip(t *testing.T) {
	original := []byte(strings.Repeat("src/api/handler.ts source 0.8\n", 200))

	compressed, err := CompressSummary(original)
	if err != nil {
		t.Fatalf("CompressSummary: %v", err)
	}
	if len(compressed) >= len(original) {
		t.Errorf("repetitive summary should shrink: %d >= %d", len(compressed), len(original))
	}

	restored, err := DecompressSummary(compressed)
	if err != nil {
		t.Fatalf("DecompressSummary: %v", err)
	}
	if !bytes.Equal(restored, original) {
		t.Error("round trip altered the summary")
	}
}

func TestDecompressGarbage(t *testing.T) {
	if _, err := DecompressSummary([]byte("not zstd at all")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestHTTPClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		decisions := make(map[string]Decision, len(req.Units))
		for _, u := range req.Units {
			decisions[u.Key] = Decision{Label: "source", Rationale: "looks like code", Confidence: 0.9}
		}
		json.NewEncoder(w).Encode(analyzeResponse{Decisions: decisions})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, logging.Discard())
	got, err := client.Analyze(context.Background(), Request{
		BatchID: "batch-1",
		Pattern: ".ts in src/api",
		Units:   []UnitSummary{{Key: "k1", Path: "src/api/a.ts"}, {Key: "k2", Path: "src/api/b.ts"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(got) != 2 || got["k1"].Label != "source" {
		t.Errorf("decisions = %+v", got)
	}
}

func TestHTTPClientBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, 5*time.Second, logging.Discard())
	_, err := client.Analyze(context.Background(), Request{BatchID: "batch-1"})
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestMockHonorsContext(t *testing.T) {
	mock := &Mock{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := mock.Analyze(ctx, Request{Units: []UnitSummary{{Key: "k"}}})
	if err == nil {
		t.Fatal("expected context deadline error")
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}
