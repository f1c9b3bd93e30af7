package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"labelbot/internal/domain"
)

func testItems() []domain.Item {
	return []domain.Item{{Index: 0, Text: "loved it", Title: "Trailer", SourceQuery: "movie"}}
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGemini(ProviderConfig{APIKey: "key-1", ModelFast: "fast-model", ModelExpert: "expert-model"})
	g.baseURL = srv.URL
	g.client = srv.Client()
	return g
}

func geminiBody(text string) string {
	return `{"candidates": [{"content": {"parts": [{"text": ` + text + `}]}}]}`
}

func TestGeminiClassifySuccess(t *testing.T) {
	var gotPath, gotKey string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Write([]byte(geminiBody(`"[{\"label\": \"positive\", \"confidence\": {\"positive\": 0.97, \"neutral\": 0.01, \"negative\": 0.01, \"irrelevant\": 0.01}}]"`)))
	})

	results, err := g.Classify(context.Background(), testItems(), TierFast)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if results[0].Label != domain.LabelPositive {
		t.Fatalf("unexpected label %s", results[0].Label)
	}
	if gotPath != "/models/fast-model:generateContent" {
		t.Fatalf("fast tier must route to the fast model, got path %s", gotPath)
	}
	if gotKey != "key-1" {
		t.Fatalf("missing API key header, got %q", gotKey)
	}
}

func TestGeminiExpertTierUsesExpertModel(t *testing.T) {
	var gotPath string
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(geminiBody(`"[{\"label\": \"neutral\", \"confidence\": {\"positive\": 0.2, \"neutral\": 0.6, \"negative\": 0.1, \"irrelevant\": 0.1}}]"`)))
	})

	if _, err := g.Classify(context.Background(), testItems(), TierExpert); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if gotPath != "/models/expert-model:generateContent" {
		t.Fatalf("expert tier must route to the expert model, got path %s", gotPath)
	}
}

func TestGeminiStatusCodeTaxonomy(t *testing.T) {
	cases := []struct {
		status    int
		wantFatal bool
	}{
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusBadRequest, true},
	}
	for _, tc := range cases {
		g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error": {"code": 0, "message": "nope"}}`))
		})
		_, err := g.Classify(context.Background(), testItems(), TierFast)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if tc.wantFatal && !IsFatal(err) {
			t.Fatalf("status %d: expected fatal error, got %v", tc.status, err)
		}
		if !tc.wantFatal && !IsTransient(err) {
			t.Fatalf("status %d: expected transient error, got %v", tc.status, err)
		}
	}
}

func TestGeminiRejectsEmptyText(t *testing.T) {
	g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for invalid input")
	})
	_, err := g.Classify(context.Background(), []domain.Item{{Index: 0, Text: "  "}}, TierFast)
	if !IsFatal(err) {
		t.Fatalf("empty text must be fatal, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	if _, err := New(ProviderConfig{Provider: "gemini"}); err != nil {
		t.Fatalf("gemini provider: %v", err)
	}
	if _, err := New(ProviderConfig{Provider: "anthropic"}); err != nil {
		t.Fatalf("anthropic provider: %v", err)
	}
	if _, err := New(ProviderConfig{Provider: "openai"}); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}
