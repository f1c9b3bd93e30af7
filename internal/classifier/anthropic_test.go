package classifier

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"labelbot/internal/domain"
)

func TestClassifyAnthropicErrTaxonomy(t *testing.T) {
	cases := []struct {
		status    int
		wantFatal bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{529, false}, // overloaded
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
		apierr := &anthropic.Error{
			StatusCode: tc.status,
			Request:    req,
			Response:   &http.Response{StatusCode: tc.status},
		}
		err := classifyAnthropicErr("anthropic fast", apierr)
		if tc.wantFatal && !IsFatal(err) {
			t.Fatalf("status %d: expected fatal, got %v", tc.status, err)
		}
		if !tc.wantFatal && !IsTransient(err) {
			t.Fatalf("status %d: expected transient, got %v", tc.status, err)
		}
	}

	// Transport failures carry no API error and must stay retryable.
	if err := classifyAnthropicErr("anthropic fast", errors.New("connection reset")); !IsTransient(err) {
		t.Fatalf("expected transient for transport error, got %v", err)
	}
}

func TestAnthropicRejectsEmptyBatch(t *testing.T) {
	a := NewAnthropic(ProviderConfig{Provider: "anthropic", APIKey: "key"})
	if _, err := a.Classify(context.Background(), nil, TierFast); !IsFatal(err) {
		t.Fatalf("empty batch must be fatal, got %v", err)
	}
	if _, err := a.Classify(context.Background(), []domain.Item{{Text: ""}}, TierFast); !IsFatal(err) {
		t.Fatalf("empty text must be fatal, got %v", err)
	}
}
