package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"

	"labelbot/internal/classifier"
	"labelbot/internal/domain"
)

// policyClassifier wraps the real classifier with the policy the worker
// owns: a fixed delay between consecutive classifier calls (both tiers
// share the credential's rate budget) and a bounded retry loop for
// transient failures. Fatal errors pass straight through.
type policyClassifier struct {
	part       int
	inner      classifier.Classifier
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

func newPolicyClassifier(part int, inner classifier.Classifier, requestDelay, retryDelay time.Duration, maxRetries int) *policyClassifier {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &policyClassifier{
		part:       part,
		inner:      inner,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func (p *policyClassifier) Classify(ctx context.Context, items []domain.Item, tier classifier.Tier) ([]domain.ClassifierResult, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		results, err := p.inner.Classify(ctx, items, tier)
		if err == nil {
			return results, nil
		}
		if classifier.IsFatal(err) {
			return nil, err
		}

		lastErr = err
		log.Printf("worker part=%d tier=%s transient error (attempt %d/%d): %v", p.part, tier, attempt, p.maxRetries, err)
		if attempt < p.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryDelay):
			}
		}
	}
	return nil, lastErr
}
