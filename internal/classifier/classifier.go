package classifier

import (
	"context"
	"fmt"
	"strings"

	"labelbot/internal/domain"
)

// Tier selects which of the two configured classifier models handles a
// request: the cheap fast tier or the costly expert tier.
type Tier string

const (
	TierFast   Tier = "fast"
	TierExpert Tier = "expert"
)

// Classifier presents one externally-hosted text classifier as a
// synchronous call. Implementations hold no state between calls; retry
// and pacing belong to the caller.
type Classifier interface {
	Classify(ctx context.Context, items []domain.Item, tier Tier) ([]domain.ClassifierResult, error)
}

// ProviderConfig carries everything a provider needs to serve both tiers
// with one credential.
type ProviderConfig struct {
	Provider    string
	APIKey      string
	ModelFast   string
	ModelExpert string
}

func (c ProviderConfig) model(tier Tier) (string, error) {
	switch tier {
	case TierFast:
		return c.ModelFast, nil
	case TierExpert:
		return c.ModelExpert, nil
	}
	return "", fmt.Errorf("unknown tier %q", tier)
}

// New builds the classifier for the configured provider.
func New(cfg ProviderConfig) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		return NewGemini(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	}
	return nil, fmt.Errorf("provider must be 'gemini' or 'anthropic', got '%s'", cfg.Provider)
}

func validateItems(items []domain.Item) error {
	if len(items) == 0 {
		return fmt.Errorf("empty item batch")
	}
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			return fmt.Errorf("item %d has empty text", item.Index)
		}
	}
	return nil
}
