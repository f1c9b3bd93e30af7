package classifier

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"labelbot/internal/domain"
)

// Anthropic serves both tiers through the Anthropic Messages API, with a
// cheap model on the fast tier and a stronger one on the expert tier.
type Anthropic struct {
	cfg    ProviderConfig
	client anthropic.Client
}

func NewAnthropic(cfg ProviderConfig) *Anthropic {
	return &Anthropic{
		cfg:    cfg,
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
	}
}

func (a *Anthropic) Classify(ctx context.Context, items []domain.Item, tier Tier) ([]domain.ClassifierResult, error) {
	op := "anthropic " + string(tier)
	if err := validateItems(items); err != nil {
		return nil, fatalf(op, "%v", err)
	}
	model, err := a.cfg.model(tier)
	if err != nil {
		return nil, fatalf(op, "%v", err)
	}

	systemPrompt, userPrompt := BuildPrompts(items)
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, classifyAnthropicErr(op, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic tier=%s model=%s items=%d tokens_in=%d tokens_out=%d",
				tier, model, len(items), message.Usage.InputTokens, message.Usage.OutputTokens)
			return parseResponse(op, block.Text, len(items))
		}
	}
	return nil, transientf(op, "no text content in response")
}

func classifyAnthropicErr(op string, err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest:
			return fatalf(op, "API error: %v", err)
		}
	}
	return transientf(op, "API error: %v", err)
}
