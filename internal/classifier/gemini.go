package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"labelbot/internal/domain"
	"labelbot/internal/httpx"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Google Generative Language REST API. One client serves
// both tiers; the tier only selects the model name.
type Gemini struct {
	cfg     ProviderConfig
	baseURL string
	client  *http.Client
}

func NewGemini(cfg ProviderConfig) *Gemini {
	return &Gemini{
		cfg:     cfg,
		baseURL: defaultGeminiBaseURL,
		client:  httpx.ExternalHTTPClient(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *Gemini) Classify(ctx context.Context, items []domain.Item, tier Tier) ([]domain.ClassifierResult, error) {
	op := "gemini " + string(tier)
	if err := validateItems(items); err != nil {
		return nil, fatalf(op, "%v", err)
	}
	model, err := g.cfg.model(tier)
	if err != nil {
		return nil, fatalf(op, "%v", err)
	}

	systemPrompt, userPrompt := BuildPrompts(items)
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fatalf(op, "marshaling request: %v", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fatalf(op, "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transientf(op, "request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientf(op, "reading response: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parsing
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest:
		return nil, fatalf(op, "HTTP %d: %s", resp.StatusCode, summarizeBody(respBody))
	default:
		// 429 and 5xx resolve themselves; so does everything else worth retrying.
		return nil, transientf(op, "HTTP %d: %s", resp.StatusCode, summarizeBody(respBody))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, transientf(op, "parsing response envelope: %v", err)
	}
	if parsed.Error != nil {
		return nil, transientf(op, "API error %s: %s", parsed.Error.Status, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, transientf(op, "no candidates in response")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	log.Printf("llm gemini tier=%s model=%s items=%d response_size=%d", tier, model, len(items), len(text))
	return parseResponse(op, text, len(items))
}

func summarizeBody(body []byte) string {
	const limit = 256
	s := string(body)
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
