package classifier

import (
	"encoding/json"
	"strings"

	"labelbot/internal/domain"
)

type rawResult struct {
	Label      string             `json:"label"`
	Confidence map[string]float64 `json:"confidence"`
}

// parseResponse turns one model response into exactly n well-formed
// ClassifierResults. Any anomaly (wrong element count, unknown label,
// no usable confidence mass) poisons the whole call, and the caller
// retries it as a transient service-side fault. A malformed distribution
// must never reach soft voting.
func parseResponse(op, responseText string, n int) ([]domain.ClassifierResult, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var raw []rawResult
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + "..."
		}
		return nil, transientf(op, "parsing response: %v (truncated response: %s)", err, truncated)
	}
	if len(raw) != n {
		return nil, transientf(op, "response has %d results, want %d", len(raw), n)
	}

	results := make([]domain.ClassifierResult, 0, n)
	for i, r := range raw {
		label, ok := domain.ParseLabel(r.Label)
		if !ok {
			return nil, transientf(op, "result %d has unknown label %q", i, r.Label)
		}

		byLabel := make(map[domain.Label]float64, len(r.Confidence))
		for name, v := range r.Confidence {
			if parsed, ok := domain.ParseLabel(name); ok {
				byLabel[parsed] = v
			}
		}
		dist, err := domain.NormalizeDistribution(byLabel)
		if err != nil {
			return nil, transientf(op, "result %d: %v", i, err)
		}
		if err := dist.Validate(); err != nil {
			return nil, transientf(op, "result %d: %v", i, err)
		}
		results = append(results, domain.ClassifierResult{Label: label, Confidence: dist})
	}
	return results, nil
}
