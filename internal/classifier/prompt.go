package classifier

import (
	"fmt"
	"strings"

	"labelbot/internal/domain"
)

// BuildPrompts renders the system and user prompts for one batch. Every
// comment ships with its title and source query so the model can read the
// same text differently under different surrounding content.
func BuildPrompts(items []domain.Item) (string, string) {
	systemPrompt := `You are a sentiment classification system for social-media comments.
Classify each comment, based on its surrounding context, into one of 4 labels:
- positive: praising, expressing enjoyment or satisfaction
- neutral: neutral, unclear, or factual statements without clear sentiment
- negative: complaining, expressing dissatisfaction or criticism
- irrelevant: off-topic, spam, or unrelated promotion

IMPORTANT: Consider the context (title, source query) when classifying.
The same statement can have different sentiment depending on the context.

Respond with a JSON array only (no markdown), one element per comment in order:
[{"label": "...", "confidence": {"positive": x, "neutral": y, "negative": z, "irrelevant": w}}, ...]
Confidence values are numbers from 0.0 to 1.0 and must sum to 1.0.`

	var userPrompt strings.Builder
	userPrompt.WriteString("Classify these comments:\n")
	for i, item := range items {
		userPrompt.WriteString(fmt.Sprintf("\n--- Comment %d ---\n", i+1))
		userPrompt.WriteString(fmt.Sprintf("Comment: %s\n", strings.TrimSpace(item.Text)))
		userPrompt.WriteString(fmt.Sprintf("Title: %s\n", valueOrNA(item.Title)))
		userPrompt.WriteString(fmt.Sprintf("Context: %s\n", valueOrNA(item.SourceQuery)))
	}
	userPrompt.WriteString("\nReturn the JSON array with one result per comment, in order.")
	return systemPrompt, userPrompt.String()
}

func valueOrNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "N/A"
	}
	return s
}
