package gemini

import (
	"encoding/json"
	"strings"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

// extractJSONPayload recovers a JSON object from a model reply that may wrap
// it in a code fence or surrounding prose. It is best-effort; strict
// validation happens in decodeTriageResult.
func extractJSONPayload(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 0 {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
			lines = lines[:len(lines)-1]
		}
		cleaned = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start != -1 && end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	return cleaned
}

type triageWire struct {
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	Summary          string   `json:"summary"`
	SuggestedReply   string   `json:"suggested_reply"`
	Tags             []string `json:"tags"`
	NeedsHumanReview bool     `json:"needs_human_review"`
	Reasons          []string `json:"reasons"`
}

// decodeTriageResult fails closed: unknown keys are rejected and the decoded
// object must satisfy every TriageResult constraint after normalization.
func decodeTriageResult(payload string) (domain.TriageResult, error) {
	decoder := json.NewDecoder(strings.NewReader(payload))
	decoder.DisallowUnknownFields()

	var wire triageWire
	if err := decoder.Decode(&wire); err != nil {
		return domain.TriageResult{}, err
	}

	result := domain.TriageResult{
		Category:         domain.Category(wire.Category),
		Confidence:       wire.Confidence,
		Summary:          wire.Summary,
		SuggestedReply:   wire.SuggestedReply,
		Tags:             wire.Tags,
		NeedsHumanReview: wire.NeedsHumanReview,
		Reasons:          wire.Reasons,
	}
	if err := result.Normalize(); err != nil {
		return domain.TriageResult{}, err
	}
	return result, nil
}
