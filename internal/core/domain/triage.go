package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryProductive   Category = "Produtivo"
	CategoryUnproductive Category = "Improdutivo"
)

func ParseCategory(s string) (Category, error) {
	switch Category(strings.TrimSpace(s)) {
	case CategoryProductive:
		return CategoryProductive, nil
	case CategoryUnproductive:
		return CategoryUnproductive, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

const (
	SummaryMaxChars = 200
	ReplyMaxChars   = 700
	TagsMinCount    = 3
	TagsMaxCount    = 8
	ReasonsMinCount = 2
	ReasonsMaxCount = 5

	// Confidence ceiling applied when the raw input carried injection signatures.
	InjectionConfidenceCap = 0.4
)

// InjectionReason is the fixed reason appended when injection signatures match.
const InjectionReason = "Possivel tentativa de prompt injection detectada no conteudo."

type TextOrigin string

const (
	OriginText    TextOrigin = "text"
	OriginTxtFile TextOrigin = "txt-file"
	OriginPDFFile TextOrigin = "pdf-file"
)

// ExtractedText is clean, size-bounded text produced by upload/text validation.
type ExtractedText struct {
	Content string
	Origin  TextOrigin
}

// PreprocessedText is the reduced representation fed to the baseline model,
// plus stats about the original trimmed text.
type PreprocessedText struct {
	CleanText  string
	TokenCount int
	CharCount  int
}

// BaselinePrediction is the cheap first-pass opinion of the local model.
type BaselinePrediction struct {
	Category   Category
	Confidence float64
}

// TriageResult is the structured classification produced by the remote model,
// possibly overridden by the baseline during arbitration.
type TriageResult struct {
	Category         Category `json:"category"`
	Confidence       float64  `json:"confidence"`
	Summary          string   `json:"summary"`
	SuggestedReply   string   `json:"suggested_reply"`
	Tags             []string `json:"tags"`
	NeedsHumanReview bool     `json:"needs_human_review"`
	Reasons          []string `json:"reasons"`
}

// Normalize trims and truncates free-text fields, cleans tags and reasons,
// and rejects results whose counts or ranges fall outside the contract after
// cleaning. Length bounds are enforced by truncation, count bounds by error.
func (r *TriageResult) Normalize() error {
	if _, err := ParseCategory(string(r.Category)); err != nil {
		return err
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}

	r.Summary = truncateRunes(strings.TrimSpace(r.Summary), SummaryMaxChars)
	r.SuggestedReply = truncateRunes(strings.TrimSpace(r.SuggestedReply), ReplyMaxChars)

	tags := make([]string, 0, len(r.Tags))
	seen := make(map[string]struct{}, len(r.Tags))
	for _, tag := range r.Tags {
		cleaned := strings.ToLower(strings.TrimSpace(tag))
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		tags = append(tags, cleaned)
	}
	if len(tags) < TagsMinCount || len(tags) > TagsMaxCount {
		return fmt.Errorf("tags must have between %d and %d items, got %d", TagsMinCount, TagsMaxCount, len(tags))
	}
	r.Tags = tags

	reasons := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		cleaned := strings.TrimSpace(reason)
		if cleaned == "" {
			continue
		}
		reasons = append(reasons, cleaned)
	}
	if len(reasons) < ReasonsMinCount || len(reasons) > ReasonsMaxCount {
		return fmt.Errorf("reasons must have between %d and %d items, got %d", ReasonsMinCount, ReasonsMaxCount, len(reasons))
	}
	r.Reasons = reasons

	return nil
}

// ApplyInjectionPenalty dampens a result whose raw input matched injection
// signatures: review is forced, confidence is capped (never raised), and
// exactly one fixed injection reason is present regardless of how many
// signatures matched.
func (r *TriageResult) ApplyInjectionPenalty() {
	r.NeedsHumanReview = true
	if r.Confidence > InjectionConfidenceCap {
		r.Confidence = InjectionConfidenceCap
	}

	reasons := make([]string, 0, len(r.Reasons)+1)
	seen := make(map[string]struct{}, len(r.Reasons)+1)
	for _, reason := range append(r.Reasons, InjectionReason) {
		if _, dup := seen[reason]; dup {
			continue
		}
		seen[reason] = struct{}{}
		reasons = append(reasons, reason)
	}
	if len(reasons) > ReasonsMaxCount {
		// Keep the injection reason when truncating back to the cap.
		kept := reasons[:ReasonsMaxCount-1]
		reasons = append(kept, InjectionReason)
	}
	r.Reasons = reasons
}

// Stats describes the original (pre-reduction) text.
type Stats struct {
	NumChars int `json:"num_chars"`
	NumWords int `json:"num_words"`
}

const (
	SourceBaseline = "baseline"
	SourceLLM      = "llm"
)

// AnalysisOutcome is the all-or-nothing product of one analysis request.
type AnalysisOutcome struct {
	Result       TriageResult `json:"result"`
	Source       string       `json:"source"`
	ContentHash  string       `json:"content_hash"`
	Stats        Stats        `json:"stats"`
	BaselineProb *float64     `json:"baseline_prob,omitempty"`
}

// FeedbackEntry correlates a human correction with a prior analysis by
// content hash.
type FeedbackEntry struct {
	ContentHash   string
	CorrectLabel  Category
	PreviousLabel Category
	Source        string
	At            time.Time
}

func (e FeedbackEntry) Validate() error {
	if len(e.ContentHash) < 8 {
		return errors.New("content hash must have at least 8 characters")
	}
	if _, err := ParseCategory(string(e.CorrectLabel)); err != nil {
		return fmt.Errorf("correct label: %w", err)
	}
	if e.PreviousLabel != "" {
		if _, err := ParseCategory(string(e.PreviousLabel)); err != nil {
			return fmt.Errorf("previous label: %w", err)
		}
	}
	return nil
}

// HashContent fingerprints the original extracted text for feedback
// correlation.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
