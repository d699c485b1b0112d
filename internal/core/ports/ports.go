package ports

import (
	"context"
	"io"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

// InputValidator turns untrusted raw input into clean, bounded text.
type InputValidator interface {
	ValidateText(text string) (domain.ExtractedText, error)
	ValidateAndExtract(ctx context.Context, filename string, body io.Reader) (domain.ExtractedText, error)
}

type Preprocessor interface {
	Preprocess(text string) domain.PreprocessedText
}

// BaselineClassifier wraps the pre-trained local model. The boolean reports
// whether the model produced an opinion at all.
type BaselineClassifier interface {
	Predict(cleanText string) (domain.BaselinePrediction, bool)
}

// RemoteClassifier produces the full structured triage result, including the
// suggested reply, from the remote language model.
type RemoteClassifier interface {
	ClassifyAndReply(ctx context.Context, originalText, cleanText string) (domain.TriageResult, error)
}

// InjectionScanner reports identifiers of matched prompt-injection
// signatures in the raw input. It never blocks a request by itself.
type InjectionScanner interface {
	Scan(rawText string) []string
}

// AdmissionLimiter gates requests per client key.
type AdmissionLimiter interface {
	Allow(key string) bool
}

// FeedbackSink durably appends human corrections, keyed by content hash.
type FeedbackSink interface {
	Append(ctx context.Context, entry domain.FeedbackEntry) error
}
