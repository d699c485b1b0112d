package usecase

import (
	"context"
	"log/slog"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/core/ports"
)

// AnalyzeUseCase sequences the triage pipeline for one request:
// preprocess, fingerprint, baseline predict, remote classify, arbitrate,
// then dampen the result if the raw input carried injection signatures.
type AnalyzeUseCase struct {
	preprocessor ports.Preprocessor
	baseline     ports.BaselineClassifier
	remote       ports.RemoteClassifier
	injection    ports.InjectionScanner

	// Baseline opinions at or above this confidence override the remote
	// category and confidence.
	baselineThreshold float64
}

func NewAnalyzeUseCase(
	preprocessor ports.Preprocessor,
	baseline ports.BaselineClassifier,
	remote ports.RemoteClassifier,
	injection ports.InjectionScanner,
	baselineThreshold float64,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		preprocessor:      preprocessor,
		baseline:          baseline,
		remote:            remote,
		injection:         injection,
		baselineThreshold: baselineThreshold,
	}
}

// Analyze produces the full outcome or a typed error; no partial result is
// ever returned. The remote call always runs, even when the baseline is
// confident, because only the remote model produces the summary, reply,
// tags and reasons. That doubles cost and latency and is a deliberate
// trade-off for output quality.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, text string) (domain.AnalysisOutcome, error) {
	processed := uc.preprocessor.Preprocess(text)
	contentHash := domain.HashContent(text)

	prediction, hasOpinion := uc.baseline.Predict(processed.CleanText)

	result, err := uc.remote.ClassifyAndReply(ctx, text, processed.CleanText)
	if err != nil {
		return domain.AnalysisOutcome{}, err
	}

	source := domain.SourceLLM
	var baselineProb *float64
	if hasOpinion {
		prob := prediction.Confidence
		baselineProb = &prob
		if prediction.Confidence >= uc.baselineThreshold {
			// Only category and confidence are overridden; the remote
			// summary, reply, tags and reasons are kept.
			result.Category = prediction.Category
			result.Confidence = prediction.Confidence
			source = domain.SourceBaseline
		}
	}

	matches := uc.injection.Scan(text)
	if len(matches) > 0 {
		result.ApplyInjectionPenalty()
		slog.Warn("prompt_injection_suspected",
			"content_hash", contentHash,
			"signatures", matches,
		)
	}

	slog.Info("content_analyzed",
		"content_hash", contentHash,
		"source", source,
		"category", result.Category,
		"num_chars", processed.CharCount,
		"injection_signatures", len(matches),
	)

	return domain.AnalysisOutcome{
		Result:      result,
		Source:      source,
		ContentHash: contentHash,
		Stats: domain.Stats{
			NumChars: processed.CharCount,
			NumWords: processed.TokenCount,
		},
		BaselineProb: baselineProb,
	}, nil
}
