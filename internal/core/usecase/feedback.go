package usecase

import (
	"context"
	"fmt"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/core/ports"
)

// RecordFeedbackUseCase validates a human correction and appends it to the
// durable feedback sink.
type RecordFeedbackUseCase struct {
	sink ports.FeedbackSink
}

func NewRecordFeedbackUseCase(sink ports.FeedbackSink) *RecordFeedbackUseCase {
	return &RecordFeedbackUseCase{sink: sink}
}

func (uc *RecordFeedbackUseCase) Record(ctx context.Context, entry domain.FeedbackEntry) error {
	if err := entry.Validate(); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate feedback", err)
	}
	if err := uc.sink.Append(ctx, entry); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}
