package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks user-correctable input problems: bad filenames,
	// malformed files, empty or oversized text.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPayloadTooLarge is raised as soon as an upload stream crosses the
	// configured byte cap, before the body is fully buffered.
	ErrPayloadTooLarge = errors.New("payload too large")

	ErrRateLimited = errors.New("rate limited")

	// ErrRemoteUnavailable covers provider-side conditions that are expected
	// to clear on their own; callers may retry later.
	ErrRemoteUnavailable = errors.New("remote classifier unavailable")

	// ErrRemoteFailure covers provider, transport and response-format
	// failures that are not user-correctable.
	ErrRemoteFailure = errors.New("remote classifier failure")
)

// ErrRemoteQuota is a subtype of ErrRemoteUnavailable so that
// IsKind(err, ErrRemoteUnavailable) holds for quota exhaustion too.
var ErrRemoteQuota = fmt.Errorf("remote quota exceeded: %w", ErrRemoteUnavailable)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
