package httpadapter

import (
	"net/http"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrRemoteQuota):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrRemoteFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage returns a safe error body. Validation problems are echoed
// verbatim because they are user-correctable; everything else gets a generic
// message so provider internals never leak to clients.
func clientMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrPayloadTooLarge):
		return err.Error()
	case domain.IsKind(err, domain.ErrRateLimited):
		return "too many requests, slow down"
	case domain.IsKind(err, domain.ErrRemoteQuota):
		return "classification service quota exceeded, try again later"
	case domain.IsKind(err, domain.ErrRemoteUnavailable):
		return "classification service temporarily unavailable"
	case domain.IsKind(err, domain.ErrRemoteFailure):
		return "classification service returned an unusable response"
	default:
		return "internal error"
	}
}

// rejectionReason labels input failures for the rejection counter.
func rejectionReason(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return "too_large"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "other"
	}
}
