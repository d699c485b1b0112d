package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/core/ports"
	"github.com/rafaelmdurante/mailtriage/internal/core/usecase"
	"github.com/rafaelmdurante/mailtriage/internal/observability/metrics"
)

// Options bounds the outer HTTP surface; zero values disable each gate.
type Options struct {
	MaxBodyBytes      int64
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxInFlight       int
	RetryAfterSeconds int
}

type Router struct {
	analyzeUC  *usecase.AnalyzeUseCase
	feedbackUC *usecase.RecordFeedbackUseCase
	validator  ports.InputValidator
	admission  ports.AdmissionLimiter
	metrics    *metrics.Metrics
	opts       Options
}

func NewRouter(
	analyzeUC *usecase.AnalyzeUseCase,
	feedbackUC *usecase.RecordFeedbackUseCase,
	validator ports.InputValidator,
	admission ports.AdmissionLimiter,
	m *metrics.Metrics,
	opts Options,
) *Router {
	return &Router{
		analyzeUC:  analyzeUC,
		feedbackUC: feedbackUC,
		validator:  validator,
		admission:  admission,
		metrics:    m,
		opts:       opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/analyze", rt.analyze)
	mux.HandleFunc("/api/feedback", rt.feedback)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, rt.metrics)
	handler = accessLogMiddleware(handler, rt.metrics)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeResponse struct {
	domain.AnalysisOutcome
	Origin domain.TextOrigin `json:"origin"`
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes)
	}

	if !rt.admission.Allow(clientKey(r)) {
		if rt.metrics != nil {
			rt.metrics.RateLimited()
		}
		if rt.opts.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rt.opts.RetryAfterSeconds))
		}
		rt.writeError(w, domain.WrapError(domain.ErrRateLimited, "admit request",
			errors.New("per-client request budget exhausted")))
		return
	}

	extracted, err := rt.extractInput(w, r)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.InputRejected(rejectionReason(err))
		}
		rt.writeError(w, err)
		return
	}

	start := time.Now()
	outcome, err := rt.analyzeUC.Analyze(r.Context(), extracted.Content)
	if err != nil {
		if rt.metrics != nil &&
			(domain.IsKind(err, domain.ErrRemoteFailure) || domain.IsKind(err, domain.ErrRemoteUnavailable)) {
			rt.metrics.RemoteError(remoteErrorKind(err))
		}
		rt.writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.ObserveAnalysis(outcome.Source, string(outcome.Result.Category), time.Since(start))
		for _, reason := range outcome.Result.Reasons {
			if reason == domain.InjectionReason {
				rt.metrics.InjectionDetected()
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisOutcome: outcome,
		Origin:          extracted.Origin,
	})
}

// extractInput enforces the "exactly one of text_input or file" contract and
// runs the matching validation path.
func (rt *Router) extractInput(w http.ResponseWriter, r *http.Request) (domain.ExtractedText, error) {
	err := r.ParseMultipartForm(rt.opts.MaxBodyBytes)
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			err = r.ParseForm()
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return domain.ExtractedText{}, domain.WrapError(
					domain.ErrPayloadTooLarge, "read request body",
					fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
			}
			return domain.ExtractedText{}, domain.WrapError(
				domain.ErrInvalidInput, "parse form", err)
		}
	}

	textInput := strings.TrimSpace(r.FormValue("text_input"))
	file, header, fileErr := r.FormFile("file")
	hasFile := fileErr == nil

	switch {
	case hasFile && textInput != "":
		file.Close()
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput,
			"select input", errors.New("provide either text_input or file, not both"))
	case !hasFile && textInput == "":
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput,
			"select input", errors.New("one of text_input or file is required"))
	case hasFile:
		defer file.Close()
		return rt.validator.ValidateAndExtract(r.Context(), header.Filename, file)
	default:
		return rt.validator.ValidateText(textInput)
	}
}

type feedbackRequest struct {
	ContentHash   string `json:"content_hash"`
	CorrectLabel  string `json:"correct_label"`
	PreviousLabel string `json:"previous_label"`
	Source        string `json:"source"`
}

func (rt *Router) feedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode feedback", err))
		return
	}

	entry := domain.FeedbackEntry{
		ContentHash:   strings.TrimSpace(req.ContentHash),
		CorrectLabel:  domain.Category(req.CorrectLabel),
		PreviousLabel: domain.Category(req.PreviousLabel),
		Source:        strings.TrimSpace(req.Source),
		At:            time.Now().UTC(),
	}
	if err := rt.feedbackUC.Record(r.Context(), entry); err != nil {
		rt.writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.FeedbackRecorded()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": clientMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func remoteErrorKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRemoteQuota):
		return "quota"
	case domain.IsKind(err, domain.ErrRemoteUnavailable):
		return "unavailable"
	default:
		return "failure"
	}
}
