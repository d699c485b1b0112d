// Package gemini is the gateway to the remote language model. It builds a
// constrained prompt, calls the generateContent endpoint under a hard
// timeout, repairs and strictly validates the JSON reply, and maps provider
// failures onto the domain error taxonomy.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Sampling temperature for classification; deterministic-leaning.
const temperature = 0.2

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Breaker resilience.Config
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	guard      *resilience.Guard
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		// The transport timeout is a backstop; the per-call context
		// deadline below is the authoritative bound.
		httpClient: &http.Client{Timeout: cfg.Timeout + 5*time.Second},
		guard:      resilience.NewGuard("gemini_classify", cfg.Breaker, classifyGeminiError),
	}
}

type generateRequest struct {
	SystemInstruction *contentBlock    `json:"system_instruction,omitempty"`
	Contents          []contentBlock   `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type apiError struct {
	Err struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifyAndReply calls the remote model once, bounded by the configured
// timeout, and returns a validated TriageResult.
func (c *Client) ClassifyAndReply(ctx context.Context, originalText, cleanText string) (domain.TriageResult, error) {
	if c.apiKey == "" {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "gemini classify", errors.New("api key is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result domain.TriageResult
	err := c.guard.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = c.classify(ctx, originalText, cleanText)
		return callErr
	})
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			// An open circuit means the provider is temporarily refused,
			// not that anything unexpected happened here.
			return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteUnavailable, "gemini classify", err)
		}
		return domain.TriageResult{}, err
	}
	return result, nil
}

func (c *Client) classify(ctx context.Context, originalText, cleanText string) (domain.TriageResult, error) {
	payload := generateRequest{
		SystemInstruction: &contentBlock{Parts: []part{{Text: systemInstruction}}},
		Contents: []contentBlock{{
			Role:  "user",
			Parts: []part{{Text: buildUserPrompt(originalText, cleanText)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "encode request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "gemini classify", errors.New("timed out"))
		}
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "gemini classify", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.TriageResult{}, c.mapHTTPError(resp.StatusCode, raw)
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "parse response envelope", err)
	}

	text := responseText(decoded)
	if strings.TrimSpace(text) == "" {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "gemini classify", errors.New("empty model response"))
	}

	result, err := decodeTriageResult(extractJSONPayload(text))
	if err != nil {
		return domain.TriageResult{}, domain.WrapError(domain.ErrRemoteFailure, "validate model response", err)
	}
	return result, nil
}

func (c *Client) mapHTTPError(status int, raw []byte) error {
	var parsed apiError
	_ = json.Unmarshal(raw, &parsed)

	if status == http.StatusTooManyRequests || parsed.Err.Status == "RESOURCE_EXHAUSTED" {
		return domain.WrapError(domain.ErrRemoteQuota, "gemini classify", errors.New("provider quota exhausted"))
	}

	message := parsed.Err.Message
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return domain.WrapError(domain.ErrRemoteFailure, "gemini classify", errors.New(message))
}

func responseText(resp generateResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		break // only the first candidate is requested
	}
	return sb.String()
}

// classifyGeminiError keeps user-correctable and cancellation errors off the
// circuit breaker; provider-side failures and timeouts count against it.
func classifyGeminiError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{RecordFailure: false}
	}
	if domain.IsKind(err, domain.ErrRemoteUnavailable) || domain.IsKind(err, domain.ErrRemoteFailure) {
		return resilience.ErrorClassification{RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: false}
}
