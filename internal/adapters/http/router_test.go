package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/core/usecase"
)

type fakeValidator struct{}

func (fakeValidator) ValidateText(text string) (domain.ExtractedText, error) {
	return domain.ExtractedText{Content: text, Origin: domain.OriginText}, nil
}

func (fakeValidator) ValidateAndExtract(_ context.Context, _ string, body io.Reader) (domain.ExtractedText, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return domain.ExtractedText{}, err
	}
	return domain.ExtractedText{Content: string(raw), Origin: domain.OriginTxtFile}, nil
}

type fakePreprocessor struct{}

func (fakePreprocessor) Preprocess(text string) domain.PreprocessedText {
	return domain.PreprocessedText{CleanText: text, TokenCount: 3, CharCount: len(text)}
}

type fakeBaseline struct{}

func (fakeBaseline) Predict(string) (domain.BaselinePrediction, bool) {
	return domain.BaselinePrediction{}, false
}

type fakeRemote struct {
	err error
}

func (f fakeRemote) ClassifyAndReply(context.Context, string, string) (domain.TriageResult, error) {
	if f.err != nil {
		return domain.TriageResult{}, f.err
	}
	return domain.TriageResult{
		Category:       domain.CategoryProductive,
		Confidence:     0.9,
		Summary:        "Pedido de status",
		SuggestedReply: "Vamos verificar e retornamos em breve.",
		Tags:           []string{"status", "pedido", "suporte"},
		Reasons:        []string{"Solicita acao concreta.", "Menciona um pedido em andamento."},
	}, nil
}

type fakeScanner struct{}

func (fakeScanner) Scan(string) []string { return nil }

type fakeLimiter struct {
	allow bool
}

func (f fakeLimiter) Allow(string) bool { return f.allow }

type fakeSink struct {
	entries []domain.FeedbackEntry
}

func (f *fakeSink) Append(_ context.Context, entry domain.FeedbackEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func newTestRouter(t *testing.T, remoteErr error, allow bool) http.Handler {
	t.Helper()
	analyzeUC := usecase.NewAnalyzeUseCase(
		fakePreprocessor{}, fakeBaseline{}, fakeRemote{err: remoteErr}, fakeScanner{}, 0.85,
	)
	feedbackUC := usecase.NewRecordFeedbackUseCase(&fakeSink{})
	rt := NewRouter(analyzeUC, feedbackUC, fakeValidator{}, fakeLimiter{allow: allow}, nil, Options{
		MaxBodyBytes:      3 * 1024 * 1024,
		RetryAfterSeconds: 60,
	})
	return rt.Handler()
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, writer.FormDataContentType()
}

func TestAnalyzeTextInput(t *testing.T) {
	handler := newTestRouter(t, nil, true)

	body, contentType := multipartBody(t, map[string]string{
		"text_input": "Qual o status do pedido 123?",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}

	var resp analyzeResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Category != domain.CategoryProductive {
		t.Errorf("category = %q", resp.Result.Category)
	}
	if resp.Origin != domain.OriginText {
		t.Errorf("origin = %q, want text", resp.Origin)
	}
	if resp.Source != domain.SourceLLM {
		t.Errorf("source = %q, want llm", resp.Source)
	}
	if len(resp.ContentHash) != 64 {
		t.Errorf("content hash length = %d, want 64", len(resp.ContentHash))
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestAnalyzeFileInput(t *testing.T) {
	handler := newTestRouter(t, nil, true)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "mensagem.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("Preciso da segunda via do boleto.")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	var resp analyzeResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Origin != domain.OriginTxtFile {
		t.Errorf("origin = %q, want txt-file", resp.Origin)
	}
}

func TestAnalyzeRequiresExactlyOneInput(t *testing.T) {
	handler := newTestRouter(t, nil, true)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{name: "neither", fields: map[string]string{}},
		{name: "both", fields: map[string]string{"text_input": "oi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			for name, value := range tt.fields {
				if err := writer.WriteField(name, value); err != nil {
					t.Fatal(err)
				}
			}
			if tt.name == "both" {
				part, err := writer.CreateFormFile("file", "a.txt")
				if err != nil {
					t.Fatal(err)
				}
				part.Write([]byte("conteudo"))
			}
			writer.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
			req.Header.Set("Content-Type", writer.FormDataContentType())
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", res.Code)
			}
		})
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	handler := newTestRouter(t, nil, false)

	body, contentType := multipartBody(t, map[string]string{"text_input": "oi"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", res.Code)
	}
	if res.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", res.Header().Get("Retry-After"))
	}
}

func TestAnalyzeBodyTooLarge(t *testing.T) {
	analyzeUC := usecase.NewAnalyzeUseCase(
		fakePreprocessor{}, fakeBaseline{}, fakeRemote{}, fakeScanner{}, 0.85,
	)
	rt := NewRouter(analyzeUC, usecase.NewRecordFeedbackUseCase(&fakeSink{}),
		fakeValidator{}, fakeLimiter{allow: true}, nil, Options{MaxBodyBytes: 64})
	handler := rt.Handler()

	body, contentType := multipartBody(t, map[string]string{
		"text_input": strings.Repeat("a", 4096),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp["error"], "payload too large") {
		t.Errorf("error = %q, want payload too large", resp["error"])
	}
}

func TestAnalyzeRemoteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "quota", err: domain.ErrRemoteQuota, wantStatus: http.StatusTooManyRequests},
		{name: "unavailable", err: domain.ErrRemoteUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "failure", err: domain.ErrRemoteFailure, wantStatus: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestRouter(t, tt.err, true)

			body, contentType := multipartBody(t, map[string]string{"text_input": "oi"})
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.Code, tt.wantStatus)
			}
			var resp map[string]string
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if strings.Contains(resp["error"], "gemini") {
				t.Errorf("provider detail leaked to client: %q", resp["error"])
			}
		})
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	sink := &fakeSink{}
	analyzeUC := usecase.NewAnalyzeUseCase(
		fakePreprocessor{}, fakeBaseline{}, fakeRemote{}, fakeScanner{}, 0.85,
	)
	rt := NewRouter(analyzeUC, usecase.NewRecordFeedbackUseCase(sink),
		fakeValidator{}, fakeLimiter{allow: true}, nil, Options{})
	handler := rt.Handler()

	payload := `{"content_hash":"abcdef0123456789","correct_label":"Produtivo","previous_label":"Improdutivo","source":"llm"}`
	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	if len(sink.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(sink.entries))
	}
	if sink.entries[0].CorrectLabel != domain.CategoryProductive {
		t.Errorf("correct label = %q", sink.entries[0].CorrectLabel)
	}

	bad := `{"content_hash":"abc","correct_label":"Produtivo"}`
	req = httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(bad))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("short hash: status = %d, want 400", res.Code)
	}
}

func TestAnalyzeMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(t, nil, true)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t, nil, true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
}
