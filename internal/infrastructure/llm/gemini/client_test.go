package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/resilience"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return New(Config{
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash-002",
		BaseURL: baseURL,
		Timeout: timeout,
		Breaker: resilience.Config{Enabled: false},
	})
}

func modelReply(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func TestClassifyAndReplySuccess(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(modelReply(validPayload)))
	}))
	defer server.Close()

	client := testClient(server.URL, 5*time.Second)
	result, err := client.ClassifyAndReply(context.Background(), "Qual o status do pedido?", "status ped")
	if err != nil {
		t.Fatalf("ClassifyAndReply() error = %v", err)
	}
	if result.Category != domain.CategoryProductive {
		t.Fatalf("category = %q", result.Category)
	}

	if captured.SystemInstruction == nil || len(captured.SystemInstruction.Parts) == 0 {
		t.Fatalf("system instruction missing from request")
	}
	if captured.GenerationConfig.Temperature != temperature {
		t.Fatalf("temperature = %v", captured.GenerationConfig.Temperature)
	}
	if captured.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("response mime type = %q", captured.GenerationConfig.ResponseMIMEType)
	}
	prompt := captured.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Qual o status do pedido?") || !strings.Contains(prompt, "status ped") {
		t.Fatalf("prompt missing original or clean text: %q", prompt)
	}
}

func TestClassifyAndReplyCapsPromptInput(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(modelReply(validPayload)))
	}))
	defer server.Close()

	client := testClient(server.URL, 5*time.Second)
	huge := strings.Repeat("a", 50000)
	if _, err := client.ClassifyAndReply(context.Background(), huge, huge); err != nil {
		t.Fatalf("ClassifyAndReply() error = %v", err)
	}
	if len(prompt) > 2*maxPromptChars+1000 {
		t.Fatalf("prompt length %d exceeds the caps", len(prompt))
	}
}

func TestClassifyAndReplyQuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL, 5*time.Second)
	_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteQuota) {
		t.Fatalf("error = %v, want ErrRemoteQuota", err)
	}
	if !domain.IsKind(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("quota error must also be ErrRemoteUnavailable, got %v", err)
	}
}

func TestClassifyAndReplyResourceExhaustedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"out of quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL, 5*time.Second)
	_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteQuota) {
		t.Fatalf("error = %v, want ErrRemoteQuota", err)
	}
}

func TestClassifyAndReplyFailureTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"empty model text", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(modelReply("   ")))
		}},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}},
		{"malformed model json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(modelReply("the answer is {category: broken")))
		}},
		{"schema violation", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(modelReply(`{"category":"Produtivo","confidence":0.9,"summary":"s","suggested_reply":"r","tags":["a"],"needs_human_review":false,"reasons":["x","y"]}`)))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := testClient(server.URL, 5*time.Second)
			_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
			if !domain.IsKind(err, domain.ErrRemoteFailure) {
				t.Fatalf("error = %v, want ErrRemoteFailure", err)
			}
		})
	}
}

func TestClassifyAndReplyOpenBreakerIsUnavailable(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash-002",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Breaker: resilience.Config{
			Enabled:          true,
			MinRequests:      1,
			FailureRatio:     0.5,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		},
	})

	_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteFailure) {
		t.Fatalf("first error = %v, want ErrRemoteFailure", err)
	}

	_, err = client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteUnavailable) {
		t.Fatalf("open-circuit error = %v, want ErrRemoteUnavailable", err)
	}
	if domain.IsKind(err, domain.ErrRemoteFailure) {
		t.Fatalf("open-circuit error = %v, must not be ErrRemoteFailure", err)
	}
	if calls != 1 {
		t.Fatalf("server saw %d calls, want 1 while the circuit is open", calls)
	}
}

func TestClassifyAndReplyTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(modelReply(validPayload)))
	}))
	defer server.Close()
	defer close(release)

	client := testClient(server.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteFailure) {
		t.Fatalf("error = %v, want ErrRemoteFailure", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("error = %v, want timeout message", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call blocked for %v instead of honoring the deadline", elapsed)
	}
}

func TestClassifyAndReplyWithoutAPIKey(t *testing.T) {
	client := New(Config{Model: "m", Timeout: time.Second, Breaker: resilience.Config{Enabled: false}})
	_, err := client.ClassifyAndReply(context.Background(), "texto", "text")
	if !domain.IsKind(err, domain.ErrRemoteFailure) {
		t.Fatalf("error = %v, want ErrRemoteFailure", err)
	}
}
