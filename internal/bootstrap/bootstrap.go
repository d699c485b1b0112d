package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/rafaelmdurante/mailtriage/internal/config"
	"github.com/rafaelmdurante/mailtriage/internal/core/ports"
	"github.com/rafaelmdurante/mailtriage/internal/core/usecase"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/baseline"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/feedback/csvstore"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/injection"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/llm/gemini"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/ratelimit"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/resilience"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/textproc"
	"github.com/rafaelmdurante/mailtriage/internal/infrastructure/upload"
	"github.com/rafaelmdurante/mailtriage/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Validator ports.InputValidator
	Admission ports.AdmissionLimiter
	Metrics   *metrics.Metrics

	AnalyzeUC  *usecase.AnalyzeUseCase
	FeedbackUC *usecase.RecordFeedbackUseCase
}

func New(cfg config.Config) (*App, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	guard := upload.NewGuard(upload.Config{
		MaxFileBytes:      cfg.MaxFileBytes(),
		MaxTextChars:      cfg.MaxTextChars,
		MaxExtractedChars: cfg.MaxExtractedChars,
		MaxPDFPages:       cfg.MaxPDFPages,
		PDFTimeout:        cfg.PDFTimeout(),
	})

	admission, err := ratelimit.NewSlidingWindow(cfg.RateLimitRequests, cfg.RateLimitWindow())
	if err != nil {
		return nil, fmt.Errorf("init admission limiter: %w", err)
	}

	// A missing model file is tolerated: the service degrades to
	// remote-only classification.
	baselineClassifier, err := baseline.Load(cfg.BaselineModelPath)
	if err != nil {
		return nil, fmt.Errorf("load baseline model: %w", err)
	}
	if !baselineClassifier.Loaded() {
		slog.Warn("baseline_model_missing", "path", cfg.BaselineModelPath)
	}

	remote := gemini.New(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.LLMTimeout(),
		Breaker: resilience.DefaultConfig(),
	})

	analyzeUC := usecase.NewAnalyzeUseCase(
		textproc.New(),
		baselineClassifier,
		remote,
		injection.NewDetector(),
		cfg.BaselineThreshold,
	)
	feedbackUC := usecase.NewRecordFeedbackUseCase(csvstore.New(cfg.FeedbackPath))

	return &App{
		Config:     cfg,
		Validator:  guard,
		Admission:  admission,
		Metrics:    metrics.New("mailtriage"),
		AnalyzeUC:  analyzeUC,
		FeedbackUC: feedbackUC,
	}, nil
}
