// Package baseline wraps the pre-trained statistical classifier used as a
// cheap first-pass label source. The model is an artifact produced by an
// offline training job; this package only scores with it.
package baseline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

// Model is the serialized multinomial naive-bayes artifact: class log-priors
// and per-class token log-likelihoods, with a default log-likelihood for
// unseen tokens.
type Model struct {
	Classes              []string                      `json:"classes"`
	LogPrior             map[string]float64            `json:"log_prior"`
	LogLikelihood        map[string]map[string]float64 `json:"log_likelihood"`
	DefaultLogLikelihood map[string]float64            `json:"default_log_likelihood"`
}

func (m *Model) validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("model has no classes")
	}
	for _, class := range m.Classes {
		if _, ok := m.LogPrior[class]; !ok {
			return fmt.Errorf("model missing log prior for class %q", class)
		}
		if _, ok := m.DefaultLogLikelihood[class]; !ok {
			return fmt.Errorf("model missing default log likelihood for class %q", class)
		}
		if _, err := domain.ParseCategory(class); err != nil {
			return fmt.Errorf("model class: %w", err)
		}
	}
	return nil
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	model *Model
}

// Load reads the model artifact from disk. A missing file yields a
// classifier without a model, which simply has no opinion; a malformed file
// is a startup error.
func Load(path string) (*Classifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Classifier{}, nil
		}
		return nil, fmt.Errorf("read baseline model: %w", err)
	}

	var model Model
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("parse baseline model: %w", err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("validate baseline model: %w", err)
	}
	return &Classifier{model: &model}, nil
}

// NewWithModel builds a classifier around an in-memory model. Used by tests
// and by tooling that trains ad hoc models.
func NewWithModel(model *Model) (*Classifier, error) {
	if err := model.validate(); err != nil {
		return nil, err
	}
	return &Classifier{model: model}, nil
}

func (c *Classifier) Loaded() bool {
	return c != nil && c.model != nil
}

// Predict returns the argmax class with its probability, or no opinion when
// no model is loaded or the cleaned text is empty.
func (c *Classifier) Predict(cleanText string) (domain.BaselinePrediction, bool) {
	if !c.Loaded() {
		return domain.BaselinePrediction{}, false
	}
	tokens := strings.Fields(strings.TrimSpace(cleanText))
	if len(tokens) == 0 {
		return domain.BaselinePrediction{}, false
	}

	scores := make([]float64, len(c.model.Classes))
	for i, class := range c.model.Classes {
		score := c.model.LogPrior[class]
		likelihoods := c.model.LogLikelihood[class]
		for _, token := range tokens {
			if ll, ok := likelihoods[token]; ok {
				score += ll
			} else {
				score += c.model.DefaultLogLikelihood[class]
			}
		}
		scores[i] = score
	}

	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}

	// Softmax over log scores, shifted by the max for stability.
	var total float64
	for _, score := range scores {
		total += math.Exp(score - scores[best])
	}
	confidence := 1.0 / total

	category, _ := domain.ParseCategory(c.model.Classes[best])
	return domain.BaselinePrediction{Category: category, Confidence: confidence}, true
}
