// Package textproc reduces raw email text to the normalized representation
// consumed by the baseline classifier: quoted threads and signatures are
// stripped, tokens are lowercased, stopwords removed and stems joined back
// into a single string.
package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/portuguese"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

// Everything after the first line carrying one of these markers is a quoted
// reply thread and is discarded.
var replyMarkers = []string{
	"-----original message-----",
	"de:",
	"from:",
	"enviado:",
	"sent:",
	"assunto:",
	"subject:",
}

// Lines starting with these markers open a closing signature; the rest of
// the document is discarded.
var signatureMarkers = []string{
	"atenciosamente",
	"att",
	"abracos",
	"obrigado",
	"obrigada",
	"abs",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	tokenPattern  = regexp.MustCompile(`[a-zA-Z0-9]+`)
)

type Preprocessor struct {
	stopwords map[string]struct{}
}

func New() *Preprocessor {
	stopwords := make(map[string]struct{}, len(portugueseStopwords))
	for _, word := range portugueseStopwords {
		stopwords[word] = struct{}{}
	}
	return &Preprocessor{stopwords: stopwords}
}

// Preprocess is a pure function of its input. Stats describe the original
// trimmed text, not the reduced form.
func (p *Preprocessor) Preprocess(text string) domain.PreprocessedText {
	original := strings.TrimSpace(text)
	stripped := stripNoiseLines(original)
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(stripped), " "))

	tokens := tokenPattern.FindAllString(normalized, -1)

	stemmed := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, stop := p.stopwords[token]; stop {
			continue
		}
		stemmed = append(stemmed, stem(token))
	}

	return domain.PreprocessedText{
		CleanText:  strings.Join(stemmed, " "),
		TokenCount: len(tokens),
		CharCount:  utf8.RuneCountInString(original),
	}
}

func stripNoiseLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		lower := strings.ToLower(stripped)
		if strings.HasPrefix(lower, ">") {
			continue
		}
		if containsAny(lower, replyMarkers) {
			break
		}
		if hasAnyPrefix(lower, signatureMarkers) {
			break
		}
		kept = append(kept, stripped)
	}
	return strings.Join(kept, "\n")
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.HasPrefix(s, marker) {
			return true
		}
	}
	return false
}

func stem(token string) string {
	env := snowballstem.NewEnv(token)
	portuguese.Stem(env)
	return env.Current()
}
