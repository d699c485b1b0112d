// Package upload validates untrusted text and file input and extracts plain
// text from it under strict size, page and time limits.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

const (
	readChunkBytes = 64 * 1024
	sniffBytes     = 1024

	// Minimum fraction of printable characters for a decoded text file.
	printableRatioMin = 0.9
)

var pdfMagic = []byte("%PDF-")

var allowedExtensions = map[string]struct{}{
	".txt": {},
	".pdf": {},
}

// Inner suffixes that suggest polyglot naming, e.g. "report.exe.txt".
var suspiciousSuffixes = map[string]struct{}{
	".exe": {}, ".js": {}, ".bat": {}, ".cmd": {}, ".sh": {},
	".ps1": {}, ".php": {}, ".py": {}, ".com": {}, ".scr": {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

type Config struct {
	MaxFileBytes      int64
	MaxTextChars      int
	MaxExtractedChars int
	MaxPDFPages       int
	PDFTimeout        time.Duration
}

type Guard struct {
	cfg Config
}

func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// ValidateText validates directly pasted text.
func (g *Guard) ValidateText(text string) (domain.ExtractedText, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "validate text", errors.New("empty content"))
	}
	if utf8.RuneCountInString(cleaned) > g.cfg.MaxTextChars {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "validate text", errors.New("text exceeds the allowed limit"))
	}
	return domain.ExtractedText{Content: cleaned, Origin: domain.OriginText}, nil
}

// ValidateAndExtract validates the filename, streams the body under the byte
// cap and extracts normalized plain text from the upload.
func (g *Guard) ValidateAndExtract(ctx context.Context, filename string, body io.Reader) (domain.ExtractedText, error) {
	name, err := normalizeFilename(filename)
	if err != nil {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "validate filename", err)
	}

	raw, err := g.readBounded(body)
	if err != nil {
		return domain.ExtractedText{}, err
	}

	isPDFName := strings.HasSuffix(strings.ToLower(name), ".pdf")
	hasMagic := sniffPDFMagic(raw)

	var text string
	var origin domain.TextOrigin
	switch {
	case isPDFName && !hasMagic:
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "validate pdf", errors.New("invalid pdf"))
	case !isPDFName && hasMagic:
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "validate file", errors.New("file looks like a pdf but the extension does not match"))
	case isPDFName:
		text, err = g.extractPDF(ctx, raw)
		if err != nil {
			return domain.ExtractedText{}, err
		}
		origin = domain.OriginPDFFile
	default:
		text, err = decodeText(raw)
		if err != nil {
			return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "decode text file", err)
		}
		origin = domain.OriginTxtFile
	}

	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if text == "" {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "extract upload", errors.New("empty content"))
	}
	if utf8.RuneCountInString(text) > g.cfg.MaxExtractedChars {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrInvalidInput, "extract upload", errors.New("text exceeds the allowed limit"))
	}
	return domain.ExtractedText{Content: text, Origin: origin}, nil
}

// readBounded streams the body in chunks and aborts as soon as the running
// total crosses the cap, without buffering the rest of the stream.
func (g *Guard) readBounded(body io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, readChunkBytes)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if int64(buf.Len()) > g.cfg.MaxFileBytes {
				return nil, domain.WrapError(domain.ErrPayloadTooLarge, "read upload", errors.New("file exceeds the allowed size"))
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}
	}
}

// extractPDF bounds the whole extraction by a wall-clock deadline. On expiry
// the worker goroutine is abandoned and a typed error is returned.
func (g *Guard) extractPDF(ctx context.Context, raw []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.PDFTimeout)
	defer cancel()

	type extraction struct {
		text string
		err  error
	}
	done := make(chan extraction, 1)
	go func() {
		text, err := readPDFText(raw, g.cfg.MaxPDFPages)
		done <- extraction{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", errors.New("pdf read timed out"))
	case result := <-done:
		if result.err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", result.err)
		}
		return result.text, nil
	}
}

func normalizeFilename(filename string) (string, error) {
	if filename == "" || strings.ContainsRune(filename, 0) {
		return "", errors.New("invalid filename")
	}
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", errors.New("invalid filename")
	}
	if filepath.Base(filename) != filename {
		return "", errors.New("invalid filename")
	}

	suffixes := splitSuffixes(filename)
	if len(suffixes) == 0 {
		return "", errors.New("file has no extension")
	}
	last := suffixes[len(suffixes)-1]
	if _, ok := allowedExtensions[last]; !ok {
		return "", fmt.Errorf("unsupported file type %s, use .txt or .pdf", last)
	}
	for _, suffix := range suffixes[:len(suffixes)-1] {
		if _, bad := suspiciousSuffixes[suffix]; bad {
			return "", fmt.Errorf("suspicious inner extension %s", suffix)
		}
	}
	return filename, nil
}

// splitSuffixes returns every dot suffix of the name in order, lowercased:
// "a.exe.txt" yields [".exe", ".txt"].
func splitSuffixes(name string) []string {
	var suffixes []string
	rest := name
	for {
		ext := filepath.Ext(rest)
		if ext == "" || ext == rest {
			break
		}
		suffixes = append([]string{strings.ToLower(ext)}, suffixes...)
		rest = strings.TrimSuffix(rest, ext)
	}
	return suffixes
}

func sniffPDFMagic(raw []byte) bool {
	head := raw
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}
	head = bytes.TrimLeftFunc(head, unicode.IsSpace)
	return bytes.HasPrefix(head, pdfMagic)
}

// decodeText decodes a plain-text body as UTF-8 with a Latin-1 fallback and
// rejects content that does not look like text.
func decodeText(raw []byte) (string, error) {
	if bytes.ContainsRune(raw, 0) {
		return "", errors.New("invalid text file")
	}

	var text string
	if utf8.Valid(raw) {
		text = string(raw)
	} else {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", errors.New("invalid text file")
		}
		text = string(decoded)
	}

	printable, total := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return "", errors.New("invalid text file")
	}
	if float64(printable)/float64(total) < printableRatioMin {
		return "", errors.New("invalid text file")
	}
	return text, nil
}
