// Package csvstore appends triage corrections to an append-only CSV file.
// One process owns the file; writes are serialized by a mutex and synced
// before returning.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rafaelmdurante/mailtriage/internal/core/domain"
)

var header = []string{"timestamp", "content_hash", "correct_label", "previous_label", "source"}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Append(ctx context.Context, entry domain.FeedbackEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return fmt.Errorf("ensure feedback file: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback file: %w", err)
	}
	defer file.Close()

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	writer := csv.NewWriter(file)
	record := []string{
		at.UTC().Format(time.RFC3339),
		entry.ContentHash,
		string(entry.CorrectLabel),
		string(entry.PreviousLabel),
		entry.Source,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("write feedback record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush feedback record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync feedback file: %w", err)
	}
	return nil
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
