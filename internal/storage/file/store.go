// Package file persists simulation history as two JSON documents: the full
// ordered history and a copy of the latest record for cheap reads.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/farm-sim-service/internal/domain"
)

const (
	HistoryFile = "simulation_data.json"
	LatestFile  = "latest_data.json"
)

// ErrNoHistory is returned by Load when the history document does not exist.
var ErrNoHistory = errors.New("no persisted history")

// Store writes into a single directory. Every save rewrites both documents
// through a temp file and rename, so readers never see a partial file.
type Store struct {
	dir    string
	logger *slog.Logger
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string { return s.dir }

// Save rewrites the full history. The file format has no append mode, so
// from is only used for logging.
func (s *Store) Save(ctx context.Context, history []domain.Record, from int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if history == nil {
		history = []domain.Record{}
	}
	if err := s.writeJSON(HistoryFile, history); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	latest := filepath.Join(s.dir, LatestFile)
	if len(history) == 0 {
		if err := os.Remove(latest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove latest: %w", err)
		}
		return nil
	}
	if err := s.writeJSON(LatestFile, history[len(history)-1]); err != nil {
		return fmt.Errorf("write latest: %w", err)
	}

	s.logger.Debug("history saved", "records", len(history), "new", len(history)-from, "dir", s.dir)
	return nil
}

// Load reads the full history document.
func (s *Store) Load(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var history []domain.Record
	if err := s.readJSON(HistoryFile, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// Latest reads the latest-record document.
func (s *Store) Latest(ctx context.Context) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	var rec domain.Record
	if err := s.readJSON(LatestFile, &rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoHistory, name)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.dir, name))
}
