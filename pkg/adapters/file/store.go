// Package file stores session snapshots as JSON documents in a local
// directory. Writes are atomic: a temp file is synced and renamed over the
// destination.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
)

const ext = ".json"

// Store implements ports.SnapshotStore on the local filesystem.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath, defaulting to ".genius/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".genius", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", domain.InvalidState("invalid session id %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+ext), nil
}

// Save writes the snapshot atomically.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	dest, err := s.path(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return domain.IoError(fmt.Errorf("ensure session directory: %w", err))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return domain.SerializationError(err)
	}

	// The temp file lives in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*"+ext)
	if err != nil {
		return domain.IoError(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return domain.IoError(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return domain.IoError(fmt.Errorf("fsync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return domain.IoError(fmt.Errorf("close temp file: %w", err))
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return domain.IoError(fmt.Errorf("remove previous snapshot: %w", err))
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return domain.IoError(fmt.Errorf("rename snapshot: %w", err))
	}
	return nil
}

// Load reads a snapshot. A missing file yields GameNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	src, err := s.path(sessionID)
	if err != nil {
		return nil, domain.GameNotFound(sessionID)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.GameNotFound(sessionID)
		}
		return nil, domain.IoError(fmt.Errorf("read snapshot: %w", err))
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, domain.SerializationError(err)
	}
	return &snap, nil
}

// Delete removes the snapshot file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	target, err := s.path(sessionID)
	if err != nil {
		return nil
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.IoError(fmt.Errorf("delete snapshot: %w", err))
	}
	return nil
}

// List returns the ids of stored snapshots.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, domain.IoError(fmt.Errorf("list snapshots: %w", err))
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ext))
	}
	return sessions, nil
}
