// Package snapshot persists serialized captures as JSON files with a
// metadata sidecar.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var (
	ErrInvalidID = errors.New("invalid capture id")
	ErrNotFound  = errors.New("capture not found")
)

// Capture sources.
const (
	SourceSelector = "selector"
	SourcePick     = "pick"
	SourceFile     = "file"
	SourceRender   = "render"
)

const metaSuffix = ".meta.json"

// CaptureMeta describes a stored capture.
type CaptureMeta struct {
	ID        string    `json:"id"`
	TabID     string    `json:"tab_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	Selector  string    `json:"selector,omitempty"`
	Source    string    `json:"source"`
	Tag       string    `json:"tag"`
	NodeCount int       `json:"node_count"`
	MaxDepth  int       `json:"max_depth"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewID returns a fresh capture id.
func NewID() string { return uuid.NewString() }

// Store manages capture files on disk.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir is the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

func (s *Store) validateID(id string) error {
	if !uuidRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Store) nodePath(id string) string { return filepath.Join(s.dir, id+".json") }
func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+metaSuffix) }

// Save writes both the capture JSON and the metadata sidecar. SizeBytes is
// set from data.
func (s *Store) Save(meta CaptureMeta, data []byte) (CaptureMeta, error) {
	if err := s.validateID(meta.ID); err != nil {
		return CaptureMeta{}, err
	}
	meta.SizeBytes = len(data)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodePath := s.nodePath(meta.ID)
	if err := os.WriteFile(nodePath, data, 0o644); err != nil {
		return CaptureMeta{}, fmt.Errorf("snapshot store: write capture: %w", err)
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		s.removeLocked(nodePath)
		return CaptureMeta{}, fmt.Errorf("snapshot store: marshal meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.ID), metaBytes, 0o644); err != nil {
		s.removeLocked(nodePath)
		return CaptureMeta{}, fmt.Errorf("snapshot store: write meta: %w", err)
	}

	slog.Debug("snapshot saved", "id", meta.ID, "source", meta.Source, "size_bytes", meta.SizeBytes)
	return meta, nil
}

// Get reads capture metadata by ID.
func (s *Store) Get(id string) (CaptureMeta, error) {
	if err := s.validateID(id); err != nil {
		return CaptureMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (CaptureMeta, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return CaptureMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return CaptureMeta{}, fmt.Errorf("snapshot store: read meta: %w", err)
	}

	var meta CaptureMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return CaptureMeta{}, fmt.Errorf("snapshot store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// Read returns the stored capture JSON.
func (s *Store) Read(id string) ([]byte, CaptureMeta, error) {
	if err := s.validateID(id); err != nil {
		return nil, CaptureMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.getLocked(id)
	if err != nil {
		return nil, CaptureMeta{}, err
	}
	data, err := os.ReadFile(s.nodePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, CaptureMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, CaptureMeta{}, fmt.Errorf("snapshot store: read capture: %w", err)
	}
	return data, meta, nil
}

// List returns all captures sorted by creation time (newest first).
func (s *Store) List() ([]CaptureMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+metaSuffix))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}

	metas := make([]CaptureMeta, 0, len(matches))
	for _, path := range matches {
		if !uuidRe.MatchString(strings.TrimSuffix(filepath.Base(path), metaSuffix)) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta CaptureMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			slog.Debug("snapshot meta unreadable", "path", path, "error", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	return metas, nil
}

// Delete removes both the capture and metadata files.
func (s *Store) Delete(id string) error {
	if err := s.validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getLocked(id); err != nil {
		return err
	}
	s.removeLocked(s.nodePath(id))
	s.removeLocked(s.metaPath(id))
	return nil
}

func (s *Store) removeLocked(path string) {
	if err := os.Remove(path); err != nil {
		slog.Debug("snapshot file cleanup failed", "path", path, "error", err)
	}
}
