package worktree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists one JSON file per record under a directory. Writes go
// through a temp file and rename so a crash never leaves a torn record.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if existing, err := s.findLocked(func(r *Record) bool { return r.Name == rec.Name }); err == nil && existing != nil {
		return fmt.Errorf("record with name %q already exists", rec.Name)
	}

	return s.writeLocked(rec)
}

func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *FileStore) ListByOwner(ctx context.Context, ownerProjectID string) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, r := range all {
		if r.OwnerProjectID == ownerProjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FileStore) GetByID(ctx context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readLocked(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *FileStore) GetByName(ctx context.Context, name string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.findLocked(func(r *Record) bool { return r.Name == name })
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *FileStore) GetByContainerID(ctx context.Context, containerID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.findLocked(func(r *Record) bool {
		return r.Container != nil && r.Container.ID == containerID
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *FileStore) ListMonitored(ctx context.Context) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for _, r := range all {
		if r.Status == StatusRunning || r.Status == StatusError {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FileStore) Update(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("record has no id")
	}
	if _, err := os.Stat(s.path(rec.ID)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}

	rec.UpdatedAt = time.Now().UTC()
	return s.writeLocked(rec)
}

func (s *FileStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *FileStore) writeLocked(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	tmp := s.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	return os.Rename(tmp, s.path(rec.ID))
}

func (s *FileStore) readLocked(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", path, err)
	}
	return &rec, nil
}

func (s *FileStore) listLocked() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.readLocked(filepath.Join(s.dir, e.Name()))
		if err != nil {
			// Skip unreadable records rather than failing the listing.
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *FileStore) findLocked(match func(*Record) bool) (*Record, error) {
	all, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if match(r) {
			return r, nil
		}
	}
	return nil, nil
}

var _ Store = (*FileStore)(nil)
