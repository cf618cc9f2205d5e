// Package storage keeps generated export files on the local filesystem so
// they can be re-downloaded or pushed to the remote data service later.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pointtable/backend/internal/models"
)

// Store defines the interface for export file storage.
type Store interface {
	Save(name, runID string, kind models.TableKind, r io.Reader) (*models.ExportFile, error)
	Get(id string) (*models.ExportFile, error)
	List(limit int) ([]*models.ExportFile, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu        sync.RWMutex
	exportDir string
	files     map[string]*models.ExportFile
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(exportDir string) (*LocalStore, error) {
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	return &LocalStore{
		exportDir: exportDir,
		files:     make(map[string]*models.ExportFile),
	}, nil
}

// Save writes an export file to disk and registers its metadata.
func (s *LocalStore) Save(name, runID string, kind models.TableKind, r io.Reader) (*models.ExportFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.exportDir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.ExportFile{
		ID:        id,
		Name:      name,
		RunID:     runID,
		Kind:      kind,
		Size:      size,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves export metadata by ID.
func (s *LocalStore) Get(id string) (*models.ExportFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("export not found: %s", id)
	}

	return info, nil
}

// List returns the most recent exports.
func (s *LocalStore) List(limit int) ([]*models.ExportFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*models.ExportFile
	for _, info := range s.files {
		list = append(list, info)
	}

	// Sort by CreatedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes an export from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("export not found: %s", id)
	}

	path := filepath.Join(s.exportDir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)

	return nil
}

// GetFilePath returns the absolute path to an export file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("export not found: %s", id)
	}

	return filepath.Join(s.exportDir, id), nil
}
