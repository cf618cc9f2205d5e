// mock_storage.go - Mock export store implementation for testing
package testutil

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/storage"
)

// MockStorage implements storage.Store in memory. Error fields, when set,
// are returned by the matching method to drive failure-path tests.
type MockStorage struct {
	files    map[string]*models.ExportFile
	fileData map[string][]byte
	mu       sync.RWMutex

	SaveErr   error
	ListErr   error
	DeleteErr error
}

// NewMockStorage creates a new mock export store
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.ExportFile),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name, runID string, kind models.TableKind, r io.Reader) (*models.ExportFile, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := generateTestID()
	file := &models.ExportFile{
		ID:        id,
		Name:      name,
		RunID:     runID,
		Kind:      kind,
		Size:      int64(len(data)),
		CreatedAt: time.Now(),
	}
	m.files[id] = file
	m.fileData[id] = data
	return file, nil
}

func (m *MockStorage) Get(id string) (*models.ExportFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, errors.New("export not found")
	}
	return file, nil
}

func (m *MockStorage) List(limit int) ([]*models.ExportFile, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []*models.ExportFile
	for _, file := range m.files {
		files = append(files, file)
		if limit > 0 && len(files) >= limit {
			break
		}
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return errors.New("export not found")
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", errors.New("export not found")
	}
	return "/mock/path/" + id, nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// GetFileData returns the stored export content
func (m *MockStorage) GetFileData(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, errors.New("export not found")
	}
	return data, nil
}

// GetFileCount returns the number of stored exports
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// generateTestID generates a simple test ID
var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
