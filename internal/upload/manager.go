// Package upload runs async export jobs: a generated table is rendered to
// CSV, kept in the local export store and optionally pushed to the remote
// data service.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pointtable/backend/internal/export"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/storage"
)

// Status represents the export job status.
type Status string

const (
	StatusExporting Status = "exporting"
	StatusStoring   Status = "storing"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Job represents an async export job.
type Job struct {
	ID           string             `json:"id"`
	RunID        string             `json:"runId"`
	Kind         models.TableKind   `json:"kind"`
	FileName     string             `json:"fileName"`
	Status       Status             `json:"status"`
	Progress     float64            `json:"progress"`
	Stage        string             `json:"stage"`
	Export       *models.ExportFile `json:"export,omitempty"`
	RemoteFileID string             `json:"remoteFileId,omitempty"`
	Error        string             `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}

// Uploader pushes a file to the remote data service.
type Uploader interface {
	UploadFile(ctx context.Context, name string, r io.Reader) (string, error)
}

// Manager handles async export processing.
type Manager struct {
	jobs   map[string]*Job
	mu     sync.RWMutex
	store  storage.Store
	remote Uploader // nil keeps exports local only
}

// NewManager creates an export job manager. remote may be nil for air-gapped
// deployments.
func NewManager(store storage.Store, remote Uploader) *Manager {
	return &Manager{
		jobs:   make(map[string]*Job),
		store:  store,
		remote: remote,
	}
}

// StartJob begins async export of one generated table.
func (m *Manager) StartJob(runID string, project models.ProjectInfo, tbl *models.GeneratedTable) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		RunID:     runID,
		Kind:      tbl.Kind,
		FileName:  export.FileName(project, tbl.Kind, time.Now()),
		Status:    StatusExporting,
		Stage:     "rendering csv",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.processJob(job.ID, tbl)

	snapshot := *job
	return &snapshot
}

// GetJob retrieves a job snapshot by ID.
func (m *Manager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

func (m *Manager) processJob(jobID string, tbl *models.GeneratedTable) {
	defer func() {
		if r := recover(); r != nil {
			m.markJobError(jobID, fmt.Sprintf("export panicked: %v", r))
		}
	}()

	job, ok := m.GetJob(jobID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, tbl); err != nil {
		m.markJobError(jobID, fmt.Sprintf("failed to render csv: %v", err))
		return
	}
	m.updateJobStatus(jobID, StatusStoring, "writing export file", 40)

	info, err := m.store.Save(job.FileName, job.RunID, job.Kind, &buf)
	if err != nil {
		m.markJobError(jobID, fmt.Sprintf("failed to store export: %v", err))
		return
	}
	m.mu.Lock()
	if j, ok := m.jobs[jobID]; ok {
		j.Export = info
	}
	m.mu.Unlock()

	if m.remote == nil {
		m.markJobComplete(jobID)
		return
	}

	m.updateJobStatus(jobID, StatusUploading, "uploading to data service", 60)

	path, err := m.store.GetFilePath(info.ID)
	if err != nil {
		m.markJobError(jobID, fmt.Sprintf("failed to locate export: %v", err))
		return
	}
	f, err := os.Open(path)
	if err != nil {
		m.markJobError(jobID, fmt.Sprintf("failed to open export: %v", err))
		return
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	remoteID, err := m.remote.UploadFile(ctx, job.FileName, f)
	if err != nil {
		m.markJobError(jobID, fmt.Sprintf("failed to upload export: %v", err))
		return
	}

	m.mu.Lock()
	if j, ok := m.jobs[jobID]; ok {
		j.RemoteFileID = remoteID
	}
	m.mu.Unlock()

	m.markJobComplete(jobID)
}

func (m *Manager) updateJobStatus(jobID string, status Status, stage string, progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.Status = status
	job.Stage = stage
	job.Progress = progress
}

func (m *Manager) markJobComplete(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.Status = StatusComplete
	job.Stage = "complete"
	job.Progress = 100
	now := time.Now()
	job.CompletedAt = &now
}

func (m *Manager) markJobError(jobID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.Status = StatusError
	job.Stage = "error"
	job.Error = errMsg
	now := time.Now()
	job.CompletedAt = &now
}

// CleanupOldJobs removes jobs older than the specified duration.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range m.jobs {
		if job.Status == StatusComplete || job.Status == StatusError {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(m.jobs, id)
			}
		}
	}
}
