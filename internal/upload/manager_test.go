// manager_test.go - Tests for async export jobs
package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/storage"
)

type fakeUploader struct {
	name    string
	content string
	err     error
}

func (f *fakeUploader) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.name = name
	f.content = string(data)
	return "remote-1", nil
}

func sampleTable() *models.GeneratedTable {
	return &models.GeneratedTable{
		Kind:    models.TableKindPLC,
		Columns: []string{"Tag", "Address"},
		Rows:    [][]string{{"PT-101_AI_0_0", "100"}},
	}
}

func waitForJob(t *testing.T, m *Manager, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.GetJob(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.Status == StatusComplete || job.Status == StatusError {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestStartJob_LocalOnly(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	m := NewManager(store, nil)

	job := m.StartJob("run-1", models.ProjectInfo{ProjectNo: "P-2031"}, sampleTable())
	final := waitForJob(t, m, job.ID)

	if final.Status != StatusComplete {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	if final.Export == nil || final.Export.Kind != models.TableKindPLC {
		t.Fatalf("export metadata = %+v", final.Export)
	}
	if final.RemoteFileID != "" {
		t.Error("local-only job must not have a remote file id")
	}
	if !strings.HasPrefix(final.FileName, "P-2031_plc_") {
		t.Errorf("file name = %s", final.FileName)
	}
}

func TestStartJob_UploadsToRemote(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	remote := &fakeUploader{}
	m := NewManager(store, remote)

	job := m.StartJob("run-1", models.ProjectInfo{ProjectNo: "P-2031"}, sampleTable())
	final := waitForJob(t, m, job.ID)

	if final.Status != StatusComplete {
		t.Fatalf("status = %s, error = %s", final.Status, final.Error)
	}
	if final.RemoteFileID != "remote-1" {
		t.Errorf("remote file id = %s", final.RemoteFileID)
	}
	if remote.name != final.FileName {
		t.Errorf("uploaded name = %s, want %s", remote.name, final.FileName)
	}
	if !strings.HasPrefix(remote.content, "Tag,Address\n") {
		t.Errorf("uploaded content = %q", remote.content)
	}
}

func TestStartJob_RemoteFailure(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	m := NewManager(store, &fakeUploader{err: errors.New("service down")})

	job := m.StartJob("run-1", models.ProjectInfo{ProjectNo: "P-2031"}, sampleTable())
	final := waitForJob(t, m, job.ID)

	if final.Status != StatusError {
		t.Fatalf("status = %s, want error", final.Status)
	}
	if !strings.Contains(final.Error, "service down") {
		t.Errorf("error = %s", final.Error)
	}
	// The local export survives a failed upload.
	if final.Export == nil {
		t.Error("local export metadata missing")
	}
}

func TestCleanupOldJobs(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	m := NewManager(store, nil)

	job := m.StartJob("run-1", models.ProjectInfo{}, sampleTable())
	waitForJob(t, m, job.ID)

	m.CleanupOldJobs(time.Hour)
	if _, ok := m.GetJob(job.ID); !ok {
		t.Fatal("fresh job was cleaned up")
	}

	m.mu.Lock()
	past := time.Now().Add(-2 * time.Hour)
	m.jobs[job.ID].CompletedAt = &past
	m.mu.Unlock()

	m.CleanupOldJobs(time.Hour)
	if _, ok := m.GetJob(job.ID); ok {
		t.Error("aged job survived cleanup")
	}
}
