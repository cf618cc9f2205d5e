// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/run"
	"github.com/pointtable/backend/internal/upload"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SchemaHandler handles field schema and equipment decoding operations
type SchemaHandler interface {
	HandleListFields(c echo.Context) error
	HandleDecodeEquipment(c echo.Context) error
	HandleFetchEquipment(c echo.Context) error
}

// CatalogHandler handles channel model catalog operations
type CatalogHandler interface {
	HandleListModels(c echo.Context) error
}

// RunHandler handles calculation run operations
type RunHandler interface {
	HandleStartRun(c echo.Context) error
	HandleRunStatus(c echo.Context) error
	HandleRunKeepAlive(c echo.Context) error
	HandleRunAssignments(c echo.Context) error
	HandleRunProgressStream(c echo.Context) error
	HandleDeleteRun(c echo.Context) error
}

// TableHandler handles generated table and export operations
type TableHandler interface {
	HandleGetTable(c echo.Context) error
	HandleGetTableMsgpack(c echo.Context) error
	HandleDownloadTableCSV(c echo.Context) error
	HandleStartExport(c echo.Context) error
	HandleExportJobStatus(c echo.Context) error
	HandleRecentExports(c echo.Context) error
	HandleDownloadExport(c echo.Context) error
	HandleDeleteExport(c echo.Context) error
}

// RunManager defines the interface for run management
// This allows mocking in tests
type RunManager interface {
	StartRun(req run.Request) (*models.GenerationRun, error)
	GetRun(id string) (*models.GenerationRun, bool)
	TouchRun(id string) bool
	Assignments(id string) ([]models.ChannelAssignment, bool)
	Table(id string, kind models.TableKind) (*models.GeneratedTable, bool)
	DeleteRun(id string) bool
	Subscribe() (<-chan run.ProgressEvent, func())
}

// ExportJobManager defines the interface for async export jobs
type ExportJobManager interface {
	StartJob(runID string, project models.ProjectInfo, tbl *models.GeneratedTable) *upload.Job
	GetJob(id string) (*upload.Job, bool)
}

// EntrySource fetches raw equipment payloads from the remote form service
type EntrySource interface {
	ListEntries(ctx context.Context, entryID string, filter map[string]any) ([]map[string]any, error)
}
