// handlers_tables.go - Generated table and export operation handlers
package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/export"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/storage"
)

// TableHandlerImpl implements the TableHandler interface
type TableHandlerImpl struct {
	runMgr RunManager
	jobs   ExportJobManager
	store  storage.Store
}

// NewTableHandler creates a new table handler instance
func NewTableHandler(runMgr RunManager, jobs ExportJobManager, store storage.Store) TableHandler {
	return &TableHandlerImpl{
		runMgr: runMgr,
		jobs:   jobs,
		store:  store,
	}
}

func (h *TableHandlerImpl) resolveTable(c echo.Context) (*models.GeneratedTable, *models.GenerationRun, *APIError) {
	id := c.Param("runId")
	if id == "" {
		return nil, nil, NewValidationError("runId")
	}
	kind := models.TableKind(c.Param("kind"))
	if !models.ValidTableKind(kind) {
		return nil, nil, NewValidationError("kind")
	}

	r, ok := h.runMgr.GetRun(id)
	if !ok {
		return nil, nil, NewNotFoundError("run", id)
	}
	tbl, ok := h.runMgr.Table(id, kind)
	if !ok {
		return nil, nil, NewNotFoundError("table", string(kind))
	}
	return tbl, r, nil
}

// HandleGetTable returns one generated table as JSON
func (h *TableHandlerImpl) HandleGetTable(c echo.Context) error {
	tbl, _, apiErr := h.resolveTable(c)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, tbl)
}

// HandleGetTableMsgpack returns one generated table as msgpack for the
// frontend grid, which decodes it faster than JSON for large tables
func (h *TableHandlerImpl) HandleGetTableMsgpack(c echo.Context) error {
	tbl, _, apiErr := h.resolveTable(c)
	if apiErr != nil {
		return apiErr
	}

	data, err := export.EncodeMsgpack(tbl)
	if err != nil {
		return NewInternalError("failed to encode table", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleDownloadTableCSV streams one generated table as a CSV attachment
func (h *TableHandlerImpl) HandleDownloadTableCSV(c echo.Context) error {
	tbl, r, apiErr := h.resolveTable(c)
	if apiErr != nil {
		return apiErr
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, tbl); err != nil {
		return NewInternalError("failed to render csv", err)
	}

	name := export.FileName(r.Project, tbl.Kind, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

type startExportRequest struct {
	Kind models.TableKind `json:"kind"`
}

// HandleStartExport launches an async export job for one generated table
func (h *TableHandlerImpl) HandleStartExport(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	var req startExportRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !models.ValidTableKind(req.Kind) {
		return NewValidationError("kind")
	}

	r, ok := h.runMgr.GetRun(id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	tbl, ok := h.runMgr.Table(id, req.Kind)
	if !ok {
		return NewNotFoundError("table", string(req.Kind))
	}

	job := h.jobs.StartJob(id, r.Project, tbl)
	return c.JSON(http.StatusAccepted, job)
}

// HandleExportJobStatus returns the status of an export job
func (h *TableHandlerImpl) HandleExportJobStatus(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}

	job, ok := h.jobs.GetJob(id)
	if !ok {
		return NewNotFoundError("export job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleRecentExports lists the most recent export files
func (h *TableHandlerImpl) HandleRecentExports(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list exports", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"exports": files,
	})
}

// HandleDownloadExport streams a stored export file
func (h *TableHandlerImpl) HandleDownloadExport(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("export", id)
	}
	path, err := h.store.GetFilePath(id)
	if err != nil {
		return NewNotFoundError("export", id)
	}
	return c.Attachment(path, info.Name)
}

// HandleDeleteExport removes a stored export file
func (h *TableHandlerImpl) HandleDeleteExport(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("export", id)
	}
	return c.NoContent(http.StatusNoContent)
}
