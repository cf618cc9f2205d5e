// handlers_runs.go - Calculation run operation handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/run"
	"github.com/pointtable/backend/internal/schema"
)

// RunHandlerImpl implements the RunHandler interface
type RunHandlerImpl struct {
	registry *schema.Registry
	runMgr   RunManager
}

// NewRunHandler creates a new run handler instance
func NewRunHandler(registry *schema.Registry, runMgr RunManager) RunHandler {
	return &RunHandlerImpl{
		registry: registry,
		runMgr:   runMgr,
	}
}

type startRunRequest struct {
	Project   map[string]any              `json:"project"`
	Items     []map[string]any            `json:"items"`
	Kinds     []models.TableKind          `json:"kinds"`
	Templates map[models.TableKind]string `json:"templates"`
}

// HandleStartRun decodes the request payloads and launches a calculation run
func (h *RunHandlerImpl) HandleStartRun(c echo.Context) error {
	var req startRunRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.Items) == 0 {
		return NewValidationError("items")
	}
	if len(req.Kinds) == 0 {
		return NewValidationError("kinds")
	}

	var project models.ProjectInfo
	if req.Project != nil {
		decoded, err := h.registry.DecodeProject(req.Project)
		if err != nil {
			if apiErr := FromCoreError(err); apiErr != nil {
				return apiErr
			}
			return NewInternalError("failed to decode project", err)
		}
		project = decoded
	}

	items := make([]models.EquipmentItem, 0, len(req.Items))
	for i, payload := range req.Items {
		item, err := h.registry.DecodeEquipment(payload, i)
		if err != nil {
			if apiErr := FromCoreError(err); apiErr != nil {
				return apiErr
			}
			return NewInternalError("failed to decode equipment", err)
		}
		items = append(items, *item)
	}

	r, err := h.runMgr.StartRun(run.Request{
		Project:   project,
		Items:     items,
		Kinds:     req.Kinds,
		Templates: req.Templates,
	})
	if err != nil {
		return NewBadRequestError("failed to start run", err)
	}

	return c.JSON(http.StatusAccepted, r)
}

// HandleRunStatus returns the current status of a calculation run
func (h *RunHandlerImpl) HandleRunStatus(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	r, ok := h.runMgr.GetRun(id)
	if !ok {
		return NewNotFoundError("run", id)
	}

	// Touch run to prevent cleanup while being viewed
	h.runMgr.TouchRun(id)

	return c.JSON(http.StatusOK, r)
}

// HandleRunKeepAlive extends run lifetime for active viewing
func (h *RunHandlerImpl) HandleRunKeepAlive(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	if ok := h.runMgr.TouchRun(id); !ok {
		return NewNotFoundError("run", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRunAssignments returns the allocation sequence of a run, optionally
// filtered by signal class
func (h *RunHandlerImpl) HandleRunAssignments(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	assignments, ok := h.runMgr.Assignments(id)
	if !ok {
		return NewNotFoundError("run", id)
	}

	if classParam := c.QueryParam("class"); classParam != "" {
		class := models.SignalClass(classParam)
		if !class.Valid() {
			return NewValidationError("class")
		}
		filtered := make([]models.ChannelAssignment, 0, len(assignments))
		for _, a := range assignments {
			if a.Class == class {
				filtered = append(filtered, a)
			}
		}
		assignments = filtered
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"runId":       id,
		"count":       len(assignments),
		"assignments": assignments,
	})
}

// HandleRunProgressStream streams run progress via SSE
func (h *RunHandlerImpl) HandleRunProgressStream(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	r, ok := h.runMgr.GetRun(id)
	if !ok {
		h.sendSSEError(c, "run not found")
		return nil
	}

	// Send initial status
	h.sendSSEData(c, r)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			r, ok := h.runMgr.GetRun(id)
			if !ok {
				h.sendSSEError(c, "run not found")
				return nil
			}

			h.sendSSEData(c, r)

			if r.Status == models.RunStatusComplete || r.Status == models.RunStatusError {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// HandleDeleteRun drops a run's in-memory results
func (h *RunHandlerImpl) HandleDeleteRun(c echo.Context) error {
	id := c.Param("runId")
	if id == "" {
		return NewValidationError("runId")
	}

	if ok := h.runMgr.DeleteRun(id); !ok {
		return NewNotFoundError("run", id)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RunHandlerImpl) sendSSEData(c echo.Context, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", data)
	c.Response().Flush()
}

func (h *RunHandlerImpl) sendSSEError(c echo.Context, message string) {
	fmt.Fprintf(c.Response(), "event: error\ndata: {\"message\":%q}\n\n", message)
	c.Response().Flush()
}
