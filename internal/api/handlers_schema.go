// handlers_schema.go - Field schema and equipment decoding handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/schema"
)

// SchemaHandlerImpl implements the SchemaHandler interface
type SchemaHandlerImpl struct {
	registry    *schema.Registry
	source      EntrySource // nil when remote fetching is not configured
	mainEntryID string
}

// NewSchemaHandler creates a new schema handler instance
func NewSchemaHandler(registry *schema.Registry, source EntrySource, mainEntryID string) SchemaHandler {
	return &SchemaHandlerImpl{
		registry:    registry,
		source:      source,
		mainEntryID: mainEntryID,
	}
}

// HandleListFields returns the declared field definitions of one form set
func (h *SchemaHandlerImpl) HandleListFields(c echo.Context) error {
	set := c.QueryParam("set")
	if set == "" {
		set = schema.SetEquipment
	}

	fields := h.registry.Fields(set)
	if fields == nil {
		return NewNotFoundError("field set", set)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"set":    set,
		"fields": fields,
	})
}

type decodeEquipmentRequest struct {
	Project map[string]any   `json:"project"`
	Items   []map[string]any `json:"items"`
}

type decodedEquipmentResponse struct {
	Project     models.ProjectInfo     `json:"project"`
	Items       []models.EquipmentItem `json:"items"`
	TotalPoints int                    `json:"totalPoints"`
}

// HandleDecodeEquipment decodes raw form payloads into typed equipment items
func (h *SchemaHandlerImpl) HandleDecodeEquipment(c echo.Context) error {
	var req decodeEquipmentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.Items) == 0 {
		return NewValidationError("items")
	}

	resp, err := h.decodePayloads(req.Project, req.Items)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

type fetchEquipmentRequest struct {
	EntryID string         `json:"entryId"`
	Filter  map[string]any `json:"filter"`
}

// HandleFetchEquipment pulls the equipment list from the remote form service
// and decodes it through the schema registry
func (h *SchemaHandlerImpl) HandleFetchEquipment(c echo.Context) error {
	if h.source == nil {
		return NewServiceUnavailableError("remote data service is not configured")
	}

	var req fetchEquipmentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	entryID := req.EntryID
	if entryID == "" {
		entryID = h.mainEntryID
	}
	if entryID == "" {
		return NewValidationError("entryId")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	payloads, err := h.source.ListEntries(ctx, entryID, req.Filter)
	if err != nil {
		return NewInternalError("failed to fetch entries", err)
	}
	if len(payloads) == 0 {
		return c.JSON(http.StatusOK, decodedEquipmentResponse{Items: []models.EquipmentItem{}})
	}

	resp, err := h.decodePayloads(nil, payloads)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SchemaHandlerImpl) decodePayloads(project map[string]any, items []map[string]any) (*decodedEquipmentResponse, error) {
	resp := &decodedEquipmentResponse{Items: make([]models.EquipmentItem, 0, len(items))}

	if project != nil {
		info, err := h.registry.DecodeProject(project)
		if err != nil {
			if apiErr := FromCoreError(err); apiErr != nil {
				return nil, apiErr
			}
			return nil, NewInternalError("failed to decode project", err)
		}
		resp.Project = info
	}

	for i, payload := range items {
		item, err := h.registry.DecodeEquipment(payload, i)
		if err != nil {
			if apiErr := FromCoreError(err); apiErr != nil {
				return nil, apiErr
			}
			return nil, NewInternalError("failed to decode equipment", err)
		}
		resp.Items = append(resp.Items, *item)
		resp.TotalPoints += item.TotalPoints()
	}
	return resp, nil
}
