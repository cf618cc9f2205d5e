// handlers_catalog.go - Channel model catalog handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/models"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(cat *catalog.Catalog) CatalogHandler {
	return &CatalogHandlerImpl{catalog: cat}
}

// HandleListModels returns the registered channel models, optionally filtered
// by signal class
func (h *CatalogHandlerImpl) HandleListModels(c echo.Context) error {
	entries := h.catalog.Models()

	if classParam := c.QueryParam("class"); classParam != "" {
		class := models.SignalClass(classParam)
		if !class.Valid() {
			return NewValidationError("class")
		}
		filtered := entries[:0:0]
		for _, m := range entries {
			if m.Class == class {
				filtered = append(filtered, m)
			}
		}
		entries = filtered
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version": h.catalog.Version(),
		"models":  entries,
	})
}
