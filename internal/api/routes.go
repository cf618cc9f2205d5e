// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/schema"
	"github.com/pointtable/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Registry    *schema.Registry
	Catalog     *catalog.Catalog
	RunMgr      RunManager
	ExportJobs  ExportJobManager
	ExportStore storage.Store
	EntrySource EntrySource // nil disables remote fetching
	MainEntryID string
	Version     string
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Schema   SchemaHandler
	Catalog  CatalogHandler
	Run      RunHandler
	Table    TableHandler
	Progress *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Catalog.Version()),
		Schema:   NewSchemaHandler(deps.Registry, deps.EntrySource, deps.MainEntryID),
		Catalog:  NewCatalogHandler(deps.Catalog),
		Run:      NewRunHandler(deps.Registry, deps.RunMgr),
		Table:    NewTableHandler(deps.RunMgr, deps.ExportJobs, deps.ExportStore),
		Progress: NewWebSocketHandler(deps.RunMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	// Schema and equipment decoding routes
	schemaGroup := e.Group("/api/schema")
	schemaGroup.GET("/fields", handlers.Schema.HandleListFields)

	equipmentGroup := e.Group("/api/equipment")
	equipmentGroup.POST("/decode", handlers.Schema.HandleDecodeEquipment)
	equipmentGroup.POST("/fetch", handlers.Schema.HandleFetchEquipment)

	// Catalog routes
	e.GET("/api/catalog/models", handlers.Catalog.HandleListModels)

	// Calculation run routes
	runGroup := e.Group("/api/runs")
	runGroup.POST("", handlers.Run.HandleStartRun)
	runGroup.GET("/:runId/status", handlers.Run.HandleRunStatus)
	runGroup.POST("/:runId/keepalive", handlers.Run.HandleRunKeepAlive)
	runGroup.GET("/:runId/progress", handlers.Run.HandleRunProgressStream)
	runGroup.GET("/:runId/assignments", handlers.Run.HandleRunAssignments)
	runGroup.DELETE("/:runId", handlers.Run.HandleDeleteRun)

	// Generated table routes
	runGroup.GET("/:runId/tables/:kind", handlers.Table.HandleGetTable)
	runGroup.GET("/:runId/tables/:kind/msgpack", handlers.Table.HandleGetTableMsgpack)
	runGroup.GET("/:runId/tables/:kind/csv", handlers.Table.HandleDownloadTableCSV)
	runGroup.POST("/:runId/exports", handlers.Table.HandleStartExport)

	// Export file routes
	exportGroup := e.Group("/api/exports")
	exportGroup.GET("/jobs/:jobId", handlers.Table.HandleExportJobStatus)
	exportGroup.GET("/recent", handlers.Table.HandleRecentExports)
	exportGroup.GET("/:id/download", handlers.Table.HandleDownloadExport)
	exportGroup.DELETE("/:id", handlers.Table.HandleDeleteExport)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/progress", handlers.Progress.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
