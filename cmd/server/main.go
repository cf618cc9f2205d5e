package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pointtable/backend/internal/api"
	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/config"
	"github.com/pointtable/backend/internal/dataservice"
	"github.com/pointtable/backend/internal/run"
	"github.com/pointtable/backend/internal/runstore"
	"github.com/pointtable/backend/internal/schema"
	"github.com/pointtable/backend/internal/storage"
	"github.com/pointtable/backend/internal/table"
	"github.com/pointtable/backend/internal/upload"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "PointTableEngine.exe.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Field schema: built-in definitions unless a YAML override is configured
	registry := schema.NewDefaultRegistry()
	if cfg.Definitions.SchemaPath != "" {
		sets, err := schema.LoadDefinitions(cfg.Definitions.SchemaPath)
		if err != nil {
			fmt.Printf("Failed to load field schema: %v\n", err)
			os.Exit(1)
		}
		registry, err = schema.NewRegistry(sets)
		if err != nil {
			fmt.Printf("Invalid field schema: %v\n", err)
			os.Exit(1)
		}
	}

	// Channel model catalog
	cat := catalog.NewDefault()
	if cfg.Definitions.CatalogPath != "" {
		cat, err = catalog.Load(cfg.Definitions.CatalogPath)
		if err != nil {
			fmt.Printf("Failed to load channel catalog: %v\n", err)
			os.Exit(1)
		}
	}

	tpls, err := table.NewTemplateRegistry()
	if err != nil {
		fmt.Printf("Failed to build template registry: %v\n", err)
		os.Exit(1)
	}

	// Run archive for memoized recalculation
	archive, err := runstore.OpenAtPath(cfg.Storage.ArchivePath)
	if err != nil {
		fmt.Printf("Failed to open run archive: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	// Export file storage
	exportStore, err := storage.NewLocalStore(cfg.GetExportsDir())
	if err != nil {
		fmt.Printf("Failed to initialize export storage: %v\n", err)
		os.Exit(1)
	}

	// Remote data service client (optional)
	var remote *dataservice.Client
	if cfg.RemoteEnabled() {
		remote = dataservice.New(
			cfg.DataService.BaseURL,
			cfg.DataService.APIKey,
			cfg.DataService.AppID,
			dataservice.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.DataService.TimeoutSeconds) * time.Second,
			}),
		)
	}

	// Run manager and export jobs
	runMgr := run.NewManager(cat, tpls, archive)

	var uploader upload.Uploader
	if remote != nil {
		uploader = remote
	}
	exportJobs := upload.NewManager(exportStore, uploader)

	// Start background cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			maxAge := time.Duration(cfg.Processing.RunTimeoutMinutes) * time.Minute
			runMgr.CleanupOldRuns(maxAge)
			exportJobs.CleanupOldJobs(maxAge)
		}
	}()

	// API handlers
	deps := &api.Dependencies{
		Registry:    registry,
		Catalog:     cat,
		RunMgr:      runMgr,
		ExportJobs:  exportJobs,
		ExportStore: exportStore,
		MainEntryID: cfg.DataService.MainEntryID,
		Version:     Version,
	}
	if remote != nil {
		deps.EntrySource = remote
	}
	handlers := api.NewHandlers(deps)

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				strings.HasSuffix(path, "/progress") ||
				path == "/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.Contains(path, "/progress") ||
				strings.Contains(path, "/ws/") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - calculation took too long",
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	// Routes
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	remoteMode := "Local only"
	if remote != nil {
		remoteMode = "Remote data service enabled"
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           I/O Point Table Engine                          ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Catalog:    %-45s║\n", cat.Version())
	fmt.Printf("║  Mode:       %-45s║\n", remoteMode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}
