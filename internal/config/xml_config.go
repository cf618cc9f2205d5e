// Package config provides XML-based configuration management for air-gapped
// deployment sites.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"PointTableEngine"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Definitions point to the schema and catalog files
	Definitions DefinitionsConfig `xml:"Definitions"`

	// DataService holds remote form API credentials
	DataService DataServiceConfig `xml:"DataService"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains data directory settings
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	ExportsDirectory string `xml:"ExportsDirectory"`
	ArchivePath      string `xml:"ArchivePath"`
}

// DefinitionsConfig points to optional YAML overrides for the built-in field
// schema and channel model catalog. Empty paths keep the built-ins.
type DefinitionsConfig struct {
	SchemaPath  string `xml:"SchemaPath"`
	CatalogPath string `xml:"CatalogPath"`
}

// DataServiceConfig contains remote form API settings. An empty APIKey
// disables the remote endpoints.
type DataServiceConfig struct {
	BaseURL        string `xml:"BaseURL"`
	APIKey         string `xml:"APIKey"`
	AppID          string `xml:"AppID"`
	MainEntryID    string `xml:"MainEntryID"`
	TimeoutSeconds int    `xml:"TimeoutSeconds"`
}

// ProcessingConfig contains run lifecycle settings
type ProcessingConfig struct {
	RunTimeoutMinutes      int `xml:"RunTimeoutMinutes"`
	CleanupIntervalMinutes int `xml:"CleanupIntervalMinutes"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			ExportsDirectory: "./data/exports",
			ArchivePath:      "./data/runs.duckdb",
		},
		DataService: DataServiceConfig{
			BaseURL:        "https://api.jiandaoyun.com/api/v5/app",
			TimeoutSeconds: 30,
		},
		Processing: ProcessingConfig{
			RunTimeoutMinutes:      30,
			CleanupIntervalMinutes: 5,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &AppConfig{}
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Point Table Engine Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	// Credentials stay out of the on-disk file in shared deployments
	if key := os.Getenv("DATASERVICE_API_KEY"); key != "" {
		c.DataService.APIKey = key
	}
	if appID := os.Getenv("DATASERVICE_APP_ID"); appID != "" {
		c.DataService.AppID = appID
	}
	if entryID := os.Getenv("DATASERVICE_ENTRY_ID"); entryID != "" {
		c.DataService.MainEntryID = entryID
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.ExportsDirectory) {
		c.Storage.ExportsDirectory = filepath.Join(configDir, c.Storage.ExportsDirectory)
	}
	if !filepath.IsAbs(c.Storage.ArchivePath) {
		c.Storage.ArchivePath = filepath.Join(configDir, c.Storage.ArchivePath)
	}
	if c.Definitions.SchemaPath != "" && !filepath.IsAbs(c.Definitions.SchemaPath) {
		c.Definitions.SchemaPath = filepath.Join(configDir, c.Definitions.SchemaPath)
	}
	if c.Definitions.CatalogPath != "" && !filepath.IsAbs(c.Definitions.CatalogPath) {
		c.Definitions.CatalogPath = filepath.Join(configDir, c.Definitions.CatalogPath)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetExportsDir returns the absolute exports directory path
func (c *AppConfig) GetExportsDir() string {
	return c.Storage.ExportsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// RemoteEnabled reports whether the data service credentials are configured.
func (c *AppConfig) RemoteEnabled() bool {
	return c.DataService.APIKey != "" && c.DataService.AppID != ""
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ExportsDirectory,
		filepath.Dir(c.Storage.ArchivePath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
