// Package config provides XML-based configuration for the dashboard server.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// FileName is the default configuration file, created next to the binary.
const FileName = "ChurnDashboard.config"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"ChurnDashboard"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Model and reference table locations
	Artifacts ArtifactsConfig `xml:"Artifacts"`

	// Dashboard presentation
	Dashboard DashboardConfig `xml:"Dashboard"`

	// Batch upload handling
	Upload UploadConfig `xml:"Upload"`

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

// ArtifactsConfig locates the fitted model and its reference tables
type ArtifactsConfig struct {
	ModelPath        string `xml:"ModelPath"`
	FeaturesPath     string `xml:"FeaturesPath"`
	LabelsPath       string `xml:"LabelsPath"`
	ManifestPath     string `xml:"ManifestPath"`
	IdentifierColumn string `xml:"IdentifierColumn"`
}

// DashboardConfig contains presentation settings
type DashboardConfig struct {
	Title         string `xml:"Title"`
	TopFeatures   int    `xml:"TopFeatures"`
	ChartWidthPx  int    `xml:"ChartWidthPx"`
	ChartHeightPx int    `xml:"ChartHeightPx"`
}

// UploadConfig contains batch upload settings
type UploadConfig struct {
	MaxUploadSize       string `xml:"MaxUploadSize"`
	AllowedFileTypes    string `xml:"AllowedFileTypes"`
	MissingColumnPolicy string `xml:"MissingColumnPolicy"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	LogFormat               string `xml:"LogFormat"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	EnableCompression       bool   `xml:"EnableCompression"`
	CompressionLevel        int    `xml:"CompressionLevel"`
	DuckDBThreads           int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8501,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "50M",
		},
		Artifacts: ArtifactsConfig{
			ModelPath:        "./outputs/churn_model.msgpack",
			FeaturesPath:     "./outputs/X.parquet",
			LabelsPath:       "./outputs/y.parquet",
			ManifestPath:     "",
			IdentifierColumn: "customer_unique_id",
		},
		Dashboard: DashboardConfig{
			Title:         "E-commerce Customer Churn Prediction",
			TopFeatures:   10,
			ChartWidthPx:  720,
			ChartHeightPx: 480,
		},
		Upload: UploadConfig{
			MaxUploadSize:       "50M",
			AllowedFileTypes:    ".csv,.txt,.xlsx",
			MissingColumnPolicy: "impute",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			LogFormat:               "text",
			EnableRequestLogging:    true,
			EnableCompression:       true,
			CompressionLevel:        5,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "512MB",
			WebSocketMaxMessageSize: 65536,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	var config *AppConfig

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Churn Dashboard Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
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

	overrides := map[string]*string{
		"MODEL_PATH":    &c.Artifacts.ModelPath,
		"FEATURES_PATH": &c.Artifacts.FeaturesPath,
		"LABELS_PATH":   &c.Artifacts.LabelsPath,
		"MANIFEST_PATH": &c.Artifacts.ManifestPath,
		"LOG_LEVEL":     &c.Advanced.LogLevel,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Artifacts.ModelPath,
		&c.Artifacts.FeaturesPath,
		&c.Artifacts.LabelsPath,
		&c.Artifacts.ManifestPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate checks values that would otherwise fail later at startup.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Artifacts.ModelPath == "" || c.Artifacts.FeaturesPath == "" || c.Artifacts.LabelsPath == "" {
		return errors.New("model, features and labels paths must be set")
	}
	switch c.Upload.MissingColumnPolicy {
	case "", "impute", "reject":
	default:
		return fmt.Errorf("invalid missing column policy %q", c.Upload.MissingColumnPolicy)
	}
	if c.Dashboard.TopFeatures < 0 {
		return fmt.Errorf("invalid top features %d", c.Dashboard.TopFeatures)
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// AllowedExtensions returns the lower-cased upload extensions.
func (c *AppConfig) AllowedExtensions() []string {
	var out []string
	for _, ext := range strings.Split(c.Upload.AllowedFileTypes, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
