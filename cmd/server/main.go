package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gonum.org/v1/plot/vg"

	"github.com/churn-dashboard/backend/internal/api"
	"github.com/churn-dashboard/backend/internal/artifact"
	"github.com/churn-dashboard/backend/internal/chart"
	"github.com/churn-dashboard/backend/internal/config"
	"github.com/churn-dashboard/backend/internal/dashboard"
	"github.com/churn-dashboard/backend/internal/logging"
	"github.com/churn-dashboard/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// pixels converts a pixel size to plot units at the PNG renderer's 96 DPI.
func pixels(px int) vg.Length {
	return vg.Length(px) * vg.Inch / 96
}

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// .env next to the binary, then in the working directory
	for _, p := range []string{filepath.Join(exeDir, ".env"), ".env"} {
		if err := config.LoadDotEnv(p); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	// Load XML configuration
	configPath := filepath.Join(exeDir, config.FileName)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.SetDefault(cfg.Advanced.LogLevel, cfg.Advanced.LogFormat)
	api.SetExposeErrorDetails(logging.ParseLogLevel(cfg.Advanced.LogLevel) == slog.LevelDebug)

	// Load artifacts before serving; any failure ends the process
	loader := artifact.NewLoader(cfg.Artifacts.IdentifierColumn, logger)
	loader.Tables().Replace(&artifact.DuckDBTableReader{
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		Threads:     cfg.Advanced.DuckDBThreads,
	})
	artifacts, err := loader.Load(context.Background(), artifact.Paths{
		Model:    cfg.Artifacts.ModelPath,
		Features: cfg.Artifacts.FeaturesPath,
		Labels:   cfg.Artifacts.LabelsPath,
		Manifest: cfg.Artifacts.ManifestPath,
	})
	if err != nil {
		logger.Error("could not load model or data", "error", err)
		os.Exit(1)
	}

	policy, err := dashboard.ParsePolicy(cfg.Upload.MissingColumnPolicy)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	state := dashboard.NewState(artifacts, dashboard.Options{
		Title:  cfg.Dashboard.Title,
		TopN:   cfg.Dashboard.TopFeatures,
		Policy: policy,
	}, logger.WithGroup("batch"))

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/ws" || strings.HasPrefix(path, "/api/batch")
		},
		ErrorMessage: "Request timeout",
	}))

	// Compression middleware
	if cfg.Advanced.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Advanced.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/api/ws" || strings.HasSuffix(path, ".png")
			},
		}))
	}

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		if embeddedMode {
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 1 && origins[0] == "" {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	// API routes
	handlers := api.NewHandlers(&api.Dependencies{
		State:             state,
		Version:           Version,
		AllowedExtensions: cfg.AllowedExtensions(),
		Chart: chart.Options{
			Title:  chart.DefaultOptions.Title,
			Width:  pixels(cfg.Dashboard.ChartWidthPx),
			Height: pixels(cfg.Dashboard.ChartHeightPx),
		},
		WSMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
		Logger:         logger,
	})
	api.RegisterRoutes(e, handlers, middleware.BodyLimit(cfg.Upload.MaxUploadSize))

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		} else {
			fmt.Println("Serving embedded frontend from binary")
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Churn Dashboard Server                          ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Model:      %-45s║\n", artifacts.Model.Kind()+" "+artifacts.ModelVersion)
	fmt.Printf("║  Customers:  %-45d║\n", artifacts.RowCount())
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}
