/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine server. Handles
  configuration, dependency injection, the overdue sweep schedule, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment, then command-line flags)
  2. Configure logging
  3. Initialize SQLite store and PDF file store
  4. Create API handler with dependencies
  5. Start the overdue sweep on its cron schedule
  6. Start server with graceful shutdown

CONFIGURATION:
  Environment variables (prefix BILLING_), overridable by flags:
    BILLING_ADDR            Listen address        (default :8080)
    BILLING_DB_PATH         SQLite database path  (default billing.db)
    BILLING_PDF_DIR         PDF output directory  (default ./data/pdf)
    BILLING_PDF_BASE_URL    Public URL prefix for PDFs (default /files)
    BILLING_FONT_PATH       Optional UTF-8 TTF for CJK glyphs
    BILLING_LOG_LEVEL       debug|info|warn|error (default info)
    BILLING_SWEEP_SCHEDULE  Cron spec for the overdue sweep
                            (default "0 7 * * *", daily 07:00)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweep scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/billing.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on a different port
  ./server -addr=":3000"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
  - billing/overdue.go: The sweep the cron schedule drives
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/atelier/billing-engine/api"
	"github.com/atelier/billing-engine/billing"
	"github.com/atelier/billing-engine/pdf"
	"github.com/atelier/billing-engine/store/sqlite"
)

// Config is the server configuration, loaded from BILLING_* environment
// variables and overridable by flags.
type Config struct {
	Addr          string `envconfig:"ADDR" default:":8080"`
	DBPath        string `envconfig:"DB_PATH" default:"billing.db"`
	PDFDir        string `envconfig:"PDF_DIR" default:"./data/pdf"`
	PDFBaseURL    string `envconfig:"PDF_BASE_URL" default:"/files"`
	FontPath      string `envconfig:"FONT_PATH"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"0 7 * * *"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("billing", &cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags override environment
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (\":memory:\" for in-memory)")
	flag.StringVar(&cfg.PDFDir, "pdf-dir", cfg.PDFDir, "Directory for generated PDFs")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// PDF pipeline
	files, err := pdf.NewDiskStore(cfg.PDFDir, cfg.PDFBaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize PDF storage")
	}
	generator := &pdf.Generator{
		Store:    store,
		Files:    files,
		Log:      log,
		FontPath: cfg.FontPath,
	}

	// API
	handler := api.NewHandler(store, generator, log)
	router := api.NewRouter(handler, cfg.PDFDir)

	// Overdue sweep
	sweeper := &billing.Sweeper{Store: store, Log: log}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := sweeper.Run(ctx); err != nil {
			log.WithError(err).Error("Overdue sweep failed")
		}
	}); err != nil {
		log.WithError(err).Fatal("Invalid sweep schedule")
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
