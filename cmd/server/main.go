package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gavelogy/internal/config"
	"gavelogy/internal/domain/repositories"
	"gavelogy/internal/entities"
	"gavelogy/internal/handler"
	"gavelogy/internal/middleware"
	"gavelogy/internal/repository/documents"
	"gavelogy/internal/repository/memory"
	"gavelogy/internal/repository/postgres"
	"gavelogy/internal/repository/sqlite"
	"gavelogy/internal/schedule"
	"gavelogy/internal/service/content"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	var logOutput io.Writer
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = logFile
	}
	logger := config.NewLogger(cfg, logOutput)
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"gateway", cfg.GatewayBackend,
		"recovery", cfg.RecoveryBackend,
	)

	registry, err := entities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load entity registry: %v", err)
	}
	logger.Info("entity registry loaded", "types", registry.Types())

	ctx := context.Background()

	// Persistence gateway
	var gateway repositories.Gateway
	switch cfg.GatewayBackend {
	case config.GatewayPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected",
			"max_conns", 25,
			"min_conns", 5,
		)

		gateway = postgres.NewGateway(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
	case config.GatewayMemory:
		logger.Warn("using in-memory gateway, changes are lost on restart")
		gateway = memory.NewGateway()
	default:
		log.Fatalf("Unknown gateway backend %q", cfg.GatewayBackend)
	}

	// Local recovery store for unsaved editor content
	var recovery repositories.RecoveryStore
	switch cfg.RecoveryBackend {
	case config.RecoverySQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.RecoveryPath), 0755); err != nil {
			log.Fatalf("Failed to create recovery directory: %v", err)
		}
		store, err := sqlite.OpenRecoveryStore(cfg.RecoveryPath, logger)
		if err != nil {
			log.Fatalf("Failed to open recovery store: %v", err)
		}
		defer store.Close()
		recovery = store
	case config.RecoveryMemory:
		recovery = memory.NewRecoveryStore()
	default:
		log.Fatalf("Unknown recovery backend %q", cfg.RecoveryBackend)
	}

	documentStore, err := documents.NewStore(gateway, registry, logger)
	if err != nil {
		log.Fatalf("Failed to create document store: %v", err)
	}

	// Create services
	ledger := content.NewLedger(gateway, registry, logger)
	structureService, err := content.NewStructureService(gateway, ledger, registry, logger)
	if err != nil {
		log.Fatalf("Failed to create structure service: %v", err)
	}
	draftService := content.NewDraftCache(content.DraftCacheConfig{
		Store:         documentStore,
		Recovery:      recovery,
		Clock:         schedule.RealClock{},
		AutosaveDelay: cfg.AutosaveDelay,
		FetchTimeout:  cfg.FetchTimeout,
		IsPlaceholder: ledger.IsPlaceholder,
		Logger:        logger,
	})

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Health:    handler.NewHealthHandler(ledger),
		Structure: handler.NewStructureHandler(structureService, logger),
		Changes:   handler.NewChangesHandler(ledger, logger),
		Editor:    handler.NewEditorHandler(draftService, logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestLogger → Recovery → Routes
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	// Flush the pending recovery snapshot before the store closes
	draftService.Close()

	if ledger.HasChanges() {
		logger.Warn("discarding uncommitted structural changes", "count", ledger.Len())
	}
}
