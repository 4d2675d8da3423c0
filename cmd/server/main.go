package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/rpattn/datacatalog/internal/api"
	"github.com/rpattn/datacatalog/internal/catalog"
	"github.com/rpattn/datacatalog/internal/config"
	"github.com/rpattn/datacatalog/internal/db"
	"github.com/rpattn/datacatalog/internal/export"
	"github.com/rpattn/datacatalog/internal/extraction"
	"github.com/rpattn/datacatalog/internal/mapping"
	"github.com/rpattn/datacatalog/internal/middleware"
	"github.com/rpattn/datacatalog/internal/repository"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	dbConfig, err := config.LoadDBConfig(".")
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	serverConfig, err := config.LoadServerConfig(".")
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := conn.RunMigrations(ctx, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	fieldRepo := repository.NewCatalogFieldRepository(conn.Pool)
	sourceRepo := repository.NewDataSourceRepository(conn.Pool)
	mappingRepo := repository.NewFieldMappingRepository(conn.Pool)
	logRepo := repository.NewTransformLogRepository(conn.Pool)
	exportRepo := repository.NewExportJobRepository(conn.Pool)

	// Create services
	extractor := extraction.NewService(
		extraction.WithMaxFileBytes(serverConfig.MaxFileBytes),
		extraction.WithLogRepository(logRepo),
	)
	mappingService := mapping.NewService(mappingRepo, fieldRepo)
	catalogService := catalog.NewService(fieldRepo, mappingRepo, extractor, mappingService)
	if err := catalogService.SeedStandardFields(ctx); err != nil {
		log.Fatalf("Failed to seed standard catalog fields: %v", err)
	}

	exportOpts := []export.Option{
		export.WithExportDirectory(serverConfig.ExportDirectory),
		export.WithDownloadTokenTTL(serverConfig.ExportRetention),
	}
	if serverConfig.ExportSecret != "" {
		exportOpts = append(exportOpts, export.WithSigningSecret(serverConfig.ExportSecret))
	}
	exportService := export.NewService(sourceRepo, exportRepo, catalogService, exportOpts...)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   serverConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.LoggingMiddleware(h))
	}

	sourcesHandler := api.NewSourcesHandler(sourceRepo, logRepo, extractor, catalogService)
	mappingsHandler := api.NewMappingsHandler(mappingService, sourceRepo, extractor)
	catalogHandler := api.NewCatalogHandler(catalogService)
	exportsHandler := export.NewHTTPHandler(exportService)

	mux := http.NewServeMux()
	mux.Handle("/sources", wrap(sourcesHandler))
	mux.Handle("/sources/", wrap(sourcesHandler))
	mux.Handle("/mappings", wrap(mappingsHandler))
	mux.Handle("/mappings/", wrap(mappingsHandler))
	mux.Handle("/catalog/fields", wrap(catalogHandler))
	mux.Handle("/catalog/fields/", wrap(catalogHandler))
	mux.Handle("/catalog/validate", wrap(catalogHandler))
	mux.Handle("/exports", wrap(exportsHandler))
	mux.Handle("/exports/", wrap(exportsHandler))

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", serverConfig.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting data catalog server on :%d", serverConfig.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
