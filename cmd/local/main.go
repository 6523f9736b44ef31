package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"translation-backend/cmd"
	"translation-backend/internal/api"
	"translation-backend/internal/core"
	"translation-backend/internal/messaging"
	"translation-backend/internal/store"
)

// The local binary runs the API server and the batch worker in one process,
// backed by sqlite and an in-memory queue, so the service can be tried out
// without Redis or RabbitMQ.
type Config struct {
	Root             string        `env:"ROOT" envDefault:"./translation-backend"`
	Port             int           `env:"PORT" envDefault:"8000"`
	ResultTTL        time.Duration `env:"RESULT_TTL" envDefault:"1h"`
	TerminalTTL      time.Duration `env:"TERMINAL_TTL" envDefault:"5m"`
	CacheTTL         time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	ReclaimPolicy    string        `env:"RECLAIM_POLICY" envDefault:"delete"`
	BatchSize        int           `env:"BATCH_SIZE" envDefault:"16"`
	BatchTimeout     time.Duration `env:"BATCH_TIMEOUT" envDefault:"2s"`
	ModelBackend     string        `env:"MODEL_BACKEND" envDefault:"http"`
	ModelEndpointURL string        `env:"MODEL_ENDPOINT_URL" envDefault:"http://localhost:8080"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LanguagesFile    string        `env:"LANGUAGES_FILE" envDefault:""`
}

func createStore(cfg Config) *store.GormStore {
	path := filepath.Join(cfg.Root, "db", "translation-backend.db")
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	resultStore, err := store.NewGormStore(db, cfg.ResultTTL, cfg.TerminalTTL)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return resultStore
}

func createLoader(cfg Config) core.Loader {
	switch cfg.ModelBackend {
	case "http":
		return core.NewHTTPLoader(cfg.ModelEndpointURL)
	case "openai":
		return core.NewOpenAILoader(cfg.OpenAIModel)
	default:
		log.Fatalf("Invalid model backend: %s. Must be either 'http' or 'openai'", cfg.ModelBackend)
		return nil
	}
}

func createServer(resultStore store.ResultStore, queue messaging.Publisher, port int, deleteOnRead bool) *http.Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

	apiHandler := api.NewBackendService(resultStore, queue, deleteOnRead)
	apiHandler.AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port, "model_backend", cfg.ModelBackend)

	resultStore := createStore(cfg)

	queue := messaging.NewInMemoryQueue()

	registry := core.NewModelRegistry(cmd.LoadLanguageTable(cfg.LanguagesFile), createLoader(cfg))

	dispatcher := core.NewDispatcher(resultStore, queue, registry, cfg.BatchSize, cfg.BatchTimeout, cfg.CacheTTL)

	server := createServer(resultStore, queue, cfg.Port, cfg.ReclaimPolicy == "delete")

	slog.Info("starting worker")
	dispatcher.Start(1)

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		slog.Info("shutting down worker")
		dispatcher.Stop()
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
