package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"filemanager/internal/auth"
	"filemanager/internal/config"
	"filemanager/internal/handler"
	"filemanager/internal/random"
	"filemanager/internal/repository"
	"filemanager/internal/service"
	"filemanager/internal/storage"
	"filemanager/internal/storage/s3"
)

func connectWithRetry(cfg *config.Config, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	dsn := cfg.Database.GetDSN()

	// Сначала подключаемся к системной базе postgres, чтобы при необходимости
	// создать рабочую базу
	pgDSN := strings.Replace(dsn, "dbname="+cfg.Database.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Database.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Database.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %q", cfg.Database.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", cfg.Database.GetURL())
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// newBlobStore выбирает реализацию хранилища блобов по конфигурации.
func newBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Type {
	case "s3":
		s3Config, err := s3.NewConfig(".s3.env")
		if err != nil {
			return nil, fmt.Errorf("failed to load S3 config: %w", err)
		}
		return s3.NewClient(s3Config)
	default:
		baseURL := strings.TrimRight(cfg.Server.BaseURL, "/") + "/storage"
		return storage.NewLocal(cfg.Storage.Root, baseURL)
	}
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	blobStore, err := newBlobStore(appConfig)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	// Инициализация репозиториев
	fileRepo := repository.NewFileRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Инициализация сервисов
	var authenticator service.Authenticator
	if appConfig.Auth.Required {
		authenticator = auth.NewService(userRepo)
	}

	fileService := service.NewFileService(
		fileRepo,
		blobStore,
		authenticator,
		random.New(),
		appConfig.Upload.BlockedExtensions,
	)
	cleanupService := service.NewCleanupService(fileRepo, blobStore)

	// Инициализация хендлеров
	fileHandler := handler.NewFileHandler(fileService, appConfig.Upload.MaxFileSizeMB*1024*1024)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/files", fileHandler.UploadFile)
		r.Get("/files", fileHandler.ListFiles)

		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", fileHandler.DownloadFile)
			r.Delete("/", fileHandler.DeleteFile)
		})
	})

	// Публичные URL блобов локального хранилища
	if appConfig.Storage.Type == "local" {
		fs := http.StripPrefix("/storage/", http.FileServer(http.Dir(appConfig.Storage.Root)))
		r.Get("/storage/*", fs.ServeHTTP)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Фоновая чистка записей, оставшихся без блоба
	stopCleanup := make(chan struct{})
	if appConfig.Storage.CleanupIntervalMinutes > 0 {
		cleanupTicker := time.NewTicker(time.Duration(appConfig.Storage.CleanupIntervalMinutes) * time.Minute)
		go func() {
			defer cleanupTicker.Stop()
			for {
				select {
				case <-cleanupTicker.C:
					removed, err := cleanupService.RemoveOrphanRecords(context.Background())
					if err != nil {
						log.Printf("Error during orphan cleanup: %v", err)
						continue
					}
					if removed > 0 {
						log.Printf("Orphan cleanup removed %d records", removed)
					}
				case <-stopCleanup:
					return
				}
			}
		}()
	}

	<-quit
	close(stopCleanup)
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}
