package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/flexcoach/internal/api"
	"alcyxob/flexcoach/internal/cache"
	"alcyxob/flexcoach/internal/config"
	"alcyxob/flexcoach/internal/metrics"
	"alcyxob/flexcoach/internal/remotesync"
	"alcyxob/flexcoach/internal/repository"
	"alcyxob/flexcoach/internal/repository/memory"
	"alcyxob/flexcoach/internal/repository/mongo"
	"alcyxob/flexcoach/internal/service"
	"alcyxob/flexcoach/internal/session"
	"alcyxob/flexcoach/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title FlexCoach API
// @version 1.0
// @description Coach-side client records, training/nutrition plans and program requests.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting FlexCoach Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := metrics.New(registry)

	// --- Remote Store ---
	var remote repository.Remote
	switch {
	case cfg.Database.Driver == "memory":
		log.Println("WARN: using the in-memory remote store; data is lost on exit.")
		remote = memory.New().Remote()
	case cfg.Database.URI != "":
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		dbClient, err := mongo.ConnectDB(connectCtx, cfg.Database.URI)
		cancel()
		if err != nil {
			log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
		}
		defer func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)
		log.Println("Database connection established.")

		go func() { // Run index creation in background
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			mongo.EnsureIndexes(ctx, appDB)
			log.Println("Index creation process completed.")
		}()
		remote = mongo.NewRemote(appDB)
	default:
		log.Println("WARN: no remote store configured, running cache-only.")
		remote = memory.New().Remote()
	}

	// --- Offline Cache ---
	kv, err := cache.OpenSQLite(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("FATAL: Could not open offline cache: %v", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Printf("ERROR: Failed to close offline cache: %v", err)
		}
	}()
	offline := cache.NewOfflineCache(kv, cfg.Cache.Slot)

	// --- Backup Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		fileStorage, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("INFO: s3.bucket_name not set, backup archives disabled.")
	}

	// --- Core ---
	sess := session.New(cfg.RemoteConfigured())
	orchestrator := remotesync.New(remote, sess, offline, remotesync.Options{
		Timeout:  cfg.Sync.Timeout,
		Debounce: cfg.Cache.Debounce,
		Metrics:  syncMetrics,
	})
	store := service.NewEntityStore(service.StoreDeps{
		Session:   sess,
		Sync:      orchestrator,
		Offline:   offline,
		Confirmer: api.QueryConfirmer,
		Metrics:   syncMetrics,
	})
	store.RestoreSession(context.Background())

	requestService := service.NewRequestService(store)
	backupService := service.NewBackupService(store, fileStorage)

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.GinMode)
	router := gin.Default() // Includes Logger and Recovery middleware

	log.Println("Setting up API routes...")
	api.SetupRoutes(router, api.RouteDeps{
		JWTSecret:      cfg.JWT.Secret,
		TokenTTL:       cfg.JWT.Expiration,
		DevTokens:      cfg.Server.DevTokens,
		Store:          store,
		RequestService: requestService,
		BackupService:  backupService,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	if cfg.JWT.Secret == "" {
		log.Println("WARN: jwt.secret not set, API is unauthenticated and stays cache-only.")
	}

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	// Waits for background resyncs and writes the final snapshot.
	store.Close()
	log.Println("Server exiting.")
}
