package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marianoInsa/ChatBot-RAG/internal/api/handlers"
	"github.com/marianoInsa/ChatBot-RAG/internal/cache"
	"github.com/marianoInsa/ChatBot-RAG/internal/config"
	"github.com/marianoInsa/ChatBot-RAG/internal/database"
	"github.com/marianoInsa/ChatBot-RAG/internal/jobs"
	"github.com/marianoInsa/ChatBot-RAG/internal/loader"
	"github.com/marianoInsa/ChatBot-RAG/internal/provider"
	"github.com/marianoInsa/ChatBot-RAG/internal/repository"
	"github.com/marianoInsa/ChatBot-RAG/internal/server"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
	"github.com/marianoInsa/ChatBot-RAG/internal/storage"
	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the chatbot API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	indices := cache.NewLRU[string, *vectorstore.Index](cfg.VectorStoreCacheSize,
		cache.WithEvictCallback(func(tenantID string, _ *vectorstore.Index) {
			log.Printf("cache: evicted vector index for client %s", tenantID)
		}),
	)

	embedders := provider.NewEmbeddingFactory(provider.EmbeddingConfig{
		GoogleAPIKey:        cfg.GoogleAPIKey,
		HuggingFaceAPIToken: cfg.HuggingFaceAPIToken,
	})
	chatModels := provider.NewChatFactory(provider.ChatConfig{
		GroqAPIKey:    cfg.GroqAPIKey,
		GoogleAPIKey:  cfg.GoogleAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		EnableOllama:  cfg.EnableOllama,
	})

	uuidGen := &service.DefaultUUIDGenerator{}

	var managerOpts []service.ClientManagerOption
	if cfg.HasDatabase() {
		managerOpts = append(managerOpts, service.WithChangeTracking())
	}
	clients := service.NewClientManager(
		service.NewConfigResolver(cfg.TenantDefaults()),
		service.NewIngestionPipeline(uuidGen),
		embedders,
		indices,
		uuidGen,
		managerOpts...,
	)

	var syncWorker *jobs.Worker
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			source, _ := cmd.Flags().GetString("migrations")
			if err := database.Migrate(cfg.DatabaseURL, source); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		tenantRepo := repository.NewTenantRepository(pool)
		tenants, err := tenantRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore clients: %w", err)
		}
		clients.Restore(tenants)
		log.Printf("restored %d clients (vector indices are rebuilt on the next upload)", len(tenants))

		syncWorker = jobs.NewWorker("tenant-sync", jobs.NewTenantSyncProcessor(clients, tenantRepo), cfg.SyncInterval)
		go syncWorker.Start(ctx)
		log.Println("tenant sync worker started")
	} else {
		log.Println("CHATBOT_DATABASE_URL not set, client metadata is kept in memory only")
	}

	var docOpts []service.DocumentServiceOption
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		docOpts = append(docOpts, service.WithArchiver(s3Client))
	}

	pdfLoader := loader.NewPDFLoader(cfg.PDFToTextPath)
	if err := pdfLoader.CheckAvailable(); err != nil {
		log.Printf("warning: PDF extraction unavailable, PDF uploads will fail: %v", err)
	}
	webLoader := loader.NewWebLoader(loader.WebConfig{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.WebFetchTimeout,
		RequestsPerSecond: cfg.WebFetchRPS,
	})

	documents := service.NewDocumentService(
		clients,
		loader.New(pdfLoader, webLoader),
		service.UploadLimits{
			MaxFiles:    cfg.MaxFiles,
			MaxURLs:     cfg.MaxURLs,
			MaxFileSize: cfg.MaxFileSizeBytes(),
		},
		uuidGen,
		docOpts...,
	)
	conversations := service.NewConversationService(clients, chatModels)

	router := server.NewRouter(server.RouterConfig{
		ClientHandler:   handlers.NewClientHandler(clients),
		DocumentHandler: handlers.NewDocumentHandler(documents),
		ChatHandler:     handlers.NewChatHandler(conversations),
		AdminHandler:    handlers.NewAdminHandler(clients, documents),
		MaxBodyBytes:    int64(cfg.MaxFiles+1) * cfg.MaxFileSizeBytes(),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// after the server drains so the final flush sees every write
	if syncWorker != nil {
		syncWorker.Stop()
	}

	log.Println("server exited")
	return nil
}
