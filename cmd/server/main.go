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

	"docupush-backend/internal/api"
	"docupush-backend/internal/config"
	"docupush-backend/internal/crypto"
	"docupush-backend/internal/handlers"
	"docupush-backend/internal/integrations"
	"docupush-backend/internal/integrations/notion"
	"docupush-backend/internal/integrations/sheets"
	api_models "docupush-backend/internal/models"
	"docupush-backend/internal/notify"
	"docupush-backend/internal/services"
	"docupush-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	log.Println("Starting DocuPush Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close() // Ensure pool is closed on exit

	// Ping DB to verify connection
	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Vault, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)
	log.Println("Postgres store initialized.")

	// --- Create Credential Vault ---
	vault, err := crypto.NewVault(cfg.MasterKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to create credential vault: %v", err)
	}
	log.Println("Credential vault initialized.")

	// --- Initialize Integration Registry ---
	intRegistry := integrations.NewRegistry()
	intRegistry.Register(string(api_models.ServiceTypeNotion), notion.NewIntegration())
	intRegistry.Register(string(api_models.ServiceTypeGoogleSheets), sheets.NewIntegration())
	log.Println("IntegrationRegistry initialized and populated.")

	// --- Initialize Ops Notifier (optional) ---
	notifier := notify.NewNotifier(cfg.SlackAlertToken, cfg.SlackAlertChannel)
	if notifier == nil {
		log.Println("Ops notifier not configured; push-failure alerts disabled.")
	} else {
		log.Println("Ops notifier initialized.")
	}

	// --- Initialize Services ---
	authService := services.NewAuthService(pgStore, cfg)
	log.Println("AuthService initialized.")
	documentsService := services.NewDocumentsService(pgStore)
	log.Println("DocumentsService initialized.")
	integrationsService := services.NewIntegrationsService(pgStore, vault, intRegistry)
	log.Println("IntegrationsService initialized.")
	pushService := services.NewPushService(pgStore, vault, notifier)
	log.Println("PushService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	documentsHandler := handlers.NewDocumentsHandler(documentsService)
	integrationsHandler := handlers.NewIntegrationsHandler(integrationsService)
	pushHandler := handlers.NewPushHandler(pushService)
	log.Println("Handlers initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler:         authHandler,
		DocumentsHandler:    documentsHandler,
		IntegrationsHandler: integrationsHandler,
		PushHandler:         pushHandler,
		Config:              cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // Pushes can block on destination retries
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
