package api

import (
	"log"
	"net/http"
	"time"

	"docupush-backend/internal/config"
	"docupush-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler         *handlers.AuthHandler
	DocumentsHandler    *handlers.DocumentsHandler
	IntegrationsHandler *handlers.IntegrationsHandler
	PushHandler         *handlers.PushHandler
	Config              *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)                 // Inject request ID into context
	r.Use(middleware.RealIP)                    // Use X-Forwarded-For or X-Real-IP
	r.Use(middleware.Logger)                    // Log requests (consider a structured logger)
	r.Use(middleware.Recoverer)                 // Recover from panics, return 500
	r.Use(middleware.Timeout(60 * time.Second)) // Set a request timeout

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.vercel.app"}, // Add your frontend dev/prod URLs
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		// Apply JWT Authentication Middleware
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Document Routes ---
		if deps.DocumentsHandler != nil {
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", deps.DocumentsHandler.HandleCreateDocument)
				r.Get("/", deps.DocumentsHandler.HandleListDocuments)
				r.Get("/{documentID}", deps.DocumentsHandler.HandleGetDocument)
				r.Delete("/{documentID}", deps.DocumentsHandler.HandleDeleteDocument)

				// Extracted fields
				r.Post("/{documentID}/fields", deps.DocumentsHandler.HandleIngestFields)
				r.Patch("/{documentID}/fields/{fieldID}", deps.DocumentsHandler.HandleCorrectField)
			})
		} else {
			log.Println("WARN: DocumentsHandler dependency is nil, skipping /v1/documents routes.")
		}

		// --- Mount Integration Routes ---
		if deps.IntegrationsHandler != nil {
			r.Route("/integrations", func(r chi.Router) {
				r.Post("/", deps.IntegrationsHandler.HandleConnectIntegration)
				r.Get("/", deps.IntegrationsHandler.HandleListIntegrations)
				r.Get("/{integrationID}", deps.IntegrationsHandler.HandleGetIntegration)
				r.Delete("/{integrationID}", deps.IntegrationsHandler.HandleDisconnectIntegration)
				r.Put("/{integrationID}/credential", deps.IntegrationsHandler.HandleUpdateCredential)
				r.Post("/{integrationID}/test", deps.IntegrationsHandler.HandleTestIntegration)
			})
		} else {
			log.Println("WARN: IntegrationsHandler dependency is nil, skipping /v1/integrations routes.")
		}

		// --- Mount Push Routes ---
		if deps.PushHandler != nil {
			r.Route("/pushes", func(r chi.Router) {
				r.Post("/", deps.PushHandler.HandlePush)
				r.Get("/", deps.PushHandler.HandleListPushes)
				r.Get("/{pushID}", deps.PushHandler.HandleGetPush)
			})
		} else {
			log.Println("WARN: PushHandler dependency is nil, skipping /v1/pushes routes.")
		}
	})

	return r
}
