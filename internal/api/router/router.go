package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cancermitr/care-platform/internal/chat"
	httpmiddleware "github.com/cancermitr/care-platform/internal/http/middleware"
	"github.com/cancermitr/care-platform/internal/portal"
	"github.com/cancermitr/care-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	PortalHandler      *portal.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	JWTSecret      string
	AllowAnonymous bool

	// Requests/sec and burst for the chat endpoints; zero disables limiting.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated patient endpoints.
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.PatientJWT(cfg.JWTSecret, cfg.AllowAnonymous))
		if cfg.ChatRateLimit > 0 {
			private.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
		}
		if cfg.ChatHandler != nil {
			private.Post("/chat", cfg.ChatHandler.PostChat)
			private.Get("/chat/history/{sessionID}", cfg.ChatHandler.GetHistory)
		}
		if cfg.PortalHandler != nil {
			private.Get("/portal/dashboard", cfg.PortalHandler.GetDashboard)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
