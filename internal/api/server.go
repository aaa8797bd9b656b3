// Package api exposes the marketplace over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tres-passos/marketplace/internal/metrics"
	"github.com/tres-passos/marketplace/internal/model"
	"github.com/tres-passos/marketplace/internal/monitoring"
)

// Catalog serves the service tree and per-scope forms.
type Catalog interface {
	GetAllServices(ctx context.Context) []model.Service
	ClearCache()
	GetQuestions(ctx context.Context, scope model.CatalogScope) []model.Question
	GetServiceItems(ctx context.Context, scope model.CatalogScope) []model.ServiceItem
}

// Matcher ranks providers and forwards quotes.
type Matcher interface {
	FindMatchingProviders(ctx context.Context, quote model.QuoteDetails) []model.ProviderMatch
	GetProviderDetails(ctx context.Context, providerID string) (*model.ProviderDetails, bool)
	SendQuoteToProvider(ctx context.Context, quote model.QuoteDetails, providerID string) model.SendResult
}

// Users lists and edits accounts.
type Users interface {
	List(ctx context.Context) []model.UserListItem
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error
}

// Health reports the latest store probe.
type Health interface {
	Status() monitoring.Status
}

// Deps are the services behind the router. Health may be nil.
type Deps struct {
	Catalog Catalog
	Matcher Matcher
	Users   Users
	Health  Health
}

// Server holds the handlers' dependencies.
type Server struct {
	deps Deps
}

// NewRouter builds the HTTP handler. allowedOrigins feeds the CORS policy.
func NewRouter(deps Deps, allowedOrigins []string) http.Handler {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/services", s.handleListServices)
		r.Delete("/services/cache", s.handleClearCatalogCache)
		r.Get("/questions", s.handleQuestions)
		r.Get("/service-items", s.handleServiceItems)

		r.Post("/matches", s.handleMatch)
		r.Get("/providers/{id}", s.handleProvider)
		r.Post("/providers/{id}/quotes", s.handleSendQuote)

		r.Get("/users", s.handleListUsers)
		r.Patch("/users/{id}/profile", s.handleUpdateProfile)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
