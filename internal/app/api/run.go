// Package api is the order API service: orders, status transitions and
// payment batches over HTTP, with an event published after every mutation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/common/auth"
	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/common/httpx"
	"blossom-cafe/internal/connections/database"
	"blossom-cafe/internal/connections/rabbitmq"
	"blossom-cafe/internal/events"
	"blossom-cafe/internal/repository"
)

// Run wires the API service and serves until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	authn := auth.New(cfg.Auth)
	svc := NewService(
		repository.NewOrdersPG(pool),
		repository.NewProductsPG(pool),
		events.NewPublisher(mq, lg),
		lg,
	)
	router := NewRouter(svc, authn, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.APIPort)
	lg.Info().Str("action", "service_started").Str("addr", addr).Msg("api server listening")
	return httpx.New(addr, router).Run(ctx)
}

// NewRouter builds the chi router; split out so handler tests can run
// against httptest without a real server.
func NewRouter(svc *Service, authn *auth.Authenticator, lg zerolog.Logger) http.Handler {
	h := &handlers{svc: svc, auth: authn}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger(lg))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(authn.Middleware)
		r.Get("/orders", h.listOrders)
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/status", h.updateStatus)
		r.Post("/orders/{id}/payments", h.submitPayments)
		r.Get("/products", h.listProducts)
	})
	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(lg zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			lg.Debug().
				Str("action", "http_request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", ww.Header().Get("X-Request-Id")).
				Msg("request handled")
		})
	}
}
