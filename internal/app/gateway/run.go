package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"blossom-cafe/internal/common/auth"
	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/common/httpx"
	"blossom-cafe/internal/connections/rabbitmq"
	"blossom-cafe/internal/domain"
	"blossom-cafe/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard runtime is not a browser; origin checks belong to a
	// front-end deployment behind a proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Run starts the notification gateway: AMQP consumer in, WebSocket fanout
// out.
func Run(ctx context.Context, cfg *config.Config, lg zerolog.Logger) error {
	mq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	hub := NewHub(lg)
	authn := auth.New(cfg.Auth)

	host, _ := os.Hostname()
	consumer := events.NewConsumer(mq, "gateway-"+host, lg)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"alive": true, "clients": %d}`, hub.ClientCount())
	})
	r.Get("/ws", serveWS(hub, authn, lg))

	addr := fmt.Sprintf(":%d", cfg.Server.GatewayPort)
	lg.Info().Str("action", "service_started").Str("addr", addr).Msg("notification gateway listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		return consumer.Run(gctx, func(ev domain.Event) { hub.Broadcast(ev) })
	})
	g.Go(func() error { return httpx.NewStreaming(addr, r).Run(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// serveWS authenticates the upgrade request and hands the connection to the
// hub. An invalid credential is rejected before the upgrade happens.
func serveWS(hub *Hub, authn *auth.Authenticator, lg zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromUpgrade(r)
		if err != nil {
			http.Error(w, "unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		claims, err := authn.Verify(token)
		if err != nil {
			http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			lg.Warn().Str("action", "ws_upgrade_failed").Err(err).Msg("upgrade failed")
			return
		}
		newClient(hub, conn, claims.Operator, lg).start()
	}
}
