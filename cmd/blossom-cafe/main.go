package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"blossom-cafe/internal/app/api"
	"blossom-cafe/internal/app/gateway"
	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/common/logger"
	"blossom-cafe/internal/connections/database"
	"blossom-cafe/internal/dashboard"
)

func main() {
	mode := flag.String("mode", "", "api-server | notification-gateway | dashboard | migrate")
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	migrations := flag.String("migrations", "file://migrations", "migration source for -mode migrate")
	flag.Parse()

	// .env is optional; containers set real env vars instead.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	lg := logger.New(*mode, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "api-server":
		lg.Info().Str("action", "service_started").Int("port", cfg.Server.APIPort).Msg("starting api server")
		if err := api.Run(ctx, cfg, lg); err != nil {
			lg.Error().Str("action", "fatal").Err(err).Msg("api server failed")
			os.Exit(1)
		}

	case "notification-gateway":
		lg.Info().Str("action", "service_started").Int("port", cfg.Server.GatewayPort).Msg("starting notification gateway")
		if err := gateway.Run(ctx, cfg, lg); err != nil {
			lg.Error().Str("action", "fatal").Err(err).Msg("notification gateway failed")
			os.Exit(1)
		}

	case "dashboard":
		lg.Info().Str("action", "service_started").Str("api", cfg.Dashboard.APIBaseURL).Msg("starting dashboard session")
		session := dashboard.NewSession(cfg.Dashboard, dashboard.LogNotifier{Log: lg}, lg)
		go renderLoop(ctx, session, lg)
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			lg.Error().Str("action", "fatal").Err(err).Msg("dashboard session failed")
			os.Exit(1)
		}

	case "migrate":
		if err := database.Migrate(cfg.Database, *migrations); err != nil {
			lg.Error().Str("action", "fatal").Err(err).Msg("migrations failed")
			os.Exit(1)
		}
		lg.Info().Str("action", "migrations_applied").Msg("schema is up to date")

	default:
		fmt.Fprintln(os.Stderr, "--mode is required: api-server | notification-gateway | dashboard | migrate")
		os.Exit(2)
	}
}

// renderLoop logs the board periodically in headless mode so operators
// tailing the process see ticket state without a front-end.
func renderLoop(ctx context.Context, s *dashboard.Session, lg zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, o := range s.Orders() {
				lg.Info().
					Str("action", "board").
					Str("order_number", o.Number).
					Str("status", string(o.Status)).
					Str("payment_status", string(o.PaymentStatus)).
					Dur("elapsed", dashboard.ElapsedTime(&o, now)).
					Msg("ticket")
			}
			lg.Info().Str("action", "board").Str("feed", s.FeedState().String()).Int("orders", len(s.Orders())).Msg("board rendered")
		}
	}
}
