package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/internal/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := common.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load configuration", "error", err)
		return
	}

	otelshutdown, err := common.SetupOTelSDK(ctx, cfg.OtlpURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to set up observability", "error", err)
		return
	}
	defer otelshutdown(context.WithoutCancel(ctx))
	common.SetupRequestMetrics(ctx, "github.com/alimitedgroup/invdesk/srv/inventory")

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to connect to NATS", "error", err)
		return
	}
	defer nc.Close()

	pg, err := pgxpool.New(ctx, cfg.DbURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to connect to PostgreSQL", "error", err)
		return
	}
	defer pg.Close()

	store, err := inventory.NewPgStore(ctx, pg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to prepare database", "error", err)
		return
	}

	svc, err := inventory.Setup(ctx, nc, store)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to set up inventory service", "error", err)
		return
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			slog.ErrorContext(ctx, "Failed to gracefully stop service", "error", err)
		}
	}()

	// Wait for ctrl-c, and gracefully stop service
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	slog.InfoContext(ctx, "Shutting down")
}
