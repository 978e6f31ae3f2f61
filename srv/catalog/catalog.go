package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
)

type catalogState struct {
	repo catalogRepo
}

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
	common.SetupRequestMetrics(ctx, "github.com/alimitedgroup/invdesk/srv/catalog")

	pool, err := pgxpool.New(ctx, cfg.DbURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to connect to database", "error", err)
		return
	}
	defer pool.Close()

	repo, err := newPgRepo(ctx, pool)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to prepare database", "error", err)
		return
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to connect to NATS", "error", err)
		return
	}

	if _, err = setupCatalog(ctx, nc, repo); err != nil {
		slog.ErrorContext(ctx, "Failed to set up catalog service", "error", err)
		return
	}

	// Wait for ctrl-c, and gracefully stop service
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	slog.InfoContext(ctx, "Shutting down")
}

func setupCatalog(ctx context.Context, nc *nats.Conn, repo catalogRepo) (*common.Service[catalogState], error) {
	svc, err := common.NewService(ctx, nc, catalogState{repo: repo})
	if err != nil {
		return nil, err
	}

	handlers := map[string]common.Handler[catalogState]{
		"catalog.ping":             PingHandler,
		"catalog.equipment.list":   ListItemsHandler(messages.KindEquipment),
		"catalog.equipment.create": CreateItemHandler(messages.KindEquipment),
		"catalog.tool.list":        ListItemsHandler(messages.KindTool),
		"catalog.tool.create":      CreateItemHandler(messages.KindTool),
		"catalog.supplier.list":    ListSuppliersHandler,
		"catalog.supplier.create":  CreateSupplierHandler,
		"catalog.location.list":    ListLocationsHandler,
		"catalog.location.create":  CreateLocationHandler,
		"catalog.user.list":        ListUsersHandler,
	}
	for subject, handler := range handlers {
		if err = svc.RegisterHandler(subject, common.Instrument(handler)); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", subject, err)
		}
	}

	slog.InfoContext(ctx, "Service setup successful", "service", "catalog")
	return svc, nil
}
