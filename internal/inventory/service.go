// Package inventory tracks the physical units at every location and applies
// movements and procurements to them, over NATS micro endpoints.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nats.go/micro"
)

type state struct {
	store Store
	js    jetstream.JetStream

	// mu serializes store writes with the stock updates they cause.
	mu sync.Mutex
}

type endpoint struct {
	name    string
	subject string
	handler func(context.Context, micro.Request, *state)
}

var endpoints = []endpoint{
	{"ping", "ping", pingHandler},
	{"units-list", "units.list", listUnitsHandler},
	{"movement-create", "movement.create", movementHandler},
	{"procurement-create", "procurement.create", procurementHandler},
}

// Setup publishes the current stock of every location and starts the
// `inventory.*` endpoints.
func Setup(ctx context.Context, nc *nats.Conn, store Store) (micro.Service, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to init JetStream: %w", err)
	}
	if err = common.CreateStream(ctx, js, common.StockUpdatesStreamConfig); err != nil {
		return nil, err
	}

	s := &state{store: store, js: js}
	if err = publishAll(ctx, s); err != nil {
		return nil, err
	}

	svc, err := micro.AddService(nc, micro.Config{Name: "inventory", Version: "0.1.0"})
	if err != nil {
		return nil, fmt.Errorf("failed to add micro service: %w", err)
	}

	grp := svc.AddGroup("inventory")
	for _, e := range endpoints {
		err = grp.AddEndpoint(e.name, common.NewHandler(ctx, s, e.handler), micro.WithEndpointSubject(e.subject))
		if err != nil {
			_ = svc.Stop()
			return nil, fmt.Errorf("failed to add endpoint %s: %w", e.name, err)
		}
	}

	slog.InfoContext(ctx, "Service setup successful", "service", "inventory")
	return svc, nil
}

// publishAll seeds the stock_updates stream with every location the store
// knows about, so a fresh read model starts complete.
func publishAll(ctx context.Context, s *state) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, err := s.store.Inventory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load inventory: %w", err)
	}

	for _, group := range inv {
		if err = sendStockUpdate(ctx, s, group.Key(), group.Units); err != nil {
			return fmt.Errorf("failed to publish stock of %s: %w", group.Key(), err)
		}
	}
	slog.InfoContext(ctx, "Published initial stock", "locations", len(inv))
	return nil
}
