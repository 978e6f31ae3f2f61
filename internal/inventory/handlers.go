package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/micro"
)

// pingHandler is the handler for `inventory.ping`
func pingHandler(_ context.Context, req micro.Request, _ *state) {
	_ = req.Respond([]byte("pong"))
}

// listUnitsHandler is the handler for `inventory.units.list`
func listUnitsHandler(ctx context.Context, req micro.Request, s *state) {
	inv, err := s.store.Inventory(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error listing units", "error", err)
		natsutil.Respond(req, natsutil.QueryError)
		return
	}
	if inv == nil {
		inv = messages.LocationGroupedInventory{}
	}

	if err = req.RespondJSON(inv); err != nil {
		slog.ErrorContext(ctx, "Error sending response to client", "error", err)
	}
}

// movementHandler is the handler for `inventory.movement.create`
func movementHandler(ctx context.Context, req micro.Request, s *state) {
	var draft messages.MovementDraft
	if err := json.Unmarshal(req.Data(), &draft); err != nil {
		slog.ErrorContext(ctx, "Error unmarshaling movement", "error", err)
		natsutil.Respond(req, natsutil.InvalidRequest)
		return
	}
	if d, ok := validateMovement(draft); !ok {
		natsutil.Respond(req, d)
		return
	}

	total := compose.Recompute(draft.Equipment, string(draft.LogisticsCost))
	if !total.Equal(draft.TotalCost.Decimal()) {
		slog.WarnContext(ctx, "Movement total differs from client total", "client", draft.TotalCost, "server", total)
	}
	draft.TotalCost = messages.AmountOf(total)

	from := messages.LocationKey{Type: draft.FromLocationType, Id: draft.FromLocationId}
	to := messages.LocationKey{Type: draft.ToLocationType, Id: draft.ToLocationId}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	err := s.store.ApplyMovement(ctx, id, draft)
	if errors.Is(err, ErrInsufficientStock) {
		slog.InfoContext(ctx, "Movement refused", "reason", err)
		natsutil.Respond(req, natsutil.InsufficientStock)
		return
	} else if err != nil {
		slog.ErrorContext(ctx, "Error applying movement", "error", err)
		natsutil.Respond(req, natsutil.QueryError)
		return
	}
	slog.InfoContext(ctx, "Movement recorded", "id", id, "type", draft.MovementType, "total", draft.TotalCost)

	if err = publishStock(ctx, s, from, to); err != nil {
		slog.ErrorContext(ctx, "Error publishing stock after movement", "error", err, "id", id)
		natsutil.Respond(req, natsutil.PublishError)
		return
	}
	respondCreated(ctx, req, "Equipment movement recorded", id)
}

// procurementHandler is the handler for `inventory.procurement.create`
func procurementHandler(ctx context.Context, req micro.Request, s *state) {
	var draft messages.ProcurementDraft
	if err := json.Unmarshal(req.Data(), &draft); err != nil {
		slog.ErrorContext(ctx, "Error unmarshaling procurement", "error", err)
		natsutil.Respond(req, natsutil.InvalidRequest)
		return
	}
	if d, ok := validateProcurement(draft); !ok {
		natsutil.Respond(req, d)
		return
	}

	draft.TotalCost = messages.AmountOf(compose.Recompute(draft.Equipment, string(draft.LogisticsCost)))

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	err := s.store.ApplyProcurement(ctx, id, draft)
	if errors.Is(err, ErrSerialRegistered) {
		slog.InfoContext(ctx, "Procurement refused", "reason", err)
		natsutil.Respond(req, natsutil.SerialRegistered)
		return
	} else if err != nil {
		slog.ErrorContext(ctx, "Error applying procurement", "error", err)
		natsutil.Respond(req, natsutil.QueryError)
		return
	}
	slog.InfoContext(ctx, "Procurement recorded", "id", id, "supplier", draft.SupplierId, "total", draft.TotalCost)

	if err = publishStock(ctx, s, messages.LocationKey{Type: messages.LocationStore, Id: draft.StoreId}); err != nil {
		slog.ErrorContext(ctx, "Error publishing stock after procurement", "error", err, "id", id)
		natsutil.Respond(req, natsutil.PublishError)
		return
	}
	respondCreated(ctx, req, "Procurement recorded", id)
}

func respondCreated(ctx context.Context, req micro.Request, message string, id uuid.UUID) {
	if err := req.RespondJSON(messages.Response{Message: message, Id: id.String()}); err != nil {
		slog.ErrorContext(ctx, "Error sending response to client", "error", err)
	}
}

// publishStock sends the current unit list of every given location. The
// caller must hold s.mu, so updates for a location reach the stream in the
// order the store changed.
//
// TODO: this runs after the commit, so a failed publish leaves the read
// model stale until the next change at that location; write the updates to
// an outbox table inside the transaction instead.
func publishStock(ctx context.Context, s *state, keys ...messages.LocationKey) error {
	var errs []error
	for _, key := range keys {
		units, err := s.store.UnitsAt(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read units at %s: %w", key, err))
			continue
		}
		if err = sendStockUpdate(ctx, s, key, units); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish stock of %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func sendStockUpdate(ctx context.Context, s *state, key messages.LocationKey, units []messages.PhysicalUnit) error {
	if units == nil {
		units = []messages.PhysicalUnit{}
	}
	body, err := json.Marshal(messages.StockUpdate(units))
	if err != nil {
		return err
	}

	_, err = s.js.Publish(ctx, common.StockUpdateSubject(key), body)
	return err
}
