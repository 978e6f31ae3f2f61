package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/nats-io/nats.go"
)

func respondJSON(ctx context.Context, req *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshaling response", "error", err, "subject", req.Subject)
		natsutil.RespondMsg(req, natsutil.MarshalError)
		return
	}

	if err = req.Respond(data); err != nil {
		slog.ErrorContext(ctx, "Error sending response to client", "error", err, "subject", req.Subject)
	}
}

func respondCreated(ctx context.Context, req *nats.Msg, id string, err error) {
	if errors.Is(err, errDuplicate) {
		natsutil.RespondMsg(req, natsutil.AlreadyExists)
		return
	} else if err != nil {
		slog.ErrorContext(ctx, "Error creating catalog entry", "error", err, "subject", req.Subject)
		natsutil.RespondMsg(req, natsutil.QueryError)
		return
	}

	slog.InfoContext(ctx, "Catalog entry created", "subject", req.Subject, "id", id)
	respondJSON(ctx, req, messages.Response{Message: "Created", Id: id})
}

func decode(ctx context.Context, req *nats.Msg, v any) bool {
	if err := json.Unmarshal(req.Data, v); err != nil {
		slog.ErrorContext(ctx, "Error unmarshaling request data", "error", err, "subject", req.Subject)
		natsutil.RespondMsg(req, natsutil.InvalidRequest)
		return false
	}
	return true
}

// PingHandler is the handler for `catalog.ping`
func PingHandler(_ context.Context, _ *common.Service[catalogState], req *nats.Msg) {
	_ = req.Respond([]byte("pong"))
}

// ListItemsHandler serves `catalog.equipment.list` and `catalog.tool.list`.
func ListItemsHandler(kind messages.CatalogKind) common.Handler[catalogState] {
	return func(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
		items, err := s.State().repo.ListItems(ctx, kind)
		if err != nil {
			slog.ErrorContext(ctx, "Error listing catalog items", "error", err, "kind", kind)
			natsutil.RespondMsg(req, natsutil.QueryError)
			return
		}
		if items == nil {
			items = []messages.EquipmentCatalogEntry{}
		}
		respondJSON(ctx, req, items)
	}
}

// CreateItemHandler serves `catalog.equipment.create` and `catalog.tool.create`.
func CreateItemHandler(kind messages.CatalogKind) common.Handler[catalogState] {
	return func(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
		var msg messages.CreateCatalogItem
		if !decode(ctx, req, &msg) {
			return
		}
		msg.Kind = kind
		msg.Name = strings.TrimSpace(msg.Name)
		msg.Model = strings.TrimSpace(msg.Model)

		if msg.Name == "" {
			natsutil.RespondMsg(req, natsutil.Invalid("Name is required"))
			return
		}
		if msg.UnitCost.Decimal().IsNegative() {
			natsutil.RespondMsg(req, natsutil.Invalid("Unit cost cannot be negative"))
			return
		}

		id, err := s.State().repo.CreateItem(ctx, msg)
		respondCreated(ctx, req, strconv.FormatUint(id, 10), err)
	}
}

// ListSuppliersHandler is the handler for `catalog.supplier.list`
func ListSuppliersHandler(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
	suppliers, err := s.State().repo.ListSuppliers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error listing suppliers", "error", err)
		natsutil.RespondMsg(req, natsutil.QueryError)
		return
	}
	if suppliers == nil {
		suppliers = []messages.Supplier{}
	}
	respondJSON(ctx, req, suppliers)
}

// CreateSupplierHandler is the handler for `catalog.supplier.create`
func CreateSupplierHandler(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
	var msg messages.CreateSupplier
	if !decode(ctx, req, &msg) {
		return
	}
	msg.Name = strings.TrimSpace(msg.Name)
	if msg.Name == "" {
		natsutil.RespondMsg(req, natsutil.Invalid("Supplier name is required"))
		return
	}

	id, err := s.State().repo.CreateSupplier(ctx, msg)
	respondCreated(ctx, req, id, err)
}

// ListLocationsHandler is the handler for `catalog.location.list`
func ListLocationsHandler(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
	locations, err := s.State().repo.ListLocations(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error listing locations", "error", err)
		natsutil.RespondMsg(req, natsutil.QueryError)
		return
	}
	respondJSON(ctx, req, locations)
}

// CreateLocationHandler is the handler for `catalog.location.create`
func CreateLocationHandler(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
	var msg messages.CreateLocation
	if !decode(ctx, req, &msg) {
		return
	}
	msg.Name = strings.TrimSpace(msg.Name)

	if !msg.LocationType.Valid() {
		natsutil.RespondMsg(req, natsutil.Invalid("Location type must be one of store, pop, customer"))
		return
	}
	if msg.Name == "" {
		natsutil.RespondMsg(req, natsutil.Invalid("Location name is required"))
		return
	}

	id, err := s.State().repo.CreateLocation(ctx, msg)
	respondCreated(ctx, req, id, err)
}

// ListUsersHandler is the handler for `catalog.user.list`
func ListUsersHandler(ctx context.Context, s *common.Service[catalogState], req *nats.Msg) {
	users, err := s.State().repo.ListUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error listing users", "error", err)
		natsutil.RespondMsg(req, natsutil.QueryError)
		return
	}
	if users == nil {
		users = []messages.NamedRef{}
	}
	respondJSON(ctx, req, users)
}
