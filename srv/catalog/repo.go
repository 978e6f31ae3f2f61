package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errDuplicate = errors.New("duplicate entry")

// catalogRepo is the master data store behind the catalog subjects.
type catalogRepo interface {
	ListItems(ctx context.Context, kind messages.CatalogKind) ([]messages.EquipmentCatalogEntry, error)
	CreateItem(ctx context.Context, item messages.CreateCatalogItem) (uint64, error)
	ListSuppliers(ctx context.Context) ([]messages.Supplier, error)
	CreateSupplier(ctx context.Context, s messages.CreateSupplier) (string, error)
	ListLocations(ctx context.Context) (messages.Locations, error)
	CreateLocation(ctx context.Context, l messages.CreateLocation) (string, error)
	ListUsers(ctx context.Context) ([]messages.NamedRef, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id             BIGSERIAL PRIMARY KEY,
	kind           TEXT NOT NULL,
	name           TEXT NOT NULL,
	model          TEXT NOT NULL DEFAULT '',
	unit_cost      NUMERIC(14, 2) NOT NULL DEFAULT 0,
	equipment_type TEXT NOT NULL DEFAULT '',
	UNIQUE (kind, name, model)
);
CREATE TABLE IF NOT EXISTS suppliers (
	id      UUID PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	contact TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS locations (
	id            BIGSERIAL PRIMARY KEY,
	location_type TEXT NOT NULL,
	name          TEXT NOT NULL,
	UNIQUE (location_type, name)
);
CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
`

type pgRepo struct {
	db *pgxpool.Pool
}

func newPgRepo(ctx context.Context, db *pgxpool.Pool) (*pgRepo, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return &pgRepo{db: db}, nil
}

func (r *pgRepo) ListItems(ctx context.Context, kind messages.CatalogKind) ([]messages.EquipmentCatalogEntry, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, name, model, unit_cost::text AS unit_cost, equipment_type FROM catalog_items WHERE kind = $1 ORDER BY name, model",
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[messages.EquipmentCatalogEntry])
	if err != nil {
		return nil, fmt.Errorf("failed to collect catalog items: %w", err)
	}
	return items, nil
}

func (r *pgRepo) CreateItem(ctx context.Context, item messages.CreateCatalogItem) (uint64, error) {
	var id uint64
	err := r.db.QueryRow(ctx,
		"INSERT INTO catalog_items(kind, name, model, unit_cost, equipment_type) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		string(item.Kind), item.Name, item.Model, item.UnitCost.Decimal(), item.EquipmentType,
	).Scan(&id)
	if err != nil {
		return 0, classify(err, "failed to insert catalog item")
	}
	return id, nil
}

func (r *pgRepo) ListSuppliers(ctx context.Context) ([]messages.Supplier, error) {
	rows, err := r.db.Query(ctx, "SELECT id::text AS id, name, contact FROM suppliers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}

	suppliers, err := pgx.CollectRows(rows, pgx.RowToStructByName[messages.Supplier])
	if err != nil {
		return nil, fmt.Errorf("failed to collect suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *pgRepo) CreateSupplier(ctx context.Context, s messages.CreateSupplier) (string, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx, "INSERT INTO suppliers(id, name, contact) VALUES ($1, $2, $3)", id, s.Name, s.Contact)
	if err != nil {
		return "", classify(err, "failed to insert supplier")
	}
	return id.String(), nil
}

func (r *pgRepo) ListLocations(ctx context.Context) (messages.Locations, error) {
	rows, err := r.db.Query(ctx, "SELECT id::text AS id, name, location_type FROM locations ORDER BY name")
	if err != nil {
		return messages.Locations{}, fmt.Errorf("failed to query locations: %w", err)
	}

	type locationRow struct {
		Id           string `db:"id"`
		Name         string `db:"name"`
		LocationType string `db:"location_type"`
	}
	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[locationRow])
	if err != nil {
		return messages.Locations{}, fmt.Errorf("failed to collect locations: %w", err)
	}

	out := messages.Locations{Stores: []messages.NamedRef{}, Pops: []messages.NamedRef{}, Customers: []messages.NamedRef{}}
	for _, l := range all {
		ref := messages.NamedRef{Id: l.Id, Name: l.Name}
		switch messages.LocationType(l.LocationType) {
		case messages.LocationStore:
			out.Stores = append(out.Stores, ref)
		case messages.LocationPop:
			out.Pops = append(out.Pops, ref)
		case messages.LocationCustomer:
			out.Customers = append(out.Customers, ref)
		}
	}
	return out, nil
}

func (r *pgRepo) CreateLocation(ctx context.Context, l messages.CreateLocation) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		"INSERT INTO locations(location_type, name) VALUES ($1, $2) RETURNING id::text",
		string(l.LocationType), l.Name,
	).Scan(&id)
	if err != nil {
		return "", classify(err, "failed to insert location")
	}
	return id, nil
}

func (r *pgRepo) ListUsers(ctx context.Context) ([]messages.NamedRef, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[messages.NamedRef])
	if err != nil {
		return nil, fmt.Errorf("failed to collect users: %w", err)
	}
	return users, nil
}

// classify turns unique violations into errDuplicate.
func classify(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", msg, errDuplicate)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
