package inventory

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

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSerialRegistered  = errors.New("serial number already registered")
)

// Store owns the physical units and the history of what moved them.
// Both Apply methods are all-or-nothing.
type Store interface {
	Inventory(ctx context.Context) (messages.LocationGroupedInventory, error)
	UnitsAt(ctx context.Context, key messages.LocationKey) ([]messages.PhysicalUnit, error)
	ApplyMovement(ctx context.Context, id uuid.UUID, d messages.MovementDraft) error
	ApplyProcurement(ctx context.Context, id uuid.UUID, d messages.ProcurementDraft) error
}

const schema = `
CREATE TABLE IF NOT EXISTS units (
	serial_number  TEXT PRIMARY KEY,
	equipment_id   BIGINT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	unit_cost      NUMERIC(14, 2) NOT NULL DEFAULT 0,
	equipment_type TEXT NOT NULL DEFAULT '',
	location_type  TEXT NOT NULL,
	location_id    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS units_location_idx ON units (location_type, location_id);
CREATE TABLE IF NOT EXISTS movements (
	id             UUID PRIMARY KEY,
	from_type      TEXT NOT NULL,
	from_id        TEXT NOT NULL,
	to_type        TEXT NOT NULL,
	to_id          TEXT NOT NULL,
	movement_date  TEXT NOT NULL DEFAULT '',
	movement_type  TEXT NOT NULL,
	logistics_cost NUMERIC(14, 2) NOT NULL DEFAULT 0,
	handled_by     TEXT NOT NULL DEFAULT '',
	remarks        TEXT NOT NULL DEFAULT '',
	total_cost     NUMERIC(14, 2) NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS movement_units (
	movement_id   UUID NOT NULL REFERENCES movements (id),
	serial_number TEXT NOT NULL,
	equipment_id  BIGINT NOT NULL,
	PRIMARY KEY (movement_id, serial_number)
);
CREATE TABLE IF NOT EXISTS procurements (
	id               UUID PRIMARY KEY,
	supplier_id      TEXT NOT NULL,
	store_id         TEXT NOT NULL,
	procurement_date TEXT NOT NULL DEFAULT '',
	reference        TEXT NOT NULL DEFAULT '',
	received_by      TEXT NOT NULL DEFAULT '',
	logistics_cost   NUMERIC(14, 2) NOT NULL DEFAULT 0,
	total_cost       NUMERIC(14, 2) NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS procurement_units (
	procurement_id UUID NOT NULL REFERENCES procurements (id),
	serial_number  TEXT NOT NULL,
	equipment_id   BIGINT NOT NULL,
	unit_cost      NUMERIC(14, 2) NOT NULL,
	PRIMARY KEY (procurement_id, serial_number)
);
`

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(ctx context.Context, db *pgxpool.Pool) (*PgStore, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create inventory schema: %w", err)
	}
	return &PgStore{db: db}, nil
}

type unitRow struct {
	SerialNumber  string          `db:"serial_number"`
	EquipmentId   uint64          `db:"equipment_id"`
	Name          string          `db:"name"`
	Model         string          `db:"model"`
	UnitCost      messages.Amount `db:"unit_cost"`
	EquipmentType string          `db:"equipment_type"`
	LocationType  string          `db:"location_type"`
	LocationId    string          `db:"location_id"`
}

func (r unitRow) unit() messages.PhysicalUnit {
	return messages.PhysicalUnit{
		SerialNumber: r.SerialNumber,
		Equipment: messages.EquipmentCatalogEntry{
			Id:            r.EquipmentId,
			Name:          r.Name,
			Model:         r.Model,
			UnitCost:      r.UnitCost,
			EquipmentType: r.EquipmentType,
		},
	}
}

const selectUnits = `SELECT serial_number, equipment_id, name, model, unit_cost::text AS unit_cost,
	equipment_type, location_type, location_id FROM units`

func (s *PgStore) Inventory(ctx context.Context) (messages.LocationGroupedInventory, error) {
	rows, err := s.db.Query(ctx, selectUnits+" ORDER BY location_type, location_id, serial_number")
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}

	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[unitRow])
	if err != nil {
		return nil, fmt.Errorf("failed to collect units: %w", err)
	}

	var out messages.LocationGroupedInventory
	for _, r := range all {
		key := messages.LocationKey{Type: messages.LocationType(r.LocationType), Id: r.LocationId}
		if len(out) == 0 || out[len(out)-1].Key() != key {
			out = append(out, messages.LocationGroup{LocationType: key.Type, LocationId: key.Id})
		}
		last := &out[len(out)-1]
		last.Units = append(last.Units, r.unit())
	}
	return out, nil
}

func (s *PgStore) UnitsAt(ctx context.Context, key messages.LocationKey) ([]messages.PhysicalUnit, error) {
	rows, err := s.db.Query(ctx,
		selectUnits+" WHERE location_type = $1 AND location_id = $2 ORDER BY serial_number",
		string(key.Type), key.Id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query units at %s: %w", key, err)
	}

	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[unitRow])
	if err != nil {
		return nil, fmt.Errorf("failed to collect units at %s: %w", key, err)
	}

	out := make([]messages.PhysicalUnit, 0, len(all))
	for _, r := range all {
		out = append(out, r.unit())
	}
	return out, nil
}

func (s *PgStore) ApplyMovement(ctx context.Context, id uuid.UUID, d messages.MovementDraft) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO movements
			(id, from_type, from_id, to_type, to_id, movement_date, movement_type, logistics_cost, handled_by, remarks, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, string(d.FromLocationType), d.FromLocationId, string(d.ToLocationType), d.ToLocationId,
			d.MovementDate, string(d.MovementType), d.LogisticsCost.Decimal(), d.HandledBy, d.Remarks, d.TotalCost.Decimal(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert movement: %w", err)
		}

		for _, line := range d.Equipment {
			for _, serial := range line.SerialNumbers {
				tag, err := tx.Exec(ctx, `UPDATE units SET location_type = $1, location_id = $2
					WHERE serial_number = $3 AND equipment_id = $4 AND location_type = $5 AND location_id = $6`,
					string(d.ToLocationType), d.ToLocationId,
					serial, line.Id, string(d.FromLocationType), d.FromLocationId,
				)
				if err != nil {
					return fmt.Errorf("failed to move unit %s: %w", serial, err)
				}
				if tag.RowsAffected() != 1 {
					return fmt.Errorf("unit %s is not at %s.%s: %w", serial, d.FromLocationType, d.FromLocationId, ErrInsufficientStock)
				}

				_, err = tx.Exec(ctx,
					"INSERT INTO movement_units (movement_id, serial_number, equipment_id) VALUES ($1, $2, $3)",
					id, serial, line.Id,
				)
				if err != nil {
					return fmt.Errorf("failed to record moved unit %s: %w", serial, err)
				}
			}
		}
		return nil
	})
}

func (s *PgStore) ApplyProcurement(ctx context.Context, id uuid.UUID, d messages.ProcurementDraft) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO procurements
			(id, supplier_id, store_id, procurement_date, reference, received_by, logistics_cost, total_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, d.SupplierId, d.StoreId, d.ProcurementDate, d.Reference, d.ReceivedBy,
			d.LogisticsCost.Decimal(), d.TotalCost.Decimal(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert procurement: %w", err)
		}

		for _, line := range d.Equipment {
			for _, serial := range line.SerialNumbers {
				_, err = tx.Exec(ctx, `INSERT INTO units
					(serial_number, equipment_id, name, model, unit_cost, location_type, location_id)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					serial, line.Id, line.Name, line.ModelNumber, line.UnitCost.Decimal(),
					string(messages.LocationStore), d.StoreId,
				)
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return fmt.Errorf("unit %s: %w", serial, ErrSerialRegistered)
				} else if err != nil {
					return fmt.Errorf("failed to insert unit %s: %w", serial, err)
				}

				_, err = tx.Exec(ctx,
					"INSERT INTO procurement_units (procurement_id, serial_number, equipment_id, unit_cost) VALUES ($1, $2, $3, $4)",
					id, serial, line.Id, line.UnitCost.Decimal(),
				)
				if err != nil {
					return fmt.Errorf("failed to record procured unit %s: %w", serial, err)
				}
			}
		}
		return nil
	})
}
