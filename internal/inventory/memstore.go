package inventory

import (
	"context"
	"slices"
	"sync"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/google/uuid"
)

type memUnit struct {
	unit messages.PhysicalUnit
	at   messages.LocationKey
}

// MemStore is a Store kept in memory, used to run the service without
// PostgreSQL.
type MemStore struct {
	mu    sync.Mutex
	units []memUnit
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

// Place puts units at key, as if they had been procured there.
func (m *MemStore) Place(key messages.LocationKey, units ...messages.PhysicalUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range units {
		m.units = append(m.units, memUnit{unit: u, at: key})
	}
}

func (m *MemStore) Inventory(context.Context) (messages.LocationGroupedInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out messages.LocationGroupedInventory
	for _, u := range m.units {
		idx := slices.IndexFunc(out, func(g messages.LocationGroup) bool { return g.Key() == u.at })
		if idx < 0 {
			out = append(out, messages.LocationGroup{LocationType: u.at.Type, LocationId: u.at.Id})
			idx = len(out) - 1
		}
		out[idx].Units = append(out[idx].Units, u.unit)
	}
	return out, nil
}

func (m *MemStore) UnitsAt(_ context.Context, key messages.LocationKey) ([]messages.PhysicalUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []messages.PhysicalUnit{}
	for _, u := range m.units {
		if u.at == key {
			out = append(out, u.unit)
		}
	}
	return out, nil
}

func (m *MemStore) ApplyMovement(_ context.Context, _ uuid.UUID, d messages.MovementDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := messages.LocationKey{Type: d.FromLocationType, Id: d.FromLocationId}
	to := messages.LocationKey{Type: d.ToLocationType, Id: d.ToLocationId}

	var idx []int
	for _, line := range d.Equipment {
		for _, serial := range line.SerialNumbers {
			i := slices.IndexFunc(m.units, func(u memUnit) bool {
				return u.unit.SerialNumber == serial && u.unit.Equipment.Id == line.Id && u.at == from
			})
			if i < 0 {
				return ErrInsufficientStock
			}
			idx = append(idx, i)
		}
	}
	for _, i := range idx {
		m.units[i].at = to
	}
	return nil
}

func (m *MemStore) ApplyProcurement(_ context.Context, _ uuid.UUID, d messages.ProcurementDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store := messages.LocationKey{Type: messages.LocationStore, Id: d.StoreId}
	var added []memUnit
	for _, line := range d.Equipment {
		for _, serial := range line.SerialNumbers {
			if slices.ContainsFunc(m.units, func(u memUnit) bool { return u.unit.SerialNumber == serial }) {
				return ErrSerialRegistered
			}
			added = append(added, memUnit{
				unit: messages.PhysicalUnit{
					SerialNumber: serial,
					Equipment: messages.EquipmentCatalogEntry{
						Id: line.Id, Name: line.Name, Model: line.ModelNumber, UnitCost: line.UnitCost,
					},
				},
				at: store,
			})
		}
	}
	m.units = append(m.units, added...)
	return nil
}
