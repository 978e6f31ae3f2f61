package compose

import (
	"slices"
	"strings"

	"github.com/alimitedgroup/invdesk/common/messages"
)

// Inventory is a read-only index of physical units by location, built once
// from a gateway snapshot.
type Inventory struct {
	groups map[messages.LocationKey][]messages.PhysicalUnit
}

func NewInventory(snapshot messages.LocationGroupedInventory) *Inventory {
	inv := &Inventory{groups: make(map[messages.LocationKey][]messages.PhysicalUnit, len(snapshot))}
	for _, g := range snapshot {
		units := make([]messages.PhysicalUnit, len(g.Units))
		copy(units, g.Units)
		inv.groups[g.Key()] = append(inv.groups[g.Key()], units...)
	}
	return inv
}

// AvailableUnits returns the units present at the given location whose name,
// model or serial number contains search, ignoring case. An unknown location
// yields an empty list. The result is always a fresh slice.
func (inv *Inventory) AvailableUnits(locationType messages.LocationType, locationId string, search string) []messages.PhysicalUnit {
	if inv == nil {
		return []messages.PhysicalUnit{}
	}

	units := inv.groups[messages.LocationKey{Type: locationType, Id: locationId}]
	needle := strings.ToLower(search)

	out := make([]messages.PhysicalUnit, 0, len(units))
	for _, u := range units {
		if needle == "" || matches(u, needle) {
			out = append(out, u)
		}
	}
	return out
}

// Snapshot rebuilds the grouped form, e.g. for a spreadsheet export.
func (inv *Inventory) Snapshot() messages.LocationGroupedInventory {
	if inv == nil {
		return nil
	}

	out := make(messages.LocationGroupedInventory, 0, len(inv.groups))
	for key, units := range inv.groups {
		out = append(out, messages.LocationGroup{
			LocationType: key.Type,
			LocationId:   key.Id,
			Units:        append([]messages.PhysicalUnit(nil), units...),
		})
	}
	slices.SortFunc(out, func(a, b messages.LocationGroup) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	})
	return out
}

func matches(u messages.PhysicalUnit, needle string) bool {
	return strings.Contains(strings.ToLower(u.Equipment.Name), needle) ||
		strings.Contains(strings.ToLower(u.Equipment.Model), needle) ||
		strings.Contains(strings.ToLower(u.SerialNumber), needle)
}
