// Package compose is the state model behind the movement and procurement
// forms: which serialized units are selected, what they cost, which units are
// available at a location, and how a draft gets submitted.
//
// Every update is a pure function returning a new value; the forms drive it
// through ReduceMovement and ReduceProcurement.
package compose

import (
	"slices"

	"github.com/alimitedgroup/invdesk/common/messages"
)

// Selection is the ordered list of lines being composed. A line never has an
// empty serial list, and a serial number is never in two lines.
type Selection []messages.SelectionLine

// Toggle selects unit if its serial number is not selected yet, and deselects
// it otherwise. The receiver is left untouched.
func (s Selection) Toggle(unit messages.PhysicalUnit) Selection {
	serial := unit.SerialNumber

	for i, line := range s {
		idx := slices.Index(line.SerialNumbers, serial)
		if idx < 0 {
			continue
		}

		serials := slices.Delete(slices.Clone(line.SerialNumbers), idx, idx+1)
		if len(serials) == 0 {
			return slices.Delete(s.clone(), i, i+1)
		}

		out := s.clone()
		out[i].SerialNumbers = serials
		return out
	}

	for i, line := range s {
		if line.Id != unit.Equipment.Id {
			continue
		}

		out := s.clone()
		out[i].SerialNumbers = append(slices.Clone(line.SerialNumbers), serial)
		return out
	}

	// Not part of the selection yet: the line is seeded from whatever
	// equipment snapshot came with the unit, even if the catalog no longer
	// knows about it.
	return append(s.clone(), messages.SelectionLine{
		Id:            unit.Equipment.Id,
		SerialNumbers: []string{serial},
		ModelNumber:   unit.Equipment.Model,
		Name:          unit.Equipment.Name,
		UnitCost:      unit.Equipment.UnitCost,
	})
}

// IsSelected reports whether serial is part of any line.
func (s Selection) IsSelected(serial string) bool {
	for _, line := range s {
		if slices.Contains(line.SerialNumbers, serial) {
			return true
		}
	}
	return false
}

// CountFor returns how many units of the given equipment are selected.
func (s Selection) CountFor(equipmentId uint64) int {
	for _, line := range s {
		if line.Id == equipmentId {
			return len(line.SerialNumbers)
		}
	}
	return 0
}

// SerialCount is the number of selected units across all lines.
func (s Selection) SerialCount() int {
	n := 0
	for _, line := range s {
		n += len(line.SerialNumbers)
	}
	return n
}

// Lines returns a deep copy suitable for putting on the wire.
func (s Selection) Lines() []messages.SelectionLine {
	out := make([]messages.SelectionLine, 0, len(s))
	for _, line := range s {
		line.SerialNumbers = slices.Clone(line.SerialNumbers)
		out = append(out, line)
	}
	return out
}

// clone copies the line headers; serial slices are still shared and must be
// replaced, not written to.
func (s Selection) clone() Selection {
	out := make(Selection, len(s), len(s)+1)
	copy(out, s)
	return out
}
