package inventory

import (
	"strings"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
)

// checkLines rejects empty drafts, blank serials and serials listed twice.
func checkLines(lines []messages.SelectionLine) (natsutil.Description, bool) {
	seen := make(map[string]bool)
	count := 0
	for _, line := range lines {
		for _, serial := range line.SerialNumbers {
			if strings.TrimSpace(serial) == "" {
				return natsutil.Invalid("Serial numbers cannot be blank"), false
			}
			if seen[serial] {
				return natsutil.Invalid("Serial number " + serial + " is listed twice"), false
			}
			seen[serial] = true
			count++
		}
	}
	if count == 0 {
		return natsutil.Invalid("At least one unit is required"), false
	}
	return natsutil.Description{}, true
}

func validateMovement(d messages.MovementDraft) (natsutil.Description, bool) {
	if !d.FromLocationType.Valid() || !d.ToLocationType.Valid() {
		return natsutil.Invalid("Location type must be one of store, pop, customer"), false
	}
	if d.FromLocationId == "" || d.ToLocationId == "" {
		return natsutil.Invalid("Source and destination locations are required"), false
	}
	if d.FromLocationType == d.ToLocationType && d.FromLocationId == d.ToLocationId {
		return natsutil.Invalid("Source and destination must differ"), false
	}
	if d.MovementType != "" && !validMovementType(d.MovementType) {
		return natsutil.Invalid("Unknown movement type"), false
	}
	return checkLines(d.Equipment)
}

func validMovementType(t messages.MovementType) bool {
	for _, known := range messages.MovementTypes {
		if t == known {
			return true
		}
	}
	return false
}

func validateProcurement(d messages.ProcurementDraft) (natsutil.Description, bool) {
	if d.SupplierId == "" {
		return natsutil.Invalid("Supplier is required"), false
	}
	if d.StoreId == "" {
		return natsutil.Invalid("Destination store is required"), false
	}
	return checkLines(d.Equipment)
}
