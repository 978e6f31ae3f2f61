package compose

import "github.com/alimitedgroup/invdesk/common/messages"

// Action is anything the forms can dispatch to a reducer.
type Action interface {
	action()
}

type (
	SetEndpoint struct {
		Endpoint Endpoint
	}

	SetSearch struct {
		Term string
	}

	ToggleUnit struct {
		Unit messages.PhysicalUnit
	}

	SetMovementMeta struct {
		Meta MovementMeta
	}

	SetSupplier struct {
		SupplierId string
	}

	SetProcurementMeta struct {
		Meta ProcurementMeta
	}

	// InventoryLoaded replaces the location index, e.g. after the first fetch.
	InventoryLoaded struct {
		Inventory *Inventory
	}

	SubmitStarted struct{}

	// SubmitSucceeded carries the refreshed inventory, or nil when the refresh
	// failed and the previous snapshot should be kept.
	SubmitSucceeded struct {
		Message   string
		Id        string
		Inventory *Inventory
	}

	SubmitFailed struct {
		Message string
	}

	// SubmitRejected means the draft never left the client.
	SubmitRejected struct {
		Err error
	}
)

func (SetEndpoint) action()        {}
func (SetSearch) action()          {}
func (ToggleUnit) action()         {}
func (SetMovementMeta) action()    {}
func (SetSupplier) action()        {}
func (SetProcurementMeta) action() {}
func (InventoryLoaded) action()    {}
func (SubmitStarted) action()      {}
func (SubmitSucceeded) action()    {}
func (SubmitFailed) action()       {}
func (SubmitRejected) action()     {}
