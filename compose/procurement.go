package compose

import (
	"fmt"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/shopspring/decimal"
)

type ProcurementMeta struct {
	Date          string
	Reference     string
	ReceivedBy    string
	LogisticsCost string
}

// ProcurementState backs the procurement form. Units are typed in by serial
// number and go through the same Selection as movements.
type ProcurementState struct {
	SupplierId string
	Store      Endpoint
	Selection  Selection
	Meta       ProcurementMeta

	Status Status
	Notice string
	Error  string
}

func NewProcurementState() ProcurementState {
	return ProcurementState{
		Store: Endpoint{Role: RoleDestination, LocationType: messages.LocationStore},
	}
}

func (s ProcurementState) TotalCost() decimal.Decimal {
	return Recompute(s.Selection, s.Meta.LogisticsCost)
}

func (s ProcurementState) Validate() error {
	if s.SupplierId == "" {
		return fmt.Errorf("%w: a supplier is required", ErrIncompleteDraft)
	}
	if !s.Store.IsSet() {
		return fmt.Errorf("%w: a destination store is required", ErrIncompleteDraft)
	}
	if s.Selection.SerialCount() == 0 {
		return fmt.Errorf("%w: add at least one serial number", ErrIncompleteDraft)
	}
	return nil
}

func (s ProcurementState) Draft() messages.ProcurementDraft {
	return messages.ProcurementDraft{
		SupplierId:      s.SupplierId,
		StoreId:         s.Store.LocationId,
		ProcurementDate: s.Meta.Date,
		Reference:       s.Meta.Reference,
		ReceivedBy:      s.Meta.ReceivedBy,
		LogisticsCost:   messages.AmountOf(money.ToSafeNumber(s.Meta.LogisticsCost)),
		Equipment:       s.Selection.Lines(),
		TotalCost:       messages.AmountOf(s.TotalCost()),
	}
}

func ReduceProcurement(s ProcurementState, a Action) ProcurementState {
	switch a := a.(type) {
	case SetSupplier:
		s.SupplierId = a.SupplierId

	case SetEndpoint:
		// procurements always land in a store
		if a.Endpoint.Role == RoleDestination && a.Endpoint.LocationType == messages.LocationStore {
			s.Store = a.Endpoint
		}

	case ToggleUnit:
		if a.Unit.SerialNumber == "" {
			return s
		}
		s.Selection = s.Selection.Toggle(a.Unit)

	case SetProcurementMeta:
		s.Meta = a.Meta

	case SubmitStarted:
		if s.Status == StatusSubmitting {
			return s
		}
		s.Status = StatusSubmitting
		s.Notice = ""
		s.Error = ""

	case SubmitSucceeded:
		s = NewProcurementState()
		s.Notice = a.Message

	case SubmitFailed:
		s.Status = StatusIdle
		s.Error = a.Message

	case SubmitRejected:
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
	}

	return s
}
