package compose

import (
	"fmt"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/shopspring/decimal"
)

type MovementMeta struct {
	Date          string
	Type          messages.MovementType
	LogisticsCost string
	HandledBy     string
	Remarks       string
}

// MovementState is everything the movement form shows. It is only ever
// changed through ReduceMovement.
type MovementState struct {
	Source      Endpoint
	Destination Endpoint
	Search      string
	Selection   Selection
	Meta        MovementMeta
	Inventory   *Inventory

	Status Status
	Notice string
	Error  string
}

func NewMovementState(inv *Inventory) MovementState {
	return MovementState{
		Source:      Endpoint{Role: RoleSource, LocationType: messages.LocationStore},
		Destination: Endpoint{Role: RoleDestination, LocationType: messages.LocationStore},
		Meta:        MovementMeta{Type: messages.MovementTransfer},
		Inventory:   inv,
	}
}

// Available lists the units at the source location matching the search term.
func (s MovementState) Available() []messages.PhysicalUnit {
	if !s.Source.IsSet() {
		return []messages.PhysicalUnit{}
	}
	return s.Inventory.AvailableUnits(s.Source.LocationType, s.Source.LocationId, s.Search)
}

func (s MovementState) TotalCost() decimal.Decimal {
	return Recompute(s.Selection, s.Meta.LogisticsCost)
}

// Validate is the gate a movement must pass before it is sent.
func (s MovementState) Validate() error {
	if !s.Source.IsSet() || !s.Destination.IsSet() {
		return fmt.Errorf("%w: both source and destination locations are required", ErrIncompleteDraft)
	}
	if s.Selection.SerialCount() == 0 {
		return fmt.Errorf("%w: select at least one unit", ErrIncompleteDraft)
	}
	if s.Source.Key() == s.Destination.Key() {
		return ErrSameLocation
	}
	return nil
}

func (s MovementState) Draft() messages.MovementDraft {
	return messages.MovementDraft{
		FromLocationType: s.Source.LocationType,
		FromLocationId:   s.Source.LocationId,
		ToLocationType:   s.Destination.LocationType,
		ToLocationId:     s.Destination.LocationId,
		MovementDate:     s.Meta.Date,
		MovementType:     s.Meta.Type,
		LogisticsCost:    messages.AmountOf(money.ToSafeNumber(s.Meta.LogisticsCost)),
		HandledBy:        s.Meta.HandledBy,
		Remarks:          s.Meta.Remarks,
		Equipment:        s.Selection.Lines(),
		TotalCost:        messages.AmountOf(s.TotalCost()),
	}
}

// ReduceMovement returns the state that results from applying a to s.
func ReduceMovement(s MovementState, a Action) MovementState {
	switch a := a.(type) {
	case SetEndpoint:
		switch a.Endpoint.Role {
		case RoleSource:
			if a.Endpoint.Key() != s.Source.Key() {
				// the selected units belong to the previous source
				s.Selection = nil
			}
			s.Source = a.Endpoint
		case RoleDestination:
			s.Destination = a.Endpoint
		}

	case SetSearch:
		s.Search = a.Term

	case ToggleUnit:
		s.Selection = s.Selection.Toggle(a.Unit)

	case SetMovementMeta:
		s.Meta = a.Meta

	case InventoryLoaded:
		s.Inventory = a.Inventory

	case SubmitStarted:
		if s.Status == StatusSubmitting {
			return s
		}
		s.Status = StatusSubmitting
		s.Notice = ""
		s.Error = ""

	case SubmitSucceeded:
		inv := s.Inventory
		if a.Inventory != nil {
			inv = a.Inventory
		}
		s = NewMovementState(inv)
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
