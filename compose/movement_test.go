package compose

import (
	"testing"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/stretchr/testify/require"
)

func reduceAll(s MovementState, actions ...Action) MovementState {
	for _, a := range actions {
		s = ReduceMovement(s, a)
	}
	return s
}

func source(typ messages.LocationType, id string) SetEndpoint {
	return SetEndpoint{Endpoint: Endpoint{Role: RoleSource, LocationType: typ, LocationId: id}}
}

func destination(typ messages.LocationType, id string) SetEndpoint {
	return SetEndpoint{Endpoint: Endpoint{Role: RoleDestination, LocationType: typ, LocationId: id}}
}

func TestReduceMovement_Scenario(t *testing.T) {
	s := reduceAll(NewMovementState(NewInventory(testInventory())),
		source(messages.LocationStore, "A"),
		destination(messages.LocationPop, "5"),
		ToggleUnit{Unit: sn100},
		ToggleUnit{Unit: sn101},
		ToggleUnit{Unit: sn200},
	)
	require.Equal(t, "2000", s.TotalCost().String())

	s = ReduceMovement(s, ToggleUnit{Unit: sn100})
	require.Equal(t, []string{"SN-101"}, s.Selection[0].SerialNumbers)
	require.Equal(t, "1500", s.TotalCost().String())

	s = ReduceMovement(s, SetMovementMeta{Meta: MovementMeta{Type: messages.MovementInstallation, LogisticsCost: "25.5", HandledBy: "u1"}})
	draft := s.Draft()
	require.Equal(t, "1525.50", string(draft.TotalCost))
	require.Equal(t, "25.50", string(draft.LogisticsCost))
	require.Equal(t, messages.LocationStore, draft.FromLocationType)
	require.Equal(t, "5", draft.ToLocationId)
	require.Len(t, draft.Equipment, 2)
}

func TestReduceMovement_SourceChangeClearsSelection(t *testing.T) {
	s := reduceAll(NewMovementState(NewInventory(testInventory())),
		source(messages.LocationStore, "A"),
		ToggleUnit{Unit: sn100},
		SetSearch{Term: "sn"},
	)
	require.Len(t, s.Available(), 3)

	same := ReduceMovement(s, source(messages.LocationStore, "A"))
	require.Equal(t, 1, same.Selection.SerialCount())

	moved := ReduceMovement(s, source(messages.LocationPop, "A"))
	require.Empty(t, moved.Selection)
	require.Empty(t, moved.Available())

	moved = ReduceMovement(moved, SetSearch{Term: ""})
	require.Len(t, moved.Available(), 1)
}

func TestReduceMovement_DestinationKeepsSelection(t *testing.T) {
	s := reduceAll(NewMovementState(nil),
		source(messages.LocationStore, "A"),
		ToggleUnit{Unit: sn100},
		destination(messages.LocationCustomer, "9"),
	)
	require.Equal(t, 1, s.Selection.SerialCount())
	require.Equal(t, "9", s.Destination.LocationId)
}

func TestMovementState_Validate(t *testing.T) {
	s := reduceAll(NewMovementState(nil),
		destination(messages.LocationStore, "5"),
		ToggleUnit{Unit: sn100},
	)
	require.ErrorIs(t, s.Validate(), ErrIncompleteDraft)

	s = reduceAll(NewMovementState(nil), source(messages.LocationStore, "1"), destination(messages.LocationStore, "5"))
	require.ErrorIs(t, s.Validate(), ErrIncompleteDraft)

	s = reduceAll(s, ToggleUnit{Unit: sn100})
	require.NoError(t, s.Validate())

	s = reduceAll(s, destination(messages.LocationStore, "1"))
	require.ErrorIs(t, s.Validate(), ErrSameLocation)

	s = reduceAll(s, destination(messages.LocationPop, "1"))
	require.NoError(t, s.Validate())
}

func TestReduceMovement_SubmitLifecycle(t *testing.T) {
	inv := NewInventory(testInventory())
	s := reduceAll(NewMovementState(inv),
		source(messages.LocationStore, "A"),
		destination(messages.LocationPop, "5"),
		ToggleUnit{Unit: sn100},
		SetSearch{Term: "edge"},
		SetMovementMeta{Meta: MovementMeta{HandledBy: "u1", Remarks: "urgent"}},
	)

	s = ReduceMovement(s, SubmitStarted{})
	require.Equal(t, StatusSubmitting, s.Status)

	failed := ReduceMovement(s, SubmitFailed{Message: "Insufficient stock"})
	require.Equal(t, StatusIdle, failed.Status)
	require.Equal(t, "Insufficient stock", failed.Error)
	require.Equal(t, s.Selection, failed.Selection)
	require.Equal(t, "edge", failed.Search)
	require.Equal(t, "urgent", failed.Meta.Remarks)

	refreshed := NewInventory(nil)
	ok := ReduceMovement(s, SubmitSucceeded{Message: "done", Inventory: refreshed})
	require.Equal(t, StatusIdle, ok.Status)
	require.Equal(t, "done", ok.Notice)
	require.Empty(t, ok.Selection)
	require.Empty(t, ok.Search)
	require.False(t, ok.Source.IsSet())
	require.Equal(t, MovementMeta{Type: messages.MovementTransfer}, ok.Meta)
	require.Same(t, refreshed, ok.Inventory)

	kept := ReduceMovement(s, SubmitSucceeded{Message: "done"})
	require.Same(t, inv, kept.Inventory)
}

func TestReduceMovement_Rejected(t *testing.T) {
	s := ReduceMovement(NewMovementState(nil), SubmitRejected{Err: ErrSubmissionInFlight})
	require.Equal(t, ErrSubmissionInFlight.Error(), s.Error)
	require.Equal(t, StatusIdle, s.Status)
}
