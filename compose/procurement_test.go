package compose

import (
	"testing"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/stretchr/testify/require"
)

func TestReduceProcurement(t *testing.T) {
	s := NewProcurementState()
	require.ErrorIs(t, s.Validate(), ErrIncompleteDraft)

	s = ReduceProcurement(s, SetSupplier{SupplierId: "sup-1"})
	s = ReduceProcurement(s, SetEndpoint{Endpoint: Endpoint{Role: RoleDestination, LocationType: messages.LocationPop, LocationId: "3"}})
	require.False(t, s.Store.IsSet())

	s = ReduceProcurement(s, SetEndpoint{Endpoint: Endpoint{Role: RoleDestination, LocationType: messages.LocationStore, LocationId: "3"}})
	require.ErrorIs(t, s.Validate(), ErrIncompleteDraft)

	s = ReduceProcurement(s, ToggleUnit{Unit: messages.PhysicalUnit{Equipment: router}})
	require.Empty(t, s.Selection)

	s = ReduceProcurement(s, ToggleUnit{Unit: messages.PhysicalUnit{Equipment: router, SerialNumber: "NEW-1"}})
	s = ReduceProcurement(s, ToggleUnit{Unit: messages.PhysicalUnit{Equipment: router, SerialNumber: "NEW-2"}})
	s = ReduceProcurement(s, SetProcurementMeta{Meta: ProcurementMeta{Reference: "PO-7", LogisticsCost: "40"}})
	require.NoError(t, s.Validate())

	draft := s.Draft()
	require.Equal(t, "sup-1", draft.SupplierId)
	require.Equal(t, "3", draft.StoreId)
	require.Equal(t, "PO-7", draft.Reference)
	require.Equal(t, "1040.00", string(draft.TotalCost))
	require.Equal(t, []string{"NEW-1", "NEW-2"}, draft.Equipment[0].SerialNumbers)

	s = ReduceProcurement(s, SubmitStarted{})
	failed := ReduceProcurement(s, SubmitFailed{Message: "Serial number already registered"})
	require.Equal(t, StatusIdle, failed.Status)
	require.Equal(t, s.Selection, failed.Selection)

	ok := ReduceProcurement(s, SubmitSucceeded{Message: "Procurement recorded"})
	require.Equal(t, NewProcurementState().Selection, ok.Selection)
	require.Empty(t, ok.SupplierId)
	require.Equal(t, "Procurement recorded", ok.Notice)
}
