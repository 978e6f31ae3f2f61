package compose

import (
	"testing"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/stretchr/testify/require"
)

func testInventory() messages.LocationGroupedInventory {
	return messages.LocationGroupedInventory{
		{LocationType: messages.LocationStore, LocationId: "A", Units: []messages.PhysicalUnit{sn100, sn101, sn200}},
		{LocationType: messages.LocationPop, LocationId: "A", Units: []messages.PhysicalUnit{
			{Equipment: olt, SerialNumber: "POP-1"},
		}},
	}
}

func TestInventory_AvailableUnits(t *testing.T) {
	inv := NewInventory(testInventory())

	require.Equal(t, []messages.PhysicalUnit{sn100, sn101, sn200}, inv.AvailableUnits(messages.LocationStore, "A", ""))
	require.Len(t, inv.AvailableUnits(messages.LocationPop, "A", ""), 1)
}

func TestInventory_UnknownLocation(t *testing.T) {
	inv := NewInventory(testInventory())

	units := inv.AvailableUnits(messages.LocationCustomer, "A", "")
	require.NotNil(t, units)
	require.Empty(t, units)

	var missing *Inventory
	require.Empty(t, missing.AvailableUnits(messages.LocationStore, "A", ""))
}

func TestInventory_Search(t *testing.T) {
	inv := NewInventory(testInventory())

	cases := map[string][]string{
		"edge":     {"SN-100", "SN-101"},
		"ma58":     {"SN-200"},
		"sn-10":    {"SN-100", "SN-101"},
		"SN-2":     {"SN-200"},
		" SN-100 ": {},
		"  ":       {},
		"chassis":  {"SN-200"},
		"xyz":      {},
	}

	for term, want := range cases {
		got := []string{}
		for _, u := range inv.AvailableUnits(messages.LocationStore, "A", term) {
			got = append(got, u.SerialNumber)
		}
		require.Equal(t, want, got, "term %q", term)
	}
}

func TestInventory_FilterIsPure(t *testing.T) {
	snapshot := testInventory()
	inv := NewInventory(snapshot)

	first := inv.AvailableUnits(messages.LocationStore, "A", "sn")
	first[0].SerialNumber = "changed"
	_ = append(first[:1], messages.PhysicalUnit{SerialNumber: "extra"})

	second := inv.AvailableUnits(messages.LocationStore, "A", "sn")
	third := inv.AvailableUnits(messages.LocationStore, "A", "sn")
	require.Equal(t, second, third)
	require.Equal(t, "SN-100", second[0].SerialNumber)
	require.Equal(t, testInventory(), snapshot)
}

func TestInventory_Snapshot(t *testing.T) {
	inv := NewInventory(testInventory())

	snap := inv.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, messages.LocationPop, snap[0].LocationType)
	require.Equal(t, messages.LocationStore, snap[1].LocationType)
	require.Len(t, snap[1].Units, 3)
}
