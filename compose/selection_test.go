package compose

import (
	"testing"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/stretchr/testify/require"
)

var (
	router = messages.EquipmentCatalogEntry{Id: 1, Name: "Edge router", Model: "ER-8", UnitCost: "500"}
	olt    = messages.EquipmentCatalogEntry{Id: 2, Name: "OLT chassis", Model: "MA5800", UnitCost: "1000"}

	sn100 = messages.PhysicalUnit{Equipment: router, SerialNumber: "SN-100"}
	sn101 = messages.PhysicalUnit{Equipment: router, SerialNumber: "SN-101"}
	sn200 = messages.PhysicalUnit{Equipment: olt, SerialNumber: "SN-200"}
)

func serials(s Selection) map[uint64][]string {
	out := make(map[uint64][]string)
	for _, line := range s {
		out[line.Id] = line.SerialNumbers
	}
	return out
}

func TestSelection_ToggleGroupsByEquipment(t *testing.T) {
	var s Selection
	s = s.Toggle(sn100)
	s = s.Toggle(sn101)

	require.Len(t, s, 1)
	require.Equal(t, uint64(1), s[0].Id)
	require.Equal(t, []string{"SN-100", "SN-101"}, s[0].SerialNumbers)
	require.Equal(t, "ER-8", s[0].ModelNumber)
	require.Equal(t, "Edge router", s[0].Name)
	require.Equal(t, "1000", LineTotal(s[0]).String())

	s = s.Toggle(sn200)
	require.Len(t, s, 2)
	require.Equal(t, "1000", LineTotal(s[1]).String())
	require.Equal(t, "2000", Recompute(s, "").String())
}

func TestSelection_ToggleRemovesSerial(t *testing.T) {
	s := Selection{}.Toggle(sn100).Toggle(sn101).Toggle(sn200)

	s = s.Toggle(sn100)
	require.Equal(t, []string{"SN-101"}, s[0].SerialNumbers)
	require.Equal(t, "500", LineTotal(s[0]).String())
	require.Equal(t, "1500", Recompute(s, "").String())
}

func TestSelection_TogglePrunesEmptyLine(t *testing.T) {
	s := Selection{}.Toggle(sn100).Toggle(sn200)

	s = s.Toggle(sn100)
	require.Len(t, s, 1)
	require.Equal(t, uint64(2), s[0].Id)
	require.Zero(t, s.CountFor(1))

	s = s.Toggle(sn200)
	require.Empty(t, s)
	for _, line := range s {
		require.NotEmpty(t, line.SerialNumbers)
	}
}

func TestSelection_ToggleTwiceRestores(t *testing.T) {
	base := Selection{}.Toggle(sn100).Toggle(sn200)

	for _, u := range []messages.PhysicalUnit{sn100, sn101, sn200} {
		again := base.Toggle(u).Toggle(u)
		require.Equal(t, serials(base), serials(again), "unit %s", u.SerialNumber)
	}
}

func TestSelection_ToggleDoesNotMutateReceiver(t *testing.T) {
	base := Selection{}.Toggle(sn100).Toggle(sn101)
	before := base.Lines()

	_ = base.Toggle(sn100)
	_ = base.Toggle(sn200)

	require.Equal(t, before, base.Lines())
}

func TestSelection_SerialsAreUnique(t *testing.T) {
	units := []messages.PhysicalUnit{sn100, sn101, sn200, sn100, sn200, sn101, sn100, sn200, sn101, sn101}

	var s Selection
	for _, u := range units {
		s = s.Toggle(u)

		seen := make(map[string]bool)
		for _, line := range s {
			require.NotEmpty(t, line.SerialNumbers)
			for _, sn := range line.SerialNumbers {
				require.False(t, seen[sn], "serial %s appears twice", sn)
				seen[sn] = true
			}
		}
	}
}

func TestSelection_Queries(t *testing.T) {
	s := Selection{}.Toggle(sn100).Toggle(sn101).Toggle(sn200)

	require.True(t, s.IsSelected("SN-101"))
	require.False(t, s.IsSelected("SN-999"))
	require.Equal(t, 2, s.CountFor(1))
	require.Equal(t, 1, s.CountFor(2))
	require.Equal(t, 0, s.CountFor(42))
	require.Equal(t, 3, s.SerialCount())
}

func TestSelection_StaleEquipment(t *testing.T) {
	ghost := messages.PhysicalUnit{
		Equipment:    messages.EquipmentCatalogEntry{Id: 77, Name: "Retired modem", UnitCost: "n/a"},
		SerialNumber: "OLD-1",
	}

	var s Selection
	require.NotPanics(t, func() { s = s.Toggle(ghost) })
	require.Len(t, s, 1)
	require.Equal(t, "Retired modem", s[0].Name)
	require.True(t, LineTotal(s[0]).IsZero())
}

func TestSelection_LinesIsDeepCopy(t *testing.T) {
	s := Selection{}.Toggle(sn100)

	lines := s.Lines()
	lines[0].SerialNumbers[0] = "tampered"

	require.True(t, s.IsSelected("SN-100"))
}
