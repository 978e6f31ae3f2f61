// Package report renders drafts and inventory snapshots as xlsx workbooks:
// the movement voucher, the procurement requisition and the inventory sheet.
package report

import (
	"fmt"
	"strings"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var lineHeaders = []string{"#", "Equipment", "Model", "Serial numbers", "Qty", "Unit cost", "Line total"}

type styles struct {
	header  int
	label   int
	money   int
	summary int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s, fmt.Errorf("failed to create label style: %w", err)
	}

	s.money, err = f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return s, fmt.Errorf("failed to create money style: %w", err)
	}

	s.summary, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return s, fmt.Errorf("failed to create summary style: %w", err)
	}
	return s, nil
}

// sheetWriter fills one sheet top to bottom.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	st    styles
	row   int
	err   error
}

func (w *sheetWriter) set(col int, value any, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil {
		w.err = err
		return
	}
	if err = w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		w.err = w.f.SetCellStyle(w.sheet, cell, cell, style)
	}
}

func (w *sheetWriter) field(label string, value any) {
	w.row++
	w.set(1, label, w.st.label)
	w.set(2, value, 0)
}

func (w *sheetWriter) headers(titles []string) {
	w.row++
	for i, h := range titles {
		w.set(i+1, h, w.st.header)
	}
}

func (w *sheetWriter) lines(lines []messages.SelectionLine) {
	w.headers(lineHeaders)
	for i, line := range lines {
		w.row++
		w.set(1, i+1, 0)
		w.set(2, line.Name, 0)
		w.set(3, line.ModelNumber, 0)
		w.set(4, strings.Join(line.SerialNumbers, ", "), 0)
		w.set(5, len(line.SerialNumbers), 0)
		w.set(6, line.UnitCost.Decimal().InexactFloat64(), w.st.money)
		w.set(7, compose.LineTotal(line).InexactFloat64(), w.st.money)
	}
}

func (w *sheetWriter) total(label string, value decimal.Decimal) {
	w.row++
	w.set(6, label, w.st.label)
	w.set(7, value.InexactFloat64(), w.st.summary)
}

func (w *sheetWriter) widths(widths ...float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

func newWorkbook(sheet string) (*excelize.File, *sheetWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, &sheetWriter{f: f, sheet: sheet, st: st}, nil
}

func finish(f *excelize.File, w *sheetWriter, what string) (*excelize.File, error) {
	if w.err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write %s: %w", what, w.err)
	}
	return f, nil
}

// MovementVoucher lays out a movement with its lines and totals. Location
// ids are printed as given; pass names through labels to show them instead.
func MovementVoucher(d messages.MovementDraft, labels map[messages.LocationKey]string) (*excelize.File, error) {
	f, w, err := newWorkbook("Movement voucher")
	if err != nil {
		return nil, err
	}

	from := messages.LocationKey{Type: d.FromLocationType, Id: d.FromLocationId}
	to := messages.LocationKey{Type: d.ToLocationType, Id: d.ToLocationId}

	w.field("Equipment movement voucher", "")
	w.field("From", locationLabel(from, labels))
	w.field("To", locationLabel(to, labels))
	w.field("Date", d.MovementDate)
	w.field("Type", string(d.MovementType))
	w.field("Handled by", d.HandledBy)
	w.field("Remarks", d.Remarks)
	w.row++

	w.lines(d.Equipment)
	w.total("Logistics", d.LogisticsCost.Decimal())
	w.total("Total", compose.Recompute(d.Equipment, string(d.LogisticsCost)))
	w.widths(6, 28, 18, 40, 8, 14, 14)

	return finish(f, w, "movement voucher")
}

// ProcurementRequisition lays out a procurement for the supplier.
func ProcurementRequisition(d messages.ProcurementDraft, supplier string, store string) (*excelize.File, error) {
	f, w, err := newWorkbook("Requisition")
	if err != nil {
		return nil, err
	}

	w.field("Procurement requisition", "")
	w.field("Reference", d.Reference)
	w.field("Supplier", orDefault(supplier, d.SupplierId))
	w.field("Destination store", orDefault(store, d.StoreId))
	w.field("Date", d.ProcurementDate)
	w.field("Received by", d.ReceivedBy)
	w.row++

	w.lines(d.Equipment)
	w.total("Logistics", d.LogisticsCost.Decimal())
	w.total("Total", compose.Recompute(d.Equipment, string(d.LogisticsCost)))
	w.widths(6, 28, 18, 40, 8, 14, 14)

	return finish(f, w, "procurement requisition")
}

// InventorySheet lists every unit, one row each, grouped by location.
func InventorySheet(inv messages.LocationGroupedInventory) (*excelize.File, error) {
	f, w, err := newWorkbook("Inventory")
	if err != nil {
		return nil, err
	}

	w.headers([]string{"Location type", "Location", "Equipment", "Model", "Serial number", "Unit cost"})
	total := decimal.Zero
	units := 0
	for _, group := range inv {
		for _, u := range group.Units {
			w.row++
			w.set(1, string(group.LocationType), 0)
			w.set(2, group.LocationId, 0)
			w.set(3, u.Equipment.Name, 0)
			w.set(4, u.Equipment.Model, 0)
			w.set(5, u.SerialNumber, 0)
			w.set(6, u.Equipment.UnitCost.Decimal().InexactFloat64(), w.st.money)

			total = total.Add(u.Equipment.UnitCost.Decimal())
			units++
		}
	}

	w.row++
	w.set(1, "Units", w.st.label)
	w.set(2, units, 0)
	w.set(5, "Stock value", w.st.label)
	w.set(6, total.InexactFloat64(), w.st.summary)
	w.widths(14, 12, 28, 18, 24, 14)

	return finish(f, w, "inventory sheet")
}

func locationLabel(key messages.LocationKey, labels map[messages.LocationKey]string) string {
	if name, ok := labels[key]; ok && name != "" {
		return fmt.Sprintf("%s (%s)", name, key.Type)
	}
	return key.String()
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
