package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type procurementField int

const (
	prSupplier procurementField = iota
	prStore
	prEquipment
	prSerial
	prReference
	prDate
	prReceivedBy
	prCost
	prFieldCount
)

// procurementForm composes a procurement: pick an equipment type, type a
// serial number, press enter. Entering a serial already in the list removes
// it.
type procurementForm struct {
	state compose.ProcurementState
	ref   reference
	focus procurementField

	supplier, store, equipment, receivedBy picker

	serial, reference, date, cost textinput.Model

	selection table.Model
}

func newProcurementForm(ref reference) procurementForm {
	f := procurementForm{
		state:      compose.NewProcurementState(),
		ref:        ref,
		supplier:   newPicker("Supplier", supplierOptions(ref.suppliers)),
		store:      newPicker("Store", ref.locations.Stores),
		equipment:  newPicker("Equipment", catalogOptions(ref.equipment)),
		receivedBy: newPicker("Received by", ref.users),
		serial:     newInput("Serial", "type and press enter"),
		reference:  newInput("Reference", "PO number"),
		date:       newInput("Date", "YYYY-MM-DD"),
		cost:       newInput("Logistics", "0.00"),
		selection:  newTable(selectionColumns(), 8),
	}
	f.setFocus(prSupplier)
	f.sync()
	return f
}

func (f procurementForm) dispatch(a compose.Action) procurementForm {
	f.state = compose.ReduceProcurement(f.state, a)
	f.sync()
	return f
}

func (f procurementForm) setReference(ref reference) procurementForm {
	f.ref = ref
	f.supplier.setOptions(supplierOptions(ref.suppliers))
	f.store.setOptions(ref.locations.Stores)
	f.equipment.setOptions(catalogOptions(ref.equipment))
	f.receivedBy.setOptions(ref.users)

	f = f.dispatch(compose.SetSupplier{SupplierId: f.supplier.selectedId()})
	f = f.dispatch(compose.SetEndpoint{Endpoint: f.storeEndpoint()})
	return f.dispatch(compose.SetProcurementMeta{Meta: f.meta()})
}

func (f procurementForm) storeEndpoint() compose.Endpoint {
	return compose.Endpoint{Role: compose.RoleDestination, LocationType: messages.LocationStore, LocationId: f.store.selectedId()}
}

func (f procurementForm) meta() compose.ProcurementMeta {
	return compose.ProcurementMeta{
		Date:          strings.TrimSpace(f.date.Value()),
		Reference:     strings.TrimSpace(f.reference.Value()),
		ReceivedBy:    f.receivedBy.selectedId(),
		LogisticsCost: f.cost.Value(),
	}
}

// unit builds the physical unit for the chosen equipment type and the typed
// serial number.
func (f procurementForm) unit() (messages.PhysicalUnit, bool) {
	ref, ok := f.equipment.selected()
	serial := strings.TrimSpace(f.serial.Value())
	if !ok || serial == "" {
		return messages.PhysicalUnit{}, false
	}

	id, err := strconv.ParseUint(ref.Id, 10, 64)
	if err != nil {
		return messages.PhysicalUnit{}, false
	}
	for _, e := range f.ref.equipment {
		if e.Id == id {
			return messages.PhysicalUnit{Equipment: e, SerialNumber: serial}, true
		}
	}
	return messages.PhysicalUnit{}, false
}

func (f *procurementForm) setFocus(field procurementField) {
	f.focus = field
	for _, in := range []struct {
		field procurementField
		input *textinput.Model
	}{{prSerial, &f.serial}, {prReference, &f.reference}, {prDate, &f.date}, {prCost, &f.cost}} {
		if in.field == field {
			in.input.Focus()
		} else {
			in.input.Blur()
		}
	}
}

func (f procurementForm) Update(msg tea.Msg, keys keyMap) (procurementForm, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}

	switch {
	case key.Matches(km, keys.NextField):
		f.setFocus((f.focus + 1) % prFieldCount)
		return f, nil
	case key.Matches(km, keys.PrevField):
		f.setFocus((f.focus + prFieldCount - 1) % prFieldCount)
		return f, nil
	}

	switch f.focus {
	case prSupplier:
		if cycle(&f.supplier, km, keys) {
			return f.dispatch(compose.SetSupplier{SupplierId: f.supplier.selectedId()}), nil
		}
	case prStore:
		if cycle(&f.store, km, keys) {
			return f.dispatch(compose.SetEndpoint{Endpoint: f.storeEndpoint()}), nil
		}
	case prEquipment:
		cycle(&f.equipment, km, keys)
	case prReceivedBy:
		if cycle(&f.receivedBy, km, keys) {
			return f.dispatch(compose.SetProcurementMeta{Meta: f.meta()}), nil
		}

	case prSerial:
		if key.Matches(km, keys.Toggle) {
			u, ok := f.unit()
			if !ok {
				return f, nil
			}
			f.serial.SetValue("")
			return f.dispatch(compose.ToggleUnit{Unit: u}), nil
		}
		var cmd tea.Cmd
		f.serial, cmd = f.serial.Update(km)
		return f, cmd

	default:
		var cmd tea.Cmd
		switch f.focus {
		case prReference:
			f.reference, cmd = f.reference.Update(km)
		case prDate:
			f.date, cmd = f.date.Update(km)
		case prCost:
			f.cost, cmd = f.cost.Update(km)
		}
		return f.dispatch(compose.SetProcurementMeta{Meta: f.meta()}), cmd
	}
	return f, nil
}

func (f procurementForm) submit(ctx context.Context, c *compose.Controller) (procurementForm, tea.Cmd) {
	if f.state.Status == compose.StatusSubmitting {
		return f, nil
	}
	if err := f.state.Validate(); err != nil {
		return f.dispatch(compose.SubmitRejected{Err: err}), nil
	}

	snapshot := f.state
	return f.dispatch(compose.SubmitStarted{}), SubmitProcurement(ctx, c, snapshot)
}

func (f procurementForm) result(a compose.Action) procurementForm {
	switch a := a.(type) {
	case compose.SubmitRejected:
		return f.dispatch(compose.SubmitFailed{Message: a.Err.Error()})
	case compose.SubmitSucceeded:
		f = f.dispatch(a)
		return f.clearInputs()
	}
	return f.dispatch(a)
}

func (f procurementForm) clearInputs() procurementForm {
	f.supplier = newPicker("Supplier", supplierOptions(f.ref.suppliers))
	f.store = newPicker("Store", f.ref.locations.Stores)
	f.receivedBy = newPicker("Received by", f.ref.users)
	for _, in := range []*textinput.Model{&f.serial, &f.reference, &f.date, &f.cost} {
		in.SetValue("")
	}
	f.setFocus(prSupplier)
	return f
}

func (f *procurementForm) sync() {
	f.selection.SetRows(selectionRows(f.state.Selection))
}

func (f procurementForm) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Procurement"),
		f.supplier.view(f.focus == prSupplier),
		f.store.view(f.focus == prStore),
		"",
		titleStyle.Render("Add units"),
		f.equipment.view(f.focus == prEquipment),
		f.serial.View(),
		"",
		f.reference.View(),
		f.date.View(),
		f.receivedBy.view(f.focus == prReceivedBy),
		f.cost.View(),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		tableView(f.selection, false),
		totalStyle.Render(fmt.Sprintf("%d units  Total: %s", f.state.Selection.SerialCount(), money.Format(f.state.TotalCost()))),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right) + "\n" + statusLine(f.state.Notice, f.state.Error)
}
