package main

import (
	"context"
	"fmt"
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

type movementField int

const (
	mvSourceType movementField = iota
	mvSource
	mvDestType
	mvDest
	mvSearch
	mvUnits
	mvType
	mvDate
	mvCost
	mvHandledBy
	mvRemarks
	mvFieldCount
)

// movementForm renders a compose.MovementState and turns key presses into
// actions for compose.ReduceMovement.
type movementForm struct {
	state compose.MovementState
	ref   reference
	focus movementField

	sourceType, source, destType, dest picker
	movementType, handledBy            picker

	search, date, cost, remarks textinput.Model

	units     table.Model
	selection table.Model
}

func newMovementForm(ref reference) movementForm {
	f := movementForm{
		state:        compose.NewMovementState(compose.NewInventory(ref.inventory)),
		ref:          ref,
		sourceType:   preselected("From", locationTypeOptions()),
		destType:     preselected("To", locationTypeOptions()),
		movementType: preselected("Type", movementTypeOptions()),
		handledBy:    newPicker("Handled by", ref.users),
		search:       newInput("Search", "serial, name or model"),
		date:         newInput("Date", "YYYY-MM-DD"),
		cost:         newInput("Logistics", "0.00"),
		remarks:      newInput("Remarks", ""),
		units: newTable([]table.Column{
			{Title: " ", Width: 1},
			{Title: "Serial", Width: 14},
			{Title: "Equipment", Width: 18},
			{Title: "Model", Width: 10},
			{Title: "Unit cost", Width: 10},
		}, 8),
		selection: newTable(selectionColumns(), 6),
	}
	f.source = newPicker("Location", ref.locations.Of(messages.LocationStore))
	f.dest = newPicker("Location", ref.locations.Of(messages.LocationStore))
	f.setFocus(mvSourceType)
	f.sync()
	return f
}

func (f movementForm) dispatch(a compose.Action) movementForm {
	f.state = compose.ReduceMovement(f.state, a)
	f.sync()
	return f
}

// setReference swaps in freshly loaded master data and stock.
func (f movementForm) setReference(ref reference) movementForm {
	f.ref = ref
	f.source.setOptions(ref.locations.Of(f.endpointType(f.sourceType)))
	f.dest.setOptions(ref.locations.Of(f.endpointType(f.destType)))
	f.handledBy.setOptions(ref.users)

	f = f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleSource)})
	f = f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleDestination)})
	f = f.dispatch(compose.SetMovementMeta{Meta: f.meta()})
	return f.dispatch(compose.InventoryLoaded{Inventory: compose.NewInventory(ref.inventory)})
}

func (f movementForm) endpointType(p picker) messages.LocationType {
	return messages.LocationType(p.selectedId())
}

func (f movementForm) endpoint(role compose.Role) compose.Endpoint {
	if role == compose.RoleSource {
		return compose.Endpoint{Role: role, LocationType: f.endpointType(f.sourceType), LocationId: f.source.selectedId()}
	}
	return compose.Endpoint{Role: role, LocationType: f.endpointType(f.destType), LocationId: f.dest.selectedId()}
}

func (f movementForm) meta() compose.MovementMeta {
	return compose.MovementMeta{
		Date:          strings.TrimSpace(f.date.Value()),
		Type:          messages.MovementType(f.movementType.selectedId()),
		LogisticsCost: f.cost.Value(),
		HandledBy:     f.handledBy.selectedId(),
		Remarks:       f.remarks.Value(),
	}
}

func (f *movementForm) setFocus(field movementField) {
	f.focus = field
	for _, in := range []struct {
		field movementField
		input *textinput.Model
	}{{mvSearch, &f.search}, {mvDate, &f.date}, {mvCost, &f.cost}, {mvRemarks, &f.remarks}} {
		if in.field == field {
			in.input.Focus()
		} else {
			in.input.Blur()
		}
	}
	if field == mvUnits {
		f.units.Focus()
	} else {
		f.units.Blur()
	}
}

func (f movementForm) Update(msg tea.Msg, keys keyMap) (movementForm, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}

	switch {
	case key.Matches(km, keys.NextField):
		f.setFocus((f.focus + 1) % mvFieldCount)
		return f, nil
	case key.Matches(km, keys.PrevField):
		f.setFocus((f.focus + mvFieldCount - 1) % mvFieldCount)
		return f, nil
	}

	switch f.focus {
	case mvSourceType, mvSource, mvDestType, mvDest:
		return f.updateEndpoints(km, keys), nil

	case mvType, mvHandledBy:
		p := &f.movementType
		if f.focus == mvHandledBy {
			p = &f.handledBy
		}
		if cycle(p, km, keys) {
			return f.dispatch(compose.SetMovementMeta{Meta: f.meta()}), nil
		}
		return f, nil

	case mvUnits:
		if key.Matches(km, keys.Toggle) {
			available := f.state.Available()
			if c := f.units.Cursor(); c >= 0 && c < len(available) {
				return f.dispatch(compose.ToggleUnit{Unit: available[c]}), nil
			}
			return f, nil
		}
		var cmd tea.Cmd
		f.units, cmd = f.units.Update(km)
		return f, cmd

	case mvSearch:
		var cmd tea.Cmd
		f.search, cmd = f.search.Update(km)
		return f.dispatch(compose.SetSearch{Term: strings.TrimSpace(f.search.Value())}), cmd

	default:
		var cmd tea.Cmd
		switch f.focus {
		case mvDate:
			f.date, cmd = f.date.Update(km)
		case mvCost:
			f.cost, cmd = f.cost.Update(km)
		case mvRemarks:
			f.remarks, cmd = f.remarks.Update(km)
		}
		return f.dispatch(compose.SetMovementMeta{Meta: f.meta()}), cmd
	}
}

func (f movementForm) updateEndpoints(km tea.KeyMsg, keys keyMap) movementForm {
	switch f.focus {
	case mvSourceType:
		if !cycle(&f.sourceType, km, keys) {
			return f
		}
		f.source = newPicker("Location", f.ref.locations.Of(f.endpointType(f.sourceType)))
		return f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleSource)})
	case mvSource:
		if !cycle(&f.source, km, keys) {
			return f
		}
		return f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleSource)})
	case mvDestType:
		if !cycle(&f.destType, km, keys) {
			return f
		}
		f.dest = newPicker("Location", f.ref.locations.Of(f.endpointType(f.destType)))
		return f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleDestination)})
	case mvDest:
		if !cycle(&f.dest, km, keys) {
			return f
		}
		return f.dispatch(compose.SetEndpoint{Endpoint: f.endpoint(compose.RoleDestination)})
	}
	return f
}

// submit checks the gate locally, so an incomplete draft never shows a
// spinner, then hands the state to the controller.
func (f movementForm) submit(ctx context.Context, c *compose.Controller) (movementForm, tea.Cmd) {
	if f.state.Status == compose.StatusSubmitting {
		return f, nil
	}
	if err := f.state.Validate(); err != nil {
		return f.dispatch(compose.SubmitRejected{Err: err}), nil
	}

	snapshot := f.state
	return f.dispatch(compose.SubmitStarted{}), SubmitMovement(ctx, c, snapshot)
}

func (f movementForm) result(a compose.Action) movementForm {
	switch a := a.(type) {
	case compose.SubmitRejected:
		// the form is already submitting, so settle it as a failure
		return f.dispatch(compose.SubmitFailed{Message: a.Err.Error()})
	case compose.SubmitSucceeded:
		f = f.dispatch(a)
		return f.clearInputs()
	}
	return f.dispatch(a)
}

// clearInputs brings the widgets back in line with a fresh state.
func (f movementForm) clearInputs() movementForm {
	f.sourceType = preselected("From", locationTypeOptions())
	f.destType = preselected("To", locationTypeOptions())
	f.source = newPicker("Location", f.ref.locations.Of(messages.LocationStore))
	f.dest = newPicker("Location", f.ref.locations.Of(messages.LocationStore))
	f.movementType = preselected("Type", movementTypeOptions())
	f.handledBy = newPicker("Handled by", f.ref.users)
	for _, in := range []*textinput.Model{&f.search, &f.date, &f.cost, &f.remarks} {
		in.SetValue("")
	}
	f.setFocus(mvSourceType)
	return f
}

func (f *movementForm) sync() {
	var rows []table.Row
	for _, u := range f.state.Available() {
		mark := " "
		if f.state.Selection.IsSelected(u.SerialNumber) {
			mark = "✓"
		}
		rows = append(rows, table.Row{mark, u.SerialNumber, u.Equipment.Name, u.Equipment.Model, money.Format(u.Equipment.UnitCost.Decimal())})
	}
	f.units.SetRows(rows)
	f.selection.SetRows(selectionRows(f.state.Selection))
}

func (f movementForm) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Source"),
		f.sourceType.view(f.focus == mvSourceType),
		f.source.view(f.focus == mvSource),
		titleStyle.Render("Destination"),
		f.destType.view(f.focus == mvDestType),
		f.dest.view(f.focus == mvDest),
		"",
		f.search.View(),
		tableView(f.units, f.focus == mvUnits),
	)

	right := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Movement"),
		f.movementType.view(f.focus == mvType),
		f.date.View(),
		f.cost.View(),
		f.handledBy.view(f.focus == mvHandledBy),
		f.remarks.View(),
		"",
		tableView(f.selection, false),
		totalStyle.Render(fmt.Sprintf("%d units  Total: %s", f.state.Selection.SerialCount(), money.Format(f.state.TotalCost()))),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right) + "\n" + statusLine(f.state.Notice, f.state.Error)
}
