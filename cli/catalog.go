package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/alimitedgroup/invdesk/gateway"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	entryEquipment = "equipment"
	entryTool      = "tool"
	entrySupplier  = "supplier"
	entryLocation  = "location"
)

type catalogField int

const (
	ctKind catalogField = iota
	ctLocationType
	ctName
	ctModel
	ctCost
	ctCategory
	ctContact
)

func entryKindOptions() []messages.NamedRef {
	return []messages.NamedRef{
		{Id: entryEquipment, Name: "Equipment type"},
		{Id: entryTool, Name: "Tool type"},
		{Id: entrySupplier, Name: "Supplier"},
		{Id: entryLocation, Name: "Location"},
	}
}

// catalogForm lists master data of one kind and creates new entries of it.
type catalogForm struct {
	ref   reference
	focus int

	kind, locationType picker

	name, model, cost, category, contact textinput.Model

	list table.Model

	submitting bool
	notice     string
	err        string
}

func newCatalogForm(ref reference) catalogForm {
	f := catalogForm{
		ref:          ref,
		kind:         preselected("New", entryKindOptions()),
		locationType: preselected("Type", locationTypeOptions()),
		name:         newInput("Name", ""),
		model:        newInput("Model", ""),
		cost:         newInput("Unit cost", "0.00"),
		category:     newInput("Category", "optional"),
		contact:      newInput("Contact", "optional"),
		list: newTable([]table.Column{
			{Title: "Id", Width: 8},
			{Title: "Name", Width: 22},
			{Title: "Detail", Width: 14},
			{Title: "Unit cost", Width: 10},
		}, 14),
	}
	f.setFocus(0)
	f.sync()
	return f
}

// fields are the inputs relevant to the chosen kind, in tab order.
func (f catalogForm) fields() []catalogField {
	switch f.kind.selectedId() {
	case entrySupplier:
		return []catalogField{ctKind, ctName, ctContact}
	case entryLocation:
		return []catalogField{ctKind, ctLocationType, ctName}
	}
	return []catalogField{ctKind, ctName, ctModel, ctCost, ctCategory}
}

func (f catalogForm) focused() catalogField {
	fields := f.fields()
	return fields[f.focus%len(fields)]
}

func (f *catalogForm) setFocus(i int) {
	f.focus = i
	current := f.focused()
	for _, in := range []struct {
		field catalogField
		input *textinput.Model
	}{{ctName, &f.name}, {ctModel, &f.model}, {ctCost, &f.cost}, {ctCategory, &f.category}, {ctContact, &f.contact}} {
		if in.field == current {
			in.input.Focus()
		} else {
			in.input.Blur()
		}
	}
}

func (f catalogForm) setReference(ref reference) catalogForm {
	f.ref = ref
	f.sync()
	return f
}

func (f catalogForm) Update(msg tea.Msg, keys keyMap) (catalogForm, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}

	n := len(f.fields())
	switch {
	case key.Matches(km, keys.NextField):
		f.setFocus((f.focus + 1) % n)
		return f, nil
	case key.Matches(km, keys.PrevField):
		f.setFocus((f.focus + n - 1) % n)
		return f, nil
	}

	var cmd tea.Cmd
	switch f.focused() {
	case ctKind:
		if cycle(&f.kind, km, keys) {
			f.setFocus(0)
			f.sync()
		}
	case ctLocationType:
		cycle(&f.locationType, km, keys)
	case ctName:
		f.name, cmd = f.name.Update(km)
	case ctModel:
		f.model, cmd = f.model.Update(km)
	case ctCost:
		f.cost, cmd = f.cost.Update(km)
	case ctCategory:
		f.category, cmd = f.category.Update(km)
	case ctContact:
		f.contact, cmd = f.contact.Update(km)
	}
	return f, cmd
}

// create returns the gateway call for the entry being typed, or an error
// message if the entry is incomplete.
func (f catalogForm) create() (func(context.Context, deskAPI) (messages.Response, error), string) {
	name := strings.TrimSpace(f.name.Value())
	if name == "" {
		return nil, "A name is required"
	}

	switch kind := f.kind.selectedId(); kind {
	case entrySupplier:
		s := messages.CreateSupplier{Name: name, Contact: strings.TrimSpace(f.contact.Value())}
		return func(ctx context.Context, api deskAPI) (messages.Response, error) {
			return api.CreateSupplier(ctx, s)
		}, ""

	case entryLocation:
		l := messages.CreateLocation{LocationType: messages.LocationType(f.locationType.selectedId()), Name: name}
		return func(ctx context.Context, api deskAPI) (messages.Response, error) {
			return api.CreateLocation(ctx, l)
		}, ""

	default:
		item := messages.CreateCatalogItem{
			Kind:          messages.KindEquipment,
			Name:          name,
			Model:         strings.TrimSpace(f.model.Value()),
			UnitCost:      messages.AmountOf(money.ToSafeNumber(f.cost.Value())),
			EquipmentType: strings.TrimSpace(f.category.Value()),
		}
		if kind == entryTool {
			item.Kind = messages.KindTool
		}
		return func(ctx context.Context, api deskAPI) (messages.Response, error) {
			return api.CreateCatalogItem(ctx, item)
		}, ""
	}
}

func (f catalogForm) submit(ctx context.Context, api deskAPI) (catalogForm, tea.Cmd) {
	if f.submitting {
		return f, nil
	}

	call, problem := f.create()
	if call == nil {
		f.notice, f.err = "", problem
		return f, nil
	}

	f.submitting = true
	f.notice, f.err = "", ""
	return f, SaveCatalogEntry(ctx, api, f.kind.selectedId(), call)
}

func (f catalogForm) result(msg catalogResultMsg) catalogForm {
	f.submitting = false
	if msg.err != nil {
		f.err = compose.ErrorMessage(msg.err)
		if gateway.IsStatus(msg.err, http.StatusConflict) {
			// keep everything and let the user pick another name
			for i, field := range f.fields() {
				if field == ctName {
					f.setFocus(i)
				}
			}
		}
		return f
	}

	f.notice = msg.resp.Message
	if f.notice == "" {
		f.notice = fmt.Sprintf("Created %s %s", msg.kind, msg.resp.Id)
	}
	for _, in := range []*textinput.Model{&f.name, &f.model, &f.cost, &f.category, &f.contact} {
		in.SetValue("")
	}
	f.setFocus(0)
	return f
}

func (f *catalogForm) sync() {
	var rows []table.Row
	entries := func(list []messages.EquipmentCatalogEntry) {
		for _, e := range list {
			rows = append(rows, table.Row{fmt.Sprint(e.Id), e.Name, e.Model, money.Format(e.UnitCost.Decimal())})
		}
	}

	switch f.kind.selectedId() {
	case entryEquipment:
		entries(f.ref.equipment)
	case entryTool:
		entries(f.ref.tools)
	case entrySupplier:
		for _, s := range f.ref.suppliers {
			rows = append(rows, table.Row{s.Id, s.Name, s.Contact, ""})
		}
	case entryLocation:
		for _, t := range locationTypeOptions() {
			for _, l := range f.ref.locations.Of(messages.LocationType(t.Id)) {
				rows = append(rows, table.Row{l.Id, l.Name, t.Name, ""})
			}
		}
	}
	f.list.SetRows(rows)
}

func (f catalogForm) View() string {
	current := f.focused()
	parts := []string{titleStyle.Render("Catalog"), f.kind.view(current == ctKind), ""}
	for _, field := range f.fields()[1:] {
		switch field {
		case ctLocationType:
			parts = append(parts, f.locationType.view(current == ctLocationType))
		case ctName:
			parts = append(parts, f.name.View())
		case ctModel:
			parts = append(parts, f.model.View())
		case ctCost:
			parts = append(parts, f.cost.View())
		case ctCategory:
			parts = append(parts, f.category.View())
		case ctContact:
			parts = append(parts, f.contact.View())
		}
	}

	left := lipgloss.JoinVertical(lipgloss.Left, parts...)
	right := tableView(f.list, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right) + "\n" + statusLine(f.notice, f.err)
}
