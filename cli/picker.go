package main

import (
	"fmt"

	"github.com/alimitedgroup/invdesk/common/messages"
)

// picker is a single-choice field cycled with left/right. idx is -1 until
// something is chosen, unless the picker was built with a preselection.
type picker struct {
	label   string
	options []messages.NamedRef
	idx     int
}

func newPicker(label string, options []messages.NamedRef) picker {
	return picker{label: label, options: options, idx: -1}
}

// preselected starts on the first option, for fields that always have a
// value.
func preselected(label string, options []messages.NamedRef) picker {
	p := newPicker(label, options)
	if len(options) > 0 {
		p.idx = 0
	}
	return p
}

func (p *picker) next() bool {
	if len(p.options) == 0 {
		return false
	}
	p.idx = (p.idx + 1) % len(p.options)
	return true
}

func (p *picker) prev() bool {
	if len(p.options) == 0 {
		return false
	}
	if p.idx <= 0 {
		p.idx = len(p.options) - 1
	} else {
		p.idx--
	}
	return true
}

func (p picker) selected() (messages.NamedRef, bool) {
	if p.idx < 0 || p.idx >= len(p.options) {
		return messages.NamedRef{}, false
	}
	return p.options[p.idx], true
}

func (p picker) selectedId() string {
	ref, _ := p.selected()
	return ref.Id
}

// setOptions replaces the choices, keeping the current one if it still exists.
func (p *picker) setOptions(options []messages.NamedRef) {
	current, had := p.selected()
	p.options = options
	p.idx = -1
	if !had {
		return
	}
	for i, o := range options {
		if o.Id == current.Id {
			p.idx = i
			return
		}
	}
}

func (p picker) view(focused bool) string {
	value := "(none)"
	if ref, ok := p.selected(); ok {
		value = ref.Name
	} else if len(p.options) == 0 {
		value = "(no options)"
	}

	line := fmt.Sprintf("%-14s ‹ %s ›", p.label+":", value)
	if focused {
		return focusedStyle.Render(line)
	}
	return blurredStyle.Render(line)
}

func locationTypeOptions() []messages.NamedRef {
	return []messages.NamedRef{
		{Id: string(messages.LocationStore), Name: "Store"},
		{Id: string(messages.LocationPop), Name: "POP"},
		{Id: string(messages.LocationCustomer), Name: "Customer"},
	}
}

func movementTypeOptions() []messages.NamedRef {
	out := make([]messages.NamedRef, 0, len(messages.MovementTypes))
	for _, t := range messages.MovementTypes {
		out = append(out, messages.NamedRef{Id: string(t), Name: string(t)})
	}
	return out
}

func catalogOptions(entries []messages.EquipmentCatalogEntry) []messages.NamedRef {
	out := make([]messages.NamedRef, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if e.Model != "" {
			name = fmt.Sprintf("%s (%s)", e.Name, e.Model)
		}
		out = append(out, messages.NamedRef{Id: fmt.Sprint(e.Id), Name: name})
	}
	return out
}

func supplierOptions(suppliers []messages.Supplier) []messages.NamedRef {
	out := make([]messages.NamedRef, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, messages.NamedRef{Id: s.Id, Name: s.Name})
	}
	return out
}
