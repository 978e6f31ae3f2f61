package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/money"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/alimitedgroup/invdesk/gateway"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	baseStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	focusStyle   = baseStyle.BorderForeground(lipgloss.Color("205"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginTop(1)
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	totalStyle   = lipgloss.NewStyle().Bold(true).PaddingLeft(1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	tabStyle     = lipgloss.NewStyle().Padding(0, 2)
	activeTab    = tabStyle.Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
)

type tab int

const (
	tabMovement tab = iota
	tabProcurement
	tabCatalog
	tabCount
)

type model struct {
	ctx        context.Context
	api        deskAPI
	movements  *compose.Controller
	purchases  *compose.Controller
	exportDir  string
	ref        reference
	tab        tab
	movement   movementForm
	purchase   procurementForm
	catalog    catalogForm
	help       help.Model
	spinner    spinner.Model
	keys       keyMap
	loading    bool
	loadErr    string
	exportNote string
}

func newModel(ctx context.Context, api deskAPI, exportDir string) model {
	return model{
		ctx: ctx,
		api: api,
		// one controller per form, so a pending movement never blocks a
		// procurement
		movements: compose.NewController(api),
		purchases: compose.NewController(api),
		exportDir: exportDir,
		movement:  newMovementForm(reference{}),
		purchase:  newProcurementForm(reference{}),
		catalog:   newCatalogForm(reference{}),
		help:      help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
		),
		keys:    defaultKeys(),
		loading: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(FetchReference(m.ctx, m.api), m.spinner.Tick)
}

func (m model) submitting() bool {
	return m.movement.state.Status == compose.StatusSubmitting ||
		m.purchase.state.Status == compose.StatusSubmitting ||
		m.catalog.submitting
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case referenceMsg:
		m.loading = false
		m.keys.Refresh.SetEnabled(true)
		if msg.err != nil {
			m.loadErr = compose.ErrorMessage(msg.err)
			return m, nil
		}
		m.loadErr = ""
		m.ref = msg.ref
		m.movement = m.movement.setReference(msg.ref)
		m.purchase = m.purchase.setReference(msg.ref)
		m.catalog = m.catalog.setReference(msg.ref)
		return m, nil

	case movementResultMsg:
		m.movement = m.movement.result(msg.action)
		if done, ok := msg.action.(compose.SubmitSucceeded); ok && done.Inventory != nil {
			m.ref.inventory = done.Inventory.Snapshot()
		}
		return m, nil

	case procurementResultMsg:
		m.purchase = m.purchase.result(msg.action)
		if done, ok := msg.action.(compose.SubmitSucceeded); ok && done.Inventory != nil {
			// new units landed in a store the movement form may be showing
			m.ref.inventory = done.Inventory.Snapshot()
			m.movement = m.movement.dispatch(compose.InventoryLoaded{Inventory: done.Inventory})
		}
		return m, nil

	case catalogResultMsg:
		m.catalog = m.catalog.result(msg)
		if msg.err == nil {
			// the new entry must show up in the pickers
			return m, FetchReference(m.ctx, m.api)
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			slog.ErrorContext(m.ctx, "Export failed", "error", msg.err)
			m.exportNote = errorStyle.Render("Export failed: " + msg.err.Error())
		} else {
			m.exportNote = noticeStyle.Render("Saved " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.SwitchForm):
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			m.keys.Refresh.SetEnabled(false)
			return m, FetchReference(m.ctx, m.api)
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Export):
			return m, m.export()
		case key.Matches(msg, m.keys.Report):
			return m, SaveInventoryReport(m.ctx, m.api, m.exportDir)
		}

		var cmd tea.Cmd
		switch m.tab {
		case tabMovement:
			m.movement, cmd = m.movement.Update(msg, m.keys)
		case tabProcurement:
			m.purchase, cmd = m.purchase.Update(msg, m.keys)
		case tabCatalog:
			m.catalog, cmd = m.catalog.Update(msg, m.keys)
		}
		return m, cmd
	}

	return m, nil
}

func (m model) submit() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.tab {
	case tabMovement:
		m.movement, cmd = m.movement.submit(m.ctx, m.movements)
	case tabProcurement:
		m.purchase, cmd = m.purchase.submit(m.ctx, m.purchases)
	case tabCatalog:
		m.catalog, cmd = m.catalog.submit(m.ctx, m.api)
	}
	return m, cmd
}

// export saves the draft of the current tab. The catalog tab has none.
func (m model) export() tea.Cmd {
	switch m.tab {
	case tabMovement:
		return ExportMovement(m.exportDir, m.movement.state.Draft(), m.ref.locationLabels())
	case tabCatalog:
		return nil
	}

	d := m.purchase.state.Draft()
	store := m.ref.locationLabels()[messages.LocationKey{Type: messages.LocationStore, Id: d.StoreId}]
	return ExportProcurement(m.exportDir, d, m.ref.supplierName(d.SupplierId), store)
}

func (m model) View() string {
	tabs := []string{"Equipment movement", "Procurement", "Catalog"}
	var header string
	for i, t := range tabs {
		if tab(i) == m.tab {
			header += activeTab.Render(t)
		} else {
			header += tabStyle.Render(t)
		}
	}

	out := header + "\n"
	switch m.tab {
	case tabMovement:
		out += m.movement.View()
	case tabProcurement:
		out += m.purchase.View()
	case tabCatalog:
		out += m.catalog.View()
	}
	out += "\n"

	switch {
	case m.loading:
		out += m.spinner.View() + " loading reference data\n"
	case m.submitting():
		out += m.spinner.View() + " submitting\n"
	case m.loadErr != "":
		out += errorStyle.Render("Could not load reference data: "+m.loadErr) + "\n"
	}
	if m.exportNote != "" {
		out += m.exportNote + "\n"
	}

	out += m.help.View(m.keys)
	return out
}

type keyMap struct {
	NextField  key.Binding
	PrevField  key.Binding
	Prev       key.Binding
	Next       key.Binding
	Toggle     key.Binding
	Submit     key.Binding
	Export     key.Binding
	Report     key.Binding
	SwitchForm key.Binding
	Refresh    key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Prev, k.Next, k.Toggle, k.Submit, k.Export, k.Report, k.SwitchForm, k.Refresh, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeys() keyMap {
	return keyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous option"),
		),
		Next: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("⏎", "add/remove unit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export xlsx"),
		),
		Report: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "inventory report"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "next tab"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
			key.WithDisabled(),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// cycle moves p on left/right and reports whether the choice changed.
func cycle(p *picker, km tea.KeyMsg, keys keyMap) bool {
	switch {
	case key.Matches(km, keys.Next):
		return p.next()
	case key.Matches(km, keys.Prev):
		return p.prev()
	}
	return false
}

func newInput(label, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = fmt.Sprintf("%-14s ", label+":")
	in.Placeholder = placeholder
	in.CharLimit = 120
	in.Width = 28
	return in
}

func newTable(columns []table.Column, height int) table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	return table.New(table.WithColumns(columns), table.WithHeight(height), table.WithStyles(styles))
}

func tableView(t table.Model, focused bool) string {
	if focused {
		return focusStyle.Render(t.View())
	}
	return baseStyle.Render(t.View())
}

func selectionColumns() []table.Column {
	return []table.Column{
		{Title: "Equipment", Width: 18},
		{Title: "Model", Width: 10},
		{Title: "Qty", Width: 4},
		{Title: "Unit cost", Width: 10},
		{Title: "Line total", Width: 11},
	}
}

func selectionRows(s compose.Selection) []table.Row {
	rows := make([]table.Row, 0, len(s))
	for _, line := range s {
		rows = append(rows, table.Row{
			line.Name,
			line.ModelNumber,
			strconv.Itoa(len(line.SerialNumbers)),
			money.Format(line.UnitCost.Decimal()),
			money.Format(compose.LineTotal(line)),
		})
	}
	return rows
}

func statusLine(notice, errMsg string) string {
	switch {
	case errMsg != "":
		return errorStyle.Render(errMsg)
	case notice != "":
		return noticeStyle.Render(notice)
	}
	return ""
}

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	apiGateway := flag.String("api-gateway", cfg.ApiURL, "API Gateway URL")
	logFile := flag.String("log-file", "", "write logs to this file")
	exportDir := flag.String("export-dir", ".", "directory for exported spreadsheets")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the terminal belongs to the UI, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}

	otelshutdown, err := common.SetupOTelSDK(ctx, cfg.OtlpURL, common.WithLogWriter(logOut))
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer otelshutdown(context.WithoutCancel(ctx))

	client := gateway.New(*apiGateway)
	p := tea.NewProgram(newModel(ctx, client, *exportDir), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.ErrorContext(ctx, "Desk stopped", "error", err)
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
