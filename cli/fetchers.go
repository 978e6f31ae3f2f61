package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/compose"
	"github.com/alimitedgroup/invdesk/report"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// deskAPI is what the desk needs from the api gateway.
type deskAPI interface {
	compose.Gateway
	FetchLocations(ctx context.Context) (messages.Locations, error)
	FetchEquipmentList(ctx context.Context) ([]messages.EquipmentCatalogEntry, error)
	FetchToolList(ctx context.Context) ([]messages.EquipmentCatalogEntry, error)
	FetchSuppliers(ctx context.Context) ([]messages.Supplier, error)
	FetchUsersList(ctx context.Context) ([]messages.NamedRef, error)

	CreateCatalogItem(ctx context.Context, item messages.CreateCatalogItem) (messages.Response, error)
	CreateSupplier(ctx context.Context, supplier messages.CreateSupplier) (messages.Response, error)
	CreateLocation(ctx context.Context, location messages.CreateLocation) (messages.Response, error)
	DownloadInventoryReport(ctx context.Context, w io.Writer) error
}

// reference is the master data both forms pick from.
type reference struct {
	locations messages.Locations
	equipment []messages.EquipmentCatalogEntry
	tools     []messages.EquipmentCatalogEntry
	suppliers []messages.Supplier
	users     []messages.NamedRef
	inventory messages.LocationGroupedInventory
}

func (r reference) locationLabels() map[messages.LocationKey]string {
	labels := make(map[messages.LocationKey]string)
	for _, t := range []messages.LocationType{messages.LocationStore, messages.LocationPop, messages.LocationCustomer} {
		for _, ref := range r.locations.Of(t) {
			labels[messages.LocationKey{Type: t, Id: ref.Id}] = ref.Name
		}
	}
	return labels
}

func (r reference) supplierName(id string) string {
	for _, s := range r.suppliers {
		if s.Id == id {
			return s.Name
		}
	}
	return id
}

type referenceMsg struct {
	ref reference
	err error
}

type movementResultMsg struct {
	action compose.Action
}

type procurementResultMsg struct {
	action compose.Action
}

type catalogResultMsg struct {
	kind string
	resp messages.Response
	err  error
}

type exportedMsg struct {
	path string
	err  error
}

// FetchReference loads master data and the location inventory in parallel.
func FetchReference(ctx context.Context, api deskAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		var ref reference
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			ref.locations, err = api.FetchLocations(gctx)
			return wrap("locations", err)
		})
		g.Go(func() (err error) {
			ref.equipment, err = api.FetchEquipmentList(gctx)
			return wrap("equipment", err)
		})
		g.Go(func() (err error) {
			ref.tools, err = api.FetchToolList(gctx)
			return wrap("tools", err)
		})
		g.Go(func() (err error) {
			ref.suppliers, err = api.FetchSuppliers(gctx)
			return wrap("suppliers", err)
		})
		g.Go(func() (err error) {
			ref.users, err = api.FetchUsersList(gctx)
			return wrap("users", err)
		})
		g.Go(func() (err error) {
			ref.inventory, err = api.FetchEquipmentByLocation(gctx)
			return wrap("inventory", err)
		})

		if err := g.Wait(); err != nil {
			slog.ErrorContext(ctx, "Failed to load reference data", "error", err)
			return referenceMsg{err: err}
		}
		slog.InfoContext(ctx, "Loaded reference data", "equipment", len(ref.equipment), "locations", len(ref.inventory))
		return referenceMsg{ref: ref}
	}
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	return nil
}

func SubmitMovement(ctx context.Context, c *compose.Controller, s compose.MovementState) tea.Cmd {
	return func() tea.Msg {
		return movementResultMsg{action: c.SubmitMovement(ctx, s)}
	}
}

func SubmitProcurement(ctx context.Context, c *compose.Controller, s compose.ProcurementState) tea.Cmd {
	return func() tea.Msg {
		return procurementResultMsg{action: c.SubmitProcurement(ctx, s)}
	}
}

func SaveCatalogEntry(ctx context.Context, api deskAPI, kind string, create func(context.Context, deskAPI) (messages.Response, error)) tea.Cmd {
	return func() tea.Msg {
		resp, err := create(ctx, api)
		if err != nil {
			slog.WarnContext(ctx, "Failed to create catalog entry", "kind", kind, "error", err)
		} else {
			slog.InfoContext(ctx, "Created catalog entry", "kind", kind, "id", resp.Id)
		}
		return catalogResultMsg{kind: kind, resp: resp, err: err}
	}
}

// SaveInventoryReport downloads the spreadsheet of every location's stock
// into dir.
func SaveInventoryReport(ctx context.Context, api deskAPI, dir string) tea.Cmd {
	return func() tea.Msg {
		path := filepath.Join(dir, fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102-150405")))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: fmt.Errorf("failed to create %s: %w", path, err)}
		}

		err = api.DownloadInventoryReport(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
			return exportedMsg{err: fmt.Errorf("failed to download inventory report: %w", err)}
		}
		return exportedMsg{path: path}
	}
}

func ExportMovement(dir string, d messages.MovementDraft, labels map[messages.LocationKey]string) tea.Cmd {
	return func() tea.Msg {
		f, err := report.MovementVoucher(d, labels)
		if err != nil {
			return exportedMsg{err: err}
		}
		defer f.Close()

		path := filepath.Join(dir, fmt.Sprintf("movement-%s.xlsx", time.Now().Format("20060102-150405")))
		if err = f.SaveAs(path); err != nil {
			return exportedMsg{err: fmt.Errorf("failed to save %s: %w", path, err)}
		}
		return exportedMsg{path: path}
	}
}

func ExportProcurement(dir string, d messages.ProcurementDraft, supplier, store string) tea.Cmd {
	return func() tea.Msg {
		f, err := report.ProcurementRequisition(d, supplier, store)
		if err != nil {
			return exportedMsg{err: err}
		}
		defer f.Close()

		path := filepath.Join(dir, fmt.Sprintf("procurement-%s.xlsx", time.Now().Format("20060102-150405")))
		if err = f.SaveAs(path); err != nil {
			return exportedMsg{err: fmt.Errorf("failed to save %s: %w", path, err)}
		}
		return exportedMsg{path: path}
	}
}
