package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	items     []messages.EquipmentCatalogEntry
	kinds     map[uint64]messages.CatalogKind
	suppliers []messages.Supplier
	locations messages.Locations
	users     []messages.NamedRef
}

func newMemRepo() *memRepo {
	return &memRepo{kinds: make(map[uint64]messages.CatalogKind)}
}

func (r *memRepo) ListItems(_ context.Context, kind messages.CatalogKind) ([]messages.EquipmentCatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []messages.EquipmentCatalogEntry
	for _, it := range r.items {
		if r.kinds[it.Id] == kind {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memRepo) CreateItem(_ context.Context, item messages.CreateCatalogItem) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range r.items {
		if r.kinds[it.Id] == item.Kind && it.Name == item.Name && it.Model == item.Model {
			return 0, fmt.Errorf("failed to insert catalog item: %w", errDuplicate)
		}
	}
	id := uint64(len(r.items) + 1)
	r.items = append(r.items, messages.EquipmentCatalogEntry{
		Id: id, Name: item.Name, Model: item.Model, UnitCost: messages.AmountOf(item.UnitCost.Decimal()), EquipmentType: item.EquipmentType,
	})
	r.kinds[id] = item.Kind
	return id, nil
}

func (r *memRepo) ListSuppliers(context.Context) ([]messages.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suppliers, nil
}

func (r *memRepo) CreateSupplier(_ context.Context, s messages.CreateSupplier) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("sup-%d", len(r.suppliers)+1)
	r.suppliers = append(r.suppliers, messages.Supplier{Id: id, Name: s.Name, Contact: s.Contact})
	return id, nil
}

func (r *memRepo) ListLocations(context.Context) (messages.Locations, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locations, nil
}

func (r *memRepo) CreateLocation(_ context.Context, l messages.CreateLocation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("%d", len(r.locations.Stores)+len(r.locations.Pops)+len(r.locations.Customers)+1)
	ref := messages.NamedRef{Id: id, Name: l.Name}
	switch l.LocationType {
	case messages.LocationStore:
		r.locations.Stores = append(r.locations.Stores, ref)
	case messages.LocationPop:
		r.locations.Pops = append(r.locations.Pops, ref)
	case messages.LocationCustomer:
		r.locations.Customers = append(r.locations.Customers, ref)
	}
	return id, nil
}

func (r *memRepo) ListUsers(context.Context) ([]messages.NamedRef, error) {
	return r.users, nil
}

func startCatalog(t *testing.T, repo catalogRepo) *nats.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nc := common.NewInProcessNATSServer(t)
	client, err := nats.Connect(nc.ConnectedUrl())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = setupCatalog(ctx, nc, repo)
	require.NoError(t, err)
	return client
}

func request(t *testing.T, nc *nats.Conn, subject string, body any) *nats.Msg {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}

	resp, err := nc.Request(subject, data, time.Second)
	require.NoError(t, err)
	return resp
}

func TestCatalog_Ping(t *testing.T) {
	nc := startCatalog(t, newMemRepo())

	resp := request(t, nc, "catalog.ping", nil)
	require.Equal(t, []byte("pong"), resp.Data)
}

func TestCatalog_EquipmentAndTools(t *testing.T) {
	nc := startCatalog(t, newMemRepo())

	resp := request(t, nc, "catalog.equipment.create", messages.CreateCatalogItem{Name: " Edge router ", Model: "ER-8", UnitCost: "500"})
	require.NoError(t, natsutil.ReplyError(resp))
	var created messages.Response
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.Equal(t, "1", created.Id)

	resp = request(t, nc, "catalog.tool.create", messages.CreateCatalogItem{Kind: messages.KindEquipment, Name: "Crimper", UnitCost: "35"})
	require.NoError(t, natsutil.ReplyError(resp))

	var equipment []messages.EquipmentCatalogEntry
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.equipment.list", nil).Data, &equipment))
	require.Len(t, equipment, 1)
	require.Equal(t, "Edge router", equipment[0].Name)
	require.Equal(t, "500.00", string(equipment[0].UnitCost))

	var tools []messages.EquipmentCatalogEntry
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.tool.list", nil).Data, &tools))
	require.Len(t, tools, 1)
	require.Equal(t, "Crimper", tools[0].Name)
}

func TestCatalog_CreateItemErrors(t *testing.T) {
	nc := startCatalog(t, newMemRepo())

	cases := []struct {
		body any
		want string
		code int
	}{
		{messages.CreateCatalogItem{Name: "  "}, "Name is required", 400},
		{messages.CreateCatalogItem{Name: "Router", UnitCost: "-1"}, "Unit cost cannot be negative", 400},
		{"not an object", "Failed to deserialize request body", 400},
	}
	for _, c := range cases {
		svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "catalog.equipment.create", c.body)))
		require.True(t, ok)
		require.Equal(t, c.want, svcErr.Description)
		require.Equal(t, c.code, svcErr.Status())
	}

	require.NoError(t, natsutil.ReplyError(request(t, nc, "catalog.equipment.create", messages.CreateCatalogItem{Name: "Router"})))
	svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "catalog.equipment.create", messages.CreateCatalogItem{Name: "Router"})))
	require.True(t, ok)
	require.Equal(t, 409, svcErr.Status())
}

func TestCatalog_Locations(t *testing.T) {
	nc := startCatalog(t, newMemRepo())

	svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "catalog.location.create", messages.CreateLocation{LocationType: "warehouse", Name: "X"})))
	require.True(t, ok)
	require.Equal(t, 400, svcErr.Status())

	require.NoError(t, natsutil.ReplyError(request(t, nc, "catalog.location.create", messages.CreateLocation{LocationType: messages.LocationStore, Name: "Central"})))
	require.NoError(t, natsutil.ReplyError(request(t, nc, "catalog.location.create", messages.CreateLocation{LocationType: messages.LocationCustomer, Name: "ACME"})))

	var locs messages.Locations
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.location.list", nil).Data, &locs))
	require.Equal(t, []messages.NamedRef{{Id: "1", Name: "Central"}}, locs.Stores)
	require.Equal(t, []messages.NamedRef{{Id: "2", Name: "ACME"}}, locs.Customers)
}

func TestCatalog_SuppliersAndUsers(t *testing.T) {
	repo := newMemRepo()
	repo.users = []messages.NamedRef{{Id: "u1", Name: "Marta"}}
	nc := startCatalog(t, repo)

	var users []messages.NamedRef
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.user.list", nil).Data, &users))
	require.Equal(t, repo.users, users)

	var suppliers []messages.Supplier
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.supplier.list", nil).Data, &suppliers))
	require.Empty(t, suppliers)

	require.NoError(t, natsutil.ReplyError(request(t, nc, "catalog.supplier.create", messages.CreateSupplier{Name: "Acme Networks"})))
	require.NoError(t, json.Unmarshal(request(t, nc, "catalog.supplier.list", nil).Data, &suppliers))
	require.Equal(t, "Acme Networks", suppliers[0].Name)
}
