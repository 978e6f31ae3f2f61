package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimitedgroup/invdesk/common"
	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/alimitedgroup/invdesk/common/natsutil"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

var (
	router    = messages.EquipmentCatalogEntry{Id: 1, Name: "Edge router", Model: "ER-8", UnitCost: "500.00"}
	store1    = messages.LocationKey{Type: messages.LocationStore, Id: "1"}
	pop7      = messages.LocationKey{Type: messages.LocationPop, Id: "7"}
	routerRef = messages.SelectionLine{Id: 1, Name: "Edge router", ModelNumber: "ER-8", UnitCost: "500.00"}
)

func seededStore() *MemStore {
	m := NewMemStore()
	m.Place(store1,
		messages.PhysicalUnit{Equipment: router, SerialNumber: "SN-100"},
		messages.PhysicalUnit{Equipment: router, SerialNumber: "SN-101"},
	)
	return m
}

func startInventory(t *testing.T, store Store) (*nats.Conn, jetstream.JetStream) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nc := common.NewInProcessNATSServer(t)
	svc, err := Setup(ctx, nc, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Stop() })

	client, err := nats.Connect(nc.ConnectedUrl())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	js, err := jetstream.New(client)
	require.NoError(t, err)
	return client, js
}

func request(t *testing.T, nc *nats.Conn, subject string, body any) *nats.Msg {
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := nc.Request(subject, data, time.Second)
	require.NoError(t, err)
	return resp
}

// lastStock returns the latest stock update for key, or nil if none was
// published yet.
func lastStock(js jetstream.JetStream, key messages.LocationKey) messages.StockUpdate {
	stream, err := js.Stream(context.Background(), common.StockUpdatesStreamConfig.Name)
	if err != nil {
		return nil
	}
	msg, err := stream.GetLastMsgForSubject(context.Background(), common.StockUpdateSubject(key))
	if err != nil {
		return nil
	}

	var update messages.StockUpdate
	if err = json.Unmarshal(msg.Data, &update); err != nil {
		return nil
	}
	return update
}

func serials(units []messages.PhysicalUnit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.SerialNumber)
	}
	slices.Sort(out)
	return out
}

func movement(serialNumbers ...string) messages.MovementDraft {
	line := routerRef
	line.SerialNumbers = serialNumbers
	return messages.MovementDraft{
		FromLocationType: store1.Type, FromLocationId: store1.Id,
		ToLocationType: pop7.Type, ToLocationId: pop7.Id,
		MovementType:  messages.MovementInstallation,
		LogisticsCost: "25",
		Equipment:     []messages.SelectionLine{line},
	}
}

func TestInventory_PublishesInitialStock(t *testing.T) {
	_, js := startInventory(t, seededStore())

	require.Equal(t, []string{"SN-100", "SN-101"}, serials(lastStock(js, store1)))
}

func TestInventory_ListUnits(t *testing.T) {
	nc, _ := startInventory(t, seededStore())

	resp := request(t, nc, "inventory.units.list", nil)
	require.NoError(t, natsutil.ReplyError(resp))

	var inv messages.LocationGroupedInventory
	require.NoError(t, json.Unmarshal(resp.Data, &inv))
	require.Len(t, inv, 1)
	require.Equal(t, store1, inv[0].Key())
	require.Len(t, inv[0].Units, 2)
}

func TestInventory_Movement(t *testing.T) {
	store := seededStore()
	nc, js := startInventory(t, store)

	resp := request(t, nc, "inventory.movement.create", movement("SN-100"))
	require.NoError(t, natsutil.ReplyError(resp))

	var created messages.Response
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.Equal(t, "Equipment movement recorded", created.Message)
	_, err := uuid.Parse(created.Id)
	require.NoError(t, err)

	at, err := store.UnitsAt(context.Background(), pop7)
	require.NoError(t, err)
	require.Equal(t, []string{"SN-100"}, serials(at))

	require.Eventually(t, func() bool {
		return len(lastStock(js, store1)) == 1 && len(lastStock(js, pop7)) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"SN-100"}, serials(lastStock(js, pop7)))
}

func TestInventory_MovementInsufficientStock(t *testing.T) {
	store := seededStore()
	nc, _ := startInventory(t, store)

	svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "inventory.movement.create", movement("SN-100", "SN-999"))))
	require.True(t, ok)
	require.Equal(t, 409, svcErr.Status())
	require.Equal(t, "Insufficient stock", svcErr.Description)

	// nothing moved
	at, err := store.UnitsAt(context.Background(), store1)
	require.NoError(t, err)
	require.Len(t, at, 2)
}

func TestInventory_MovementValidation(t *testing.T) {
	nc, _ := startInventory(t, seededStore())

	same := movement("SN-100")
	same.ToLocationType, same.ToLocationId = store1.Type, store1.Id

	unknown := movement("SN-100")
	unknown.MovementType = "teleport"

	dup := movement("SN-100", "SN-100")

	cases := []struct {
		name  string
		draft messages.MovementDraft
		want  string
	}{
		{"same location", same, "Source and destination must differ"},
		{"unknown type", unknown, "Unknown movement type"},
		{"duplicate serial", dup, "Serial number SN-100 is listed twice"},
		{"no units", movement(), "At least one unit is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "inventory.movement.create", c.draft)))
			require.True(t, ok)
			require.Equal(t, 400, svcErr.Status())
			require.Equal(t, c.want, svcErr.Description)
		})
	}
}

func TestInventory_Procurement(t *testing.T) {
	store := seededStore()
	nc, js := startInventory(t, store)

	line := routerRef
	line.SerialNumbers = []string{"SN-200", "SN-201"}
	draft := messages.ProcurementDraft{SupplierId: "sup-1", StoreId: "1", Equipment: []messages.SelectionLine{line}}

	resp := request(t, nc, "inventory.procurement.create", draft)
	require.NoError(t, natsutil.ReplyError(resp))

	require.Eventually(t, func() bool {
		return len(lastStock(js, store1)) == 4
	}, time.Second, 10*time.Millisecond)

	svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "inventory.procurement.create", draft)))
	require.True(t, ok)
	require.Equal(t, 409, svcErr.Status())
	require.Equal(t, "Serial number already registered", svcErr.Description)
}

func TestValidateProcurement(t *testing.T) {
	line := routerRef
	line.SerialNumbers = []string{" "}

	_, ok := validateProcurement(messages.ProcurementDraft{StoreId: "1"})
	require.False(t, ok)

	d, ok := validateProcurement(messages.ProcurementDraft{SupplierId: "s", StoreId: "1", Equipment: []messages.SelectionLine{line}})
	require.False(t, ok)
	require.Equal(t, "Serial numbers cannot be blank", d.Description())
}

// heldStore blocks the first read of store1 after a procurement until
// release is closed.
type heldStore struct {
	*MemStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (h *heldStore) ApplyProcurement(ctx context.Context, id uuid.UUID, d messages.ProcurementDraft) error {
	err := h.MemStore.ApplyProcurement(ctx, id, d)
	if err == nil {
		h.armed.Store(true)
	}
	return err
}

func (h *heldStore) UnitsAt(ctx context.Context, key messages.LocationKey) ([]messages.PhysicalUnit, error) {
	if key == store1 && h.armed.CompareAndSwap(true, false) {
		close(h.entered)
		<-h.release
	}
	return h.MemStore.UnitsAt(ctx, key)
}

func TestInventory_ConcurrentWritesPublishInOrder(t *testing.T) {
	store := &heldStore{MemStore: seededStore(), entered: make(chan struct{}), release: make(chan struct{})}
	nc, js := startInventory(t, store)

	line := routerRef
	line.SerialNumbers = []string{"NEW-1"}
	procurement, err := json.Marshal(messages.ProcurementDraft{SupplierId: "sup-1", StoreId: "1", Equipment: []messages.SelectionLine{line}})
	require.NoError(t, err)
	move, err := json.Marshal(movement("SN-100"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	replies := make([]*nats.Msg, 2)
	send := func(i int, subject string, data []byte) {
		defer wg.Done()
		replies[i], _ = nc.Request(subject, data, 5*time.Second)
	}

	wg.Add(1)
	go send(0, "inventory.procurement.create", procurement)
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("procurement never read its stock")
	}

	// the movement of SN-100 arrives while the procurement is publishing
	wg.Add(1)
	go send(1, "inventory.movement.create", move)
	time.Sleep(100 * time.Millisecond)
	close(store.release)
	wg.Wait()

	for _, reply := range replies {
		require.NotNil(t, reply)
		require.NoError(t, natsutil.ReplyError(reply))
	}

	at, err := store.UnitsAt(context.Background(), store1)
	require.NoError(t, err)
	require.Equal(t, []string{"NEW-1", "SN-101"}, serials(at))
	require.Equal(t, serials(at), serials(lastStock(js, store1)))
}

type unreadableStore struct {
	*MemStore
}

func (unreadableStore) UnitsAt(context.Context, messages.LocationKey) ([]messages.PhysicalUnit, error) {
	return nil, errors.New("connection reset")
}

func TestInventory_PublishFailureIsReported(t *testing.T) {
	store := unreadableStore{seededStore()}
	nc, _ := startInventory(t, store)

	line := routerRef
	line.SerialNumbers = []string{"SN-300"}
	draft := messages.ProcurementDraft{SupplierId: "sup-1", StoreId: "1", Equipment: []messages.SelectionLine{line}}

	svcErr, ok := natsutil.AsServiceError(natsutil.ReplyError(request(t, nc, "inventory.procurement.create", draft)))
	require.True(t, ok)
	require.Equal(t, 500, svcErr.Status())
	require.Equal(t, natsutil.PublishError.Description(), svcErr.Description)

	// the procurement itself went through
	inv, err := store.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, inv[0].Units, 3)
}
