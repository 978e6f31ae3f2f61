package common

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sync.Mutex
	s []string
}

func (r *recorder) add(v string) {
	r.Lock()
	defer r.Unlock()
	r.s = append(r.s, v)
}

func (r *recorder) get() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string(nil), r.s...)
}

func TestService_RegisterHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	nc := NewInProcessNATSServer(t)

	service, err := NewService(ctx, nc, &recorder{})
	require.NoError(t, err)
	require.NoError(t, service.RegisterHandler("subject", func(ctx context.Context, s *Service[*recorder], msg *nats.Msg) {
		(*s.State()).add(string(msg.Data))
	}))

	require.NoError(t, nc.Publish("subject", []byte("hello")))
	require.NoError(t, nc.Publish("subject", []byte("world")))

	require.Eventually(t, func() bool {
		return len((*service.State()).get()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"hello", "world"}, (*service.State()).get())
}

func TestService_RegisterJsHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	nc := NewInProcessNATSServer(t)

	service, err := NewService(ctx, nc, &recorder{})
	require.NoError(t, err)
	require.NoError(t, CreateStream(ctx, service.JetStream(), StockUpdatesStreamConfig))

	store := messages.LocationKey{Type: messages.LocationStore, Id: "1"}
	pop := messages.LocationKey{Type: messages.LocationPop, Id: "2"}

	_, err = service.JetStream().Publish(ctx, StockUpdateSubject(store), []byte("old"))
	require.NoError(t, err)
	_, err = service.JetStream().Publish(ctx, StockUpdateSubject(store), []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, service.RegisterJsHandler(StockUpdatesStreamConfig.Name, func(ctx context.Context, s *Service[*recorder], msg jetstream.Msg) error {
		(*s.State()).add(string(msg.Data()))
		return nil
	}, WithDeliverAll()))

	_, err = service.JetStream().Publish(ctx, StockUpdateSubject(pop), []byte("world"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len((*service.State()).get()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	// one message per subject is retained
	require.Equal(t, []string{"hello", "world"}, (*service.State()).get())
}

func TestService_RegisterJsHandlerError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	nc := NewInProcessNATSServer(t)

	service, err := NewService(ctx, nc, &recorder{})
	require.NoError(t, err)
	_, err = service.JetStream().CreateStream(ctx, jetstream.StreamConfig{Name: "stream"})
	require.NoError(t, err)

	require.NoError(t, service.RegisterJsHandler("stream", func(ctx context.Context, s *Service[*recorder], msg jetstream.Msg) error {
		(*s.State()).add(string(msg.Data()))
		if string(msg.Data()) == "bad" {
			_ = msg.Term()
			return errors.New("rejected")
		}
		return nil
	}, WithDeliverNew()))

	require.NoError(t, nc.Publish("stream", []byte("bad")))
	require.NoError(t, nc.Publish("stream", []byte("good")))

	require.Eventually(t, func() bool {
		return len((*service.State()).get()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_Cleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	nc := NewInProcessNATSServer(t)
	client, err := nats.Connect(nc.ConnectedUrl())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	svc, err := NewService(ctx, nc, struct{}{})
	require.NoError(t, err)
	require.NoError(t, svc.RegisterHandler("cleanup", func(ctx context.Context, s *Service[struct{}], msg *nats.Msg) {
		_ = msg.Respond(msg.Data)
	}))

	resp, err := client.Request("cleanup", []byte("hello"), time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), resp.Data)

	cancel()

	require.Eventually(t, nc.IsClosed, time.Second, 10*time.Millisecond)

	_, err = client.Request("cleanup", []byte("hello"), 100*time.Millisecond)
	require.ErrorIs(t, err, nats.ErrNoResponders)
}
