package common

import (
	"testing"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
)

// NewInProcessNATSServer starts a JetStream-enabled server on a random port
// for the duration of the test and returns a connection to it.
func NewInProcessNATSServer(t testing.TB) *nats.Conn {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("failed to connect to in-process NATS server: %v", err)
	}
	t.Cleanup(nc.Close)

	return nc
}
