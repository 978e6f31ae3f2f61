package common

import (
	"context"
	"fmt"

	"github.com/alimitedgroup/invdesk/common/messages"
	"github.com/nats-io/nats.go/jetstream"
)

// StockUpdatesStreamConfig holds one message per location: each message is
// the complete list of units there, so older ones carry no information.
var StockUpdatesStreamConfig = jetstream.StreamConfig{
	Name:              "stock_updates",
	Subjects:          []string{"stock_updates.>"},
	Storage:           jetstream.FileStorage,
	MaxMsgsPerSubject: 1,
}

func StockUpdateSubject(key messages.LocationKey) string {
	return fmt.Sprintf("stock_updates.%s", key)
}

func CreateStream(ctx context.Context, js jetstream.JetStream, cfg jetstream.StreamConfig) error {
	_, err := js.CreateOrUpdateStream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
	}
	return nil
}
