package natsutil

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ConsumeAll delivers every message currently in stream to callback and
// returns once the consumer has nothing pending. It returns the stream
// sequence of the last message seen, 0 if there was none, so a live consumer
// can carry on from there.
func ConsumeAll(
	ctx context.Context,
	js jetstream.JetStream,
	stream string,
	cfg jetstream.OrderedConsumerConfig,
	callback func(msg jetstream.Msg),
) (uint64, error) {
	consumer, err := js.OrderedConsumer(ctx, stream, cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to create ordered consumer on %s: %w", stream, err)
	}

	var last atomic.Uint64
	sub, err := consumer.Consume(func(msg jetstream.Msg) {
		callback(msg)
		if meta, err := msg.Metadata(); err == nil {
			last.Store(meta.Sequence.Stream)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("failed to consume %s: %w", stream, err)
	}

	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			sub.Stop()
			return 0, ctx.Err()
		case <-t.C:
			info, err := consumer.Info(ctx)
			if err != nil {
				sub.Stop()
				return 0, fmt.Errorf("failed to get consumer info for %s: %w", stream, err)
			}

			if info.NumPending == 0 && info.NumAckPending == 0 {
				sub.Drain()
				<-sub.Closed()

				seq := last.Load()
				slog.DebugContext(ctx, "Consumed stream backlog", "stream", stream, "last_sequence", seq)
				return seq, nil
			}
		}
	}
}
