package common

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Service bundles what every NATS-facing binary here needs: a connection,
// a JetStream client, some state, and handlers that are torn down together
// when the context passed to NewService is cancelled.
type Service[S any] struct {
	state S
	ctx   context.Context
	nc    *nats.Conn
	js    jetstream.JetStream

	mu            sync.Mutex
	subscriptions []*nats.Subscription
	consumers     []jetstream.ConsumeContext
}

// Handler handles a NATS Core subject.
type Handler[S any] func(context.Context, *Service[S], *nats.Msg)

// JsHandler handles messages of a JetStream stream. A nil return acks the
// message; on error the handler is expected to Nak or Term it itself.
type JsHandler[S any] func(context.Context, *Service[S], jetstream.Msg) error

func NewService[S any](ctx context.Context, nc *nats.Conn, state S) (*Service[S], error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}

	s := &Service[S]{ctx: ctx, state: state, nc: nc, js: js}
	go s.closeOnDone()

	return s, nil
}

func (s *Service[S]) closeOnDone() {
	<-s.ctx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cc := range s.consumers {
		cc.Stop()
	}
	for _, sub := range s.subscriptions {
		if err := sub.Drain(); err != nil {
			slog.Error("Failed to drain subscription", "error", err, "subject", sub.Subject)
		}
	}

	s.nc.Close()
}

// State returns the service state. Handlers run concurrently, so anything
// mutable in it needs its own locking.
func (s *Service[S]) State() *S {
	return &s.state
}

func (s *Service[S]) NatsConn() *nats.Conn {
	return s.nc
}

func (s *Service[S]) JetStream() jetstream.JetStream {
	return s.js
}

// RegisterHandler subscribes handler to subject.
func (s *Service[S]) RegisterHandler(subject string, handler Handler[S]) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(s.ctx, s, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()
	return nil
}

// RegisterJsHandler starts an ephemeral consumer on stream that keeps
// delivering to handler until the service is stopped.
func (s *Service[S]) RegisterJsHandler(stream string, handler JsHandler[S], opts ...JsHandlerOpt) error {
	cfg := jetstream.ConsumerConfig{AckPolicy: jetstream.AckExplicitPolicy}
	for _, opt := range opts {
		opt(&cfg)
	}

	consumer, err := s.js.CreateConsumer(s.ctx, stream, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer on %s: %w", stream, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(s.ctx, s, msg); err != nil {
			slog.ErrorContext(s.ctx, "Failed to handle stream message", "error", err, "stream", stream, "subject", msg.Subject())
			return
		}
		if err := msg.Ack(); err != nil {
			slog.WarnContext(s.ctx, "Failed to ack stream message", "error", err, "subject", msg.Subject())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", stream, err)
	}

	s.mu.Lock()
	s.consumers = append(s.consumers, cc)
	s.mu.Unlock()
	return nil
}

type JsHandlerOpt func(config *jetstream.ConsumerConfig)

func WithDeliverNew() JsHandlerOpt {
	return func(config *jetstream.ConsumerConfig) {
		config.DeliverPolicy = jetstream.DeliverNewPolicy
	}
}

func WithDeliverAll() JsHandlerOpt {
	return func(config *jetstream.ConsumerConfig) {
		config.DeliverPolicy = jetstream.DeliverAllPolicy
	}
}

// WithStartSequence resumes delivery right after a sequence already seen,
// e.g. by natsutil.ConsumeAll.
func WithStartSequence(seq uint64) JsHandlerOpt {
	return func(config *jetstream.ConsumerConfig) {
		if seq == 0 {
			config.DeliverPolicy = jetstream.DeliverAllPolicy
			return
		}
		config.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		config.OptStartSeq = seq + 1
	}
}
