package natsadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// Subscriber consumes boundary events from JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeBoundaryEvents delivers every boundary event to handler under a
// durable consumer. Messages are acked when handler succeeds and redelivered
// up to 3 times otherwise.
func (s *Subscriber) SubscribeBoundaryEvents(ctx context.Context, durable string, handler func(ctx context.Context, event *domain.BoundaryEvent) error) error {
	sub, err := s.js.Subscribe(TenantBoundarySubjects(""), func(msg *nats.Msg) {
		event, err := DecodeBoundaryEvent(msg)
		if err != nil {
			slog.Warn("drop undecodable boundary event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, event); err != nil {
			slog.Warn("boundary event handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.DeliverNew(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
