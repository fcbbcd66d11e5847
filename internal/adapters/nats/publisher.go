package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	encoding string
}

// NewPublisher connects to NATS, enables JetStream and ensures the streams
// exist. encoding is EncodingJSON or EncodingProtobuf.
func NewPublisher(url, encoding string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "FIELDKIT_BOUNDARIES",
			Subjects:  []string{"fieldkit.boundary.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "FIELDKIT_AUDITS",
			Subjects:  []string{"fieldkit.audit.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js, encoding: encoding}, nil
}

// PublishBoundaryEvent publishes on fieldkit.boundary.<tenant>.<farm>.
func (p *Publisher) PublishBoundaryEvent(ctx context.Context, event *domain.BoundaryEvent) error {
	return p.publish(ctx, BoundarySubject(event.TenantID, event.FarmID), event)
}

// PublishAuditReport publishes on fieldkit.audit.<tenant>.<farm>.
func (p *Publisher) PublishAuditReport(ctx context.Context, report *domain.AuditReport) error {
	return p.publish(ctx, AuditSubject(report.TenantID, report.FarmID), report)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, contentType, err := encode(p.encoding, v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Header.Set(contentTypeHeader, contentType)
	msg.Data = data

	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("fieldkit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// DecodeBoundaryEvent decodes a message published by PublishBoundaryEvent.
func DecodeBoundaryEvent(msg *nats.Msg) (*domain.BoundaryEvent, error) {
	var ev domain.BoundaryEvent
	if err := decode(msg.Header.Get(contentTypeHeader), msg.Data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DecodeAuditReport decodes a message published by PublishAuditReport.
func DecodeAuditReport(msg *nats.Msg) (*domain.AuditReport, error) {
	var r domain.AuditReport
	if err := decode(msg.Header.Get(contentTypeHeader), msg.Data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
