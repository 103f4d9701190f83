// Package events publishes generation lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/target/mmk-genstudio/config"
	"github.com/target/mmk-genstudio/internal/core"
	"github.com/target/mmk-genstudio/internal/domain/model"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON to <prefix>.<type>.
type NATSPublisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

var _ core.GenerationEventPublisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn Conn, prefix string, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With("component", "nats_publisher"),
	}
}

// Connect dials NATS using cfg and returns a publisher over the connection.
func Connect(cfg config.EventsConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("genstudio"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
	}
	return NewNATSPublisher(nc, cfg.SubjectPrefix, logger), nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(t model.GenerationEventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

// PublishGenerationEvent publishes evt. NATS publish is fire-and-forget; an
// error here means the client could not buffer the message.
func (p *NATSPublisher) PublishGenerationEvent(ctx context.Context, evt model.GenerationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.Type == "" {
		return errors.New("event type is required")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal generation event: %w", err)
	}
	subject := p.Subject(evt.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.DebugContext(ctx, "generation event published", "subject", subject, "job_id", evt.JobID)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// NopPublisher discards events. Used when events are disabled.
type NopPublisher struct{}

var _ core.GenerationEventPublisher = NopPublisher{}

// PublishGenerationEvent implements core.GenerationEventPublisher.
func (NopPublisher) PublishGenerationEvent(context.Context, model.GenerationEvent) error {
	return nil
}
