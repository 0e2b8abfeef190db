// Package events publishes catalog domain events to NATS for out-of-process
// consumers such as the moderation queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"agentmarket/internal/models"
)

// SubjectAgentSubmitted carries newly submitted listings awaiting review.
const SubjectAgentSubmitted = "agents.submitted"

// AgentSubmitted is the payload of SubjectAgentSubmitted.
type AgentSubmitted struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	CategoryID  uuid.UUID       `json:"category_id"`
	CreatorID   uuid.UUID       `json:"creator_id"`
	Price       decimal.Decimal `json:"price"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// NewAgentSubmitted builds the event for a stored agent.
func NewAgentSubmitted(a *models.Agent) AgentSubmitted {
	return AgentSubmitted{
		ID:          a.ID,
		Name:        a.Name,
		CategoryID:  a.CategoryID,
		CreatorID:   a.CreatorID,
		Price:       a.Price,
		SubmittedAt: a.CreatedAt,
	}
}

// Publisher sends JSON events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close()
}

// NATSPublisher publishes events over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect opens a NATS connection that reconnects indefinitely.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("agentmarket"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", conn.ConnectedUrl())
	return &NATSPublisher{conn: conn}, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish marshals data as JSON and publishes it on subject.
func (p *NATSPublisher) Publish(_ context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Noop discards events. Used when NATS_URL is empty.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                     {}
