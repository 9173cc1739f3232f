package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbhms/pbhms/pkg/logging"
)

// Queue is the transport the publisher writes to.
type Queue interface {
	Send(ctx context.Context, body string) error
}

// Publisher emits appointment lifecycle events. A nil Publisher, or one built
// with a nil queue, discards events so callers never need to branch.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher. A nil queue disables it.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// Publish serializes the event and enqueues it.
func (p *Publisher) Publish(ctx context.Context, evt AppointmentEvent) error {
	if p == nil || p.queue == nil {
		return nil
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.Type, err)
	}
	p.logger.Debug("appointment event published",
		"type", evt.Type,
		"appointment_id", evt.AppointmentID,
	)
	return nil
}
