// Package notify publishes task approval events to NATS for consumption by
// realtime subscribers (websocket fanout, notification center).
//
// Subject convention: notifications.tasks.<event_type>
// Event types: task_submitted, task_approval_required, task_approved,
//
//	task_rejected, task_resubmitted, task_completed
//
// All publish operations are fire-and-forget: errors are logged but never
// propagated, so notification failures never interrupt a transition.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event type names.
const (
	EventTaskSubmitted        = "task_submitted"
	EventTaskApprovalRequired = "task_approval_required"
	EventTaskApproved         = "task_approved"
	EventTaskRejected         = "task_rejected"
	EventTaskResubmitted      = "task_resubmitted"
	EventTaskCompleted        = "task_completed"
)

// Publisher publishes task events to NATS. A nil connection disables
// publishing (local development without a broker).
type Publisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// Event is the JSON schema published to NATS.
type Event struct {
	EventType    string                 `json:"event_type"`
	ActorID      string                 `json:"actor_id"`
	Recipients   []string               `json:"recipients"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// New creates a publisher backed by the given NATS connection.
func New(conn *nats.Conn, log zerolog.Logger) *Publisher {
	return &Publisher{conn: conn, log: log}
}

// PublishTaskEvent publishes a task approval event.
// Subject: notifications.tasks.<eventType>
func (p *Publisher) PublishTaskEvent(ctx context.Context, eventType, taskID, actorID string, recipients []string, payload map[string]interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	event := &Event{
		EventType:    eventType,
		ActorID:      actorID,
		Recipients:   recipients,
		ResourceType: "task",
		ResourceID:   taskID,
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.tasks.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("task_id", taskID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("task_id", taskID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}
