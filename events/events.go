/*
Package events turns committed lifecycle changes into broker messages.

PURPOSE:
  leave.Manager hands every persisted mutation to a leave.ChangeSink. The
  sinks here encode it as a RequestEvent and either write it to Kafka,
  drop it, or keep it in memory for tests and the CLI.

WIRE FORMAT:
  JSON value, key = employee id (so one employee's events stay ordered on
  one partition), header "event_type" = the change type.

SEE ALSO:
  - leave/lifecycle.go: ChangeSink, Change
*/
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/metrics"
)

// RequestEvent is the payload published for each change.
type RequestEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	EmployeeID string    `json:"employee_id"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromChange builds the event for c.
func FromChange(c leave.Change) RequestEvent {
	return RequestEvent{
		Type:       string(c.Type),
		RequestID:  c.Request.ID,
		EmployeeID: c.Request.EmployeeID,
		Status:     string(c.Request.Status),
		ActorID:    c.ActorID,
		OccurredAt: c.OccurredAt,
	}
}

// =============================================================================
// KAFKA
// =============================================================================

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer settings. A change is published after its write has committed, so
// the caller waits at most PublishTimeout for the broker.
const (
	PublishTimeout    = 2 * time.Second
	kafkaBatchTimeout = 5 * time.Millisecond
	kafkaMaxAttempts  = 3
)

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           kafkaBatchTimeout,
			WriteTimeout:           PublishTimeout,
			MaxAttempts:            kafkaMaxAttempts,
		},
		timeout: PublishTimeout,
	}
}

// Publish implements leave.ChangeSink. The write runs under its own
// deadline and ignores cancellation of ctx.
func (p *KafkaPublisher) Publish(ctx context.Context, c leave.Change) error {
	timeout := p.timeout
	if timeout <= 0 {
		timeout = PublishTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := p.publish(ctx, FromChange(c))
	metrics.EventPublished(err)
	return err
}

func (p *KafkaPublisher) publish(ctx context.Context, ev RequestEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(ev.EmployeeID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	})
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// =============================================================================
// NOOP & RECORDER
// =============================================================================

// Noop discards every change.
type Noop struct{}

func (Noop) Publish(context.Context, leave.Change) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []RequestEvent
}

// Publish implements leave.ChangeSink.
func (r *Recorder) Publish(_ context.Context, c leave.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, FromChange(c))
	return nil
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []RequestEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RequestEvent, len(r.events))
	copy(out, r.events)
	return out
}
