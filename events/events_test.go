package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	ctx    context.Context
	ctxErr error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	w.ctx = ctx
	w.ctxErr = ctx.Err()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleChange() leave.Change {
	return leave.Change{
		Type: leave.ChangeApproved,
		Request: leave.LeaveRequest{
			ID:         "req-1",
			EmployeeID: "emp-1",
			Status:     leave.StatusApproved,
		},
		ActorID:    "mgr-1",
		OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish_WritesKeyedMessage(t *testing.T) {
	// GIVEN a publisher over a fake writer
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	// WHEN publishing an approval
	err := p.Publish(context.Background(), sampleChange())

	// THEN one message keyed by employee carries the event
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "emp-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "request.approved", string(msg.Headers[0].Value))

	var ev RequestEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, "approved", ev.Status)
	assert.Equal(t, "mgr-1", ev.ActorID)
}

func TestKafkaPublisher_Publish_ReturnsWriterError(t *testing.T) {
	// GIVEN a broker that rejects writes
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}

	// WHEN publishing
	err := p.Publish(context.Background(), sampleChange())

	// THEN the error surfaces
	assert.EqualError(t, err, "broker down")
}

func TestKafkaPublisher_Publish_OutlivesCanceledCaller(t *testing.T) {
	// GIVEN a request context that is already gone
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN publishing
	err := p.Publish(ctx, sampleChange())

	// THEN the write still runs, under its own short deadline
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.NotNil(t, w.ctx)
	assert.NoError(t, w.ctxErr)
	deadline, ok := w.ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), deadline, 50*time.Millisecond)
}

func TestNewKafkaPublisher_BoundsWriterLatency(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "leave.requests.v1")
	defer p.Close()

	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, kafkaBatchTimeout, w.BatchTimeout)
	assert.Equal(t, PublishTimeout, w.WriteTimeout)
	assert.Equal(t, kafkaMaxAttempts, w.MaxAttempts)
	assert.Equal(t, PublishTimeout, p.timeout)
}

func TestRecorder_KeepsOrder(t *testing.T) {
	r := &Recorder{}
	c := sampleChange()
	require.NoError(t, r.Publish(context.Background(), c))
	c.Type = leave.ChangeDeleted
	require.NoError(t, r.Publish(context.Background(), c))

	evs := r.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "request.approved", evs[0].Type)
	assert.Equal(t, "request.deleted", evs[1].Type)
}
