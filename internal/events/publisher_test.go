package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	event := Event{
		Type:       TypeOrderStatusChanged,
		OrderID:    "order-1",
		UserID:     "user123",
		Status:     "approved",
		FromStatus: "pending",
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("order-1"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(TypeOrderStatusChanged), msg.Headers[0].Value)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, event, got)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), Event{Type: TypeOrderPlaced, OrderID: "order-1"})
	assert.ErrorIs(t, err, boom)
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}

// blockingPublisher waits for its context to end.
type blockingPublisher struct {
	err error
}

func (b *blockingPublisher) Publish(ctx context.Context, _ Event) error {
	<-ctx.Done()
	b.err = ctx.Err()
	return b.err
}

func TestPublishDetached_SurvivesCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &blockingPublisher{}
	start := time.Now()
	err := PublishDetached(ctx, pub, Event{Type: TypeOrderPlaced, OrderID: "o1"}, 20*time.Millisecond)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, pub.err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPublishDetached_BoundedByOwnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	err := PublishDetached(ctx, &blockingPublisher{}, Event{Type: TypeOrderPlaced}, 10*time.Millisecond)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, ctx.Err())
}
