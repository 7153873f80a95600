package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	block  chan struct{}
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaProducerFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, 8, zap.NewNop())

	env, err := NewEnvelope(TypeOrderStatusChanged, "orders", "req-1", OrderStatusChanged{OrderID: "o-1", From: "placed", To: "confirmed"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "o-1", env))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed)
	assert.Equal(t, "o-1", string(w.msgs[0].Key))

	var got Envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, TypeOrderStatusChanged, got.EventType)
	assert.Equal(t, 1, got.EventVersion)
	assert.Equal(t, "req-1", got.CorrelationID)

	var payload OrderStatusChanged
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "confirmed", payload.To)

	assert.ErrorIs(t, p.Publish(context.Background(), "o-1", env), ErrProducerClosed)
}

func TestKafkaProducerDropsWhenFull(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	p := newKafkaProducer(w, 1, zap.NewNop())
	env, err := NewEnvelope(TypeOrderPlaced, "orders", "", OrderPlaced{OrderID: "o-1"})
	require.NoError(t, err)

	// one message may be held by the writer goroutine, one sits in the
	// buffer; the rest are dropped without blocking
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Publish(context.Background(), "o-1", env))
	}
	close(w.block)
	require.NoError(t, p.Close())

	assert.LessOrEqual(t, len(w.msgs), 2)
	assert.GreaterOrEqual(t, len(w.msgs), 1)
}
