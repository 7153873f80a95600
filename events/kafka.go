package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("events: producer closed")

const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer buffers messages in a bounded inbox drained by one goroutine.
// A full inbox drops the event with a warning.
type KafkaProducer struct {
	w     messageWriter
	inbox chan kafka.Message
	done  chan struct{}
	log   *zap.Logger

	mu     sync.Mutex
	closed bool
}

func NewKafkaProducer(brokers []string, topic string, buf int, log *zap.Logger) *KafkaProducer {
	return newKafkaProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf, log)
}

func newKafkaProducer(w messageWriter, buf int, log *zap.Logger) *KafkaProducer {
	if buf <= 0 {
		buf = 256
	}
	p := &KafkaProducer{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		log:   log.With(zap.String("component", "kafka_producer")),
	}
	go p.loop()
	return p
}

func (p *KafkaProducer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.w.WriteMessages(ctx, m); err != nil {
			p.log.Warn("publish event failed", zap.String("key", string(m.Key)), zap.Error(err))
		}
		cancel()
	}
	if err := p.w.Close(); err != nil {
		p.log.Warn("close kafka writer", zap.Error(err))
	}
}

func (p *KafkaProducer) Publish(_ context.Context, key string, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- msg:
	default:
		p.log.Warn("event buffer full, dropping event",
			zap.String("event_type", env.EventType), zap.String("key", key))
	}
	return nil
}

// Close flushes buffered messages and waits for the writer to close.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
	return nil
}
