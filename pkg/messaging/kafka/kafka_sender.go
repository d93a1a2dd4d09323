// Package kafka publishes fill events to a Kafka topic using
// segmentio/kafka-go. Publication runs on a dedicated goroutine so that
// Send never blocks the caller; if the broker falls behind, the oldest
// queued event is dropped rather than applying backpressure to the
// matching path.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/ashgrove-systems/ticklob/pkg/messaging"
)

const defaultQueueDepth = 1024

// ErrClosed is returned by Send once Close has been called.
var ErrClosed = errors.New("kafka: sender closed")

// Sender publishes messaging.FillEvent values to Kafka.
type Sender struct {
	writer *kafka.Writer
	queue  chan messaging.FillEvent
	done   chan struct{}
	closed atomic.Bool
}

// Option configures a Sender at construction time.
type Option func(*Sender)

// WithQueueDepth overrides the default buffered channel size between Send
// and the publishing goroutine.
func WithQueueDepth(depth int) Option {
	return func(s *Sender) {
		s.queue = make(chan messaging.FillEvent, depth)
	}
}

// NewSender dials no connection eagerly; kafka.Writer connects lazily on
// first write. brokerAddr is a single host:port; topic is the destination.
func NewSender(brokerAddr, topic string, opts ...Option) *Sender {
	s := &Sender{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddr),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
		queue: make(chan messaging.FillEvent, defaultQueueDepth),
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// Send enqueues event for publication. If the internal queue is full, the
// oldest pending event is dropped and logged rather than blocking the
// caller. ctx is not consulted for cancellation; enqueueing is always
// non-blocking.
func (s *Sender) Send(_ context.Context, event messaging.FillEvent) error {
	if s.closed.Load() {
		return ErrClosed
	}

	select {
	case s.queue <- event:
	default:
		select {
		case dropped := <-s.queue:
			log.Warn().Uint64("sequence_no", dropped.SequenceNo).Msg("kafka sender queue full, dropped oldest fill event")
		default:
		}
		select {
		case s.queue <- event:
		default:
			log.Warn().Uint64("sequence_no", event.SequenceNo).Msg("kafka sender queue full, dropped fill event")
		}
	}
	return nil
}

// Close stops the publishing goroutine and closes the underlying writer.
func (s *Sender) Close() error {
	s.closed.Store(true)
	close(s.queue)
	<-s.done
	return s.writer.Close()
}

func (s *Sender) run() {
	defer close(s.done)

	for event := range s.queue {
		s.publish(event)
	}
}

func (s *Sender) publish(event messaging.FillEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal fill event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderBookID),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Uint64("sequence_no", event.SequenceNo).Msg("failed to publish fill event to kafka")
	}
}
