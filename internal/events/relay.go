// Package events moves committed outbox rows to Kafka. Delivery is at least
// once: rows are marked sent only after the broker accepted them.
package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

type Publisher interface {
	Publish(ctx context.Context, events []market.Event) error
	Close() error
}

// KafkaPublisher writes each event to its own topic, keyed by the event key
// so one seller's sales stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []market.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, kafka.Message{
			Topic: e.Topic,
			Key:   []byte(e.Key),
			Value: e.Payload,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(e.EventID)},
			},
		})
	}
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// LogPublisher stands in when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, events []market.Event) error {
	for _, e := range events {
		log.Printf("[events] topic=%s key=%s event_id=%s %s", e.Topic, e.Key, e.EventID, e.Payload)
	}
	return nil
}

func (LogPublisher) Close() error { return nil }

type Relay struct {
	outbox   store.Outbox
	pub      Publisher
	batch    int
	interval time.Duration
	observe  func(result string, n int)
}

type Option func(*Relay)

func WithBatch(n int) Option { return func(r *Relay) { r.batch = n } }

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }

// WithObserver receives "sent" and "failed" counts per flush.
func WithObserver(fn func(result string, n int)) Option { return func(r *Relay) { r.observe = fn } }

func NewRelay(outbox store.Outbox, pub Publisher, opts ...Option) *Relay {
	r := &Relay{outbox: outbox, pub: pub, batch: 100, interval: 2 * time.Second, observe: func(string, int) {}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Flush publishes one batch and returns how many rows were marked sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.outbox.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if err := r.pub.Publish(ctx, pending); err != nil {
		r.observe("failed", len(pending))
		return 0, fmt.Errorf("publish %d events: %w", len(pending), err)
	}
	sent := 0
	for _, e := range pending {
		if err := r.outbox.MarkSent(ctx, e.ID); err != nil {
			// already published; it goes out again on the next flush
			r.observe("sent", sent)
			return sent, fmt.Errorf("mark event %d sent: %w", e.ID, err)
		}
		sent++
	}
	r.observe("sent", sent)
	return sent, nil
}

// Run flushes until ctx is done. A full batch is followed by another flush
// right away.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		n, err := r.Flush(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			log.Printf("[events] relay: %v", err)
		case n > 0:
			log.Printf("[events] relayed %d events", n)
		}
		if err == nil && n == r.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
