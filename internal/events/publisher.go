// Package events forwards committed store events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type producer interface {
	Publish(key, value []byte, headers ...kafka.Header)
}

// Publisher implements market.EventSink. Envelopes are keyed by the
// entity they concern so one entity's events stay on one partition.
type Publisher struct {
	p   producer
	log *zap.Logger
}

func NewPublisher(p producer, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{p: p, log: log}
}

func (pub *Publisher) Publish(_ context.Context, ev market.Envelope) {
	b, err := json.Marshal(ev)
	if err != nil {
		pub.log.Error("marshal envelope", zap.String("event_id", ev.EventID), zap.Error(err))
		return
	}
	key := ev.CorrelationID
	if key == "" {
		key = ev.EventID
	}
	pub.p.Publish(market.PartitionKey(key), b,
		kafka.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
	pub.log.Debug("event published", zap.String("event_type", ev.EventType), zap.String("key", key))
}
