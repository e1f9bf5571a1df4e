package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/segmentio/kafka-go"
)

type captured struct {
	key, value []byte
	headers    []kafka.Header
}

type fakeProducer struct{ msgs []captured }

func (f *fakeProducer) Publish(key, value []byte, headers ...kafka.Header) {
	f.msgs = append(f.msgs, captured{key, value, headers})
}

func TestPublisherWritesEnvelope(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewPublisher(fp, nil)

	ev := market.Envelope{
		EventID:       "ev-1",
		EventType:     market.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		Producer:      "farmlink",
		CorrelationID: "order-9",
		Payload:       json.RawMessage(`{"order_id":"order-9"}`),
	}
	pub.Publish(context.Background(), ev)

	if len(fp.msgs) != 1 {
		t.Fatalf("published %d messages", len(fp.msgs))
	}
	m := fp.msgs[0]
	if string(m.key) != "order-9" {
		t.Errorf("key = %q", m.key)
	}
	hdr := map[string]string{}
	for _, h := range m.headers {
		hdr[h.Key] = string(h.Value)
	}
	if hdr["x-event-type"] != market.EventOrderPlaced || hdr["x-event-version"] != "1" {
		t.Errorf("headers = %v", hdr)
	}

	var got market.Envelope
	if err := json.Unmarshal(m.value, &got); err != nil {
		t.Fatal(err)
	}
	if got.EventID != "ev-1" || string(got.Payload) != `{"order_id":"order-9"}` {
		t.Errorf("envelope = %+v", got)
	}
}

func TestPublisherFallsBackToEventIDKey(t *testing.T) {
	fp := &fakeProducer{}
	NewPublisher(fp, nil).Publish(context.Background(), market.Envelope{EventID: "ev-2", EventType: "X", Payload: json.RawMessage(`{}`)})
	if string(fp.msgs[0].key) != "ev-2" {
		t.Errorf("key = %q", fp.msgs[0].key)
	}
}

func TestPublisherIsAnEventSink(t *testing.T) {
	var _ market.EventSink = NewPublisher(&fakeProducer{}, nil)
}
