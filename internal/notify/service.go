// Package notify turns marketplace events into per-user notification feeds
// kept in Redis.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-farmlink/internal/format"
	kafkax "github.com/ariefcatur/go-farmlink/internal/kafka"
	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/ariefcatur/go-farmlink/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Notification struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserID     string    `json:"user_id"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Service struct {
	Redis       redis.Cmdable
	ServiceName string
	Log         *zap.Logger
}

// Handle is the consumer handler. Malformed messages are logged and
// skipped so they do not block the partition.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env market.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Warn("skip undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	return s.HandleEnvelope(ctx, env)
}

func (s *Service) HandleEnvelope(ctx context.Context, env market.Envelope) error {
	n, ok, err := s.build(env)
	if err != nil {
		s.log().Warn("skip bad payload", zap.String("event_id", env.EventID), zap.String("event_type", env.EventType), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		s.log().Debug("duplicate event ignored", zap.String("event_id", env.EventID))
		return nil
	}

	if err := s.push(ctx, n); err != nil {
		// release the claim so a redelivery can retry
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	s.log().Info("notification stored",
		zap.String("event_type", env.EventType),
		zap.String("user_id", n.UserID))
	return nil
}

func (s *Service) push(ctx context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyNotifications, n.UserID)
	_, err = s.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, b)
		p.LTrim(ctx, key, 0, redisx.FeedSize-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Feed returns a user's notifications, newest first.
func (s *Service) Feed(ctx context.Context, userID string) ([]Notification, error) {
	raw, err := s.Redis.LRange(ctx, fmt.Sprintf(redisx.KeyNotifications, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			s.log().Warn("skip corrupt notification", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// build picks the recipient and text for an event. ok is false for event
// types nobody is notified about.
func (s *Service) build(env market.Envelope) (n Notification, ok bool, err error) {
	n = Notification{EventID: env.EventID, EventType: env.EventType, OccurredAt: env.OccurredAt}

	switch env.EventType {
	case market.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[market.OrderPlacedPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.UserID = p.FarmerID
		n.Message = fmt.Sprintf("New order %s: %d units for %s", p.OrderID, p.Quantity, format.Currency(p.TotalPrice, "USD"))
	case market.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[market.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.UserID = p.BuyerID
		n.Message = fmt.Sprintf("Order %s is now %s", p.OrderID, p.To)
	case market.EventProductReviewed:
		p, err := kafkax.UnwrapPayload[market.ProductPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.UserID = p.FarmerID
		if p.Status == market.ProductApproved {
			n.Message = fmt.Sprintf("%s was approved and is now listed", p.Name)
		} else {
			n.Message = fmt.Sprintf("%s needs revision before it can be listed", p.Name)
		}
	case market.EventFeedbackAdded:
		p, err := kafkax.UnwrapPayload[market.FeedbackAddedPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.UserID = p.FarmerID
		n.Message = fmt.Sprintf("New %d-star feedback on order %s", p.Rating, p.OrderID)
	case market.EventUserStatusToggled:
		p, err := kafkax.UnwrapPayload[market.UserStatusToggledPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.UserID = p.UserID
		n.Message = fmt.Sprintf("Your account is now %s", p.Status)
	default:
		return n, false, nil
	}
	if n.UserID == "" {
		return n, false, fmt.Errorf("%s without recipient", env.EventType)
	}
	return n, true, nil
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
