// Package events publishes freshly aggregated price sets for downstream
// consumers such as deal alerts.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"eshopscout/errs"
	"eshopscout/models"
)

// Reason says why a set was aggregated.
type Reason string

const (
	ReasonSearch  Reason = "search"
	ReasonRefresh Reason = "refresh"
)

// PriceSetEvent is the message body written to the topic.
type PriceSetEvent struct {
	EventID     string              `json:"event_id"`
	Reason      Reason              `json:"reason"`
	HomeID      string              `json:"home_id"`
	Title       string              `json:"title"`
	Currency    string              `json:"currency"`
	Cheapest    *models.PriceQuote  `json:"cheapest,omitempty"`
	Quotes      []models.PriceQuote `json:"quotes"`
	GeneratedAt time.Time           `json:"generated_at"`
	PublishedAt time.Time           `json:"published_at"`
}

type Publisher interface {
	PublishPriceSet(ctx context.Context, reason Reason, set *models.PriceQuoteSet) error
	Close() error
}

// NewPriceSetEvent builds the event for set.
func NewPriceSetEvent(reason Reason, set *models.PriceQuoteSet) PriceSetEvent {
	ev := PriceSetEvent{
		EventID:     uuid.NewString(),
		Reason:      reason,
		HomeID:      set.HomeID,
		Title:       set.Title,
		Currency:    set.Currency,
		Quotes:      set.Quotes,
		GeneratedAt: set.GeneratedAt,
		PublishedAt: time.Now(),
	}
	if cheapest, ok := set.Cheapest(); ok {
		ev.Cheapest = &cheapest
	}
	return ev
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per set, keyed by home id so updates
// for a title stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) PublishPriceSet(ctx context.Context, reason Reason, set *models.PriceQuoteSet) error {
	if set == nil {
		return nil
	}
	ev := NewPriceSetEvent(reason, set)
	data, err := json.Marshal(ev)
	if err != nil {
		return errs.Wrap(err, "marshal price set event")
	}

	msg := kafka.Message{
		Key:   []byte(set.HomeID),
		Value: data,
		Time:  ev.PublishedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "reason", Value: []byte(reason)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errs.Wrapf(err, "publish price set %s to %s", set.HomeID, p.topic)
	}
	p.logger.Debug("Published price set", "home_id", set.HomeID, "quotes", len(set.Quotes), "reason", reason)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishPriceSet(context.Context, Reason, *models.PriceQuoteSet) error { return nil }
func (NoopPublisher) Close() error                                                         { return nil }

// PublishRecorder counts publish outcomes.
type PublishRecorder interface {
	Published(err error)
}

type observedPublisher struct {
	Publisher
	rec PublishRecorder
}

// Observed wraps p so every publish attempt is reported to rec.
func Observed(p Publisher, rec PublishRecorder) Publisher {
	return observedPublisher{Publisher: p, rec: rec}
}

func (o observedPublisher) PublishPriceSet(ctx context.Context, reason Reason, set *models.PriceQuoteSet) error {
	err := o.Publisher.PublishPriceSet(ctx, reason, set)
	o.rec.Published(err)
	return err
}
