package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher hands recompute requests to the credit worker over Kafka.
// Messages are keyed by dealer so one dealer's events stay ordered.
type Publisher struct {
	Writer MessageWriter
	now    func() time.Time
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{Writer: w, now: time.Now}
}

func (p *Publisher) RequestRecompute(ctx context.Context, dealerID, roundID, reason string) error {
	ev := DealerVolumeChanged{
		DealerID: dealerID,
		RoundID:  roundID,
		Reason:   reason,
		TsUnixMs: p.now().UnixMilli(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TopicDealerVolumeChanged, err)
	}
	if err := p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(dealerID), Value: b}); err != nil {
		return fmt.Errorf("publish %s: %w", TopicDealerVolumeChanged, err)
	}
	return nil
}
