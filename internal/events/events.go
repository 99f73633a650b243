package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const TopicDealerVolumeChanged = "dealer_volume_changed"

// DealerVolumeChanged is published whenever a dealer's unannounced-round volume
// moved and its pending deduction needs recomputing.
type DealerVolumeChanged struct {
	DealerID string `json:"dealer_id"`
	RoundID  string `json:"round_id,omitempty"`
	Reason   string `json:"reason"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}
