package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

// chanReader serves queued messages and blocks once drained.
type chanReader struct {
	ch chan kafka.Message
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

type recordingRecomputer struct {
	mu      sync.Mutex
	dealers []string
	fail    map[string]bool
}

func (r *recordingRecomputer) RecomputePendingDeduction(_ context.Context, dealerID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dealers = append(r.dealers, dealerID)
	if r.fail[dealerID] {
		return decimal.Zero, errors.New("db down")
	}
	return decimal.NewFromInt(50), nil
}

func TestPublisherKeysByDealer(t *testing.T) {
	w := &captureWriter{}
	p := NewPublisher(w)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	require.NoError(t, p.RequestRecompute(context.Background(), "dealer-b", "rb", "transfer_in"))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "dealer-b", string(w.msgs[0].Key))

	var ev DealerVolumeChanged
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, DealerVolumeChanged{DealerID: "dealer-b", RoundID: "rb", Reason: "transfer_in", TsUnixMs: 1700000000000}, ev)

	w.err = errors.New("broker unreachable")
	assert.Error(t, p.RequestRecompute(context.Background(), "dealer-b", "rb", "transfer_in"))
}

func TestConsumerRecomputesEachEvent(t *testing.T) {
	reader := &chanReader{ch: make(chan kafka.Message, 4)}
	encode := func(ev DealerVolumeChanged) kafka.Message {
		b, _ := json.Marshal(ev)
		return kafka.Message{Value: b}
	}
	reader.ch <- encode(DealerVolumeChanged{DealerID: "dealer-a", Reason: "transfer_in"})
	reader.ch <- kafka.Message{Value: []byte("{not json")}
	reader.ch <- encode(DealerVolumeChanged{DealerID: "dealer-x", Reason: "transfer_returned"})
	reader.ch <- encode(DealerVolumeChanged{DealerID: "dealer-b", Reason: "transfer_in"})

	rec := &recordingRecomputer{fail: map[string]bool{"dealer-x": true}}
	var (
		mu       sync.Mutex
		stages   []string
		finished int
	)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		Reader:     reader,
		Recomputer: rec,
		OnProcessed: func() {
			mu.Lock()
			defer mu.Unlock()
			finished++
			if finished == 2 {
				cancel()
			}
		},
		OnError: func(stage string) {
			mu.Lock()
			defer mu.Unlock()
			stages = append(stages, stage)
		},
	}

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"dealer-a", "dealer-x", "dealer-b"}, rec.dealers)
	assert.Equal(t, []string{"decode", "recompute"}, stages)
}
