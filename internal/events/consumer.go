package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/shopspring/decimal"
)

// PendingRecomputer rebuilds a dealer's pending deduction.
type PendingRecomputer interface {
	RecomputePendingDeduction(ctx context.Context, dealerID string) (decimal.Decimal, error)
}

// Consumer drains DealerVolumeChanged events and recomputes each dealer.
// OnError is called with the failing stage (read, decode, recompute).
type Consumer struct {
	Reader     MessageReader
	Recomputer PendingRecomputer
	Backoff    time.Duration

	OnProcessed func()
	OnError     func(stage string)
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("kafka read failed", "error", err)
			c.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		var ev DealerVolumeChanged
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.DealerID == "" {
			logger.Warn("invalid volume event", "offset", m.Offset, "error", err)
			c.fail("decode")
			continue
		}

		pending, err := c.Recomputer.RecomputePendingDeduction(ctx, ev.DealerID)
		if err != nil {
			// 下一次成交量变化会再次触发全量重算
			logger.LogError(ctx, err, "recompute from event failed",
				"dealer_id", ev.DealerID,
				"round_id", ev.RoundID,
				"reason", ev.Reason,
			)
			c.fail("recompute")
			continue
		}
		logger.Debug("volume event processed",
			"dealer_id", ev.DealerID,
			"reason", ev.Reason,
			"pending", pending.String(),
		)
		if c.OnProcessed != nil {
			c.OnProcessed()
		}
	}
}

func (c *Consumer) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
