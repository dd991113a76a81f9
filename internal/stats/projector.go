package stats

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-order-core.git/internal/kafka"
	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"github.com/ariefcatur/go-order-core.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Projector folds order lifecycle events into a Redis counter hash so a
// dashboard can poll counts without touching Postgres. The hash is an
// informational projection; Summary() on the aggregator stays the source of
// truth.
type Projector struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// Handle is mounted as a kafka consumer handler. Returning nil commits the
// offset.
func (p *Projector) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		p.Log.Warn("dropping undecodable event", zap.String("topic", m.Topic), zap.Error(err))
		return nil // poison message; do not redeliver forever
	}

	// dedup by event id across redeliveries
	dkey := fmt.Sprintf(redisx.KeyDedup, p.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, p.Redis, dkey); seen {
		return nil
	}

	hkey := redisx.KeyStatsCounters
	switch env.EventType {
	case orders.EventOrderCreated:
		if err := p.Redis.HIncrBy(ctx, hkey, "total", 1).Err(); err != nil {
			return err
		}
		if err := p.Redis.HIncrBy(ctx, hkey, string(orders.StatusPending), 1).Err(); err != nil {
			return err
		}
	case orders.EventOrderStatusChanged:
		pl, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			p.Log.Warn("dropping undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
			return nil
		}
		if err := p.moveCounter(ctx, pl.From, pl.To); err != nil {
			return err
		}
	case orders.EventOrderCancelled:
		pl, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		if err != nil {
			p.Log.Warn("dropping undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
			return nil
		}
		if err := p.moveCounter(ctx, pl.From, orders.StatusCancelled); err != nil {
			return err
		}
	default:
		return nil
	}

	// the snapshot cache is stale now
	_ = p.Redis.Del(ctx, redisx.KeyStatsSummary).Err()

	return p.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}

func (p *Projector) moveCounter(ctx context.Context, from, to orders.Status) error {
	if err := p.Redis.HIncrBy(ctx, redisx.KeyStatsCounters, string(from), -1).Err(); err != nil {
		return err
	}
	return p.Redis.HIncrBy(ctx, redisx.KeyStatsCounters, string(to), 1).Err()
}
