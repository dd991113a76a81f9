package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"github.com/ariefcatur/go-order-core.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Store is the read-only projection surface the aggregator needs. The pgx
// order repo satisfies it with plain SELECTs; none of them take locks.
type Store interface {
	CountOrders(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, s orders.Status) (int, error)
	RevenueCents(ctx context.Context, statuses []orders.Status) (int64, error)
}

type Summary struct {
	TotalOrders       int   `json:"total_orders"`
	PendingOrders     int   `json:"pending_orders"`
	ConfirmedOrders   int   `json:"confirmed_orders"`
	ShippedOrders     int   `json:"shipped_orders"`
	DeliveredOrders   int   `json:"delivered_orders"`
	CancelledOrders   int   `json:"cancelled_orders"`
	TotalRevenueCents int64 `json:"total_revenue_cents"`
}

// Aggregator is the admin-only stats projection. Reads may be slightly
// stale: a cached snapshot is served for up to TTLStatsSummary.
type Aggregator struct {
	Store Store
	Users orders.UserDirectory
	Cache *redis.Client // optional
}

func (a *Aggregator) Summary(ctx context.Context, actorID string) (Summary, error) {
	admin, err := a.Users.IsAdmin(ctx, actorID)
	if err != nil {
		return Summary{}, err
	}
	if !admin {
		return Summary{}, fmt.Errorf("user %s: %w", actorID, orders.ErrUnauthorized)
	}

	if a.Cache != nil {
		if raw, err := a.Cache.Get(ctx, redisx.KeyStatsSummary).Result(); err == nil && raw != "" {
			var cached Summary
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	var sum Summary
	counts := map[orders.Status]*int{
		orders.StatusPending:   &sum.PendingOrders,
		orders.StatusConfirmed: &sum.ConfirmedOrders,
		orders.StatusShipped:   &sum.ShippedOrders,
		orders.StatusDelivered: &sum.DeliveredOrders,
		orders.StatusCancelled: &sum.CancelledOrders,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.Store.CountOrders(gctx)
		sum.TotalOrders = n
		return err
	})
	for status, dst := range counts {
		status, dst := status, dst
		g.Go(func() error {
			n, err := a.Store.CountByStatus(gctx, status)
			*dst = n
			return err
		})
	}
	g.Go(func() error {
		cents, err := a.Store.RevenueCents(gctx, orders.RevenueStatuses)
		sum.TotalRevenueCents = cents
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("aggregate stats: %w", err)
	}

	if a.Cache != nil {
		if b, err := json.Marshal(sum); err == nil {
			_ = a.Cache.Set(ctx, redisx.KeyStatsSummary, b, redisx.TTLStatsSummary).Err()
		}
	}
	return sum, nil
}
