package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-order-core.git/internal/locks"
	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"go.uber.org/zap"
)

// Store is the backing record for stock quantities. Implementations return
// orders.ErrNotFound (wrapped) for unknown products.
type Store interface {
	StockQuantity(ctx context.Context, productID string) (int, error)
	SetStockQuantity(ctx context.Context, productID string, qty int) error
}

const defaultLockTimeout = 2 * time.Second

// Ledger serializes all stock mutation per product. The read-check-write
// sequence in Reserve runs entirely under the product's lock, so two
// concurrent reservations can never oversell.
type Ledger struct {
	store       Store
	locks       *locks.Keyed
	lockTimeout time.Duration
	log         *zap.Logger
}

type Option func(*Ledger)

func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.lockTimeout = d }
}

func NewLedger(store Store, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		locks:       locks.NewKeyed(),
		lockTimeout: defaultLockTimeout,
		log:         log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) acquire(ctx context.Context, productID string) (func(), error) {
	release, err := l.locks.Acquire(ctx, productID, l.lockTimeout)
	if err != nil {
		if errors.Is(err, locks.ErrAcquireTimeout) {
			return nil, fmt.Errorf("product %s: %w", productID, orders.ErrBusy)
		}
		return nil, err
	}
	return release, nil
}

// Reserve decrements stock by qty if enough is available, otherwise fails
// with InsufficientStock and leaves the count untouched.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return &orders.ValidationError{Reason: fmt.Sprintf("reserve qty must be > 0, got %d", qty)}
	}
	release, err := l.acquire(ctx, productID)
	if err != nil {
		return err
	}
	defer release()

	stock, err := l.store.StockQuantity(ctx, productID)
	if err != nil {
		return err
	}
	if stock < qty {
		return &orders.InsufficientStockError{ProductID: productID, Requested: qty, Available: stock}
	}
	if err := l.store.SetStockQuantity(ctx, productID, stock-qty); err != nil {
		return fmt.Errorf("decrement stock for %s: %w", productID, err)
	}
	return nil
}

// Release returns qty units to the product. A product that no longer exists
// makes the release an inert no-op; the returned stock has nowhere to go.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return &orders.ValidationError{Reason: fmt.Sprintf("release qty must be > 0, got %d", qty)}
	}
	release, err := l.acquire(ctx, productID)
	if err != nil {
		return err
	}
	defer release()

	stock, err := l.store.StockQuantity(ctx, productID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			l.log.Warn("release for missing product, dropping",
				zap.String("product_id", productID), zap.Int("qty", qty))
			return nil
		}
		return err
	}
	if err := l.store.SetStockQuantity(ctx, productID, stock+qty); err != nil {
		return fmt.Errorf("increment stock for %s: %w", productID, err)
	}
	return nil
}

// SetStock writes an absolute quantity, for the admin stock endpoint. It
// takes the same per-product lock so it cannot interleave with a Reserve.
func (l *Ledger) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return &orders.ValidationError{Reason: fmt.Sprintf("stock must be >= 0, got %d", qty)}
	}
	release, err := l.acquire(ctx, productID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := l.store.StockQuantity(ctx, productID); err != nil {
		return err
	}
	return l.store.SetStockQuantity(ctx, productID, qty)
}
