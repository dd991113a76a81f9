package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-order-core.git/internal/locks"
	"go.uber.org/zap"
)

const defaultOrderLockTimeout = 2 * time.Second

// StateMachine validates and applies order status transitions. All work on
// one order runs under that order's exclusive lock; locks on different
// orders are independent, and an order lock is only ever taken after any
// product locks of the same call have been released.
type StateMachine struct {
	Store  OrderStore
	Ledger InventoryLedger
	Users  UserDirectory
	Log    *zap.Logger

	// LockTimeout bounds lock acquisition; zero means the default.
	LockTimeout time.Duration

	olocks *locks.Keyed
}

func NewStateMachine(store OrderStore, ledger InventoryLedger, users UserDirectory, log *zap.Logger) *StateMachine {
	return &StateMachine{
		Store:  store,
		Ledger: ledger,
		Users:  users,
		Log:    log,
		olocks: locks.NewKeyed(),
	}
}

// TransitionResult reports an applied transition. From is the status the
// order held before the mutation.
type TransitionResult struct {
	Order Order
	From  Status
}

func (m *StateMachine) lockOrder(ctx context.Context, orderID string) (func(), error) {
	timeout := m.LockTimeout
	if timeout <= 0 {
		timeout = defaultOrderLockTimeout
	}
	release, err := m.olocks.Acquire(ctx, orderID, timeout)
	if err != nil {
		if errors.Is(err, locks.ErrAcquireTimeout) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrBusy)
		}
		return nil, err
	}
	return release, nil
}

// Transition moves the order to target if target is a direct successor of
// its current state. Forward transitions are admin-only. A cancelled target
// goes through the cancellation path so reserved stock is restored.
func (m *StateMachine) Transition(ctx context.Context, orderID string, target Status, actorID string) (TransitionResult, error) {
	if _, ok := ParseStatus(string(target)); !ok {
		return TransitionResult{}, &ValidationError{Reason: fmt.Sprintf("unknown status %q", target)}
	}

	release, err := m.lockOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}
	defer release()

	admin, err := m.Users.IsAdmin(ctx, actorID)
	if err != nil {
		return TransitionResult{}, err
	}
	if !admin {
		return TransitionResult{}, fmt.Errorf("user %s: %w", actorID, ErrUnauthorized)
	}

	if target == StatusCancelled {
		return m.cancelLocked(ctx, orderID)
	}

	o, err := m.Store.GetOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}
	if !CanTransition(o.Status, target) {
		return TransitionResult{}, &InvalidTransitionError{OrderID: orderID, From: o.Status, To: target}
	}
	if err := m.Store.UpdateStatus(ctx, orderID, o.Status, target); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return TransitionResult{}, fmt.Errorf("order %s: %w", orderID, ErrBusy)
		}
		return TransitionResult{}, fmt.Errorf("update status: %w", err)
	}

	res := TransitionResult{Order: o, From: o.Status}
	res.Order.Status = target
	return res, nil
}

// Cancel sets the order to cancelled and releases its reserved stock exactly
// once. Allowed for the order's owner or an admin while the order is still
// in a stock-holding state.
func (m *StateMachine) Cancel(ctx context.Context, orderID, actorID string) (TransitionResult, error) {
	release, err := m.lockOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}
	defer release()

	o, err := m.Store.GetOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}
	if o.UserID != actorID {
		admin, err := m.Users.IsAdmin(ctx, actorID)
		if err != nil {
			return TransitionResult{}, err
		}
		if !admin {
			return TransitionResult{}, fmt.Errorf("user %s: %w", actorID, ErrUnauthorized)
		}
	}
	return m.cancelLocked(ctx, orderID)
}

// cancelLocked runs with the order lock held and authorization done.
//
// Restoration is keyed off the status read before the mutation: only the
// stock-holding states may cancel, and the conditional UpdateStatus flips
// the row at most once, so each reserved unit is released exactly once.
func (m *StateMachine) cancelLocked(ctx context.Context, orderID string) (TransitionResult, error) {
	o, err := m.Store.GetOrder(ctx, orderID)
	if err != nil {
		return TransitionResult{}, err
	}
	prev := o.Status
	if !CanTransition(prev, StatusCancelled) {
		return TransitionResult{}, &InvalidTransitionError{OrderID: orderID, From: prev, To: StatusCancelled}
	}

	if err := m.Store.UpdateStatus(ctx, orderID, prev, StatusCancelled); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return TransitionResult{}, fmt.Errorf("order %s: %w", orderID, ErrBusy)
		}
		return TransitionResult{}, fmt.Errorf("update status: %w", err)
	}

	if prev.HoldsStock() {
		for _, it := range o.Items {
			if err := m.Ledger.Release(ctx, it.ProductID, it.Qty); err != nil {
				// the order is already cancelled; surface the leak loudly
				// rather than failing the call
				m.Log.Error("stock release failed during cancellation",
					zap.String("order_id", orderID),
					zap.String("product_id", it.ProductID),
					zap.Int("qty", it.Qty),
					zap.Error(err))
			}
		}
	}

	res := TransitionResult{Order: o, From: prev}
	res.Order.Status = StatusCancelled
	return res, nil
}
