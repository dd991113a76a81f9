package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-order-core.git/internal/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service turns a validated item list into a persisted order with correctly
// reserved stock, or fails with no net effect.
type Service struct {
	Catalog ProductCatalog
	Ledger  InventoryLedger
	Store   OrderStore
	Users   UserDirectory
	Clock   clock.Clock
	Log     *zap.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

type CreateOrderInput struct {
	UserID          string
	ShippingAddress string
	Items           []ItemInput
}

// CreateOrder reserves stock item by item and persists the order as one
// unit. Any failure releases every reservation already taken, so either the
// order exists with all its stock held, or nothing changed.
//
// Items are processed in ascending product id order. Reservations for
// overlapping product sets therefore contend in a single global order and
// two concurrent creates cannot deadlock.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (Order, error) {
	if in.UserID == "" {
		return Order{}, &ValidationError{Reason: "user id required"}
	}
	if len(in.Items) == 0 {
		return Order{}, &ValidationError{Reason: "order items required"}
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return Order{}, &ValidationError{Reason: "product id required"}
		}
		if it.Qty <= 0 {
			return Order{}, &ValidationError{Reason: fmt.Sprintf("qty must be > 0 for product %s", it.ProductID)}
		}
	}

	items := make([]ItemInput, len(in.Items))
	copy(items, in.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var reserved []Reservation
	rollback := func() {
		// reverse order of acquisition
		for i := len(reserved) - 1; i >= 0; i-- {
			r := reserved[i]
			if err := s.Ledger.Release(ctx, r.ProductID, r.Qty); err != nil {
				s.Log.Warn("rollback release failed",
					zap.String("product_id", r.ProductID), zap.Int("qty", r.Qty), zap.Error(err))
			}
		}
	}

	now := s.now()
	orderID := uuid.NewString()
	orderItems := make([]OrderItem, 0, len(items))
	total := 0

	for _, it := range items {
		p, err := s.Catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			rollback()
			return Order{}, err
		}
		if err := s.Ledger.Reserve(ctx, it.ProductID, it.Qty); err != nil {
			rollback()
			return Order{}, err
		}
		reserved = append(reserved, Reservation{ProductID: it.ProductID, Qty: it.Qty})

		// snapshot the unit price now; later catalog edits must not move it
		orderItems = append(orderItems, OrderItem{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			PriceCents: p.PriceCents,
		})
		total += p.PriceCents * it.Qty
	}

	o := Order{
		ID:              orderID,
		UserID:          in.UserID,
		Status:          StatusPending,
		TotalCents:      total,
		ShippingAddress: in.ShippingAddress,
		Items:           orderItems,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Store.PersistOrder(ctx, o); err != nil {
		rollback()
		return Order{}, fmt.Errorf("persist order: %w", err)
	}
	return o, nil
}

// GetOrder loads an order for its owner or an admin.
func (s *Service) GetOrder(ctx context.Context, orderID, actorID string) (Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if err := s.AuthorizeView(ctx, o, actorID); err != nil {
		return Order{}, err
	}
	return o, nil
}

// AuthorizeView allows the order's owner and admins.
func (s *Service) AuthorizeView(ctx context.Context, o Order, actorID string) error {
	if o.UserID == actorID {
		return nil
	}
	admin, err := s.Users.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return fmt.Errorf("user %s: %w", actorID, ErrUnauthorized)
	}
	return nil
}

// ListOrders returns every order for admins and only the actor's own orders
// otherwise.
func (s *Service) ListOrders(ctx context.Context, actorID string) ([]Order, error) {
	admin, err := s.Users.IsAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if admin {
		return s.Store.ListOrders(ctx)
	}
	return s.Store.ListUserOrders(ctx, actorID)
}

// ListProducts exposes the catalog listing.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.Catalog.ListProducts(ctx)
}

// SetStock writes an absolute stock quantity. Admin only; routed through the
// ledger so the per-product lock discipline holds.
func (s *Service) SetStock(ctx context.Context, productID string, qty int, actorID string) error {
	admin, err := s.Users.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return fmt.Errorf("user %s: %w", actorID, ErrUnauthorized)
	}
	return s.Ledger.SetStock(ctx, productID, qty)
}
