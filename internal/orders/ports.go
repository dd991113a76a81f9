package orders

import "context"

// ProductCatalog is the read-only product lookup. Missing products surface
// as ErrNotFound (wrapped with the offending id).
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// InventoryLedger is the sole authority for stock mutation. Reserve is an
// indivisible check-and-decrement per product; Release is the compensating
// increment used for rollback and cancellation.
type InventoryLedger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	SetStock(ctx context.Context, productID string, qty int) error
}

// OrderStore is durable storage for orders and their items. PersistOrder
// writes the order and all items as a single unit. UpdateStatus applies the
// change only when the stored status still equals from, returning
// ErrStatusConflict otherwise.
type OrderStore interface {
	PersistOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
}

// UserDirectory answers the single capability question this core needs.
type UserDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
