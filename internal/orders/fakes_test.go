package orders_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-order-core.git/internal/orders"
)

// stockStore is an in-memory inventory.Store.
type stockStore struct {
	mu    sync.Mutex
	stock map[string]int
}

func newStockStore(stock map[string]int) *stockStore {
	if stock == nil {
		stock = make(map[string]int)
	}
	return &stockStore{stock: stock}
}

func (s *stockStore) StockQuantity(_ context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.stock[productID]
	if !ok {
		return 0, fmt.Errorf("product %s: %w", productID, orders.ErrNotFound)
	}
	return n, nil
}

func (s *stockStore) SetStockQuantity(_ context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stock[productID]; !ok {
		return fmt.Errorf("product %s: %w", productID, orders.ErrNotFound)
	}
	s.stock[productID] = qty
	return nil
}

func (s *stockStore) get(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[productID]
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]orders.Product
}

func newFakeCatalog(products ...orders.Product) *fakeCatalog {
	m := make(map[string]orders.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (c *fakeCatalog) GetProduct(_ context.Context, productID string) (orders.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return orders.Product{}, fmt.Errorf("product %s: %w", productID, orders.ErrNotFound)
	}
	return p, nil
}

func (c *fakeCatalog) ListProducts(_ context.Context) ([]orders.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]orders.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *fakeCatalog) setPrice(productID string, cents int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[productID]
	p.PriceCents = cents
	c.products[productID] = p
}

type fakeOrderStore struct {
	mu     sync.Mutex
	byID   map[string]orders.Order
	sorted []string // insertion order
}

func newFakeOrderStore(seed ...orders.Order) *fakeOrderStore {
	s := &fakeOrderStore{byID: make(map[string]orders.Order)}
	for _, o := range seed {
		s.byID[o.ID] = o
		s.sorted = append(s.sorted, o.ID)
	}
	return s
}

func (s *fakeOrderStore) PersistOrder(_ context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	s.byID[o.ID] = o
	s.sorted = append(s.sorted, o.ID)
	return nil
}

func (s *fakeOrderStore) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[orderID]
	if !ok {
		return orders.Order{}, fmt.Errorf("order %s: %w", orderID, orders.ErrNotFound)
	}
	return o, nil
}

func (s *fakeOrderStore) ListOrders(_ context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Order, 0, len(s.sorted))
	for _, id := range s.sorted {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *fakeOrderStore) ListUserOrders(_ context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, id := range s.sorted {
		if o := s.byID[id]; o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, orderID string, from, to orders.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, orders.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s is %s, expected %s: %w", orderID, o.Status, from, orders.ErrStatusConflict)
	}
	o.Status = to
	s.byID[orderID] = o
	return nil
}

func (s *fakeOrderStore) status(orderID string) orders.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[orderID].Status
}

type fakeUsers struct {
	admins map[string]bool // present = known user, value = is_admin
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{admins: map[string]bool{
		"admin-1": true,
		"user-1":  false,
		"user-2":  false,
	}}
}

func (u *fakeUsers) IsAdmin(_ context.Context, userID string) (bool, error) {
	admin, ok := u.admins[userID]
	if !ok {
		return false, fmt.Errorf("user %s: %w", userID, orders.ErrNotFound)
	}
	return admin, nil
}
