package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-core.git/internal/clock"
	"github.com/ariefcatur/go-order-core.git/internal/inventory"
	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	catalog *fakeCatalog
	stock   *stockStore
	store   *fakeOrderStore
	users   *fakeUsers
	svc     *orders.Service
}

func newServiceFixture(products []orders.Product, stock map[string]int) *serviceFixture {
	f := &serviceFixture{
		catalog: newFakeCatalog(products...),
		stock:   newStockStore(stock),
		store:   newFakeOrderStore(),
		users:   newFakeUsers(),
	}
	f.svc = &orders.Service{
		Catalog: f.catalog,
		Ledger:  inventory.NewLedger(f.stock, zap.NewNop()),
		Store:   f.store,
		Users:   f.users,
		Clock:   clock.NewFixed(testNow),
		Log:     zap.NewNop(),
	}
	return f
}

func twoProducts() []orders.Product {
	return []orders.Product{
		{ID: "prod-a", SKU: "A-1", Name: "widget", PriceCents: 1250},
		{ID: "prod-b", SKU: "B-1", Name: "gadget", PriceCents: 900},
	}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("prices and persists", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5, "prod-b": 3})

		o, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID:          "user-1",
			ShippingAddress: "jl. sudirman 1",
			Items: []orders.ItemInput{
				{ProductID: "prod-b", Qty: 2},
				{ProductID: "prod-a", Qty: 1},
			},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if o.Status != orders.StatusPending {
			t.Fatalf("expected pending, got %s", o.Status)
		}
		if want := 1*1250 + 2*900; o.TotalCents != want {
			t.Fatalf("expected total %d, got %d", want, o.TotalCents)
		}
		if len(o.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(o.Items))
		}
		// items are ordered by product id
		if o.Items[0].ProductID != "prod-a" || o.Items[0].PriceCents != 1250 {
			t.Fatalf("unexpected first item: %+v", o.Items[0])
		}
		if o.CreatedAt != testNow {
			t.Fatalf("expected created_at %v, got %v", testNow, o.CreatedAt)
		}
		if f.stock.get("prod-a") != 4 || f.stock.get("prod-b") != 1 {
			t.Fatalf("stock not reserved: a=%d b=%d", f.stock.get("prod-a"), f.stock.get("prod-b"))
		}
		if _, err := f.store.GetOrder(ctx, o.ID); err != nil {
			t.Fatalf("order not persisted: %v", err)
		}
	})

	t.Run("total equals sum of snapshots", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5, "prod-b": 3})
		o, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: "user-1",
			Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 3}, {ProductID: "prod-b", Qty: 1}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		sum := 0
		for _, it := range o.Items {
			sum += it.Qty * it.PriceCents
		}
		if o.TotalCents != sum {
			t.Fatalf("total %d != item sum %d", o.TotalCents, sum)
		}
	})

	t.Run("snapshot survives later price change", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5, "prod-b": 3})
		o, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: "user-1",
			Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 2}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		f.catalog.setPrice("prod-a", 99999)

		stored, err := f.store.GetOrder(ctx, o.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Items[0].PriceCents != 1250 {
			t.Fatalf("snapshot moved with catalog price: %d", stored.Items[0].PriceCents)
		}
		if stored.TotalCents != 2500 {
			t.Fatalf("total moved with catalog price: %d", stored.TotalCents)
		}
	})

	t.Run("empty items rejected", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5})
		_, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{UserID: "user-1"})
		if !errors.Is(err, orders.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("non-positive qty rejected", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5})
		_, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: "user-1",
			Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 0}},
		})
		if !errors.Is(err, orders.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown product fails whole order", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5, "prod-b": 3})
		_, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: "user-1",
			Items: []orders.ItemInput{
				{ProductID: "prod-a", Qty: 2},
				{ProductID: "prod-zzz", Qty: 1},
			},
		})
		if !errors.Is(err, orders.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if f.stock.get("prod-a") != 5 {
			t.Fatalf("expected prod-a stock restored to 5, got %d", f.stock.get("prod-a"))
		}
		if all, _ := f.store.ListOrders(ctx); len(all) != 0 {
			t.Fatalf("expected no persisted orders, got %d", len(all))
		}
	})

	t.Run("insufficient stock rolls back earlier reservations", func(t *testing.T) {
		f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5, "prod-b": 3})
		_, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: "user-1",
			Items: []orders.ItemInput{
				{ProductID: "prod-a", Qty: 2},
				{ProductID: "prod-b", Qty: 100},
			},
		})
		var ise *orders.InsufficientStockError
		if !errors.As(err, &ise) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if ise.ProductID != "prod-b" {
			t.Fatalf("expected prod-b in error, got %s", ise.ProductID)
		}
		if f.stock.get("prod-a") != 5 || f.stock.get("prod-b") != 3 {
			t.Fatalf("expected no net stock change: a=%d b=%d", f.stock.get("prod-a"), f.stock.get("prod-b"))
		}
		if all, _ := f.store.ListOrders(ctx); len(all) != 0 {
			t.Fatalf("expected no persisted orders, got %d", len(all))
		}
	})
}

func TestCreateOrderConcurrentContention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		stockErrs int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
				UserID: "user-1",
				Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 3}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, orders.ErrInsufficientStock):
				stockErrs++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || stockErrs != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d stock errors", succeeded, stockErrs)
	}
	if got := f.stock.get("prod-a"); got != 2 {
		t.Fatalf("expected final stock 2, got %d", got)
	}
}

func TestGetOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5})
	created, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
		UserID: "user-1",
		Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("owner can read", func(t *testing.T) {
		o, err := f.svc.GetOrder(ctx, created.ID, "user-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if o.ID != created.ID {
			t.Fatalf("wrong order: %s", o.ID)
		}
	})

	t.Run("admin can read", func(t *testing.T) {
		if _, err := f.svc.GetOrder(ctx, created.ID, "admin-1"); err != nil {
			t.Fatalf("get as admin: %v", err)
		}
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		_, err := f.svc.GetOrder(ctx, created.ID, "user-2")
		if !errors.Is(err, orders.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.svc.GetOrder(ctx, "nope", "admin-1")
		if !errors.Is(err, orders.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 10})
	for _, user := range []string{"user-1", "user-1", "user-2"} {
		if _, err := f.svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: user,
			Items:  []orders.ItemInput{{ProductID: "prod-a", Qty: 1}},
		}); err != nil {
			t.Fatalf("create for %s: %v", user, err)
		}
	}

	t.Run("admin sees all", func(t *testing.T) {
		all, err := f.svc.ListOrders(ctx, "admin-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 orders, got %d", len(all))
		}
	})

	t.Run("user sees own only", func(t *testing.T) {
		mine, err := f.svc.ListOrders(ctx, "user-1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(mine) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(mine))
		}
		for _, o := range mine {
			if o.UserID != "user-1" {
				t.Fatalf("leaked order of %s", o.UserID)
			}
		}
	})
}

func TestSetStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(twoProducts(), map[string]int{"prod-a": 5})

	t.Run("non-admin rejected", func(t *testing.T) {
		err := f.svc.SetStock(ctx, "prod-a", 50, "user-1")
		if !errors.Is(err, orders.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if f.stock.get("prod-a") != 5 {
			t.Fatalf("stock changed despite rejection")
		}
	})

	t.Run("admin sets absolute quantity", func(t *testing.T) {
		if err := f.svc.SetStock(ctx, "prod-a", 50, "admin-1"); err != nil {
			t.Fatalf("set stock: %v", err)
		}
		if f.stock.get("prod-a") != 50 {
			t.Fatalf("expected 50, got %d", f.stock.get("prod-a"))
		}
	})
}
