package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-order-core.git/internal/kafka"
	"github.com/ariefcatur/go-order-core.git/internal/orders"
	"github.com/ariefcatur/go-order-core.git/internal/redisx"
	"github.com/ariefcatur/go-order-core.git/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// actorHeader carries the authenticated user id. Token verification happens
// upstream; this core only consumes the identity.
const actorHeader = "X-User-Id"

type OrdersHandler struct {
	Service *orders.Service
	Machine *orders.StateMachine
	Stats   *stats.Aggregator
	Redis   *redis.Client

	// one producer per lifecycle topic; any may be nil (publishing off)
	Created       *kafkax.Producer
	StatusChanged *kafkax.Producer
	Cancelled     *kafkax.Producer

	ServiceName string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/stats", h.orderStats)
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.cancelOrder)
	r.Get("/products", h.listProducts)
	r.Put("/products/{id}/stock", h.setStock)
}

func actor(r *http.Request) string { return r.Header.Get(actorHeader) }

type createOrderReq struct {
	ShippingAddress string             `json:"shipping_address"`
	Items           []orders.ItemInput `json:"items"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Service.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:          actor(r),
		ShippingAddress: req.ShippingAddress,
		Items:           req.Items,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheOrder(ctx, o)

	items := make([]orders.ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemPrice{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	h.publish(h.Created, r, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      items,
		TotalCents: o.TotalCents,
	})

	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache fast-path; ownership is still checked against the cached doc
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrder, orderID)
		if raw, err := h.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var o orders.Order
			if json.Unmarshal([]byte(raw), &o) == nil {
				if err := h.Service.AuthorizeView(ctx, o, actor(r)); err != nil {
					writeErr(w, err)
					return
				}
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
	}

	o, err := h.Service.GetOrder(ctx, orderID, actor(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.ListOrders(ctx, actor(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "status is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Machine.Transition(ctx, orderID, orders.Status(req.Status), actor(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.dropOrderCache(ctx, orderID)

	if res.Order.Status == orders.StatusCancelled {
		h.publishCancelled(r, res)
	} else {
		h.publish(h.StatusChanged, r, orders.EventOrderStatusChanged, orderID, orders.OrderStatusChangedPayload{
			OrderID: orderID,
			From:    res.From,
			To:      res.Order.Status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(res.Order.Status)})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Machine.Cancel(ctx, orderID, actor(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.dropOrderCache(ctx, orderID)
	h.publishCancelled(r, res)

	writeJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

func (h *OrdersHandler) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sum, err := h.Stats.Summary(ctx, actor(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Service.ListProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

type setStockReq struct {
	Quantity *int `json:"quantity"`
}

func (h *OrdersHandler) setStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	var req setStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "quantity is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Service.SetStock(ctx, productID, *req.Quantity, actor(r)); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": *req.Quantity})
}

// ---- cache & events ----

func (h *OrdersHandler) cacheOrder(ctx context.Context, o orders.Order) {
	if h.Redis == nil {
		return
	}
	if b, err := json.Marshal(o); err == nil {
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrder, o.ID), b, redisx.TTLOrderCache).Err()
	}
}

func (h *OrdersHandler) dropOrderCache(ctx context.Context, orderID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrder, orderID)).Err()
}

func (h *OrdersHandler) publishCancelled(r *http.Request, res orders.TransitionResult) {
	restocked := make([]orders.ItemQty, 0, len(res.Order.Items))
	if res.From.HoldsStock() {
		for _, it := range res.Order.Items {
			restocked = append(restocked, orders.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
	}
	h.publish(h.Cancelled, r, orders.EventOrderCancelled, res.Order.ID, orders.OrderCancelledPayload{
		OrderID:   res.Order.ID,
		From:      res.From,
		Restocked: restocked,
	})
}

func (h *OrdersHandler) publish(p *kafkax.Producer, r *http.Request, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
