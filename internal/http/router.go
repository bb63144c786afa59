package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assembles the storefront HTTP surface.
func NewRouter(carts *CartHandler, checkoutH *CheckoutHandler, orders *OrdersHandler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{item_id}", carts.UpdateQuantity)
			r.Delete("/items/{item_id}", carts.RemoveItem)
			r.Post("/discounts", carts.ApplyDiscount)
			r.Delete("/discounts/{code}", carts.RemoveDiscount)
			r.Post("/merge", carts.MergeCart)
		})

		r.Post("/checkout", checkoutH.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{order_ref}", orders.GetOrder)
			r.Post("/{order_ref}/cancel", orders.CancelOrder)
			r.Post("/{order_ref}/refund", orders.RequestRefund)
			r.Put("/{order_ref}/status", orders.UpdateStatus)
			r.Put("/{order_ref}/payment", orders.UpdatePayment)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
