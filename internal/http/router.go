package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Services struct {
	Users     UserService
	Products  ProductService
	Carts     CartService
	Checkouts CheckoutService
	Orders    OrderService
}

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metrics        *Metrics
	Gatherer       prometheus.Gatherer
	Logger         *zap.Logger
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	userHandler := NewUserHandler(svc.Users, cfg.RequestTimeout, cfg.Logger)
	productHandler := NewProductHandler(svc.Products, cfg.RequestTimeout, cfg.Logger)
	cartHandler := NewCartHandler(svc.Carts, cfg.RequestTimeout, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(svc.Checkouts, cfg.RequestTimeout, cfg.Logger)
	ordersHandler := NewOrdersHandler(svc.Orders, cfg.RequestTimeout, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(AccessLogMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(BodyLimitMiddleware(cfg.MaxBodyBytes))
	r.Use(IdentityMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the shop API!"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", MetricsHandler(cfg.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Register)
			r.Get("/{id}", userHandler.Get)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/merge", cartHandler.MergeGuestCart)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", checkoutHandler.Create)
			r.Get("/{id}", checkoutHandler.Get)
			r.Put("/{id}/pay", checkoutHandler.ConfirmPayment)
			r.Post("/{id}/finalize", checkoutHandler.Finalize)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{id}", ordersHandler.GetOrder)
			r.Group(func(r chi.Router) {
				r.Use(userHandler.RequireAdmin)
				r.Put("/{id}/ship", ordersHandler.MarkShipped)
				r.Put("/{id}/deliver", ordersHandler.MarkDelivered)
				r.Put("/{id}/cancel", ordersHandler.Cancel)
			})
		})
	})

	return r
}
