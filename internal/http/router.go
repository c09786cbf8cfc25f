package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Mohaabaprint/Teetot-Print/internal/logger"
	"github.com/Mohaabaprint/Teetot-Print/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Store is everything the handlers need from persistence.
type Store interface {
	ProductStore
	DesignStore
	SettingsStore
	OrderAdmin
	OrderReader
	Resetter
	Ping(ctx context.Context) error
}

type Deps struct {
	Store    Store
	Carts    CartService
	Checkout CheckoutService
	Images   ImageLibrary
	Admin    AdminAuthenticator
	Tokens   TokenValidator
	Log      *zap.Logger

	RequestTimeout      time.Duration
	MaxRequestBodySize  int64
	MaxUploadSize       int64
	UploadRatePerMinute int
	UploadBurst         int
	WhatsAppNumber      string
}

func NewRouter(d Deps) http.Handler {
	products := NewProductHandler(d.Store, d.Images, d.Log, d.RequestTimeout, d.MaxUploadSize)
	designs := NewDesignHandler(d.Store, d.Images, d.Log, d.RequestTimeout, d.MaxUploadSize)
	uploads := NewUploadHandler(d.Images, d.Log, d.RequestTimeout, d.MaxUploadSize, d.UploadRatePerMinute, d.UploadBurst)
	carts := NewCartHandler(d.Carts, d.Store, d.Log, d.RequestTimeout)
	checkouts := NewCheckoutHandler(d.Checkout, d.Store, d.WhatsAppNumber, d.Log, d.RequestTimeout)
	settings := NewSettingsHandler(d.Store, d.Log, d.RequestTimeout, d.MaxRequestBodySize)
	admin := NewAdminHandler(d.Admin, d.Store, d.Images, d.Store, d.Log, d.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Storefront
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestSize(d.MaxRequestBodySize))

				r.Get("/products", products.List)
				r.Get("/products/{id}", products.Get)
				r.Get("/designs", designs.List)
				r.Get("/designs/{id}", designs.Get)
				r.Get("/designs/{id}/thumbnail", designs.Thumbnail)
				r.Get("/settings", settings.Get)

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", carts.GetCart)
					r.Delete("/", carts.ClearCart)
					r.Post("/items", carts.AddItem)
					r.Put("/items", carts.UpdateQuantity)
					r.Delete("/items", carts.RemoveItem)
				})

				r.Post("/checkout", checkouts.Checkout)
				r.Get("/orders/{id}", checkouts.GetOrder)
			})

			r.Post("/uploads", uploads.Upload)
			r.Get("/uploads/slots/{slot}", uploads.SlotStatus)
			r.Get("/uploads/{id}", uploads.Get)
			r.Get("/uploads/{id}/preview", uploads.Preview)
		})

		// Back office
		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RequestSize(d.MaxRequestBodySize)).Post("/login", admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(AdminAuthMiddleware(d.Tokens))

				r.Post("/logout", admin.Logout)

				r.Post("/products", products.Create)
				r.Put("/products/{id}", products.Update)
				r.Delete("/products/{id}", products.Delete)

				r.Post("/designs", designs.Create)
				r.Put("/designs/{id}", designs.Update)
				r.Delete("/designs/{id}", designs.Delete)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequestSize(d.MaxRequestBodySize))

					r.Patch("/settings", settings.Update)

					r.Get("/orders", admin.ListOrders)
					r.Get("/orders/{id}", admin.GetOrder)
					r.Put("/orders/{id}/status", admin.UpdateOrderStatus)
					r.Put("/orders/{id}/payment", admin.UpdatePaymentStatus)
					r.Delete("/orders/{id}", admin.DeleteOrder)
					r.Get("/orders/{id}/lines/{index}/preview", admin.LinePreview)
					r.Get("/orders/{id}/lines/{index}/design", admin.LineDesign)

					r.Post("/reset", admin.Reset)
				})
			})
		})
	})

	return r
}
