package router

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api"
	m "github.com/RoyceAzure/lab/storefront/internal/api/middleware"
	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/pkg/ratelimit"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type Options struct {
	AllowedOrigins   []string
	OrderRateLimiter ratelimit.Limiter
}

func SetupRouter(server *api.Server, identity service.IIdentityService, opts Options, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// 全局中間件
	r.Use(middleware.RealIP)
	r.Use(m.RequestIdMiddleware)
	r.Use(m.LoggerMiddleware(logger))
	r.Use(m.RecoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", constants.RequestIDHeader},
		ExposedHeaders:   []string{constants.RequestIDHeader, "X-Total-Count", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	// 結尾斜線可有可無
	r.Use(middleware.StripSlashes)
	r.Use(m.AuthPayloadMiddleware(identity))

	orderLimiter := opts.OrderRateLimiter
	if orderLimiter == nil {
		orderLimiter = ratelimit.Unlimited{}
	}

	r.Get("/health", server.HealthHandler.Health)

	r.Route("/orders", func(r chi.Router) {
		r.With(m.NewRateLimitMiddleware(orderLimiter), m.OptionalAuthMiddleware).
			Post("/create-with-items", server.OrderHandler.CreateOrderWithItems)

		r.Group(func(r chi.Router) {
			r.Use(m.AuthMiddleware)
			r.Get("/", server.OrderHandler.ListOrders)
			r.Get("/{id}", server.OrderHandler.GetOrder)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(m.OptionalAuthMiddleware)
			r.Get("/", server.ProductHandler.ListProducts)
			r.Get("/{id}", server.ProductHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(m.AuthMiddleware, m.AdminMiddleware)
			r.Post("/", server.ProductHandler.CreateProduct)
			r.Put("/{id}", server.ProductHandler.UpdateProduct)
			r.Patch("/{id}", server.ProductHandler.UpdateProduct)
			r.Delete("/{id}", server.ProductHandler.DeleteProduct)
		})
	})

	r.With(m.AuthMiddleware).Get("/users/me", server.UserHandler.Me)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.ErrorJSON(w, http.StatusNotFound, map[string]any{"error": apperr.ErrStrMap[apperr.NotFoundCode]})
	})

	return r
}
