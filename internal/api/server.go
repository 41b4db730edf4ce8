package api

import "github.com/RoyceAzure/lab/storefront/internal/api/handler"

type Server struct {
	OrderHandler   *handler.OrderHandler
	ProductHandler *handler.ProductHandler
	UserHandler    *handler.UserHandler
	HealthHandler  *handler.HealthHandler
}

func NewServer(
	orderHandler *handler.OrderHandler,
	productHandler *handler.ProductHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	return &Server{
		OrderHandler:   orderHandler,
		ProductHandler: productHandler,
		UserHandler:    userHandler,
		HealthHandler:  healthHandler,
	}
}
