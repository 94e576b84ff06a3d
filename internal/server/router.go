package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"atelier/internal/api"
	customerctrl "atelier/internal/customer/controller"
	orderctrl "atelier/internal/order/controller"
	"atelier/internal/realtime"
)

const requestTimeout = 15 * time.Second

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	APIEndpoint string `json:"apiEndpoint"`
	Message     string `json:"message"`
}

// NewRouter serves the API under /api/v1 and, with deprecation headers, under
// the old unversioned paths.
func NewRouter(
	customers *customerctrl.CustomerController,
	orders *orderctrl.OrderController,
	events *realtime.SSEHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		api.WriteError(w, api.NewTraceID(), http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("Can't find %s on this server!", req.URL.Path), logger)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		api.WriteJSON(w, http.StatusOK, healthResponse{
			Status:      "OK",
			Version:     apiVersion,
			APIEndpoint: "/api/" + apiVersion,
			Message:     "Atelier backend is running",
		}, logger)
	})

	r.Route("/api/"+apiVersion, func(r chi.Router) {
		mountRoutes(r, customers, orders, events)
	})

	r.Group(func(r chi.Router) {
		r.Use(deprecated(logger))
		mountRoutes(r, customers, orders, events)
	})

	return r
}

func mountRoutes(r chi.Router, customers *customerctrl.CustomerController, orders *orderctrl.OrderController, events *realtime.SSEHandler) {
	timeout := middleware.Timeout(requestTimeout)

	r.Route("/customers", func(r chi.Router) {
		// Event streams stay open, so only the JSON routes get a deadline.
		r.Get("/{id}/events", events.StreamCustomer)

		r.Group(func(r chi.Router) {
			r.Use(timeout)
			r.Get("/", customers.ListCustomers)
			r.Post("/", customers.CreateCustomer)
			r.Get("/{id}", customers.GetCustomer)
			r.Put("/{id}", customers.UpdateCustomer)
			r.Delete("/{id}", customers.DeleteCustomer)
			r.Get("/{id}/orders", customers.ListOrders)
			r.Post("/{id}/balance/recompute", customers.RecomputeBalance)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(timeout)
		r.Post("/", orders.CreateOrder)
		r.Post("/track", orders.TrackOrders)
		r.Get("/customer/{customerId}", orders.ListCustomerOrders)
		r.Get("/{id}", orders.GetOrder)
		r.Put("/{id}", orders.UpdateOrder)
	})
}
