package main

import (
	"encoding/json"
	"net/http"

	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/handler"
	"github.com/courtside/reservation-guard/internal/metrics"
)

func setupRouter(h *handler.Handler, collector *metrics.Collector, injector *failureInjector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /stats", h.AllStats)
	mux.HandleFunc("GET /stats/{name}", h.BreakerStats)
	mux.HandleFunc("GET /metrics", collector.Handler())

	mux.HandleFunc("POST /availability", h.CheckAvailability)
	mux.HandleFunc("POST /reservations", h.CreateReservation)
	mux.HandleFunc("POST /payments", h.ProcessPayment)
	mux.HandleFunc("POST /prices", h.CalculatePrice)
	mux.HandleFunc("POST /cancellations", h.CancelReservation)
	mux.HandleFunc("POST /notifications", h.SendNotification)

	// Demo-only: force classified failures on an operation so breakers
	// can be exercised without a degraded real dependency.
	mux.HandleFunc("POST /simulate/failures", simulateFailures(injector))

	return mux
}

func simulateFailures(injector *failureInjector) http.HandlerFunc {
	type request struct {
		Operation string `json:"operation"`
		Kind      string `json:"kind"` // "none" clears the injection
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		injector.set(req.Operation, fault.ParseKind(req.Kind))
		w.WriteHeader(http.StatusNoContent)
	}
}
