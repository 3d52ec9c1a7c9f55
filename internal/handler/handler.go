package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/courtside/reservation-guard/internal/circuitbreaker"
	"github.com/courtside/reservation-guard/internal/fault"
	"github.com/courtside/reservation-guard/internal/reservation"
)

// Handler exposes the guarded reservation operations and the
// operational dashboard endpoints over HTTP.
type Handler struct {
	logger   *slog.Logger
	registry *reservation.Registry
}

func New(logger *slog.Logger, registry *reservation.Registry) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
	}
}

// Health reports aggregate breaker health. Responds 503 while any
// breaker is open so load balancers can shed traffic.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.registry.HealthStatus()

	code := http.StatusOK
	if !status.OverallHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// AllStats returns every breaker's snapshot keyed by name.
func (h *Handler) AllStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]circuitbreaker.Stats)
	for _, name := range h.registry.Names() {
		s, err := h.registry.Stats(name)
		if err != nil {
			continue
		}
		stats[name] = s
	}
	writeJSON(w, http.StatusOK, stats)
}

// BreakerStats returns a single breaker's snapshot.
func (h *Handler) BreakerStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	stats, err := h.registry.Stats(name)
	if err != nil {
		if errors.Is(err, reservation.ErrUnknownBreaker) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.CheckAvailability)
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.CreateReservation)
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.ProcessPayment)
}

func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.CalculatePrice)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.CancelReservation)
}

func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	invoke(h, w, r, h.registry.SendNotification)
}

// invoke decodes the request body, routes it through the guarded
// operation, and maps errors onto HTTP status codes.
func invoke[Req, Res any](h *Handler, w http.ResponseWriter, r *http.Request, call func(ctx context.Context, req Req) (Res, error)) {
	h.logger.Info("received request",
		slog.String("from", extractClientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	var req Req
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := call(r.Context(), req)
	if err != nil {
		h.logger.Warn("operation failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	var openErr *circuitbreaker.CircuitOpenError

	switch {
	case errors.Is(err, reservation.ErrReservationUnavailable), errors.As(err, &openErr):
		return http.StatusServiceUnavailable
	case fault.KindOf(err) == fault.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
