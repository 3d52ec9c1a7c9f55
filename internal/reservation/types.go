package reservation

import "time"

// Statuses a result may carry when its breaker degraded the call.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"

	CancellationStatusCancelled     = "cancelled"
	CancellationStatusPendingManual = "pending_manual_cancellation"

	NotificationStatusSent     = "sent"
	NotificationStatusDeferred = "deferred"
)

type AvailabilityRequest struct {
	CourtID   string `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

type CreateRequest struct {
	CourtID   string `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	PlayerID  string `json:"player_id"`
}

type Reservation struct {
	ID        string    `json:"id"`
	CourtID   string    `json:"court_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	PlayerID  string    `json:"player_id"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentRequest struct {
	ReservationID string  `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
}

type PaymentResult struct {
	PaymentID string `json:"payment_id,omitempty"`
	Status    string `json:"status"`
	Fallback  bool   `json:"fallback,omitempty"`
}

type PriceRequest struct {
	CourtID   string `json:"court_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type PriceResult struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Fallback bool    `json:"fallback,omitempty"`
}

type CancellationRequest struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason,omitempty"`
}

type CancellationResult struct {
	Status   string `json:"status"`
	Fallback bool   `json:"fallback,omitempty"`
}

type NotificationRequest struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

type NotificationResult struct {
	Status   string `json:"status"`
	Fallback bool   `json:"fallback,omitempty"`
}
