package reservation

import "context"

// Operations are the protected collaborators supplied by the
// surrounding application. Each function performs the real work
// (database access, payment gateway calls, notification dispatch); the
// registry only guards them. Errors they return should be tagged with
// a fault kind so the guarding breaker can classify them.
type Operations struct {
	CheckAvailability func(ctx context.Context, req AvailabilityRequest) (AvailabilityResult, error)
	CreateReservation func(ctx context.Context, req CreateRequest) (Reservation, error)
	ProcessPayment    func(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	CalculatePrice    func(ctx context.Context, req PriceRequest) (PriceResult, error)
	CancelReservation func(ctx context.Context, req CancellationRequest) (CancellationResult, error)
	SendNotification  func(ctx context.Context, req NotificationRequest) (NotificationResult, error)
}
