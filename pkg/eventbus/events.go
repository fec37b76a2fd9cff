package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// SeatRequestedData is emitted when a passenger asks to join a ride.
type SeatRequestedData struct {
	RideID         uuid.UUID `json:"ride_id"`
	DriverID       uuid.UUID `json:"driver_id"`
	PassengerID    uuid.UUID `json:"passenger_id"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	FareAmount     float64   `json:"fare_amount"`
	Currency       string    `json:"currency"`
	RequestedAt    time.Time `json:"requested_at"`
}

// SeatRespondedData is emitted when the driver accepts or rejects a request.
type SeatRespondedData struct {
	RideID         uuid.UUID `json:"ride_id"`
	DriverID       uuid.UUID `json:"driver_id"`
	PassengerID    uuid.UUID `json:"passenger_id"`
	Accepted       bool      `json:"accepted"`
	SeatsRemaining int       `json:"seats_remaining"`
	RespondedAt    time.Time `json:"responded_at"`
}

// PassengerCancelledData is emitted when a passenger leaves a ride
// before it starts.
type PassengerCancelledData struct {
	RideID       uuid.UUID `json:"ride_id"`
	DriverID     uuid.UUID `json:"driver_id"`
	PassengerID  uuid.UUID `json:"passenger_id"`
	WasAccepted  bool      `json:"was_accepted"`
	SeatReleased bool      `json:"seat_released"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// RideStartedData is emitted when the driver starts the ride.
type RideStartedData struct {
	RideID       uuid.UUID   `json:"ride_id"`
	DriverID     uuid.UUID   `json:"driver_id"`
	PassengerIDs []uuid.UUID `json:"passenger_ids"`
	StartedAt    time.Time   `json:"started_at"`
}

// PassengerImpactShare carries a single passenger's slice of the
// ride's environmental impact.
type PassengerImpactShare struct {
	PassengerID     uuid.UUID `json:"passenger_id"`
	CO2SavedKg      float64   `json:"co2_saved_kg"`
	FuelSavedLiters float64   `json:"fuel_saved_liters"`
	TreesEquivalent float64   `json:"trees_equivalent"`
	FareAmount      float64   `json:"fare_amount"`
}

// RideCompletedData is emitted when a ride finishes, carrying the
// environmental impact totals and the per-passenger shares.
type RideCompletedData struct {
	RideID          uuid.UUID              `json:"ride_id"`
	DriverID        uuid.UUID              `json:"driver_id"`
	DistanceKm      float64                `json:"distance_km"`
	PassengerCount  int                    `json:"passenger_count"`
	CO2SavedKg      float64                `json:"co2_saved_kg"`
	FuelSavedLiters float64                `json:"fuel_saved_liters"`
	TreesEquivalent float64                `json:"trees_equivalent"`
	Currency        string                 `json:"currency"`
	Shares          []PassengerImpactShare `json:"shares"`
	CompletedAt     time.Time              `json:"completed_at"`
}

// RideCancelledData is emitted when the driver cancels a ride. Every
// accepted passenger is an affected recipient.
type RideCancelledData struct {
	RideID       uuid.UUID   `json:"ride_id"`
	DriverID     uuid.UUID   `json:"driver_id"`
	PassengerIDs []uuid.UUID `json:"passenger_ids"`
	Reason       string      `json:"reason"`
	CancelledAt  time.Time   `json:"cancelled_at"`
}

// WalletToppedUpData is emitted after a successful top-up.
type WalletToppedUpData struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	NewBalance    float64   `json:"new_balance"`
	CompletedAt   time.Time `json:"completed_at"`
}

// WalletWithdrawnData is emitted after a successful withdrawal.
type WalletWithdrawnData struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	NewBalance    float64   `json:"new_balance"`
	CompletedAt   time.Time `json:"completed_at"`
}

// PaymentProcessedData is emitted when a ride payment settles.
type PaymentProcessedData struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	RideID        *uuid.UUID `json:"ride_id,omitempty"`
	SenderID      uuid.UUID  `json:"sender_id"`
	ReceiverID    uuid.UUID  `json:"receiver_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	ProcessedAt   time.Time  `json:"processed_at"`
}

// RefundRequestedData is emitted when a refund is opened against a
// completed payment.
type RefundRequestedData struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	OriginalID    uuid.UUID  `json:"original_transaction_id"`
	RideID        *uuid.UUID `json:"ride_id,omitempty"`
	SenderID      uuid.UUID  `json:"sender_id"`
	ReceiverID    uuid.UUID  `json:"receiver_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	RequestedAt   time.Time  `json:"requested_at"`
}

// RefundCompletedData is emitted when a refund settles back to the payer.
type RefundCompletedData struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	RideID        *uuid.UUID `json:"ride_id,omitempty"`
	SenderID      uuid.UUID  `json:"sender_id"`
	ReceiverID    uuid.UUID  `json:"receiver_id"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	CompletedAt   time.Time  `json:"completed_at"`
}
