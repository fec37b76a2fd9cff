package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/models"
)

// PassengerFare is the slice of the ride aggregate the ledger needs to
// settle a fare: who drives, which entry is being paid, and its fare state.
type PassengerFare struct {
	EntryID    uuid.UUID
	RideID     uuid.UUID
	DriverID   uuid.UUID
	Passenger  uuid.UUID
	Amount     float64
	Currency   string
	FareStatus models.FareStatus
	Status     models.PassengerStatus
}

// RepositoryInterface defines the interface for wallet repository operations.
// The multi-step methods (TopUp, Withdraw, PayWithWallet, the settlement
// calls) each run as one database transaction with the wallet rows locked,
// so the ledger entry and the balance mutation land together or not at all.
type RepositoryInterface interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	TopUp(ctx context.Context, txn *models.Transaction) (*models.Wallet, error)
	Withdraw(ctx context.Context, txn *models.Transaction) (*models.Wallet, error)
	PayWithWallet(ctx context.Context, txn *models.Transaction, entryID uuid.UUID) (*models.Wallet, error)
	CreatePendingPayment(ctx context.Context, txn *models.Transaction) error
	CompleteRidePayment(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error)
	CreateRefund(ctx context.Context, txn *models.Transaction) error
	CompleteRefund(ctx context.Context, txnID uuid.UUID) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindCompletedRidePayment(ctx context.Context, senderID, rideID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Transaction, int64, error)
	GetPassengerFare(ctx context.Context, rideID, userID uuid.UUID) (*PassengerFare, error)
}

// EventPublisher publishes wallet events after a settlement commits.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}
