package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies the monetary event behind a ledger entry
type TransactionType string

const (
	TransactionTypeRidePayment      TransactionType = "ride_payment"
	TransactionTypeWalletTopup      TransactionType = "wallet_topup"
	TransactionTypeWalletWithdrawal TransactionType = "wallet_withdrawal"
	TransactionTypeRefund           TransactionType = "refund"
)

// TransactionStatus is the settlement state of a ledger entry
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

// PaymentMethod is how the money moves
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
)

// Transaction is one append-only ledger entry. Immutable once created except
// for the status transition (pending -> completed/failed/refunded).
type Transaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	SenderID      *uuid.UUID        `json:"sender_id,omitempty" db:"sender_id"`     // nil for top-ups
	ReceiverID    *uuid.UUID        `json:"receiver_id,omitempty" db:"receiver_id"` // nil for withdrawals
	RideID        *uuid.UUID        `json:"ride_id,omitempty" db:"ride_id"`
	Amount        float64           `json:"amount" db:"amount"`
	Currency      string            `json:"currency" db:"currency"`
	Type          TransactionType   `json:"type" db:"type"`
	PaymentMethod PaymentMethod     `json:"payment_method" db:"payment_method"`
	Status        TransactionStatus `json:"status" db:"status"`
	Description   string            `json:"description,omitempty" db:"description"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Wallet is the per-user balance cache. The balance is mutated only inside
// the same database transaction that appends the matching ledger entry, so it
// always equals completed credits minus completed debits.
type Wallet struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Balance   float64   `json:"balance" db:"balance"`
	Currency  string    `json:"currency" db:"currency"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TopUpRequest credits the wallet
type TopUpRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// WithdrawRequest debits the wallet
type WithdrawRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// RidePaymentRequest pays a passenger's fare for a ride
type RidePaymentRequest struct {
	RideID        uuid.UUID     `json:"ride_id" binding:"required"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=wallet cash card"`
}

// RefundRequest asks for a fare to be returned
type RefundRequest struct {
	RideID uuid.UUID `json:"ride_id" binding:"required"`
	Reason string    `json:"reason"`
}
