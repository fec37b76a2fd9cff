package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeSeatRequested      NotificationType = "seat_requested"
	NotificationTypeRequestAccepted    NotificationType = "request_accepted"
	NotificationTypeRequestRejected    NotificationType = "request_rejected"
	NotificationTypePassengerCancelled NotificationType = "passenger_cancelled"
	NotificationTypeRideStarted        NotificationType = "ride_started"
	NotificationTypeRideCompleted      NotificationType = "ride_completed"
	NotificationTypeRideCancelled      NotificationType = "ride_cancelled"
	NotificationTypePaymentReceived    NotificationType = "payment_received"
	NotificationTypePaymentCompleted   NotificationType = "payment_completed"
	NotificationTypeRefundRequested    NotificationType = "refund_requested"
	NotificationTypeRefundCompleted    NotificationType = "refund_completed"
	NotificationTypeWalletTopup        NotificationType = "wallet_topup"
	NotificationTypeWalletWithdrawal   NotificationType = "wallet_withdrawal"
)

// Notification is a durably recorded event addressed to one recipient.
// Write-once except for the read flag.
type Notification struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	UserID        uuid.UUID        `json:"user_id" db:"user_id"`
	SenderID      *uuid.UUID       `json:"sender_id,omitempty" db:"sender_id"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	RideID        *uuid.UUID       `json:"ride_id,omitempty" db:"ride_id"`
	TransactionID *uuid.UUID       `json:"transaction_id,omitempty" db:"transaction_id"`
	IsRead        bool             `json:"is_read" db:"is_read"`
	ReadAt        *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}
