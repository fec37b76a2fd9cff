package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/logger"
	"github.com/ecopool/carpool/pkg/models"
)

// EventHandler processes events from the NATS event bus and records one
// notification per affected recipient. Recording is best effort per
// recipient: a failed insert is logged and does not Nak the event, so one
// broken recipient cannot block the others.
type EventHandler struct {
	service *Service
}

// NewEventHandler creates an event handler backed by the notification service.
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// RegisterSubscriptions subscribes to ride and wallet events on the bus.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus *eventbus.Bus) error {
	if err := bus.Subscribe(ctx, "rides.>", "notifications-rides", h.handleRideEvent); err != nil {
		return fmt.Errorf("subscribe to ride events: %w", err)
	}
	if err := bus.Subscribe(ctx, "wallet.>", "notifications-wallet", h.handleWalletEvent); err != nil {
		return fmt.Errorf("subscribe to wallet events: %w", err)
	}
	logger.Info("notifications: subscribed to ride and wallet events")
	return nil
}

func (h *EventHandler) handleRideEvent(ctx context.Context, event *eventbus.Event) error {
	switch event.Type {
	case eventbus.SubjectSeatRequested:
		return h.onSeatRequested(ctx, event)
	case eventbus.SubjectSeatResponded:
		return h.onSeatResponded(ctx, event)
	case eventbus.SubjectPassengerCancelled:
		return h.onPassengerCancelled(ctx, event)
	case eventbus.SubjectRideStarted:
		return h.onRideStarted(ctx, event)
	case eventbus.SubjectRideCompleted:
		return h.onRideCompleted(ctx, event)
	case eventbus.SubjectRideCancelled:
		return h.onRideCancelled(ctx, event)
	default:
		logger.Debug("notifications: ignoring unknown ride event", zap.String("type", event.Type))
		return nil
	}
}

func (h *EventHandler) handleWalletEvent(ctx context.Context, event *eventbus.Event) error {
	switch event.Type {
	case eventbus.SubjectWalletToppedUp:
		return h.onWalletToppedUp(ctx, event)
	case eventbus.SubjectWalletWithdrawn:
		return h.onWalletWithdrawn(ctx, event)
	case eventbus.SubjectPaymentProcessed:
		return h.onPaymentProcessed(ctx, event)
	case eventbus.SubjectRefundRequested:
		return h.onRefundRequested(ctx, event)
	case eventbus.SubjectRefundCompleted:
		return h.onRefundCompleted(ctx, event)
	default:
		logger.Debug("notifications: ignoring unknown wallet event", zap.String("type", event.Type))
		return nil
	}
}

func (h *EventHandler) record(ctx context.Context, n *models.Notification) {
	if _, err := h.service.Record(ctx, n); err != nil {
		logger.WithContext(ctx).Warn("failed to record notification",
			zap.String("type", string(n.Type)),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err))
	}
}

func (h *EventHandler) onSeatRequested(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.SeatRequestedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal seat requested: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID:   data.DriverID,
		SenderID: &data.PassengerID,
		Type:     models.NotificationTypeSeatRequested,
		Title:    "New Seat Request",
		Message: fmt.Sprintf("A passenger wants to join your ride from %s to %s (fare %.2f %s).",
			data.PickupAddress, data.DropoffAddress, data.FareAmount, data.Currency),
		RideID: &data.RideID,
	})
	return nil
}

func (h *EventHandler) onSeatResponded(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.SeatRespondedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal seat responded: %w", err)
	}

	notification := &models.Notification{
		UserID:   data.PassengerID,
		SenderID: &data.DriverID,
		RideID:   &data.RideID,
	}
	if data.Accepted {
		notification.Type = models.NotificationTypeRequestAccepted
		notification.Title = "Seat Confirmed"
		notification.Message = "The driver accepted your request. You have a seat on this ride."
	} else {
		notification.Type = models.NotificationTypeRequestRejected
		notification.Title = "Request Declined"
		notification.Message = "The driver declined your seat request."
	}

	h.record(ctx, notification)
	return nil
}

func (h *EventHandler) onPassengerCancelled(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.PassengerCancelledData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal passenger cancelled: %w", err)
	}

	message := "A passenger withdrew their seat request."
	if data.SeatReleased {
		message = "A passenger gave up their seat. It is available again."
	}

	h.record(ctx, &models.Notification{
		UserID:   data.DriverID,
		SenderID: &data.PassengerID,
		Type:     models.NotificationTypePassengerCancelled,
		Title:    "Passenger Cancelled",
		Message:  message,
		RideID:   &data.RideID,
	})
	return nil
}

func (h *EventHandler) onRideStarted(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RideStartedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal ride started: %w", err)
	}

	for _, passengerID := range data.PassengerIDs {
		h.record(ctx, &models.Notification{
			UserID:   passengerID,
			SenderID: &data.DriverID,
			Type:     models.NotificationTypeRideStarted,
			Title:    "Ride Started",
			Message:  "Your ride is underway. You can follow the live location.",
			RideID:   &data.RideID,
		})
	}
	return nil
}

func (h *EventHandler) onRideCompleted(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RideCompletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal ride completed: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID: data.DriverID,
		Type:   models.NotificationTypeRideCompleted,
		Title:  "Ride Completed",
		Message: fmt.Sprintf("Trip finished: %.1f km with %d passengers, %.1f kg CO2 saved.",
			data.DistanceKm, data.PassengerCount, data.CO2SavedKg),
		RideID: &data.RideID,
	})

	for _, share := range data.Shares {
		h.record(ctx, &models.Notification{
			UserID:   share.PassengerID,
			SenderID: &data.DriverID,
			Type:     models.NotificationTypeRideCompleted,
			Title:    "Ride Completed",
			Message: fmt.Sprintf("You arrived. Fare: %.2f %s, your share of CO2 saved: %.1f kg.",
				share.FareAmount, data.Currency, share.CO2SavedKg),
			RideID: &data.RideID,
		})
	}
	return nil
}

func (h *EventHandler) onRideCancelled(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RideCancelledData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal ride cancelled: %w", err)
	}

	message := "The driver cancelled this ride."
	if data.Reason != "" {
		message = fmt.Sprintf("The driver cancelled this ride: %s", data.Reason)
	}

	for _, passengerID := range data.PassengerIDs {
		h.record(ctx, &models.Notification{
			UserID:   passengerID,
			SenderID: &data.DriverID,
			Type:     models.NotificationTypeRideCancelled,
			Title:    "Ride Cancelled",
			Message:  message,
			RideID:   &data.RideID,
		})
	}
	return nil
}

func (h *EventHandler) onWalletToppedUp(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.WalletToppedUpData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal wallet topped up: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID: data.UserID,
		Type:   models.NotificationTypeWalletTopup,
		Title:  "Wallet Topped Up",
		Message: fmt.Sprintf("%.2f %s added to your wallet. New balance: %.2f.",
			data.Amount, data.Currency, data.NewBalance),
		TransactionID: &data.TransactionID,
	})
	return nil
}

func (h *EventHandler) onWalletWithdrawn(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.WalletWithdrawnData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal wallet withdrawn: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID: data.UserID,
		Type:   models.NotificationTypeWalletWithdrawal,
		Title:  "Withdrawal Requested",
		Message: fmt.Sprintf("%.2f %s is on its way out of your wallet. New balance: %.2f.",
			data.Amount, data.Currency, data.NewBalance),
		TransactionID: &data.TransactionID,
	})
	return nil
}

func (h *EventHandler) onPaymentProcessed(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.PaymentProcessedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment processed: %w", err)
	}

	if data.Status == string(models.TransactionStatusCompleted) {
		h.record(ctx, &models.Notification{
			UserID:   data.ReceiverID,
			SenderID: senderRef(data.SenderID),
			Type:     models.NotificationTypePaymentReceived,
			Title:    "Payment Received",
			Message: fmt.Sprintf("You received %.2f %s for a ride fare.",
				data.Amount, data.Currency),
			RideID:        data.RideID,
			TransactionID: &data.TransactionID,
		})
		h.record(ctx, &models.Notification{
			UserID: data.SenderID,
			Type:   models.NotificationTypePaymentCompleted,
			Title:  "Payment Completed",
			Message: fmt.Sprintf("Your fare payment of %.2f %s is complete.",
				data.Amount, data.Currency),
			RideID:        data.RideID,
			TransactionID: &data.TransactionID,
		})
		return nil
	}

	h.record(ctx, &models.Notification{
		UserID:   data.ReceiverID,
		SenderID: senderRef(data.SenderID),
		Type:     models.NotificationTypePaymentReceived,
		Title:    "Payment Pending",
		Message: fmt.Sprintf("A passenger recorded a %s payment of %.2f %s. Confirm it once received.",
			data.Method, data.Amount, data.Currency),
		RideID:        data.RideID,
		TransactionID: &data.TransactionID,
	})
	return nil
}

func (h *EventHandler) onRefundRequested(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RefundRequestedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal refund requested: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID:   data.SenderID,
		SenderID: senderRef(data.ReceiverID),
		Type:     models.NotificationTypeRefundRequested,
		Title:    "Refund Requested",
		Message: fmt.Sprintf("A passenger requested a refund of %.2f %s.",
			data.Amount, data.Currency),
		RideID:        data.RideID,
		TransactionID: &data.TransactionID,
	})
	return nil
}

func (h *EventHandler) onRefundCompleted(ctx context.Context, event *eventbus.Event) error {
	var data eventbus.RefundCompletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal refund completed: %w", err)
	}

	h.record(ctx, &models.Notification{
		UserID:   data.ReceiverID,
		SenderID: senderRef(data.SenderID),
		Type:     models.NotificationTypeRefundCompleted,
		Title:    "Refund Received",
		Message: fmt.Sprintf("Your refund of %.2f %s has been returned to your wallet.",
			data.Amount, data.Currency),
		RideID:        data.RideID,
		TransactionID: &data.TransactionID,
	})
	return nil
}

func senderRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
