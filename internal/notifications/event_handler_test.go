package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/models"
)

type fakeRepo struct {
	notifications []*models.Notification
}

func (f *fakeRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	stored := *n
	stored.CreatedAt = time.Now().UTC()
	f.notifications = append(f.notifications, &stored)
	return nil
}

func (f *fakeRepo) GetNotificationByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	for _, n := range f.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, common.NewNotFoundError("notification not found")
}

func (f *fakeRepo) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool, _, _ int) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) MarkAsRead(_ context.Context, id uuid.UUID) error {
	for _, n := range f.notifications {
		if n.ID == id && !n.IsRead {
			now := time.Now().UTC()
			n.IsRead = true
			n.ReadAt = &now
		}
	}
	return nil
}

func (f *fakeRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	var updated int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			now := time.Now().UTC()
			n.IsRead = true
			n.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (f *fakeRepo) GetUnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) forUser(userID uuid.UUID) []*models.Notification {
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func mustEvent(t *testing.T, subject string, data interface{}) *eventbus.Event {
	t.Helper()
	event, err := eventbus.NewEvent(subject, "test", data)
	require.NoError(t, err)
	return event
}

func TestSeatRequestNotifiesDriver(t *testing.T) {
	repo := &fakeRepo{}
	handler := NewEventHandler(NewService(repo))
	driverID := uuid.New()
	passengerID := uuid.New()
	rideID := uuid.New()

	event := mustEvent(t, eventbus.SubjectSeatRequested, eventbus.SeatRequestedData{
		RideID: rideID, DriverID: driverID, PassengerID: passengerID,
		PickupAddress: "Mission St", DropoffAddress: "Market St",
		FareAmount: 12.5, Currency: "USD", RequestedAt: time.Now().UTC(),
	})
	require.NoError(t, handler.handleRideEvent(context.Background(), event))

	got := repo.forUser(driverID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationTypeSeatRequested, got[0].Type)
	assert.Equal(t, passengerID, *got[0].SenderID)
	assert.Equal(t, rideID, *got[0].RideID)
	assert.Empty(t, repo.forUser(passengerID))
}

func TestSeatResponseNotifiesPassenger(t *testing.T) {
	for _, tc := range []struct {
		name     string
		accepted bool
		want     models.NotificationType
	}{
		{"accepted", true, models.NotificationTypeRequestAccepted},
		{"rejected", false, models.NotificationTypeRequestRejected},
	} {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			handler := NewEventHandler(NewService(repo))
			passengerID := uuid.New()

			event := mustEvent(t, eventbus.SubjectSeatResponded, eventbus.SeatRespondedData{
				RideID: uuid.New(), DriverID: uuid.New(), PassengerID: passengerID,
				Accepted: tc.accepted, RespondedAt: time.Now().UTC(),
			})
			require.NoError(t, handler.handleRideEvent(context.Background(), event))

			got := repo.forUser(passengerID)
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Type)
		})
	}
}

func TestRideCancelledFansOutToPassengers(t *testing.T) {
	repo := &fakeRepo{}
	handler := NewEventHandler(NewService(repo))
	driverID := uuid.New()
	p1 := uuid.New()
	p2 := uuid.New()

	event := mustEvent(t, eventbus.SubjectRideCancelled, eventbus.RideCancelledData{
		RideID: uuid.New(), DriverID: driverID,
		PassengerIDs: []uuid.UUID{p1, p2},
		Reason:       "car trouble", CancelledAt: time.Now().UTC(),
	})
	require.NoError(t, handler.handleRideEvent(context.Background(), event))

	require.Len(t, repo.notifications, 2)
	for _, passengerID := range []uuid.UUID{p1, p2} {
		got := repo.forUser(passengerID)
		require.Len(t, got, 1)
		assert.Equal(t, models.NotificationTypeRideCancelled, got[0].Type)
		assert.Contains(t, got[0].Message, "car trouble")
	}
	assert.Empty(t, repo.forUser(driverID))
}

func TestRideCompletedNotifiesDriverAndShares(t *testing.T) {
	repo := &fakeRepo{}
	handler := NewEventHandler(NewService(repo))
	driverID := uuid.New()
	p1 := uuid.New()
	p2 := uuid.New()

	event := mustEvent(t, eventbus.SubjectRideCompleted, eventbus.RideCompletedData{
		RideID: uuid.New(), DriverID: driverID,
		DistanceKm: 100, PassengerCount: 2,
		CO2SavedKg: 46, FuelSavedLiters: 20, TreesEquivalent: 2.09,
		Currency: "USD",
		Shares: []eventbus.PassengerImpactShare{
			{PassengerID: p1, CO2SavedKg: 23, FareAmount: 50},
			{PassengerID: p2, CO2SavedKg: 23, FareAmount: 50},
		},
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, handler.handleRideEvent(context.Background(), event))

	require.Len(t, repo.notifications, 3)
	require.Len(t, repo.forUser(driverID), 1)
	require.Len(t, repo.forUser(p1), 1)
	require.Len(t, repo.forUser(p2), 1)
	assert.Nil(t, repo.forUser(driverID)[0].SenderID)
}

func TestPaymentProcessed(t *testing.T) {
	t.Run("completed notifies both parties", func(t *testing.T) {
		repo := &fakeRepo{}
		handler := NewEventHandler(NewService(repo))
		senderID := uuid.New()
		receiverID := uuid.New()
		txnID := uuid.New()

		event := mustEvent(t, eventbus.SubjectPaymentProcessed, eventbus.PaymentProcessedData{
			TransactionID: txnID, SenderID: senderID, ReceiverID: receiverID,
			Amount: 50, Currency: "USD", Method: "wallet",
			Status: string(models.TransactionStatusCompleted), ProcessedAt: time.Now().UTC(),
		})
		require.NoError(t, handler.handleWalletEvent(context.Background(), event))

		receiver := repo.forUser(receiverID)
		require.Len(t, receiver, 1)
		assert.Equal(t, models.NotificationTypePaymentReceived, receiver[0].Type)
		assert.Equal(t, txnID, *receiver[0].TransactionID)

		sender := repo.forUser(senderID)
		require.Len(t, sender, 1)
		assert.Equal(t, models.NotificationTypePaymentCompleted, sender[0].Type)
	})

	t.Run("pending notifies only the receiver", func(t *testing.T) {
		repo := &fakeRepo{}
		handler := NewEventHandler(NewService(repo))
		senderID := uuid.New()
		receiverID := uuid.New()

		event := mustEvent(t, eventbus.SubjectPaymentProcessed, eventbus.PaymentProcessedData{
			TransactionID: uuid.New(), SenderID: senderID, ReceiverID: receiverID,
			Amount: 50, Currency: "USD", Method: "cash",
			Status: string(models.TransactionStatusPending), ProcessedAt: time.Now().UTC(),
		})
		require.NoError(t, handler.handleWalletEvent(context.Background(), event))

		require.Len(t, repo.forUser(receiverID), 1)
		assert.Contains(t, repo.forUser(receiverID)[0].Message, "cash")
		assert.Empty(t, repo.forUser(senderID))
	})
}

func TestUnknownEventIsIgnored(t *testing.T) {
	repo := &fakeRepo{}
	handler := NewEventHandler(NewService(repo))

	event := mustEvent(t, "rides.something.new", map[string]string{"foo": "bar"})
	require.NoError(t, handler.handleRideEvent(context.Background(), event))

	assert.Empty(t, repo.notifications)
}

func TestMarkAsRead(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	userID := uuid.New()
	otherID := uuid.New()

	n, err := svc.Record(context.Background(), &models.Notification{
		UserID: userID, Type: models.NotificationTypeRideStarted,
		Title: "Ride Started", Message: "on the way",
	})
	require.NoError(t, err)

	t.Run("owner can mark read", func(t *testing.T) {
		require.NoError(t, svc.MarkAsRead(context.Background(), userID, n.ID))

		count, err := svc.UnreadCount(context.Background(), userID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("other users cannot", func(t *testing.T) {
		err := svc.MarkAsRead(context.Background(), otherID, n.ID)
		assert.ErrorIs(t, err, common.ErrForbidden)
	})
}

func TestMarkAllAsRead(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), &models.Notification{
			UserID: userID, Type: models.NotificationTypeSeatRequested,
			Title: "New Seat Request", Message: "someone wants in",
		})
		require.NoError(t, err)
	}

	updated, err := svc.MarkAllAsRead(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
