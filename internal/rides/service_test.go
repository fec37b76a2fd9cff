package rides

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/models"
)

// fakeRepo keeps one ride aggregate in memory and runs mutations against it
// the way the real repository does inside the row lock.
type fakeRepo struct {
	ride    *models.Ride
	users   map[uuid.UUID]*models.User
	credits map[uuid.UUID]models.EnvironmentalImpact
	deleted bool
}

func newFakeRepo(ride *models.Ride) *fakeRepo {
	return &fakeRepo{
		ride:    ride,
		users:   make(map[uuid.UUID]*models.User),
		credits: make(map[uuid.UUID]models.EnvironmentalImpact),
	}
}

func (f *fakeRepo) CreateRide(_ context.Context, ride *models.Ride) error {
	f.ride = ride
	return nil
}

func (f *fakeRepo) GetRideByID(_ context.Context, id uuid.UUID) (*models.Ride, error) {
	if f.ride == nil || f.ride.ID != id {
		return nil, common.NewNotFoundError("ride not found")
	}
	return f.ride, nil
}

func (f *fakeRepo) MutateRide(ctx context.Context, rideID uuid.UUID, fn MutateFunc) (*models.Ride, error) {
	ride, err := f.GetRideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// Work on a copy so a failed mutation leaves state untouched, matching
	// transaction rollback.
	snapshot := *ride
	snapshot.Passengers = append([]models.PassengerEntry(nil), ride.Passengers...)

	result, err := fn(&snapshot)
	if err != nil {
		return nil, err
	}
	if result != nil {
		for userID, credit := range result.ImpactCredits {
			prev := f.credits[userID]
			prev.CO2SavedKg += credit.CO2SavedKg
			prev.FuelSavedLiters += credit.FuelSavedLiters
			prev.TreesEquivalent += credit.TreesEquivalent
			f.credits[userID] = prev
		}
	}

	*ride = snapshot
	return ride, nil
}

func (f *fakeRepo) DeleteRide(_ context.Context, _ uuid.UUID) error {
	f.deleted = true
	f.ride = nil
	return nil
}

func (f *fakeRepo) ListRidesByDriver(_ context.Context, _ uuid.UUID, _, _ int) ([]*models.Ride, int64, error) {
	return []*models.Ride{f.ride}, 1, nil
}

func (f *fakeRepo) ListRidesByPassenger(_ context.Context, _ uuid.UUID, _, _ int) ([]*models.Ride, int64, error) {
	return nil, 0, nil
}

func (f *fakeRepo) ListUpcomingRides(_ context.Context, _, _ int) ([]*models.Ride, int64, error) {
	return []*models.Ride{f.ride}, 1, nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, common.NewNotFoundError("user not found")
	}
	return user, nil
}

// fakeBus records published subjects.
type fakeBus struct {
	events []*eventbus.Event
}

func (f *fakeBus) Publish(_ context.Context, _ string, event *eventbus.Event) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBus) subjects() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func testRide(driverID uuid.UUID, seats int) *models.Ride {
	return &models.Ride{
		ID:       uuid.New(),
		DriverID: driverID,
		Vehicle: models.Vehicle{
			Make:           "Toyota",
			Model:          "Prius",
			Capacity:       seats + 1,
			FuelType:       models.FuelTypeHybrid,
			FuelEfficiency: 10,
		},
		Origin:         models.Location{Address: "A", Latitude: 37.77, Longitude: -122.41},
		Destination:    models.Location{Address: "B", Latitude: 37.87, Longitude: -122.27},
		Route:          models.RouteSummary{DistanceKm: 100, DurationMin: 150},
		DepartureTime:  time.Now().Add(24 * time.Hour),
		Capacity:       seats,
		AvailableSeats: seats,
		FarePerKm:      0.5,
		Currency:       "USD",
		Status:         models.RideStatusScheduled,
	}
}

func seatInvariantHolds(t *testing.T, ride *models.Ride) {
	t.Helper()
	assert.Equal(t, ride.Capacity, ride.AvailableSeats+len(ride.AcceptedPassengers()),
		"available seats plus accepted passengers must equal capacity")
	assert.GreaterOrEqual(t, ride.AvailableSeats, 0)
}

func addPassenger(ride *models.Ride, userID uuid.UUID, status models.PassengerStatus) {
	ride.Passengers = append(ride.Passengers, models.PassengerEntry{
		ID:          uuid.New(),
		RideID:      ride.ID,
		UserID:      userID,
		Status:      status,
		Fare:        models.Fare{Amount: 50, Currency: "USD", Status: models.FareStatusPending},
		RequestedAt: time.Now(),
	})
	if status == models.PassengerStatusAccepted {
		ride.AvailableSeats--
	}
}

func TestCreateRide(t *testing.T) {
	driverID := uuid.New()
	repo := newFakeRepo(nil)
	svc := NewService(repo, nil, nil)

	req := &models.CreateRideRequest{
		Origin:        models.Location{Address: "A", Latitude: 37.77, Longitude: -122.41},
		Destination:   models.Location{Address: "B", Latitude: 37.87, Longitude: -122.27},
		DepartureTime: time.Now().Add(time.Hour),
		Seats:         3,
		FarePerKm:     0.4,
	}

	t.Run("requires vehicle profile", func(t *testing.T) {
		repo.users[driverID] = &models.User{ID: driverID}

		_, err := svc.CreateRide(context.Background(), driverID, req)

		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("snapshots vehicle and seeds seats", func(t *testing.T) {
		repo.users[driverID] = &models.User{
			ID: driverID,
			Vehicle: &models.Vehicle{
				Make: "Honda", Model: "Jazz", Capacity: 4,
				FuelType: models.FuelTypePetrol, FuelEfficiency: 14,
			},
		}

		ride, err := svc.CreateRide(context.Background(), driverID, req)

		require.NoError(t, err)
		assert.Equal(t, models.RideStatusScheduled, ride.Status)
		assert.Equal(t, 3, ride.Capacity)
		assert.Equal(t, 3, ride.AvailableSeats)
		assert.Equal(t, "Honda", ride.Vehicle.Make)
		assert.Equal(t, "USD", ride.Currency)
		assert.Greater(t, ride.Route.DistanceKm, 0.0)
	})
}

func TestRequestToJoin(t *testing.T) {
	driverID := uuid.New()
	joinReq := &models.JoinRideRequest{
		Pickup:  models.Location{Address: "P"},
		Dropoff: models.Location{Address: "D"},
	}

	t.Run("appends pending entry without reserving a seat", func(t *testing.T) {
		ride := testRide(driverID, 2)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)
		userID := uuid.New()

		got, err := svc.RequestToJoin(context.Background(), ride.ID, userID, joinReq)

		require.NoError(t, err)
		require.Len(t, got.Passengers, 1)
		assert.Equal(t, models.PassengerStatusPending, got.Passengers[0].Status)
		assert.Equal(t, 2, got.AvailableSeats, "pending requests must not consume seats")
		assert.Equal(t, 50.0, got.Passengers[0].Fare.Amount) // 100 km * 0.5
		assert.Equal(t, []string{eventbus.SubjectSeatRequested}, bus.subjects())
	})

	t.Run("driver cannot request own ride", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RequestToJoin(context.Background(), ride.ID, driverID, joinReq)

		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("duplicate request conflicts", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusPending)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RequestToJoin(context.Background(), ride.ID, userID, joinReq)

		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("no seats left conflicts", func(t *testing.T) {
		ride := testRide(driverID, 1)
		addPassenger(ride, uuid.New(), models.PassengerStatusAccepted)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RequestToJoin(context.Background(), ride.ID, uuid.New(), joinReq)

		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("started ride rejects requests", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusInProgress
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RequestToJoin(context.Background(), ride.ID, uuid.New(), joinReq)

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestRespondToRequest(t *testing.T) {
	driverID := uuid.New()

	t.Run("accept consumes a seat and refreshes impact", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusPending)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.RespondToRequest(context.Background(), ride.ID, driverID, &models.RespondToRequest{
			PassengerID: userID,
			Status:      models.PassengerStatusAccepted,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, got.AvailableSeats)
		assert.Equal(t, models.PassengerStatusAccepted, got.Passengers[0].Status)
		assert.NotNil(t, got.Passengers[0].RespondedAt)
		// 100 km / 10 km/l * 1 passenger
		assert.InDelta(t, 10.0, got.Impact.FuelSavedLiters, 1e-9)
		seatInvariantHolds(t, got)
		assert.Equal(t, []string{eventbus.SubjectSeatResponded}, bus.subjects())
	})

	t.Run("reject leaves seats unchanged", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusPending)
		svc := NewService(newFakeRepo(ride), nil, nil)

		got, err := svc.RespondToRequest(context.Background(), ride.ID, driverID, &models.RespondToRequest{
			PassengerID: userID,
			Status:      models.PassengerStatusRejected,
		})

		require.NoError(t, err)
		assert.Equal(t, 2, got.AvailableSeats)
		assert.Equal(t, models.PassengerStatusRejected, got.Passengers[0].Status)
		seatInvariantHolds(t, got)
	})

	t.Run("accepting with zero seats conflicts", func(t *testing.T) {
		// Over-subscription: two pending requests, one seat.
		ride := testRide(driverID, 1)
		first := uuid.New()
		second := uuid.New()
		addPassenger(ride, first, models.PassengerStatusPending)
		addPassenger(ride, second, models.PassengerStatusPending)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RespondToRequest(context.Background(), ride.ID, driverID, &models.RespondToRequest{
			PassengerID: first, Status: models.PassengerStatusAccepted,
		})
		require.NoError(t, err)

		_, err = svc.RespondToRequest(context.Background(), ride.ID, driverID, &models.RespondToRequest{
			PassengerID: second, Status: models.PassengerStatusAccepted,
		})

		assert.ErrorIs(t, err, common.ErrConflict)
		got, _ := svc.GetRide(context.Background(), ride.ID)
		assert.Equal(t, 0, got.AvailableSeats, "seat count must never go negative")
		seatInvariantHolds(t, got)
	})

	t.Run("only the driver may respond", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusPending)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RespondToRequest(context.Background(), ride.ID, uuid.New(), &models.RespondToRequest{
			PassengerID: userID, Status: models.PassengerStatusAccepted,
		})

		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("no pending entry is not found", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.RespondToRequest(context.Background(), ride.ID, driverID, &models.RespondToRequest{
			PassengerID: uuid.New(), Status: models.PassengerStatusAccepted,
		})

		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestCancelOwnRequest(t *testing.T) {
	driverID := uuid.New()

	t.Run("accepted entry releases its seat", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusAccepted)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.CancelOwnRequest(context.Background(), ride.ID, userID)

		require.NoError(t, err)
		assert.Empty(t, got.Passengers)
		assert.Equal(t, 2, got.AvailableSeats)
		seatInvariantHolds(t, got)
		assert.Equal(t, []string{eventbus.SubjectPassengerCancelled}, bus.subjects())
	})

	t.Run("pending entry removed without seat change", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusPending)
		svc := NewService(newFakeRepo(ride), nil, nil)

		got, err := svc.CancelOwnRequest(context.Background(), ride.ID, userID)

		require.NoError(t, err)
		assert.Empty(t, got.Passengers)
		assert.Equal(t, 2, got.AvailableSeats)
	})

	t.Run("missing entry is not found", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.CancelOwnRequest(context.Background(), ride.ID, uuid.New())

		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestStartRide(t *testing.T) {
	driverID := uuid.New()

	t.Run("moves to in_progress and seeds location", func(t *testing.T) {
		ride := testRide(driverID, 2)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.StartRide(context.Background(), ride.ID, driverID)

		require.NoError(t, err)
		assert.Equal(t, models.RideStatusInProgress, got.Status)
		require.NotNil(t, got.CurrentLocation)
		assert.Equal(t, ride.Origin.Latitude, got.CurrentLocation.Latitude)
		assert.NotNil(t, got.StartedAt)
		assert.Equal(t, []string{eventbus.SubjectRideStarted}, bus.subjects())
	})

	t.Run("double start fails and leaves state unchanged", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.StartRide(context.Background(), ride.ID, driverID)
		require.NoError(t, err)
		startedAt := ride.StartedAt

		_, err = svc.StartRide(context.Background(), ride.ID, driverID)

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
		assert.Equal(t, models.RideStatusInProgress, ride.Status)
		assert.Equal(t, startedAt, ride.StartedAt)
	})
}

func TestUpdateLocation(t *testing.T) {
	driverID := uuid.New()

	t.Run("overwrites current location while in progress", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusInProgress
		svc := NewService(newFakeRepo(ride), nil, nil)

		got, err := svc.UpdateLocation(context.Background(), ride.ID, driverID, &models.UpdateLocationRequest{
			Latitude: 37.80, Longitude: -122.30,
		})

		require.NoError(t, err)
		require.NotNil(t, got.CurrentLocation)
		assert.Equal(t, 37.80, got.CurrentLocation.Latitude)
		assert.False(t, got.CurrentLocation.RecordedAt.IsZero())
	})

	t.Run("rejected outside in_progress", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.UpdateLocation(context.Background(), ride.ID, driverID, &models.UpdateLocationRequest{
			Latitude: 1, Longitude: 1,
		})

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestCompleteRide(t *testing.T) {
	driverID := uuid.New()

	t.Run("settles impact across driver and accepted passengers", func(t *testing.T) {
		ride := testRide(driverID, 3) // 100 km, 10 km/l
		p1 := uuid.New()
		p2 := uuid.New()
		addPassenger(ride, p1, models.PassengerStatusAccepted)
		addPassenger(ride, p2, models.PassengerStatusAccepted)
		addPassenger(ride, uuid.New(), models.PassengerStatusRejected)
		ride.Status = models.RideStatusInProgress
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.CompleteRide(context.Background(), ride.ID, driverID)

		require.NoError(t, err)
		assert.Equal(t, models.RideStatusCompleted, got.Status)
		assert.InDelta(t, 20.0, got.Impact.FuelSavedLiters, 1e-9)
		assert.InDelta(t, 46.0, got.Impact.CO2SavedKg, 1e-9)
		assert.InDelta(t, 46.0/22.0, got.Impact.TreesEquivalent, 1e-6)
		require.NotNil(t, got.CurrentLocation)
		assert.Equal(t, ride.Destination.Latitude, got.CurrentLocation.Latitude)

		// Driver gets the full amount, each passenger half.
		assert.InDelta(t, 46.0, repo.credits[driverID].CO2SavedKg, 1e-9)
		assert.InDelta(t, 23.0, repo.credits[p1].CO2SavedKg, 1e-9)
		assert.InDelta(t, 23.0, repo.credits[p2].CO2SavedKg, 1e-9)

		require.Len(t, bus.events, 1)
		assert.Equal(t, eventbus.SubjectRideCompleted, bus.events[0].Type)
	})

	t.Run("zero accepted passengers completes with zero impact", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusInProgress
		repo := newFakeRepo(ride)
		svc := NewService(repo, nil, nil)

		got, err := svc.CompleteRide(context.Background(), ride.ID, driverID)

		require.NoError(t, err)
		assert.Zero(t, got.Impact.CO2SavedKg)
		assert.Zero(t, repo.credits[driverID].CO2SavedKg)
	})

	t.Run("completing a scheduled ride is an invalid transition", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.CompleteRide(context.Background(), ride.ID, driverID)

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestCancelRide(t *testing.T) {
	driverID := uuid.New()

	t.Run("driver cancellation notifies every accepted passenger", func(t *testing.T) {
		ride := testRide(driverID, 3)
		p1 := uuid.New()
		p2 := uuid.New()
		addPassenger(ride, p1, models.PassengerStatusAccepted)
		addPassenger(ride, p2, models.PassengerStatusAccepted)
		addPassenger(ride, uuid.New(), models.PassengerStatusPending)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.CancelRide(context.Background(), ride.ID, driverID, "car trouble")

		require.NoError(t, err)
		assert.Equal(t, models.RideStatusCancelled, got.Status)
		require.NotNil(t, got.CancellationReason)
		assert.Equal(t, "car trouble", *got.CancellationReason)
		assert.NotNil(t, got.CancelledAt)

		require.Len(t, bus.events, 1)
		assert.Equal(t, eventbus.SubjectRideCancelled, bus.events[0].Type)
		var data eventbus.RideCancelledData
		require.NoError(t, json.Unmarshal(bus.events[0].Data, &data))
		assert.ElementsMatch(t, []uuid.UUID{p1, p2}, data.PassengerIDs)
	})

	t.Run("passenger cancellation releases the seat and keeps the ride active", func(t *testing.T) {
		ride := testRide(driverID, 2)
		userID := uuid.New()
		addPassenger(ride, userID, models.PassengerStatusAccepted)
		repo := newFakeRepo(ride)
		bus := &fakeBus{}
		svc := NewService(repo, bus, nil)

		got, err := svc.CancelRide(context.Background(), ride.ID, userID, "")

		require.NoError(t, err)
		assert.Equal(t, models.RideStatusScheduled, got.Status)
		assert.Equal(t, models.PassengerStatusCancelled, got.Passengers[0].Status)
		assert.Equal(t, 2, got.AvailableSeats)
		seatInvariantHolds(t, got)
		assert.Equal(t, []string{eventbus.SubjectPassengerCancelled}, bus.subjects())
	})

	t.Run("completed ride cannot be cancelled", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusCompleted
		svc := NewService(newFakeRepo(ride), nil, nil)

		_, err := svc.CancelRide(context.Background(), ride.ID, driverID, "")

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})
}

func TestUpdateRide(t *testing.T) {
	driverID := uuid.New()

	t.Run("forbidden after departure", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusInProgress
		svc := NewService(newFakeRepo(ride), nil, nil)

		newFare := 0.8
		_, err := svc.UpdateRide(context.Background(), ride.ID, driverID, &models.UpdateRideRequest{
			FarePerKm: &newFare,
		})

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
	})

	t.Run("updates fare before departure", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		newFare := 0.8
		got, err := svc.UpdateRide(context.Background(), ride.ID, driverID, &models.UpdateRideRequest{
			FarePerKm: &newFare,
		})

		require.NoError(t, err)
		assert.Equal(t, 0.8, got.FarePerKm)
	})
}

func TestDeleteRide(t *testing.T) {
	driverID := uuid.New()

	t.Run("forbidden while in progress", func(t *testing.T) {
		ride := testRide(driverID, 2)
		ride.Status = models.RideStatusInProgress
		repo := newFakeRepo(ride)
		svc := NewService(repo, nil, nil)

		err := svc.DeleteRide(context.Background(), ride.ID, driverID)

		assert.ErrorIs(t, err, common.ErrInvalidTransition)
		assert.False(t, repo.deleted)
	})

	t.Run("allowed for scheduled rides", func(t *testing.T) {
		ride := testRide(driverID, 2)
		repo := newFakeRepo(ride)
		svc := NewService(repo, nil, nil)

		err := svc.DeleteRide(context.Background(), ride.ID, driverID)

		require.NoError(t, err)
		assert.True(t, repo.deleted)
	})

	t.Run("only the driver may delete", func(t *testing.T) {
		ride := testRide(driverID, 2)
		svc := NewService(newFakeRepo(ride), nil, nil)

		err := svc.DeleteRide(context.Background(), ride.ID, uuid.New())

		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})
}

func TestRouteDistance(t *testing.T) {
	origin := models.Location{Latitude: 37.7749, Longitude: -122.4194}      // San Francisco
	destination := models.Location{Latitude: 37.8715, Longitude: -122.2730} // Berkeley

	direct := routeDistance(origin, nil, destination)
	assert.InDelta(t, 16.5, direct, 2.0)

	detour := routeDistance(origin, []models.Location{{Latitude: 37.80, Longitude: -122.27}}, destination)
	assert.Greater(t, detour, direct)
}

var errBoom = errors.New("boom")

func TestMutationRollback(t *testing.T) {
	driverID := uuid.New()
	ride := testRide(driverID, 2)
	repo := newFakeRepo(ride)

	_, err := repo.MutateRide(context.Background(), ride.ID, func(r *models.Ride) (*MutationResult, error) {
		r.AvailableSeats = 0
		return nil, errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, ride.AvailableSeats, "failed mutation must not leak state")
}
