package rides

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecopool/carpool/internal/impact"
	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/logger"
	"github.com/ecopool/carpool/pkg/models"
)

const (
	defaultCurrency = "USD"
	// averageSpeedKmh backs the duration estimate shown on ride listings.
	averageSpeedKmh = 40.0
)

// Service owns the ride lifecycle and the passenger sub-state machine.
// Every mutation runs under the ride row lock; guards are checked against
// the state seen inside the transaction, and events fire only after commit.
type Service struct {
	repo  RepositoryInterface
	bus   EventPublisher
	cache LocationCache
}

// NewService creates a new rides service. bus and cache are optional.
func NewService(repo RepositoryInterface, bus EventPublisher, cache LocationCache) *Service {
	return &Service{repo: repo, bus: bus, cache: cache}
}

// effect is a domain event computed during a mutation and dispatched after
// the transaction commits.
type effect struct {
	subject string
	data    interface{}
}

func (s *Service) dispatch(ctx context.Context, effects []effect) {
	if s.bus == nil {
		return
	}
	for _, e := range effects {
		event, err := eventbus.NewEvent(e.subject, "rides", e.data)
		if err != nil {
			logger.WithContext(ctx).Warn("failed to build event",
				zap.String("subject", e.subject), zap.Error(err))
			continue
		}
		if err := s.bus.Publish(ctx, e.subject, event); err != nil {
			logger.WithContext(ctx).Warn("failed to publish event",
				zap.String("subject", e.subject), zap.Error(err))
		}
	}
}

// CreateRide publishes a new ride. The driver's vehicle profile is copied
// onto the ride as a snapshot; later profile edits don't touch it.
func (s *Service) CreateRide(ctx context.Context, driverID uuid.UUID, req *models.CreateRideRequest) (*models.Ride, error) {
	driver, err := s.repo.GetUserByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.Vehicle == nil {
		return nil, common.NewValidationError("a vehicle profile is required to publish a ride")
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	distance := routeDistance(req.Origin, req.Waypoints, req.Destination)

	ride := &models.Ride{
		ID:             uuid.New(),
		DriverID:       driverID,
		Vehicle:        *driver.Vehicle,
		Origin:         req.Origin,
		Destination:    req.Destination,
		Waypoints:      req.Waypoints,
		Route: models.RouteSummary{
			DistanceKm:  distance,
			DurationMin: estimateDuration(distance),
		},
		DepartureTime:  req.DepartureTime,
		Capacity:       req.Seats,
		AvailableSeats: req.Seats,
		FarePerKm:      req.FarePerKm,
		Currency:       currency,
		Status:         models.RideStatusScheduled,
	}

	if err := s.repo.CreateRide(ctx, ride); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("ride created",
		zap.String("ride_id", ride.ID.String()),
		zap.String("driver_id", driverID.String()),
		zap.Int("seats", ride.Capacity),
		zap.Float64("distance_km", distance),
	)

	return ride, nil
}

// GetRide returns the ride aggregate.
func (s *Service) GetRide(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	return s.repo.GetRideByID(ctx, rideID)
}

// GetLiveLocation returns the latest reported position, preferring the cache.
func (s *Service) GetLiveLocation(ctx context.Context, rideID uuid.UUID) (*models.GeoPoint, error) {
	if s.cache != nil {
		if point, err := s.cache.GetLiveLocation(ctx, rideID.String()); err == nil && point != nil {
			return point, nil
		}
	}

	ride, err := s.repo.GetRideByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusInProgress || ride.CurrentLocation == nil {
		return nil, common.NewNotFoundError("no live location for this ride")
	}
	return ride.CurrentLocation, nil
}

// RequestToJoin appends a pending passenger entry. Seats are not reserved at
// request time; multiple pending requests may exceed capacity and the gate
// is enforced at acceptance.
func (s *Service) RequestToJoin(ctx context.Context, rideID, userID uuid.UUID, req *models.JoinRideRequest) (*models.Ride, error) {
	var effects []effect

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.Status != models.RideStatusScheduled {
			return nil, common.NewInvalidTransitionError("ride is no longer accepting requests")
		}
		if ride.DriverID == userID {
			return nil, common.NewConflictError("driver cannot request a seat on their own ride")
		}
		if ride.PassengerByUser(userID) != nil {
			return nil, common.NewConflictError("a seat request already exists for this ride")
		}
		if ride.AvailableSeats <= 0 {
			return nil, common.NewConflictError("no seats available")
		}

		entry := models.PassengerEntry{
			ID:      uuid.New(),
			RideID:  ride.ID,
			UserID:  userID,
			Status:  models.PassengerStatusPending,
			Pickup:  req.Pickup,
			Dropoff: req.Dropoff,
			Fare: models.Fare{
				Amount:   round2(ride.Route.DistanceKm * ride.FarePerKm),
				Currency: ride.Currency,
				Status:   models.FareStatusPending,
			},
			RequestedAt: time.Now().UTC(),
		}
		ride.Passengers = append(ride.Passengers, entry)

		effects = append(effects, effect{eventbus.SubjectSeatRequested, eventbus.SeatRequestedData{
			RideID:         ride.ID,
			DriverID:       ride.DriverID,
			PassengerID:    userID,
			PickupAddress:  req.Pickup.Address,
			DropoffAddress: req.Dropoff.Address,
			FareAmount:     entry.Fare.Amount,
			Currency:       entry.Fare.Currency,
			RequestedAt:    entry.RequestedAt,
		}})
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, effects)
	return ride, nil
}

// RespondToRequest lets the driver accept or reject a pending seat request.
// Capacity is re-checked here, under the row lock, because pending requests
// may exceed the remaining seats.
func (s *Service) RespondToRequest(ctx context.Context, rideID, driverID uuid.UUID, req *models.RespondToRequest) (*models.Ride, error) {
	var effects []effect

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.DriverID != driverID {
			return nil, common.NewUnauthorizedError("only the ride's driver can respond to seat requests")
		}

		entry := ride.PassengerByUser(req.PassengerID)
		if entry == nil || entry.Status != models.PassengerStatusPending {
			return nil, common.NewNotFoundError("no pending request for that user")
		}
		if err := ValidatePassengerTransition(entry.Status, req.Status); err != nil {
			return nil, err
		}

		if req.Status == models.PassengerStatusAccepted {
			if ride.AvailableSeats <= 0 {
				return nil, common.NewConflictError("no seats available")
			}
			ride.AvailableSeats--
		}

		now := time.Now().UTC()
		entry.Status = req.Status
		entry.RespondedAt = &now

		refreshImpact(ride)

		effects = append(effects, effect{eventbus.SubjectSeatResponded, eventbus.SeatRespondedData{
			RideID:         ride.ID,
			DriverID:       ride.DriverID,
			PassengerID:    entry.UserID,
			Accepted:       req.Status == models.PassengerStatusAccepted,
			SeatsRemaining: ride.AvailableSeats,
			RespondedAt:    now,
		}})
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, effects)
	return ride, nil
}

// CancelOwnRequest removes the caller's passenger entry. An accepted entry
// releases its seat on the way out.
func (s *Service) CancelOwnRequest(ctx context.Context, rideID, userID uuid.UUID) (*models.Ride, error) {
	var effects []effect

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		entry := ride.PassengerByUser(userID)
		if entry == nil {
			return nil, common.NewNotFoundError("no seat request for this ride")
		}

		wasAccepted := entry.Status == models.PassengerStatusAccepted
		if wasAccepted {
			ride.AvailableSeats++
		}

		result := &MutationResult{RemoveEntries: []uuid.UUID{entry.ID}}
		removePassenger(ride, entry.ID)
		refreshImpact(ride)

		effects = append(effects, effect{eventbus.SubjectPassengerCancelled, eventbus.PassengerCancelledData{
			RideID:       ride.ID,
			DriverID:     ride.DriverID,
			PassengerID:  userID,
			WasAccepted:  wasAccepted,
			SeatReleased: wasAccepted,
			CancelledAt:  time.Now().UTC(),
		}})
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, effects)
	return ride, nil
}

// StartRide moves a scheduled ride to in_progress and seeds the live
// location with the origin.
func (s *Service) StartRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	var effects []effect

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.DriverID != driverID {
			return nil, common.NewUnauthorizedError("only the ride's driver can start it")
		}
		if err := ValidateRideTransition(ride.Status, models.RideStatusInProgress); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		ride.Status = models.RideStatusInProgress
		ride.StartedAt = &now
		ride.CurrentLocation = &models.GeoPoint{
			Latitude:   ride.Origin.Latitude,
			Longitude:  ride.Origin.Longitude,
			RecordedAt: now,
		}

		effects = append(effects, effect{eventbus.SubjectRideStarted, eventbus.RideStartedData{
			RideID:       ride.ID,
			DriverID:     ride.DriverID,
			PassengerIDs: acceptedIDs(ride),
			StartedAt:    now,
		}})
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheLocation(ctx, ride)
	s.dispatch(ctx, effects)
	return ride, nil
}

// UpdateLocation records the ride's position. Valid only while in_progress.
func (s *Service) UpdateLocation(ctx context.Context, rideID, driverID uuid.UUID, req *models.UpdateLocationRequest) (*models.Ride, error) {
	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.DriverID != driverID {
			return nil, common.NewUnauthorizedError("only the ride's driver can report its location")
		}
		if ride.Status != models.RideStatusInProgress {
			return nil, common.NewInvalidTransitionError("location updates are only valid while the ride is in progress")
		}

		ride.CurrentLocation = &models.GeoPoint{
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			RecordedAt: time.Now().UTC(),
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheLocation(ctx, ride)
	return ride, nil
}

// CompleteRide finishes an in-progress ride and settles environmental
// impact: the driver is credited with the full trip savings, each accepted
// passenger with an equal share.
func (s *Service) CompleteRide(ctx context.Context, rideID, driverID uuid.UUID) (*models.Ride, error) {
	var effects []effect

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.DriverID != driverID {
			return nil, common.NewUnauthorizedError("only the ride's driver can complete it")
		}
		if err := ValidateRideTransition(ride.Status, models.RideStatusCompleted); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		accepted := ride.AcceptedPassengers()
		total := impact.Calculate(ride.Route.DistanceKm, ride.Vehicle.FuelEfficiency, len(accepted))
		share := impact.Share(total, len(accepted))

		ride.Status = models.RideStatusCompleted
		ride.CompletedAt = &now
		ride.Impact = total
		ride.CurrentLocation = &models.GeoPoint{
			Latitude:   ride.Destination.Latitude,
			Longitude:  ride.Destination.Longitude,
			RecordedAt: now,
		}

		credits := map[uuid.UUID]models.EnvironmentalImpact{
			ride.DriverID: total,
		}
		shares := make([]eventbus.PassengerImpactShare, 0, len(accepted))
		for _, p := range accepted {
			credits[p.UserID] = share
			shares = append(shares, eventbus.PassengerImpactShare{
				PassengerID:     p.UserID,
				CO2SavedKg:      share.CO2SavedKg,
				FuelSavedLiters: share.FuelSavedLiters,
				TreesEquivalent: share.TreesEquivalent,
				FareAmount:      p.Fare.Amount,
			})
		}

		effects = append(effects, effect{eventbus.SubjectRideCompleted, eventbus.RideCompletedData{
			RideID:          ride.ID,
			DriverID:        ride.DriverID,
			DistanceKm:      ride.Route.DistanceKm,
			PassengerCount:  len(accepted),
			CO2SavedKg:      total.CO2SavedKg,
			FuelSavedLiters: total.FuelSavedLiters,
			TreesEquivalent: total.TreesEquivalent,
			Currency:        ride.Currency,
			Shares:          shares,
			CompletedAt:     now,
		}})
		return &MutationResult{ImpactCredits: credits}, nil
	})
	if err != nil {
		return nil, err
	}

	s.clearCachedLocation(ctx, rideID)
	s.dispatch(ctx, effects)
	return ride, nil
}

// CancelRide cancels a ride. The driver cancels the whole ride; an accepted
// passenger only withdraws their own seat, and the ride stays active for
// everyone else.
func (s *Service) CancelRide(ctx context.Context, rideID, actorID uuid.UUID, reason string) (*models.Ride, error) {
	var effects []effect
	var rideCancelled bool

	ride, err := s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if err := ValidateRideTransition(ride.Status, models.RideStatusCancelled); err != nil {
			return nil, err
		}
		now := time.Now().UTC()

		if ride.DriverID == actorID {
			ride.Status = models.RideStatusCancelled
			ride.CancelledAt = &now
			if reason != "" {
				ride.CancellationReason = &reason
			}
			rideCancelled = true

			effects = append(effects, effect{eventbus.SubjectRideCancelled, eventbus.RideCancelledData{
				RideID:       ride.ID,
				DriverID:     ride.DriverID,
				PassengerIDs: acceptedIDs(ride),
				Reason:       reason,
				CancelledAt:  now,
			}})
			return nil, nil
		}

		entry := ride.PassengerByUser(actorID)
		if entry == nil {
			return nil, common.NewNotFoundError("no seat on this ride")
		}
		if err := ValidatePassengerTransition(entry.Status, models.PassengerStatusCancelled); err != nil {
			return nil, err
		}

		wasAccepted := entry.Status == models.PassengerStatusAccepted
		if wasAccepted {
			ride.AvailableSeats++
		}
		entry.Status = models.PassengerStatusCancelled
		entry.CancelledAt = &now
		refreshImpact(ride)

		effects = append(effects, effect{eventbus.SubjectPassengerCancelled, eventbus.PassengerCancelledData{
			RideID:       ride.ID,
			DriverID:     ride.DriverID,
			PassengerID:  actorID,
			WasAccepted:  wasAccepted,
			SeatReleased: wasAccepted,
			CancelledAt:  now,
		}})
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if rideCancelled {
		s.clearCachedLocation(ctx, rideID)
	}
	s.dispatch(ctx, effects)
	return ride, nil
}

// UpdateRide edits ride fields. Forbidden once the ride has left scheduled.
func (s *Service) UpdateRide(ctx context.Context, rideID, driverID uuid.UUID, req *models.UpdateRideRequest) (*models.Ride, error) {
	return s.repo.MutateRide(ctx, rideID, func(ride *models.Ride) (*MutationResult, error) {
		if ride.DriverID != driverID {
			return nil, common.NewUnauthorizedError("only the ride's driver can edit it")
		}
		if ride.Status != models.RideStatusScheduled {
			return nil, common.NewInvalidTransitionError("ride can only be edited before departure")
		}

		if req.DepartureTime != nil {
			ride.DepartureTime = *req.DepartureTime
		}
		if req.FarePerKm != nil {
			ride.FarePerKm = *req.FarePerKm
		}
		if req.Waypoints != nil {
			ride.Waypoints = req.Waypoints
			ride.Route.DistanceKm = routeDistance(ride.Origin, ride.Waypoints, ride.Destination)
			ride.Route.DurationMin = estimateDuration(ride.Route.DistanceKm)
			refreshImpact(ride)
		}
		return nil, nil
	})
}

// DeleteRide removes a ride entirely. Forbidden while in progress; an
// in-progress ride can only be soft-cancelled.
func (s *Service) DeleteRide(ctx context.Context, rideID, driverID uuid.UUID) error {
	ride, err := s.repo.GetRideByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.DriverID != driverID {
		return common.NewUnauthorizedError("only the ride's driver can delete it")
	}
	if ride.Status == models.RideStatusInProgress {
		return common.NewInvalidTransitionError("an in-progress ride cannot be deleted")
	}
	return s.repo.DeleteRide(ctx, rideID)
}

// ListMyRidesAsDriver returns the caller's published rides.
func (s *Service) ListMyRidesAsDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error) {
	return s.repo.ListRidesByDriver(ctx, driverID, limit, offset)
}

// ListMyRidesAsPassenger returns rides the caller holds a seat on.
func (s *Service) ListMyRidesAsPassenger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error) {
	return s.repo.ListRidesByPassenger(ctx, userID, limit, offset)
}

// ListUpcomingRides returns joinable scheduled rides.
func (s *Service) ListUpcomingRides(ctx context.Context, limit, offset int) ([]*models.Ride, int64, error) {
	return s.repo.ListUpcomingRides(ctx, limit, offset)
}

func (s *Service) cacheLocation(ctx context.Context, ride *models.Ride) {
	if s.cache == nil || ride.CurrentLocation == nil {
		return
	}
	if err := s.cache.SetLiveLocation(ctx, ride.ID.String(), *ride.CurrentLocation); err != nil {
		logger.WithContext(ctx).Warn("failed to cache live location",
			zap.String("ride_id", ride.ID.String()), zap.Error(err))
	}
}

func (s *Service) clearCachedLocation(ctx context.Context, rideID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ClearLiveLocation(ctx, rideID.String()); err != nil {
		logger.WithContext(ctx).Warn("failed to clear cached location",
			zap.String("ride_id", rideID.String()), zap.Error(err))
	}
}

// refreshImpact recomputes the ride-level impact snapshot from the current
// accepted-passenger set.
func refreshImpact(ride *models.Ride) {
	ride.Impact = impact.Calculate(
		ride.Route.DistanceKm,
		ride.Vehicle.FuelEfficiency,
		len(ride.AcceptedPassengers()),
	)
}

func removePassenger(ride *models.Ride, entryID uuid.UUID) {
	for i := range ride.Passengers {
		if ride.Passengers[i].ID == entryID {
			ride.Passengers = append(ride.Passengers[:i], ride.Passengers[i+1:]...)
			return
		}
	}
}

func acceptedIDs(ride *models.Ride) []uuid.UUID {
	accepted := ride.AcceptedPassengers()
	ids := make([]uuid.UUID, 0, len(accepted))
	for _, p := range accepted {
		ids = append(ids, p.UserID)
	}
	return ids
}

// routeDistance sums the haversine legs origin -> waypoints -> destination.
func routeDistance(origin models.Location, waypoints []models.Location, destination models.Location) float64 {
	points := make([]models.Location, 0, len(waypoints)+2)
	points = append(points, origin)
	points = append(points, waypoints...)
	points = append(points, destination)

	var total float64
	for i := 1; i < len(points); i++ {
		total += haversine(
			points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude,
		)
	}
	return round2(total)
}

// haversine returns the great-circle distance in kilometers.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func estimateDuration(distanceKm float64) int {
	return int(math.Ceil(distanceKm / averageSpeedKmh * 60))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
