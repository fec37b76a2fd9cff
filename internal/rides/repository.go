package rides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/database"
	"github.com/ecopool/carpool/pkg/models"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const rideColumns = `
	id, driver_id,
	vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
	vehicle_capacity, vehicle_fuel_type, vehicle_fuel_efficiency,
	origin_address, origin_latitude, origin_longitude,
	destination_address, destination_latitude, destination_longitude,
	waypoints, distance_km, duration_min, departure_time,
	capacity, available_seats, fare_per_km, currency, status,
	current_latitude, current_longitude, location_recorded_at,
	fuel_saved_liters, co2_saved_kg, trees_equivalent,
	cancellation_reason, started_at, completed_at, cancelled_at,
	created_at, updated_at`

const passengerColumns = `
	id, ride_id, user_id, status,
	pickup_address, pickup_latitude, pickup_longitude,
	dropoff_address, dropoff_latitude, dropoff_longitude,
	fare_amount, fare_currency, fare_status, rating,
	requested_at, responded_at, cancelled_at`

// CreateRide inserts a new ride with its vehicle snapshot.
func (r *Repository) CreateRide(ctx context.Context, ride *models.Ride) error {
	waypoints, err := json.Marshal(ride.Waypoints)
	if err != nil {
		return common.NewInternalError("failed to encode waypoints", err)
	}

	query := `
		INSERT INTO rides (
			id, driver_id,
			vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
			vehicle_capacity, vehicle_fuel_type, vehicle_fuel_efficiency,
			origin_address, origin_latitude, origin_longitude,
			destination_address, destination_latitude, destination_longitude,
			waypoints, distance_km, duration_min, departure_time,
			capacity, available_seats, fare_per_km, currency, status,
			fuel_saved_liters, co2_saved_kg, trees_equivalent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.Vehicle.Make,
		ride.Vehicle.Model,
		ride.Vehicle.Color,
		ride.Vehicle.PlateNumber,
		ride.Vehicle.Capacity,
		ride.Vehicle.FuelType,
		ride.Vehicle.FuelEfficiency,
		ride.Origin.Address,
		ride.Origin.Latitude,
		ride.Origin.Longitude,
		ride.Destination.Address,
		ride.Destination.Latitude,
		ride.Destination.Longitude,
		waypoints,
		ride.Route.DistanceKm,
		ride.Route.DurationMin,
		ride.DepartureTime,
		ride.Capacity,
		ride.AvailableSeats,
		ride.FarePerKm,
		ride.Currency,
		ride.Status,
		ride.Impact.FuelSavedLiters,
		ride.Impact.CO2SavedKg,
		ride.Impact.TreesEquivalent,
	).Scan(&ride.CreatedAt, &ride.UpdatedAt)

	if err != nil {
		return common.NewInternalError("failed to create ride", err)
	}

	return nil
}

// GetRideByID retrieves a ride aggregate (ride plus passenger entries).
func (r *Repository) GetRideByID(ctx context.Context, id uuid.UUID) (*models.Ride, error) {
	return r.loadRide(ctx, r.db, id, false)
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) loadRide(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	ride, err := scanRide(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("ride not found")
		}
		return nil, common.NewInternalError("failed to get ride", err)
	}

	rows, err := q.Query(ctx,
		`SELECT `+passengerColumns+` FROM ride_passengers WHERE ride_id = $1 ORDER BY requested_at`,
		id,
	)
	if err != nil {
		return nil, common.NewInternalError("failed to get ride passengers", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanPassenger(rows)
		if err != nil {
			return nil, common.NewInternalError("failed to scan passenger", err)
		}
		ride.Passengers = append(ride.Passengers, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewInternalError("failed to read ride passengers", err)
	}

	return ride, nil
}

// MutateRide runs fn against the ride aggregate while holding the ride row
// lock, then persists the modified aggregate and any side writes in the same
// transaction. The row lock serializes all writers on one ride, so guards
// checked inside fn hold through commit.
func (r *Repository) MutateRide(ctx context.Context, rideID uuid.UUID, fn MutateFunc) (*models.Ride, error) {
	var result *models.Ride

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ride, err := r.loadRide(ctx, tx, rideID, true)
		if err != nil {
			return err
		}

		mutation, err := fn(ride)
		if err != nil {
			return err
		}
		if mutation == nil {
			mutation = &MutationResult{}
		}

		if err := saveRide(ctx, tx, ride); err != nil {
			return err
		}
		if err := savePassengers(ctx, tx, ride, mutation.RemoveEntries); err != nil {
			return err
		}
		for userID, credit := range mutation.ImpactCredits {
			if err := creditImpact(ctx, tx, userID, credit); err != nil {
				return err
			}
		}

		result = ride
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func saveRide(ctx context.Context, tx pgx.Tx, ride *models.Ride) error {
	waypoints, err := json.Marshal(ride.Waypoints)
	if err != nil {
		return common.NewInternalError("failed to encode waypoints", err)
	}

	var curLat, curLon *float64
	var curAt *time.Time
	if ride.CurrentLocation != nil {
		curLat = &ride.CurrentLocation.Latitude
		curLon = &ride.CurrentLocation.Longitude
		curAt = &ride.CurrentLocation.RecordedAt
	}

	query := `
		UPDATE rides SET
			waypoints = $2, distance_km = $3, duration_min = $4,
			departure_time = $5, available_seats = $6, fare_per_km = $7,
			status = $8,
			current_latitude = $9, current_longitude = $10, location_recorded_at = $11,
			fuel_saved_liters = $12, co2_saved_kg = $13, trees_equivalent = $14,
			cancellation_reason = $15, started_at = $16, completed_at = $17,
			cancelled_at = $18, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = tx.QueryRow(ctx, query,
		ride.ID,
		waypoints,
		ride.Route.DistanceKm,
		ride.Route.DurationMin,
		ride.DepartureTime,
		ride.AvailableSeats,
		ride.FarePerKm,
		ride.Status,
		curLat,
		curLon,
		curAt,
		ride.Impact.FuelSavedLiters,
		ride.Impact.CO2SavedKg,
		ride.Impact.TreesEquivalent,
		ride.CancellationReason,
		ride.StartedAt,
		ride.CompletedAt,
		ride.CancelledAt,
	).Scan(&ride.UpdatedAt)

	if err != nil {
		return common.NewInternalError("failed to update ride", err)
	}
	return nil
}

func savePassengers(ctx context.Context, tx pgx.Tx, ride *models.Ride, removed []uuid.UUID) error {
	for _, entryID := range removed {
		if _, err := tx.Exec(ctx,
			`DELETE FROM ride_passengers WHERE id = $1 AND ride_id = $2`,
			entryID, ride.ID,
		); err != nil {
			return common.NewInternalError("failed to remove passenger entry", err)
		}
	}

	query := `
		INSERT INTO ride_passengers (
			id, ride_id, user_id, status,
			pickup_address, pickup_latitude, pickup_longitude,
			dropoff_address, dropoff_latitude, dropoff_longitude,
			fare_amount, fare_currency, fare_status, rating,
			requested_at, responded_at, cancelled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			fare_amount = EXCLUDED.fare_amount,
			fare_status = EXCLUDED.fare_status,
			rating = EXCLUDED.rating,
			responded_at = EXCLUDED.responded_at,
			cancelled_at = EXCLUDED.cancelled_at`

	for i := range ride.Passengers {
		p := &ride.Passengers[i]
		if _, err := tx.Exec(ctx, query,
			p.ID, p.RideID, p.UserID, p.Status,
			p.Pickup.Address, p.Pickup.Latitude, p.Pickup.Longitude,
			p.Dropoff.Address, p.Dropoff.Latitude, p.Dropoff.Longitude,
			p.Fare.Amount, p.Fare.Currency, p.Fare.Status, p.Rating,
			p.RequestedAt, p.RespondedAt, p.CancelledAt,
		); err != nil {
			return common.NewInternalError("failed to save passenger entry", err)
		}
	}

	return nil
}

func creditImpact(ctx context.Context, tx pgx.Tx, userID uuid.UUID, credit models.EnvironmentalImpact) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET
			co2_saved_kg = co2_saved_kg + $2,
			fuel_saved_liters = fuel_saved_liters + $3,
			trees_equivalent = trees_equivalent + $4,
			updated_at = NOW()
		WHERE id = $1`,
		userID, credit.CO2SavedKg, credit.FuelSavedLiters, credit.TreesEquivalent,
	)
	if err != nil {
		return common.NewInternalError("failed to credit environmental impact", err)
	}
	return nil
}

// DeleteRide removes a ride; passenger entries cascade through the FK.
func (r *Repository) DeleteRide(ctx context.Context, rideID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rides WHERE id = $1`, rideID)
	if err != nil {
		return common.NewInternalError("failed to delete ride", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("ride not found")
	}
	return nil
}

// ListRidesByDriver returns the driver's rides, newest first.
func (r *Repository) ListRidesByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error) {
	return r.listRides(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE driver_id = $1
		 ORDER BY departure_time DESC LIMIT $2 OFFSET $3`,
		`SELECT COUNT(*) FROM rides WHERE driver_id = $1`,
		driverID, limit, offset,
	)
}

// ListRidesByPassenger returns rides where the user holds a seat. Rides the
// driver cancelled drop out of the passenger's history.
func (r *Repository) ListRidesByPassenger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error) {
	return r.listRides(ctx,
		`SELECT `+rideColumns+` FROM rides r
		 WHERE r.status != 'cancelled' AND EXISTS (
			SELECT 1 FROM ride_passengers p
			WHERE p.ride_id = r.id AND p.user_id = $1 AND p.status = 'accepted'
		 )
		 ORDER BY r.departure_time DESC LIMIT $2 OFFSET $3`,
		`SELECT COUNT(*) FROM rides r
		 WHERE r.status != 'cancelled' AND EXISTS (
			SELECT 1 FROM ride_passengers p
			WHERE p.ride_id = r.id AND p.user_id = $1 AND p.status = 'accepted'
		 )`,
		userID, limit, offset,
	)
}

// ListUpcomingRides returns scheduled rides with seats left, soonest first.
func (r *Repository) ListUpcomingRides(ctx context.Context, limit, offset int) ([]*models.Ride, int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+rideColumns+` FROM rides
		 WHERE status = 'scheduled' AND available_seats > 0 AND departure_time > NOW()
		 ORDER BY departure_time ASC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list rides", err)
	}
	rides, err := collectRides(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM rides
		 WHERE status = 'scheduled' AND available_seats > 0 AND departure_time > NOW()`,
	).Scan(&total)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to count rides", err)
	}

	return rides, total, nil
}

func (r *Repository) listRides(ctx context.Context, listQuery, countQuery string, id uuid.UUID, limit, offset int) ([]*models.Ride, int64, error) {
	rows, err := r.db.Query(ctx, listQuery, id, limit, offset)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list rides", err)
	}
	rides, err := collectRides(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, common.NewInternalError("failed to count rides", err)
	}

	return rides, total, nil
}

func collectRides(rows pgx.Rows) ([]*models.Ride, error) {
	defer rows.Close()

	var rides []*models.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, common.NewInternalError("failed to scan ride", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewInternalError("failed to read rides", err)
	}
	return rides, nil
}

// GetUserByID loads the user row the rides service needs (vehicle profile
// and impact accumulators).
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	var (
		vehicleMake, vehicleModel, vehicleColor, vehiclePlate *string
		vehicleCapacity                                       *int
		vehicleFuelType                                       *string
		vehicleFuelEfficiency                                 *float64
	)

	query := `
		SELECT id, email, phone_number, first_name, last_name, role,
			is_active, is_verified,
			vehicle_make, vehicle_model, vehicle_color, vehicle_plate,
			vehicle_capacity, vehicle_fuel_type, vehicle_fuel_efficiency,
			driver_rating_avg, driver_rating_count,
			passenger_rating_avg, passenger_rating_count,
			co2_saved_kg, fuel_saved_liters, trees_equivalent,
			created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PhoneNumber,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&vehicleMake,
		&vehicleModel,
		&vehicleColor,
		&vehiclePlate,
		&vehicleCapacity,
		&vehicleFuelType,
		&vehicleFuelEfficiency,
		&user.Rating.AsDriver.Average,
		&user.Rating.AsDriver.Count,
		&user.Rating.AsPassenger.Average,
		&user.Rating.AsPassenger.Count,
		&user.Impact.CO2SavedKg,
		&user.Impact.FuelSavedLiters,
		&user.Impact.TreesEquivalent,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("user not found")
		}
		return nil, common.NewInternalError("failed to get user", err)
	}

	if vehicleMake != nil {
		user.Vehicle = &models.Vehicle{
			Make:        *vehicleMake,
			Model:       derefString(vehicleModel),
			Color:       derefString(vehicleColor),
			PlateNumber: derefString(vehiclePlate),
		}
		if vehicleCapacity != nil {
			user.Vehicle.Capacity = *vehicleCapacity
		}
		if vehicleFuelType != nil {
			user.Vehicle.FuelType = models.FuelType(*vehicleFuelType)
		}
		if vehicleFuelEfficiency != nil {
			user.Vehicle.FuelEfficiency = *vehicleFuelEfficiency
		}
	}

	return user, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanRide(row pgx.Row) (*models.Ride, error) {
	ride := &models.Ride{}
	var (
		waypoints          []byte
		curLat, curLon     *float64
		curAt              *time.Time
		cancellationReason *string
	)

	err := row.Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.Vehicle.Make,
		&ride.Vehicle.Model,
		&ride.Vehicle.Color,
		&ride.Vehicle.PlateNumber,
		&ride.Vehicle.Capacity,
		&ride.Vehicle.FuelType,
		&ride.Vehicle.FuelEfficiency,
		&ride.Origin.Address,
		&ride.Origin.Latitude,
		&ride.Origin.Longitude,
		&ride.Destination.Address,
		&ride.Destination.Latitude,
		&ride.Destination.Longitude,
		&waypoints,
		&ride.Route.DistanceKm,
		&ride.Route.DurationMin,
		&ride.DepartureTime,
		&ride.Capacity,
		&ride.AvailableSeats,
		&ride.FarePerKm,
		&ride.Currency,
		&ride.Status,
		&curLat,
		&curLon,
		&curAt,
		&ride.Impact.FuelSavedLiters,
		&ride.Impact.CO2SavedKg,
		&ride.Impact.TreesEquivalent,
		&cancellationReason,
		&ride.StartedAt,
		&ride.CompletedAt,
		&ride.CancelledAt,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(waypoints) > 0 {
		if err := json.Unmarshal(waypoints, &ride.Waypoints); err != nil {
			return nil, fmt.Errorf("decode waypoints: %w", err)
		}
	}
	if curLat != nil && curLon != nil && curAt != nil {
		ride.CurrentLocation = &models.GeoPoint{
			Latitude:   *curLat,
			Longitude:  *curLon,
			RecordedAt: *curAt,
		}
	}
	ride.CancellationReason = cancellationReason

	return ride, nil
}

func scanPassenger(row pgx.Row) (*models.PassengerEntry, error) {
	entry := &models.PassengerEntry{}
	err := row.Scan(
		&entry.ID,
		&entry.RideID,
		&entry.UserID,
		&entry.Status,
		&entry.Pickup.Address,
		&entry.Pickup.Latitude,
		&entry.Pickup.Longitude,
		&entry.Dropoff.Address,
		&entry.Dropoff.Latitude,
		&entry.Dropoff.Longitude,
		&entry.Fare.Amount,
		&entry.Fare.Currency,
		&entry.Fare.Status,
		&entry.Rating,
		&entry.RequestedAt,
		&entry.RespondedAt,
		&entry.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
