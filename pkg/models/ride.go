package models

import (
	"time"

	"github.com/google/uuid"
)

// RideStatus represents the status of a ride
type RideStatus string

const (
	RideStatusScheduled  RideStatus = "scheduled"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// PassengerStatus is the sub-state of a passenger entry within a ride
type PassengerStatus string

const (
	PassengerStatusPending   PassengerStatus = "pending"
	PassengerStatusAccepted  PassengerStatus = "accepted"
	PassengerStatusRejected  PassengerStatus = "rejected"
	PassengerStatusCancelled PassengerStatus = "cancelled"
)

// FareStatus tracks settlement of a passenger's fare
type FareStatus string

const (
	FareStatusPending  FareStatus = "pending"
	FareStatusPaid     FareStatus = "paid"
	FareStatusRefunded FareStatus = "refunded"
)

// Location is an address with coordinates
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoPoint is a timestamped coordinate, used for live ride tracking
type GeoPoint struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RouteSummary holds the planned trip distance and duration
type RouteSummary struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
}

// EnvironmentalImpact is the trip-level impact snapshot, recomputed whenever
// distance, vehicle efficiency or the accepted-passenger set changes.
type EnvironmentalImpact struct {
	FuelSavedLiters float64 `json:"fuel_saved_liters"`
	CO2SavedKg      float64 `json:"co2_saved_kg"`
	TreesEquivalent float64 `json:"trees_equivalent"`
}

// Fare is the per-passenger fare sub-record
type Fare struct {
	Amount   float64    `json:"amount"`
	Currency string     `json:"currency"`
	Status   FareStatus `json:"status"`
}

// PassengerEntry is a passenger's membership in a ride. At most one entry
// exists per (ride, user) pair.
type PassengerEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	RideID      uuid.UUID       `json:"ride_id" db:"ride_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Status      PassengerStatus `json:"status" db:"status"`
	Pickup      Location        `json:"pickup"`
	Dropoff     Location        `json:"dropoff"`
	Fare        Fare            `json:"fare"`
	Rating      *int            `json:"rating,omitempty" db:"rating"`
	RequestedAt time.Time       `json:"requested_at" db:"requested_at"`
	RespondedAt *time.Time      `json:"responded_at,omitempty" db:"responded_at"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// Ride is the ride aggregate: the ride document plus its embedded passenger
// entries, treated as one consistency unit.
type Ride struct {
	ID                 uuid.UUID           `json:"id" db:"id"`
	DriverID           uuid.UUID           `json:"driver_id" db:"driver_id"`
	Vehicle            Vehicle             `json:"vehicle"` // snapshot taken at creation
	Origin             Location            `json:"origin"`
	Destination        Location            `json:"destination"`
	Waypoints          []Location          `json:"waypoints,omitempty"`
	Route              RouteSummary        `json:"route"`
	DepartureTime      time.Time           `json:"departure_time" db:"departure_time"`
	Capacity           int                 `json:"capacity" db:"capacity"`
	AvailableSeats     int                 `json:"available_seats" db:"available_seats"`
	FarePerKm          float64             `json:"fare_per_km" db:"fare_per_km"`
	Currency           string              `json:"currency" db:"currency"`
	Status             RideStatus          `json:"status" db:"status"`
	CurrentLocation    *GeoPoint           `json:"current_location,omitempty"` // valid only while in_progress
	Impact             EnvironmentalImpact `json:"environmental_impact"`
	Passengers         []PassengerEntry    `json:"passengers"`
	CancellationReason *string             `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	StartedAt          *time.Time          `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// AcceptedPassengers returns the entries currently holding a seat.
func (r *Ride) AcceptedPassengers() []PassengerEntry {
	accepted := make([]PassengerEntry, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.Status == PassengerStatusAccepted {
			accepted = append(accepted, p)
		}
	}
	return accepted
}

// PassengerByUser returns the entry for the given user, if any.
func (r *Ride) PassengerByUser(userID uuid.UUID) *PassengerEntry {
	for i := range r.Passengers {
		if r.Passengers[i].UserID == userID {
			return &r.Passengers[i]
		}
	}
	return nil
}

// CreateRideRequest publishes a new ride
type CreateRideRequest struct {
	Origin        Location   `json:"origin" binding:"required"`
	Destination   Location   `json:"destination" binding:"required"`
	Waypoints     []Location `json:"waypoints,omitempty"`
	DepartureTime time.Time  `json:"departure_time" binding:"required"`
	Seats         int        `json:"seats" binding:"required,min=1,max=8"`
	FarePerKm     float64    `json:"fare_per_km" binding:"required,gt=0"`
	Currency      string     `json:"currency,omitempty"`
}

// JoinRideRequest asks the driver for a seat
type JoinRideRequest struct {
	Pickup  Location `json:"pickup" binding:"required"`
	Dropoff Location `json:"dropoff" binding:"required"`
}

// RespondToRequest accepts or rejects a pending passenger request
type RespondToRequest struct {
	PassengerID uuid.UUID       `json:"passenger_id" binding:"required"`
	Status      PassengerStatus `json:"status" binding:"required,oneof=accepted rejected"`
}

// UpdateLocationRequest reports the ride's live position
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// CancelRideRequest cancels a ride or a passenger's own participation
type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// UpdateRideRequest edits ride fields before departure
type UpdateRideRequest struct {
	DepartureTime *time.Time `json:"departure_time,omitempty"`
	FarePerKm     *float64   `json:"fare_per_km,omitempty" binding:"omitempty,gt=0"`
	Waypoints     []Location `json:"waypoints,omitempty"`
}
