package rides

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/eventbus"
	"github.com/ecopool/carpool/pkg/models"
)

// MutationResult describes the extra writes a ride mutation needs beyond the
// aggregate itself. Everything in it is applied inside the same transaction
// that persists the ride, so the aggregate and its side rows move together.
type MutationResult struct {
	// ImpactCredits adds to each user's lifetime environmental accumulators.
	ImpactCredits map[uuid.UUID]models.EnvironmentalImpact
	// RemoveEntries deletes passenger entries by ID (cancel-own-request).
	RemoveEntries []uuid.UUID
}

// MutateFunc edits a ride aggregate while its row is locked. Returning an
// error rolls the whole mutation back.
type MutateFunc func(ride *models.Ride) (*MutationResult, error)

// RepositoryInterface defines the interface for rides repository operations
type RepositoryInterface interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRideByID(ctx context.Context, id uuid.UUID) (*models.Ride, error)
	MutateRide(ctx context.Context, rideID uuid.UUID, fn MutateFunc) (*models.Ride, error)
	DeleteRide(ctx context.Context, rideID uuid.UUID) error
	ListRidesByDriver(ctx context.Context, driverID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error)
	ListRidesByPassenger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Ride, int64, error)
	ListUpcomingRides(ctx context.Context, limit, offset int) ([]*models.Ride, int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// EventPublisher publishes domain events after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// LocationCache is the fast read path for live ride positions.
type LocationCache interface {
	SetLiveLocation(ctx context.Context, rideID string, point models.GeoPoint) error
	GetLiveLocation(ctx context.Context, rideID string) (*models.GeoPoint, error)
	ClearLiveLocation(ctx context.Context, rideID string) error
}
