package ratings

import (
	"context"

	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/models"
)

// RepositoryInterface defines the interface for ratings repository operations.
// CreateReview recomputes the rated user's per-role aggregate from the full
// review set in the same transaction, so the cached average never drifts.
type RepositoryInterface interface {
	CreateReview(ctx context.Context, review *Review) error
	GetRideForReview(ctx context.Context, rideID uuid.UUID) (*RideParticipants, error)
	GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRating, error)
	ListReviewsReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error)
	ListReviewsGiven(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error)
}
