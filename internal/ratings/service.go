package ratings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/logger"
	"github.com/ecopool/carpool/pkg/models"
)

// Service handles ratings business logic
type Service struct {
	repo RepositoryInterface
}

// NewService creates a new ratings service
func NewService(repo RepositoryInterface) *Service {
	return &Service{repo: repo}
}

// SubmitReview records a rating for a completed ride. The reviewer must have
// been on the ride, and the rated user must be their counterpart: passengers
// rate the driver, the driver rates accepted passengers. Each reviewer gets
// one review per ride.
func (s *Service) SubmitReview(ctx context.Context, reviewerID uuid.UUID, req *SubmitReviewRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, common.NewValidationError("rating must be between 1 and 5")
	}
	if req.RatedUserID == reviewerID {
		return nil, common.NewValidationError("you cannot review yourself")
	}

	ride, err := s.repo.GetRideForReview(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != models.RideStatusCompleted {
		return nil, common.NewInvalidStateError("only completed rides can be reviewed")
	}

	var role ReviewRole
	switch {
	case reviewerID == ride.DriverID:
		if ride.Passengers[req.RatedUserID] != models.PassengerStatusAccepted {
			return nil, common.NewValidationError("rated user was not a passenger on this ride")
		}
		role = RolePassenger
	case ride.Passengers[reviewerID] == models.PassengerStatusAccepted:
		if req.RatedUserID != ride.DriverID {
			return nil, common.NewValidationError("passengers can only review the driver")
		}
		role = RoleDriver
	default:
		return nil, common.NewForbiddenError("only ride participants can submit reviews")
	}

	review := &Review{
		ID:          uuid.New(),
		RideID:      req.RideID,
		ReviewerID:  reviewerID,
		RatedUserID: req.RatedUserID,
		Role:        role,
		Rating:      req.Rating,
		Comment:     req.Comment,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("review submitted",
		zap.String("ride_id", review.RideID.String()),
		zap.String("rated_user_id", review.RatedUserID.String()),
		zap.String("role", string(role)),
		zap.Int("rating", review.Rating))

	return review, nil
}

// GetMyProfile returns the caller's aggregates with their recent reviews.
func (s *Service) GetMyProfile(ctx context.Context, userID uuid.UUID) (*RatingProfile, error) {
	rating, err := s.repo.GetUserRating(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, _, err := s.repo.ListReviewsReceived(ctx, userID, 10, 0)
	if err != nil {
		return nil, err
	}

	return &RatingProfile{UserID: userID, Rating: *rating, RecentReviews: recent}, nil
}

// GetUserProfile returns another user's public aggregates.
func (s *Service) GetUserProfile(ctx context.Context, userID uuid.UUID) (*RatingProfile, error) {
	rating, err := s.repo.GetUserRating(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RatingProfile{UserID: userID, Rating: *rating}, nil
}

// ListReviewsGiven returns reviews the caller has written.
func (s *Service) ListReviewsGiven(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error) {
	return s.repo.ListReviewsGiven(ctx, userID, limit, offset)
}

// ListReviewsReceived returns reviews written about the caller.
func (s *Service) ListReviewsReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error) {
	return s.repo.ListReviewsReceived(ctx, userID, limit, offset)
}
