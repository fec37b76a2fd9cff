package ratings

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecopool/carpool/pkg/models"
)

// ReviewRole is the capacity in which the rated user is being reviewed.
// A passenger reviews the driver's driving; a driver reviews how the rated
// user behaved as a passenger. The two aggregates never mix.
type ReviewRole string

const (
	RoleDriver    ReviewRole = "driver"
	RolePassenger ReviewRole = "passenger"
)

// Review is a single per-ride rating of one user by another.
type Review struct {
	ID          uuid.UUID  `json:"id"`
	RideID      uuid.UUID  `json:"ride_id"`
	ReviewerID  uuid.UUID  `json:"reviewer_id"`
	RatedUserID uuid.UUID  `json:"rated_user_id"`
	Role        ReviewRole `json:"role"`
	Rating      int        `json:"rating"`
	Comment     string     `json:"comment,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RideParticipants is the slice of a ride the review guards need: who drove,
// who actually travelled, and whether the ride finished.
type RideParticipants struct {
	RideID     uuid.UUID
	DriverID   uuid.UUID
	Status     models.RideStatus
	Passengers map[uuid.UUID]models.PassengerStatus
}

// SubmitReviewRequest submits a rating for a completed ride
type SubmitReviewRequest struct {
	RideID      uuid.UUID `json:"ride_id" binding:"required"`
	RatedUserID uuid.UUID `json:"rated_user_id" binding:"required"`
	Rating      int       `json:"rating" binding:"required,min=1,max=5"`
	Comment     string    `json:"comment,omitempty"`
}

// RatingProfile is a user's aggregated rating, split by role.
type RatingProfile struct {
	UserID        uuid.UUID         `json:"user_id"`
	Rating        models.UserRating `json:"rating"`
	RecentReviews []Review          `json:"recent_reviews,omitempty"`
}
