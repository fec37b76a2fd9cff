package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/models"
)

type fakeRepo struct {
	rides   map[uuid.UUID]*RideParticipants
	reviews []*Review
	ratings map[uuid.UUID]*models.UserRating
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rides:   make(map[uuid.UUID]*RideParticipants),
		ratings: make(map[uuid.UUID]*models.UserRating),
	}
}

func (f *fakeRepo) CreateReview(_ context.Context, review *Review) error {
	for _, existing := range f.reviews {
		if existing.RideID == review.RideID && existing.ReviewerID == review.ReviewerID {
			return common.NewConflictError("you have already reviewed this ride")
		}
	}
	f.reviews = append(f.reviews, review)

	// Recompute the per-role aggregate the way the SQL does.
	var sum, count int
	for _, rv := range f.reviews {
		if rv.RatedUserID == review.RatedUserID && rv.Role == review.Role {
			sum += rv.Rating
			count++
		}
	}
	rating, ok := f.ratings[review.RatedUserID]
	if !ok {
		rating = &models.UserRating{}
		f.ratings[review.RatedUserID] = rating
	}
	agg := models.RoleRating{Average: float64(sum) / float64(count), Count: count}
	if review.Role == RoleDriver {
		rating.AsDriver = agg
	} else {
		rating.AsPassenger = agg
	}
	return nil
}

func (f *fakeRepo) GetRideForReview(_ context.Context, rideID uuid.UUID) (*RideParticipants, error) {
	ride, ok := f.rides[rideID]
	if !ok {
		return nil, common.NewNotFoundError("ride not found")
	}
	return ride, nil
}

func (f *fakeRepo) GetUserRating(_ context.Context, userID uuid.UUID) (*models.UserRating, error) {
	rating, ok := f.ratings[userID]
	if !ok {
		return &models.UserRating{}, nil
	}
	return rating, nil
}

func (f *fakeRepo) ListReviewsReceived(_ context.Context, userID uuid.UUID, _, _ int) ([]Review, int64, error) {
	var out []Review
	for _, rv := range f.reviews {
		if rv.RatedUserID == userID {
			out = append(out, *rv)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) ListReviewsGiven(_ context.Context, userID uuid.UUID, _, _ int) ([]Review, int64, error) {
	var out []Review
	for _, rv := range f.reviews {
		if rv.ReviewerID == userID {
			out = append(out, *rv)
		}
	}
	return out, int64(len(out)), nil
}

func seedCompletedRide(repo *fakeRepo, driverID uuid.UUID, passengers ...uuid.UUID) uuid.UUID {
	rideID := uuid.New()
	ride := &RideParticipants{
		RideID:     rideID,
		DriverID:   driverID,
		Status:     models.RideStatusCompleted,
		Passengers: make(map[uuid.UUID]models.PassengerStatus),
	}
	for _, p := range passengers {
		ride.Passengers[p] = models.PassengerStatusAccepted
	}
	repo.rides[rideID] = ride
	return rideID
}

func TestSubmitReview(t *testing.T) {
	t.Run("passenger reviews the driver", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		passengerID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, passengerID)

		review, err := svc.SubmitReview(context.Background(), passengerID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 4, Comment: "smooth ride",
		})

		require.NoError(t, err)
		assert.Equal(t, RoleDriver, review.Role)
		assert.Equal(t, 4.0, repo.ratings[driverID].AsDriver.Average)
		assert.Equal(t, 1, repo.ratings[driverID].AsDriver.Count)
		assert.Zero(t, repo.ratings[driverID].AsPassenger.Count)
	})

	t.Run("driver reviews a passenger", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		passengerID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, passengerID)

		review, err := svc.SubmitReview(context.Background(), driverID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: passengerID, Rating: 5,
		})

		require.NoError(t, err)
		assert.Equal(t, RolePassenger, review.Role)
		assert.Equal(t, 5.0, repo.ratings[passengerID].AsPassenger.Average)
	})

	t.Run("aggregate averages across rides per role", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		p1 := uuid.New()
		p2 := uuid.New()
		ride1 := seedCompletedRide(repo, driverID, p1)
		ride2 := seedCompletedRide(repo, driverID, p2)

		_, err := svc.SubmitReview(context.Background(), p1, &SubmitReviewRequest{
			RideID: ride1, RatedUserID: driverID, Rating: 4,
		})
		require.NoError(t, err)
		_, err = svc.SubmitReview(context.Background(), p2, &SubmitReviewRequest{
			RideID: ride2, RatedUserID: driverID, Rating: 2,
		})
		require.NoError(t, err)

		assert.Equal(t, 3.0, repo.ratings[driverID].AsDriver.Average)
		assert.Equal(t, 2, repo.ratings[driverID].AsDriver.Count)
	})

	t.Run("one review per reviewer per ride", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		passengerID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, passengerID)

		_, err := svc.SubmitReview(context.Background(), passengerID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 4,
		})
		require.NoError(t, err)

		_, err = svc.SubmitReview(context.Background(), passengerID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 1,
		})

		assert.ErrorIs(t, err, common.ErrConflict)
		assert.Equal(t, 4.0, repo.ratings[driverID].AsDriver.Average)
		assert.Equal(t, 1, repo.ratings[driverID].AsDriver.Count)
	})

	t.Run("only completed rides can be reviewed", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		passengerID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, passengerID)
		repo.rides[rideID].Status = models.RideStatusInProgress

		_, err := svc.SubmitReview(context.Background(), passengerID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 4,
		})

		assert.ErrorIs(t, err, common.ErrInvalidState)
	})

	t.Run("non-participants are rejected", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, uuid.New())

		_, err := svc.SubmitReview(context.Background(), uuid.New(), &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 4,
		})

		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("pending passengers cannot review", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		pendingID := uuid.New()
		rideID := seedCompletedRide(repo, driverID)
		repo.rides[rideID].Passengers[pendingID] = models.PassengerStatusPending

		_, err := svc.SubmitReview(context.Background(), pendingID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 4,
		})

		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("passenger cannot rate another passenger", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		p1 := uuid.New()
		p2 := uuid.New()
		rideID := seedCompletedRide(repo, driverID, p1, p2)

		_, err := svc.SubmitReview(context.Background(), p1, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: p2, Rating: 4,
		})

		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("self-review is rejected", func(t *testing.T) {
		repo := newFakeRepo()
		svc := NewService(repo)
		driverID := uuid.New()
		rideID := seedCompletedRide(repo, driverID, uuid.New())

		_, err := svc.SubmitReview(context.Background(), driverID, &SubmitReviewRequest{
			RideID: rideID, RatedUserID: driverID, Rating: 5,
		})

		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestGetMyProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	driverID := uuid.New()
	passengerID := uuid.New()
	rideID := seedCompletedRide(repo, driverID, passengerID)

	_, err := svc.SubmitReview(context.Background(), passengerID, &SubmitReviewRequest{
		RideID: rideID, RatedUserID: driverID, Rating: 5, Comment: "great",
	})
	require.NoError(t, err)

	profile, err := svc.GetMyProfile(context.Background(), driverID)

	require.NoError(t, err)
	assert.Equal(t, 5.0, profile.Rating.AsDriver.Average)
	require.Len(t, profile.RecentReviews, 1)
	assert.Equal(t, "great", profile.RecentReviews[0].Comment)
}
