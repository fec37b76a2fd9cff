package ratings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ecopool/carpool/pkg/common"
	"github.com/ecopool/carpool/pkg/database"
	"github.com/ecopool/carpool/pkg/models"
)

const reviewColumns = `id, ride_id, reviewer_id, rated_user_id, role, rating, comment, created_at`

// Repository handles ratings data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new ratings repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateReview inserts the review and refreshes the rated user's aggregate
// for the reviewed role in one transaction. The aggregate is recomputed from
// the review set rather than incremented, so a retry cannot skew it.
func (r *Repository) CreateReview(ctx context.Context, review *Review) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO reviews (id, ride_id, reviewer_id, rated_user_id, role, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			review.ID, review.RideID, review.ReviewerID, review.RatedUserID,
			review.Role, review.Rating, review.Comment, review.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return common.NewConflictError("you have already reviewed this ride")
			}
			return err
		}

		var avg float64
		var count int
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(AVG(rating), 0), COUNT(*)
			FROM reviews
			WHERE rated_user_id = $1 AND role = $2`,
			review.RatedUserID, review.Role,
		).Scan(&avg, &count)
		if err != nil {
			return err
		}

		column := "passenger"
		if review.Role == RoleDriver {
			column = "driver"
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET `+column+`_rating_avg = $2, `+column+`_rating_count = $3, updated_at = NOW()
			WHERE id = $1`,
			review.RatedUserID, avg, count,
		)
		return err
	})
}

// GetRideForReview loads the minimal ride state the review guards need.
func (r *Repository) GetRideForReview(ctx context.Context, rideID uuid.UUID) (*RideParticipants, error) {
	rp := &RideParticipants{RideID: rideID, Passengers: make(map[uuid.UUID]models.PassengerStatus)}

	err := r.db.QueryRow(ctx, `
		SELECT driver_id, status FROM rides WHERE id = $1`, rideID,
	).Scan(&rp.DriverID, &rp.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("ride not found")
		}
		return nil, common.NewInternalError("failed to get ride", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id, status FROM ride_passengers WHERE ride_id = $1`, rideID,
	)
	if err != nil {
		return nil, common.NewInternalError("failed to get ride passengers", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		var status models.PassengerStatus
		if err := rows.Scan(&userID, &status); err != nil {
			return nil, common.NewInternalError("failed to scan ride passenger", err)
		}
		rp.Passengers[userID] = status
	}
	return rp, rows.Err()
}

// GetUserRating returns the cached per-role aggregates from the user row.
func (r *Repository) GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRating, error) {
	rating := &models.UserRating{}
	err := r.db.QueryRow(ctx, `
		SELECT driver_rating_avg, driver_rating_count,
			passenger_rating_avg, passenger_rating_count
		FROM users WHERE id = $1`, userID,
	).Scan(
		&rating.AsDriver.Average, &rating.AsDriver.Count,
		&rating.AsPassenger.Average, &rating.AsPassenger.Count,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("user not found")
		}
		return nil, common.NewInternalError("failed to get user rating", err)
	}
	return rating, nil
}

// ListReviewsReceived returns reviews written about a user, newest first.
func (r *Repository) ListReviewsReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error) {
	return r.listReviews(ctx, "rated_user_id", userID, limit, offset)
}

// ListReviewsGiven returns reviews a user has written, newest first.
func (r *Repository) ListReviewsGiven(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Review, int64, error) {
	return r.listReviews(ctx, "reviewer_id", userID, limit, offset)
}

func (r *Repository) listReviews(ctx context.Context, column string, userID uuid.UUID, limit, offset int) ([]Review, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE `+column+` = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to count reviews", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE `+column+` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, common.NewInternalError("failed to list reviews", err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		var review Review
		if err := rows.Scan(
			&review.ID, &review.RideID, &review.ReviewerID, &review.RatedUserID,
			&review.Role, &review.Rating, &review.Comment, &review.CreatedAt,
		); err != nil {
			return nil, 0, common.NewInternalError("failed to scan review", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, total, rows.Err()
}
