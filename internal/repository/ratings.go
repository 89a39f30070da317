package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/hirelocal/trust-server/internal/repository/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRating is returned when a second rating targets the same job.
	ErrDuplicateRating = errors.New("rating already exists for job")
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Insert stores a new rating. The UNIQUE constraint on job_id backstops the
// one-rating-per-job invariant against concurrent submissions.
func (r *RatingRepository) Insert(ctx context.Context, rating models.Rating) (models.Rating, error) {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO ratings (id, job_id, customer_id, provider_id, reliability, punctuality, price_honesty, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rating.ID, rating.JobID, rating.CustomerID, rating.ProviderID,
		rating.Reliability, rating.Punctuality, rating.PriceHonesty,
		rating.Comment, rating.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.Rating{}, ErrDuplicateRating
		}
		return models.Rating{}, fmt.Errorf("insert rating: %w", err)
	}

	return rating, nil
}

// ExistsForJob reports whether any rating references the given job.
func (r *RatingRepository) ExistsForJob(ctx context.Context, jobID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ratings WHERE job_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jobID).Scan(&exists); err != nil {
		return false, fmt.Errorf("query ExistsForJob: %w", err)
	}
	return exists, nil
}

// TrustAggregate computes the provider's unrounded trust score entirely in
// SQL as a full rescan over all of the provider's ratings.
func (r *RatingRepository) TrustAggregate(ctx context.Context, providerID string) (models.TrustAggregate, error) {
	const query = `
		SELECT
			AVG((CAST(reliability AS REAL) + punctuality + price_honesty) / 3.0) AS score,
			COUNT(id) AS count
		FROM ratings
		WHERE provider_id = ?
	`

	var score sql.NullFloat64
	var count sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, providerID).Scan(&score, &count)
	if err != nil {
		return models.TrustAggregate{}, fmt.Errorf("query TrustAggregate: %w", err)
	}

	agg := models.TrustAggregate{}
	if count.Valid {
		agg.Count = count.Int64
	}
	if score.Valid {
		agg.Score = score.Float64
	}
	return agg, nil
}

// CountByProvider returns the total number of ratings a provider has received.
func (r *RatingRepository) CountByProvider(ctx context.Context, providerID string) (int64, error) {
	const query = `SELECT COUNT(id) FROM ratings WHERE provider_id = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, providerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("query CountByProvider: %w", err)
	}
	return count, nil
}

// List returns ratings matching the filter, newest first.
func (r *RatingRepository) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error) {
	query := `
		SELECT id, job_id, customer_id, provider_id, reliability, punctuality, price_honesty, comment, created_at
		FROM ratings
	`
	var where []string
	var args []any
	if filter.ProviderID != "" {
		where = append(where, "provider_id = ?")
		args = append(args, filter.ProviderID)
	}
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, filter.JobID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ListRatings: %w", err)
	}
	defer rows.Close()

	var results []models.Rating
	for rows.Next() {
		var rating models.Rating
		if err := rows.Scan(
			&rating.ID, &rating.JobID, &rating.CustomerID, &rating.ProviderID,
			&rating.Reliability, &rating.Punctuality, &rating.PriceHonesty,
			&rating.Comment, &rating.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ListRatings row: %w", err)
		}
		results = append(results, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListRatings: %w", err)
	}
	return results, nil
}
