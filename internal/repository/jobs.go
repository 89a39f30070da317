package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/trust-server/internal/repository/models"
)

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert stores a new job in pending status unless another status is set.
func (r *JobRepository) Insert(ctx context.Context, job models.Job) (models.Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO jobs (id, customer_id, provider_id, status, price, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.CustomerID, job.ProviderID, job.Status, job.Price, job.CompletedAt, job.CreatedAt,
	)
	if err != nil {
		return models.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Find returns the job with the given id or ErrNotFound.
func (r *JobRepository) Find(ctx context.Context, id string) (models.Job, error) {
	const query = `
		SELECT id, customer_id, provider_id, status, price, completed_at, created_at
		FROM jobs
		WHERE id = ?
	`

	var job models.Job
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.CustomerID, &job.ProviderID, &job.Status, &job.Price, &completedAt, &job.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Job{}, ErrNotFound
		}
		return models.Job{}, fmt.Errorf("query FindJob: %w", err)
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// UpdateStatus moves a job to a new status, recording the completion time
// when one is supplied.
func (r *JobRepository) UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	const query = `UPDATE jobs SET status = ?, completed_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, status, completedAt, id)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountsByProvider returns the total and completed job counts for a provider.
func (r *JobRepository) CountsByProvider(ctx context.Context, providerID string) (models.ProviderJobCounts, error) {
	const query = `
		SELECT
			COUNT(id) AS total,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM jobs
		WHERE provider_id = ?
	`

	var counts models.ProviderJobCounts
	err := r.db.QueryRowContext(ctx, query, providerID).Scan(&counts.Total, &counts.Completed)
	if err != nil {
		return models.ProviderJobCounts{}, fmt.Errorf("query CountsByProvider: %w", err)
	}
	return counts, nil
}

// List returns jobs matching the filter, newest first.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	query := `
		SELECT id, customer_id, provider_id, status, price, completed_at, created_at
		FROM jobs
	`
	var where []string
	var args []any
	if filter.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.ProviderID != "" {
		where = append(where, "provider_id = ?")
		args = append(args, filter.ProviderID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ListJobs: %w", err)
	}
	defer rows.Close()

	var results []models.Job
	for rows.Next() {
		var job models.Job
		var completedAt sql.NullTime
		if err := rows.Scan(
			&job.ID, &job.CustomerID, &job.ProviderID, &job.Status, &job.Price, &completedAt, &job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ListJobs row: %w", err)
		}
		if completedAt.Valid {
			job.CompletedAt = &completedAt.Time
		}
		results = append(results, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListJobs: %w", err)
	}
	return results, nil
}
