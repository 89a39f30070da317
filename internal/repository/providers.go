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

type ProviderRepository struct {
	db *sql.DB
}

func NewProviderRepository(db *sql.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

func (r *ProviderRepository) Insert(ctx context.Context, provider models.Provider) (models.Provider, error) {
	if provider.ID == "" {
		provider.ID = uuid.NewString()
	}
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO providers (id, user_name, service_type, description, trust_score, verification, neighborhood_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		provider.ID, provider.UserName, provider.ServiceType, provider.Description,
		provider.TrustScore, provider.Verification, provider.NeighborhoodID, provider.CreatedAt,
	)
	if err != nil {
		return models.Provider{}, fmt.Errorf("insert provider: %w", err)
	}
	return provider, nil
}

// Find returns the provider with the given id or ErrNotFound.
func (r *ProviderRepository) Find(ctx context.Context, id string) (models.Provider, error) {
	const query = `
		SELECT id, user_name, service_type, description, trust_score, verification, neighborhood_id, created_at
		FROM providers
		WHERE id = ?
	`

	var p models.Provider
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserName, &p.ServiceType, &p.Description,
		&p.TrustScore, &p.Verification, &p.NeighborhoodID, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Provider{}, ErrNotFound
		}
		return models.Provider{}, fmt.Errorf("query FindProvider: %w", err)
	}
	return p, nil
}

// UpdateTrustScore overwrites the provider's persisted trust score.
func (r *ProviderRepository) UpdateTrustScore(ctx context.Context, id string, score float64) error {
	const query = `UPDATE providers SET trust_score = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("update trust score: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trust score rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns providers matching the filter, best trust score first.
func (r *ProviderRepository) List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, error) {
	query := `
		SELECT id, user_name, service_type, description, trust_score, verification, neighborhood_id, created_at
		FROM providers
	`
	var where []string
	var args []any
	if filter.ServiceType != "" {
		where = append(where, "service_type = ?")
		args = append(args, filter.ServiceType)
	}
	if filter.NeighborhoodID != "" {
		where = append(where, "neighborhood_id = ?")
		args = append(args, filter.NeighborhoodID)
	}
	if filter.Query != "" {
		where = append(where, "(user_name LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.VerifiedOnly {
		where = append(where, "verification = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY trust_score DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ListProviders: %w", err)
	}
	defer rows.Close()

	var results []models.Provider
	for rows.Next() {
		var p models.Provider
		if err := rows.Scan(
			&p.ID, &p.UserName, &p.ServiceType, &p.Description,
			&p.TrustScore, &p.Verification, &p.NeighborhoodID, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ListProviders row: %w", err)
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListProviders: %w", err)
	}
	return results, nil
}
