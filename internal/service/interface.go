package service

import (
	"context"

	"github.com/hirelocal/trust-server/internal/repository/models"
)

// RatingStore defines the rating ledger operations the service depends on.
type RatingStore interface {
	Insert(ctx context.Context, rating models.Rating) (models.Rating, error)
	ExistsForJob(ctx context.Context, jobID string) (bool, error)
	TrustAggregate(ctx context.Context, providerID string) (models.TrustAggregate, error)
	CountByProvider(ctx context.Context, providerID string) (int64, error)
}

// JobStore defines the job ledger operations the service depends on.
type JobStore interface {
	Find(ctx context.Context, id string) (models.Job, error)
	CountsByProvider(ctx context.Context, providerID string) (models.ProviderJobCounts, error)
}

// ProviderStore defines the provider operations the service depends on.
type ProviderStore interface {
	Find(ctx context.Context, id string) (models.Provider, error)
	UpdateTrustScore(ctx context.Context, id string, score float64) error
}
