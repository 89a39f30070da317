package httpserver

import (
	"context"
	"time"

	"github.com/hirelocal/trust-server/internal/repository/models"
	"github.com/hirelocal/trust-server/internal/service"
)

// TrustAPI is the core rating/trust surface consumed by the handlers.
type TrustAPI interface {
	CheckEligibility(ctx context.Context, jobID string) (bool, error)
	SubmitRating(ctx context.Context, in service.RatingInput) (models.Rating, float64, error)
	RecomputeTrustScore(ctx context.Context, providerID string) (float64, error)
	GetProviderStats(ctx context.Context, providerID string) (service.ProviderStats, error)
}

// Cacher defines the interface for cache operations.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// RatingDirectory exposes rating listing for the read endpoints.
type RatingDirectory interface {
	List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error)
}

// JobDirectory exposes the job collaborator surface.
type JobDirectory interface {
	Insert(ctx context.Context, job models.Job) (models.Job, error)
	Find(ctx context.Context, id string) (models.Job, error)
	UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
}

// ProviderDirectory exposes the provider collaborator surface.
type ProviderDirectory interface {
	Insert(ctx context.Context, provider models.Provider) (models.Provider, error)
	Find(ctx context.Context, id string) (models.Provider, error)
	List(ctx context.Context, filter models.ProviderFilter) ([]models.Provider, error)
}
